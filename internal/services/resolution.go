package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tesoro/internal/cache"
	"tesoro/internal/core"
	"tesoro/internal/log"
	"tesoro/internal/repository"
	"tesoro/internal/sheets"
)

// ResolutionService resolves stored expenses lists and caches the results
// until the list changes.
type ResolutionService struct {
	store           repository.Store
	cache           cache.Cache[core.ListID, core.ExpensesListResolution]
	defaultCurrency string
	logger          *log.Logger
	structured      *log.StructuredLogger

	// generations counts invalidations per list. A resolution computed
	// from a load that started before an invalidation is not cached.
	mu          sync.Mutex
	generations map[core.ListID]uint64
}

// NewResolutionService creates the service. A nil cache disables caching.
func NewResolutionService(store repository.Store, c cache.Cache[core.ListID, core.ExpensesListResolution], defaultCurrency string, logger *log.Logger) *ResolutionService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentResolution)
	return &ResolutionService{
		store:           store,
		cache:           c,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		structured:      log.NewStructuredLogger(logger),
		generations:     make(map[core.ListID]uint64),
	}
}

type snapshot struct {
	list         core.ExpensesList
	participants []core.Participant
	expenses     []core.ExpenseRecord
}

// load reads the list, its roster and every expense concurrently.
func (s *ResolutionService) load(ctx context.Context, ownerID string, id core.ListID) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := s.store.GetList(gctx, id)
		if err != nil {
			return err
		}
		snap.list = l
		return nil
	})
	g.Go(func() error {
		p, err := s.store.ListParticipants(gctx, id)
		if err != nil {
			return fmt.Errorf("load participants: %w", err)
		}
		snap.participants = p
		return nil
	})
	g.Go(func() error {
		page, err := s.store.ListExpenses(gctx, id, repository.ExpenseFilter{}, repository.All)
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		snap.expenses = page.Items
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return snapshot{}, listNotFound(id)
		}
		return snapshot{}, err
	}
	if snap.list.OwnerID != ownerID {
		return snapshot{}, listNotFound(id)
	}
	return snap, nil
}

func (s *ResolutionService) currency(l core.ExpensesList) string {
	if l.Currency != "" {
		return l.Currency
	}
	return s.defaultCurrency
}

func (s *ResolutionService) resolve(ctx context.Context, snap snapshot) (core.ExpensesListResolution, error) {
	if len(snap.expenses) == 0 {
		return core.ExpensesListResolution{}, noExpenses(snap.list.ID)
	}

	res, err := core.Resolver{Currency: s.currency(snap.list)}.Resolve(snap.expenses, snap.participants)
	if err != nil {
		fields := log.NewFields().WithList(snap.list.ID).WithError(err).WithOperation(log.OpResolve)
		var re *core.ResolutionError
		if errors.As(err, &re) && re.Residual != nil {
			fields.WithBalances(re.Residual)
		}
		if core.IsInputError(err) {
			s.logger.WarnContext(ctx, "Stored expenses cannot be resolved", fields.ToSlice()...)
		} else {
			s.logger.ErrorContext(ctx, "Settlement invariant violated", fields.ToSlice()...)
		}
		return core.ExpensesListResolution{}, fmt.Errorf("resolve expenses list %d: %w", snap.list.ID, err)
	}
	return res, nil
}

// Resolve returns the debt status and settle plan of a list owned by ownerID.
func (s *ResolutionService) Resolve(ctx context.Context, ownerID string, id core.ListID) (core.ExpensesListResolution, error) {
	if s.cache != nil {
		if res, ok := s.cache.Get(id); ok {
			// The cache is keyed by list only; ownership still has to be checked.
			l, err := s.store.GetList(ctx, id)
			if err == nil && l.OwnerID == ownerID {
				s.structured.LogResolution(ctx, id, 0, len(res.Status), res, true)
				return cloneResolution(res), nil
			}
		}
	}

	gen := s.generation(id)
	snap, err := s.load(ctx, ownerID, id)
	if err != nil {
		return core.ExpensesListResolution{}, err
	}
	res, err := s.resolve(ctx, snap)
	if err != nil {
		return core.ExpensesListResolution{}, err
	}

	s.cacheIfCurrent(id, gen, res)
	s.structured.LogResolution(ctx, id, len(snap.expenses), len(snap.participants), res, false)
	return res, nil
}

// Report builds an export report from fresh data, bypassing the cache.
func (s *ResolutionService) Report(ctx context.Context, ownerID string, id core.ListID, now time.Time) (sheets.Report, error) {
	snap, err := s.load(ctx, ownerID, id)
	if err != nil {
		return sheets.Report{}, err
	}
	res, err := s.resolve(ctx, snap)
	if err != nil {
		return sheets.Report{}, err
	}
	return sheets.Report{
		List:         snap.list,
		Participants: snap.participants,
		Resolution:   res,
		GeneratedAt:  now,
	}, nil
}

// Invalidate drops the cached resolution of a list. Resolutions still being
// computed from data read before the call are not cached.
func (s *ResolutionService) Invalidate(id core.ListID) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[id]++
	s.cache.Delete(id)
}

func (s *ResolutionService) generation(id core.ListID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[id]
}

func (s *ResolutionService) cacheIfCurrent(id core.ListID, gen uint64, res core.ExpensesListResolution) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[id] != gen {
		s.logger.Debug("Skipping cache of stale resolution", log.FieldListID, int64(id))
		return
	}
	s.cache.Set(id, cloneResolution(res))
}

func cloneResolution(r core.ExpensesListResolution) core.ExpensesListResolution {
	return core.ExpensesListResolution{
		Currency: r.Currency,
		Status:   r.Status.Clone(),
		Settle:   slices.Clone(r.Settle),
	}
}
