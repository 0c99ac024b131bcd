package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tesoro/internal/amqp"
	"tesoro/internal/core"
	"tesoro/internal/log"
	"tesoro/internal/repository"
)

// ExportPublisher hands export requests to the worker.
type ExportPublisher interface {
	PublishExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error
}

// ExpensesListService owns the expenses lists of every user together with
// their participants and expenses. Every call is scoped to ownerID.
type ExpensesListService struct {
	store           repository.Store
	resolutions     *ResolutionService
	publisher       ExportPublisher
	defaultCurrency string
	logger          *log.Logger
}

func NewExpensesListService(store repository.Store, resolutions *ResolutionService, publisher ExportPublisher, defaultCurrency string, logger *log.Logger) *ExpensesListService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpensesListService{
		store:           store,
		resolutions:     resolutions,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
		logger:          logger.WithComponent(log.ComponentLists),
	}
}

type (
	// ListInput holds the fields of a new expenses list.
	ListInput struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Currency    string `json:"currency"`
	}

	// ListPatch changes the non-nil fields of a list.
	ListPatch struct {
		Name        *string          `json:"name"`
		Description *string          `json:"description"`
		Status      *core.ListStatus `json:"status"`
		Currency    *string          `json:"currency"`
	}

	// ListQuery filters the lists of one owner.
	ListQuery struct {
		Status core.ListStatus
		Search string
	}
)

func (s *ExpensesListService) invalidate(id core.ListID) {
	if s.resolutions != nil {
		s.resolutions.Invalidate(id)
	}
}

func validateList(l core.ExpensesList) error {
	if err := l.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrNameTooLong):
			return invalid("name", err)
		case errors.Is(err, core.ErrDescriptionTooLong):
			return invalid("description", err)
		case errors.Is(err, core.ErrInvalidStatus):
			return invalid("status", err)
		default:
			return invalid("currency", err)
		}
	}
	return nil
}

func (s *ExpensesListService) CreateList(ctx context.Context, ownerID string, in ListInput) (core.ExpensesList, error) {
	currency := in.Currency
	if strings.TrimSpace(currency) == "" {
		currency = s.defaultCurrency
	}
	code, err := core.NormalizeCurrency(currency)
	if err != nil {
		return core.ExpensesList{}, invalid("currency", err)
	}

	l := core.ExpensesList{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Status:      core.ListOpen,
		Currency:    code,
	}
	if err := validateList(l); err != nil {
		return core.ExpensesList{}, err
	}

	created, err := s.store.CreateList(ctx, l)
	if err != nil {
		return core.ExpensesList{}, fmt.Errorf("create expenses list: %w", err)
	}

	s.logger.InfoContext(ctx, "Expenses list created",
		log.NewFields().WithList(created.ID).WithOperation(log.OpCreate).ToSlice()...)
	return created, nil
}

// GetList returns the list when it exists and belongs to ownerID.
func (s *ExpensesListService) GetList(ctx context.Context, ownerID string, id core.ListID) (core.ExpensesList, error) {
	l, err := s.store.GetList(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return core.ExpensesList{}, listNotFound(id)
		}
		return core.ExpensesList{}, err
	}
	if l.OwnerID != ownerID {
		return core.ExpensesList{}, listNotFound(id)
	}
	return l, nil
}

func (s *ExpensesListService) ListLists(ctx context.Context, ownerID string, q ListQuery, p repository.Pagination) (repository.Page[core.ExpensesList], error) {
	if q.Status != "" && !q.Status.IsValid() {
		return repository.Page[core.ExpensesList]{}, invalid("status", core.ErrInvalidStatus)
	}
	return s.store.ListLists(ctx, repository.ListFilter{OwnerID: ownerID, Status: q.Status, Search: q.Search}, p)
}

func (s *ExpensesListService) UpdateList(ctx context.Context, ownerID string, id core.ListID, patch ListPatch) (core.ExpensesList, error) {
	l, err := s.GetList(ctx, ownerID, id)
	if err != nil {
		return core.ExpensesList{}, err
	}

	if patch.Name != nil {
		l.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		l.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		l.Status = *patch.Status
	}
	if patch.Currency != nil {
		code, err := core.NormalizeCurrency(*patch.Currency)
		if err != nil {
			return core.ExpensesList{}, invalid("currency", err)
		}
		l.Currency = code
	}
	if err := validateList(l); err != nil {
		return core.ExpensesList{}, err
	}

	if err := s.store.UpdateList(ctx, l); err != nil {
		return core.ExpensesList{}, fmt.Errorf("update expenses list: %w", err)
	}
	s.invalidate(id)
	return l, nil
}

func (s *ExpensesListService) DeleteList(ctx context.Context, ownerID string, id core.ListID) error {
	if _, err := s.GetList(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteList(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return listNotFound(id)
		}
		return fmt.Errorf("delete expenses list: %w", err)
	}
	s.invalidate(id)

	s.logger.InfoContext(ctx, "Expenses list deleted",
		log.NewFields().WithList(id).WithOperation(log.OpDelete).ToSlice()...)
	return nil
}

// Resolve returns the resolution of a list owned by ownerID.
func (s *ExpensesListService) Resolve(ctx context.Context, ownerID string, id core.ListID) (core.ExpensesListResolution, error) {
	return s.resolutions.Resolve(ctx, ownerID, id)
}

// RequestExport queues the export of a list's resolution. The list must have
// at least one expense.
func (s *ExpensesListService) RequestExport(ctx context.Context, ownerID string, id core.ListID) (*amqp.ExportRequestMessage, error) {
	if s.publisher == nil {
		return nil, ErrExportUnavailable
	}
	if _, err := s.GetList(ctx, ownerID, id); err != nil {
		return nil, err
	}
	page, err := s.store.ListExpenses(ctx, id, repository.ExpenseFilter{}, repository.Pagination{Page: 1, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("count expenses: %w", err)
	}
	if page.Total == 0 {
		return nil, noExpenses(id)
	}

	msg := amqp.NewExportRequestMessage(int64(id), ownerID)
	if err := s.publisher.PublishExportRequest(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportUnavailable, err)
	}
	return msg, nil
}
