// Package memory is an in-process repository.Store used for development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"tesoro/internal/core"
	"tesoro/internal/repository"
)

type Store struct {
	mu           sync.Mutex
	lists        map[core.ListID]core.ExpensesList
	participants map[core.ParticipantID]participantRow
	expenses     map[core.ExpenseID]repository.Expense

	nextList        core.ListID
	nextParticipant core.ParticipantID
	nextExpense     core.ExpenseID
	now             func() time.Time
}

type participantRow struct {
	listID core.ListID
	core.Participant
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		lists:        make(map[core.ListID]core.ExpensesList),
		participants: make(map[core.ParticipantID]participantRow),
		expenses:     make(map[core.ExpenseID]repository.Expense),
		now:          time.Now,
	}
}

func (s *Store) CreateList(_ context.Context, l core.ExpensesList) (core.ExpensesList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextList++
	l.ID = s.nextList
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now().UTC()
	}
	s.lists[l.ID] = l
	return l, nil
}

func (s *Store) GetList(_ context.Context, id core.ListID) (core.ExpensesList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[id]
	if !ok {
		return core.ExpensesList{}, fmt.Errorf("expenses list %d: %w", id, repository.ErrNotFound)
	}
	return l, nil
}

func (s *Store) ListLists(_ context.Context, f repository.ListFilter, p repository.Pagination) (repository.Page[core.ExpensesList], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []core.ExpensesList
	for _, l := range s.lists {
		if l.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Name), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		matched = append(matched, l)
	}
	slices.SortFunc(matched, func(a, b core.ExpensesList) int { return cmp.Compare(a.ID, b.ID) })

	start, end := p.Window(len(matched))
	return repository.NewPage(slices.Clone(matched[start:end]), len(matched), p), nil
}

func (s *Store) UpdateList(_ context.Context, l core.ExpensesList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.lists[l.ID]
	if !ok {
		return fmt.Errorf("expenses list %d: %w", l.ID, repository.ErrNotFound)
	}
	l.OwnerID = old.OwnerID
	l.CreatedAt = old.CreatedAt
	s.lists[l.ID] = l
	return nil
}

func (s *Store) DeleteList(_ context.Context, id core.ListID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[id]; !ok {
		return fmt.Errorf("expenses list %d: %w", id, repository.ErrNotFound)
	}
	delete(s.lists, id)
	maps.DeleteFunc(s.participants, func(_ core.ParticipantID, p participantRow) bool { return p.listID == id })
	maps.DeleteFunc(s.expenses, func(_ core.ExpenseID, e repository.Expense) bool { return e.ListID == id })
	return nil
}

func (s *Store) CreateParticipant(_ context.Context, listID core.ListID, p core.Participant) (core.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[listID]; !ok {
		return core.Participant{}, fmt.Errorf("expenses list %d: %w", listID, repository.ErrNotFound)
	}
	for _, row := range s.participants {
		if row.listID == listID && row.Name == p.Name {
			return core.Participant{}, fmt.Errorf("participant %q: %w", p.Name, repository.ErrConflict)
		}
	}
	s.nextParticipant++
	p.ID = s.nextParticipant
	s.participants[p.ID] = participantRow{listID: listID, Participant: p}
	return p, nil
}

func (s *Store) ListParticipants(_ context.Context, listID core.ListID) ([]core.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Participant{}
	for _, row := range s.participants {
		if row.listID == listID {
			out = append(out, row.Participant)
		}
	}
	slices.SortFunc(out, func(a, b core.Participant) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e repository.Expense) (repository.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[e.ListID]; !ok {
		return repository.Expense{}, fmt.Errorf("expenses list %d: %w", e.ListID, repository.ErrNotFound)
	}
	s.nextExpense++
	e.ID = s.nextExpense
	e.Beneficiaries = slices.Clone(e.Beneficiaries)
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(_ context.Context, id core.ExpenseID) (repository.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return repository.Expense{}, fmt.Errorf("expense %d: %w", id, repository.ErrNotFound)
	}
	e.Beneficiaries = slices.Clone(e.Beneficiaries)
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, listID core.ListID, f repository.ExpenseFilter, p repository.Pagination) (repository.Page[core.ExpenseRecord], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []core.ExpenseRecord
	for _, e := range s.expenses {
		if e.ListID != listID {
			continue
		}
		if f.PaidBy != 0 && e.PaidBy != f.PaidBy {
			continue
		}
		rec := e.ExpenseRecord
		rec.Beneficiaries = slices.Clone(rec.Beneficiaries)
		matched = append(matched, rec)
	}
	slices.SortFunc(matched, func(a, b core.ExpenseRecord) int { return cmp.Compare(a.ID, b.ID) })

	start, end := p.Window(len(matched))
	return repository.NewPage(matched[start:end], len(matched), p), nil
}

func (s *Store) UpdateExpense(_ context.Context, e repository.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.expenses[e.ID]
	if !ok {
		return fmt.Errorf("expense %d: %w", e.ID, repository.ErrNotFound)
	}
	e.ListID = old.ListID
	e.Beneficiaries = slices.Clone(e.Beneficiaries)
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id core.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return fmt.Errorf("expense %d: %w", id, repository.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
