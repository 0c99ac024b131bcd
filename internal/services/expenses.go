package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"tesoro/internal/core"
	"tesoro/internal/log"
	"tesoro/internal/repository"
)

type (
	// ExpenseInput holds the fields of a new expense.
	ExpenseInput struct {
		Name          string
		Date          core.Date
		Amount        core.Money
		PaidBy        core.ParticipantID
		Beneficiaries []core.ParticipantID
	}

	// ExpensePatch changes the non-nil fields of an expense.
	ExpensePatch struct {
		Name          *string
		Date          *core.Date
		Amount        *core.Money
		PaidBy        *core.ParticipantID
		Beneficiaries *[]core.ParticipantID
	}
)

func (s *ExpensesListService) CreateParticipant(ctx context.Context, ownerID string, listID core.ListID, name string) (core.Participant, error) {
	if _, err := s.GetList(ctx, ownerID, listID); err != nil {
		return core.Participant{}, err
	}

	p := core.Participant{Name: strings.TrimSpace(name)}
	if err := p.Validate(); err != nil {
		return core.Participant{}, invalid("name", err)
	}

	created, err := s.store.CreateParticipant(ctx, listID, p)
	if err != nil {
		return core.Participant{}, fmt.Errorf("create participant: %w", err)
	}
	s.invalidate(listID)
	return created, nil
}

func (s *ExpensesListService) ListParticipants(ctx context.Context, ownerID string, listID core.ListID) ([]core.Participant, error) {
	if _, err := s.GetList(ctx, ownerID, listID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, listID)
}

// checkExpense validates e and that its payer and beneficiaries are on the
// list's roster.
func (s *ExpensesListService) checkExpense(ctx context.Context, listID core.ListID, e core.ExpenseRecord) error {
	if err := e.Validate(); err != nil {
		switch {
		case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrNameTooLong):
			return invalid("name", err)
		case errors.Is(err, core.ErrInvalidAmount):
			return invalid("amount", err)
		case errors.Is(err, core.ErrMissingPayer):
			return invalid("paidBy", err)
		case errors.Is(err, core.ErrEmptyBeneficiarySet):
			return invalid("participantIds", err)
		default:
			return invalid("date", err)
		}
	}

	roster, err := s.store.ListParticipants(ctx, listID)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	known := func(id core.ParticipantID) bool {
		return slices.ContainsFunc(roster, func(p core.Participant) bool { return p.ID == id })
	}
	if !known(e.PaidBy) {
		return invalid("paidBy", fmt.Errorf("%w %d", core.ErrUnknownParticipant, e.PaidBy))
	}
	for _, id := range e.Beneficiaries {
		if !known(id) {
			return invalid("participantIds", fmt.Errorf("%w %d", core.ErrUnknownParticipant, id))
		}
	}
	return nil
}

func dedupe(ids []core.ParticipantID) []core.ParticipantID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func (s *ExpensesListService) CreateExpense(ctx context.Context, ownerID string, listID core.ListID, in ExpenseInput) (repository.Expense, error) {
	if _, err := s.GetList(ctx, ownerID, listID); err != nil {
		return repository.Expense{}, err
	}

	rec := core.ExpenseRecord{
		Name:          strings.TrimSpace(in.Name),
		Date:          in.Date,
		Amount:        in.Amount,
		PaidBy:        in.PaidBy,
		Beneficiaries: dedupe(in.Beneficiaries),
	}
	if err := s.checkExpense(ctx, listID, rec); err != nil {
		return repository.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, repository.Expense{ListID: listID, ExpenseRecord: rec})
	if err != nil {
		return repository.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.invalidate(listID)

	s.logger.InfoContext(ctx, "Expense created",
		log.NewFields().WithList(listID).WithExpense(created.ExpenseRecord).WithOperation(log.OpCreate).ToSlice()...)
	return created, nil
}

func (s *ExpensesListService) ListExpenses(ctx context.Context, ownerID string, listID core.ListID, f repository.ExpenseFilter, p repository.Pagination) (repository.Page[core.ExpenseRecord], error) {
	if _, err := s.GetList(ctx, ownerID, listID); err != nil {
		return repository.Page[core.ExpenseRecord]{}, err
	}
	return s.store.ListExpenses(ctx, listID, f, p)
}

// GetExpense returns an expense whose list belongs to ownerID.
func (s *ExpensesListService) GetExpense(ctx context.Context, ownerID string, id core.ExpenseID) (repository.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Expense{}, expenseNotFound(id)
		}
		return repository.Expense{}, err
	}
	if _, err := s.GetList(ctx, ownerID, e.ListID); err != nil {
		if IsNotFound(err) {
			return repository.Expense{}, expenseNotFound(id)
		}
		return repository.Expense{}, err
	}
	return e, nil
}

func (s *ExpensesListService) UpdateExpense(ctx context.Context, ownerID string, id core.ExpenseID, patch ExpensePatch) (repository.Expense, error) {
	e, err := s.GetExpense(ctx, ownerID, id)
	if err != nil {
		return repository.Expense{}, err
	}

	if patch.Name != nil {
		e.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.Amount != nil {
		e.Amount = *patch.Amount
	}
	if patch.PaidBy != nil {
		e.PaidBy = *patch.PaidBy
	}
	if patch.Beneficiaries != nil {
		e.Beneficiaries = dedupe(*patch.Beneficiaries)
	}
	if err := s.checkExpense(ctx, e.ListID, e.ExpenseRecord); err != nil {
		return repository.Expense{}, err
	}

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return repository.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.invalidate(e.ListID)

	s.logger.DebugContext(ctx, "Expense updated",
		log.NewFields().WithList(e.ListID).WithExpense(e.ExpenseRecord).WithOperation(log.OpUpdate).ToSlice()...)
	return e, nil
}

func (s *ExpensesListService) DeleteExpense(ctx context.Context, ownerID string, id core.ExpenseID) error {
	e, err := s.GetExpense(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return expenseNotFound(id)
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	s.invalidate(e.ListID)
	return nil
}
