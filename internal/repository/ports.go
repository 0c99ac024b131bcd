// Package repository defines the persistence ports used by the services and
// the value types shared by every backend.
package repository

import (
	"context"
	"errors"

	"tesoro/internal/core"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint would be broken.
	ErrConflict = errors.New("already exists")
)

// Expense is an expense record together with the list it belongs to.
type Expense struct {
	ListID core.ListID `json:"expensesListId"`
	core.ExpenseRecord
}

type (
	// ListFilter narrows ListLists. Empty fields match everything except OwnerID,
	// which is always applied.
	ListFilter struct {
		OwnerID string
		Status  core.ListStatus
		Search  string
	}

	// ExpenseFilter narrows ListExpenses.
	ExpenseFilter struct {
		PaidBy core.ParticipantID
	}
)

// Ports for the persistence adapters.
type (
	ListStore interface {
		CreateList(ctx context.Context, l core.ExpensesList) (core.ExpensesList, error)
		GetList(ctx context.Context, id core.ListID) (core.ExpensesList, error)
		ListLists(ctx context.Context, f ListFilter, p Pagination) (Page[core.ExpensesList], error)
		UpdateList(ctx context.Context, l core.ExpensesList) error
		// DeleteList removes the list with its participants and expenses.
		DeleteList(ctx context.Context, id core.ListID) error
	}

	ParticipantStore interface {
		// CreateParticipant returns ErrConflict when the name is taken in the list.
		CreateParticipant(ctx context.Context, listID core.ListID, p core.Participant) (core.Participant, error)
		// ListParticipants returns the roster ordered by id.
		ListParticipants(ctx context.Context, listID core.ListID) ([]core.Participant, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e Expense) (Expense, error)
		GetExpense(ctx context.Context, id core.ExpenseID) (Expense, error)
		// ListExpenses returns the list's expenses ordered by id.
		ListExpenses(ctx context.Context, listID core.ListID, f ExpenseFilter, p Pagination) (Page[core.ExpenseRecord], error)
		UpdateExpense(ctx context.Context, e Expense) error
		DeleteExpense(ctx context.Context, id core.ExpenseID) error
	}

	// Store is everything a backend provides.
	Store interface {
		ListStore
		ParticipantStore
		ExpenseStore
		Ping(ctx context.Context) error
		Close() error
	}
)
