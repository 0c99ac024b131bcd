// Package repotest holds the behaviour every repository.Store must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoro/internal/core"
	"tesoro/internal/repository"
)

// Run exercises a fresh store returned by newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("lists", func(t *testing.T) { testLists(t, newStore(t)) })
	t.Run("list filter and pagination", func(t *testing.T) { testListFilter(t, newStore(t)) })
	t.Run("participants", func(t *testing.T) { testParticipants(t, newStore(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("delete cascades", func(t *testing.T) { testDeleteCascade(t, newStore(t)) })
}

// missing is an id no test ever creates.
const missing = 1 << 40

func newList(owner, name string) core.ExpensesList {
	return core.ExpensesList{
		OwnerID:     owner,
		Name:        name,
		Description: name + " trip",
		Status:      core.ListOpen,
		Currency:    "EUR",
	}
}

func testLists(t *testing.T, s repository.Store) {
	ctx := context.Background()

	created, err := s.CreateList(ctx, newList("u1", "Lisbon"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetList(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", got.Name)
	assert.Equal(t, "u1", got.OwnerID)
	assert.Equal(t, core.ListOpen, got.Status)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)

	got.Name = "Porto"
	got.Status = core.ListClosed
	got.Currency = "USD"
	require.NoError(t, s.UpdateList(ctx, got))

	again, err := s.GetList(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Porto", again.Name)
	assert.Equal(t, core.ListClosed, again.Status)
	assert.Equal(t, "USD", again.Currency)

	_, err = s.GetList(ctx, missing)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.UpdateList(ctx, core.ExpensesList{ID: missing, Name: "x", Status: core.ListOpen, Currency: "EUR"}), repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteList(ctx, missing), repository.ErrNotFound)
}

func testListFilter(t *testing.T, s repository.Store) {
	ctx := context.Background()

	created := map[string]core.ExpensesList{}
	for _, name := range []string{"Lisbon", "Berlin", "Lisbon again", "Rome"} {
		l, err := s.CreateList(ctx, newList("u1", name))
		require.NoError(t, err)
		created[name] = l
	}
	other, err := s.CreateList(ctx, newList("u2", "Lisbon"))
	require.NoError(t, err)

	closed, err := s.GetList(ctx, created["Berlin"].ID)
	require.NoError(t, err)
	closed.Status = core.ListClosed
	require.NoError(t, s.UpdateList(ctx, closed))

	all, err := s.ListLists(ctx, repository.ListFilter{OwnerID: "u1"}, repository.All)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	require.Len(t, all.Items, 4)
	for i := 1; i < len(all.Items); i++ {
		assert.Less(t, all.Items[i-1].ID, all.Items[i].ID)
	}
	for _, l := range all.Items {
		assert.NotEqual(t, other.ID, l.ID)
	}

	search, err := s.ListLists(ctx, repository.ListFilter{OwnerID: "u1", Search: "LISBON"}, repository.All)
	require.NoError(t, err)
	assert.Equal(t, 2, search.Total)

	byStatus, err := s.ListLists(ctx, repository.ListFilter{OwnerID: "u1", Status: core.ListClosed}, repository.All)
	require.NoError(t, err)
	require.Len(t, byStatus.Items, 1)
	assert.Equal(t, "Berlin", byStatus.Items[0].Name)

	page, err := s.ListLists(ctx, repository.ListFilter{OwnerID: "u1"}, repository.Pagination{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.Limit)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Rome", page.Items[0].Name)

	empty, err := s.ListLists(ctx, repository.ListFilter{OwnerID: "nobody"}, repository.All)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}

func testParticipants(t *testing.T, s repository.Store) {
	ctx := context.Background()

	list, err := s.CreateList(ctx, newList("u1", "Trip"))
	require.NoError(t, err)
	second, err := s.CreateList(ctx, newList("u1", "Other"))
	require.NoError(t, err)

	ann, err := s.CreateParticipant(ctx, list.ID, core.Participant{Name: "Ann"})
	require.NoError(t, err)
	ben, err := s.CreateParticipant(ctx, list.ID, core.Participant{Name: "Ben"})
	require.NoError(t, err)
	assert.Less(t, ann.ID, ben.ID)

	_, err = s.CreateParticipant(ctx, list.ID, core.Participant{Name: "Ann"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = s.CreateParticipant(ctx, second.ID, core.Participant{Name: "Ann"})
	require.NoError(t, err, "names are unique per list only")

	_, err = s.CreateParticipant(ctx, missing, core.Participant{Name: "Ann"})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	roster, err := s.ListParticipants(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.Participant{ann, ben}, roster)

	none, err := s.ListParticipants(ctx, missing)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testExpenses(t *testing.T, s repository.Store) {
	ctx := context.Background()

	list, err := s.CreateList(ctx, newList("u1", "Trip"))
	require.NoError(t, err)
	ann, err := s.CreateParticipant(ctx, list.ID, core.Participant{Name: "Ann"})
	require.NoError(t, err)
	ben, err := s.CreateParticipant(ctx, list.ID, core.Participant{Name: "Ben"})
	require.NoError(t, err)

	date, err := core.ParseDate("2024-05-17")
	require.NoError(t, err)

	dinner, err := s.CreateExpense(ctx, repository.Expense{
		ListID: list.ID,
		ExpenseRecord: core.ExpenseRecord{
			Name:          "Dinner",
			Date:          date,
			Amount:        core.Cents(4250),
			PaidBy:        ann.ID,
			Beneficiaries: []core.ParticipantID{ann.ID, ben.ID},
		},
	})
	require.NoError(t, err)
	assert.NotZero(t, dinner.ID)

	taxi, err := s.CreateExpense(ctx, repository.Expense{
		ListID: list.ID,
		ExpenseRecord: core.ExpenseRecord{
			Name:          "Taxi",
			Amount:        core.Cents(1800),
			PaidBy:        ben.ID,
			Beneficiaries: []core.ParticipantID{ann.ID},
		},
	})
	require.NoError(t, err)

	got, err := s.GetExpense(ctx, dinner.ID)
	require.NoError(t, err)
	assert.Equal(t, list.ID, got.ListID)
	assert.Equal(t, "Dinner", got.Name)
	assert.Equal(t, "2024-05-17", got.Date.String())
	assert.Equal(t, core.Cents(4250), got.Amount)
	assert.Equal(t, ann.ID, got.PaidBy)
	assert.ElementsMatch(t, []core.ParticipantID{ann.ID, ben.ID}, got.Beneficiaries)

	noDate, err := s.GetExpense(ctx, taxi.ID)
	require.NoError(t, err)
	assert.True(t, noDate.Date.IsZero())

	all, err := s.ListExpenses(ctx, list.ID, repository.ExpenseFilter{}, repository.All)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	require.Len(t, all.Items, 2)
	assert.Equal(t, dinner.ID, all.Items[0].ID)
	assert.Equal(t, taxi.ID, all.Items[1].ID)

	byPayer, err := s.ListExpenses(ctx, list.ID, repository.ExpenseFilter{PaidBy: ben.ID}, repository.All)
	require.NoError(t, err)
	require.Len(t, byPayer.Items, 1)
	assert.Equal(t, "Taxi", byPayer.Items[0].Name)

	paged, err := s.ListExpenses(ctx, list.ID, repository.ExpenseFilter{}, repository.Pagination{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, paged.Total)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, taxi.ID, paged.Items[0].ID)

	got.Name = "Late dinner"
	got.Amount = core.Cents(5000)
	got.Beneficiaries = []core.ParticipantID{ben.ID}
	require.NoError(t, s.UpdateExpense(ctx, got))

	updated, err := s.GetExpense(ctx, dinner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Late dinner", updated.Name)
	assert.Equal(t, core.Cents(5000), updated.Amount)
	assert.Equal(t, []core.ParticipantID{ben.ID}, updated.Beneficiaries)

	require.NoError(t, s.DeleteExpense(ctx, taxi.ID))
	_, err = s.GetExpense(ctx, taxi.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.DeleteExpense(ctx, taxi.ID), repository.ErrNotFound)
	assert.ErrorIs(t, s.UpdateExpense(ctx, repository.Expense{ExpenseRecord: core.ExpenseRecord{ID: missing}}), repository.ErrNotFound)

	_, err = s.CreateExpense(ctx, repository.Expense{
		ListID:        missing,
		ExpenseRecord: core.ExpenseRecord{Name: "x", Amount: core.Cents(1), PaidBy: ann.ID},
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testDeleteCascade(t *testing.T, s repository.Store) {
	ctx := context.Background()

	list, err := s.CreateList(ctx, newList("u1", "Trip"))
	require.NoError(t, err)
	ann, err := s.CreateParticipant(ctx, list.ID, core.Participant{Name: "Ann"})
	require.NoError(t, err)
	e, err := s.CreateExpense(ctx, repository.Expense{
		ListID: list.ID,
		ExpenseRecord: core.ExpenseRecord{
			Name:          "Lunch",
			Amount:        core.Cents(900),
			PaidBy:        ann.ID,
			Beneficiaries: []core.ParticipantID{ann.ID},
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteList(ctx, list.ID))

	_, err = s.GetList(ctx, list.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.GetExpense(ctx, e.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	roster, err := s.ListParticipants(ctx, list.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)
}
