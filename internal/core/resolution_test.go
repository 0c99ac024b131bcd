package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveScenarios(t *testing.T) {
	group := roster(alice, bob, carol)

	t.Run("single expense shared by all", func(t *testing.T) {
		res, err := Resolve([]ExpenseRecord{expense(1, 300, alice, alice, bob, carol)}, group)
		require.NoError(t, err)
		assert.Equal(t, Balance{alice: Cents(200), bob: Cents(-100), carol: Cents(-100)}, res.Status)
		assert.Equal(t, []Settlement{
			{Payer: bob, Payee: alice, Amount: Cents(100)},
			{Payer: carol, Payee: alice, Amount: Cents(100)},
		}, res.Settle)
	})

	t.Run("three way split with remainder", func(t *testing.T) {
		res, err := Resolve([]ExpenseRecord{expense(1, 100, bob, alice, bob, carol)}, group)
		require.NoError(t, err)
		assert.Equal(t, Balance{alice: Cents(-33), bob: Cents(67), carol: Cents(-34)}, res.Status)
		assert.Equal(t, []Settlement{
			{Payer: carol, Payee: bob, Amount: Cents(34)},
			{Payer: alice, Payee: bob, Amount: Cents(33)},
		}, res.Settle)
	})

	t.Run("expenses cancel out", func(t *testing.T) {
		res, err := Resolve([]ExpenseRecord{
			expense(1, 200, alice, alice, bob),
			expense(2, 200, bob, alice, bob),
		}, roster(alice, bob))
		require.NoError(t, err)
		assert.Equal(t, Balance{alice: Cents(0), bob: Cents(0)}, res.Status)
		assert.Empty(t, res.Settle)
	})

	t.Run("unknown beneficiary", func(t *testing.T) {
		_, err := Resolve([]ExpenseRecord{expense(1, 100, alice, alice, 4)}, group)
		assert.ErrorIs(t, err, ErrUnknownParticipant)
	})

	t.Run("no expenses", func(t *testing.T) {
		_, err := Resolve(nil, group)
		assert.ErrorIs(t, err, ErrEmptyExpenseSet)
	})
}

func TestResolutionJSON(t *testing.T) {
	res, err := Resolver{Currency: "EUR"}.Resolve(
		[]ExpenseRecord{expense(1, 300, alice, alice, bob, carol)},
		roster(alice, bob, carol),
	)
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"currency": "EUR",
		"status": {"1": 200, "2": -100, "3": -100},
		"settle": [
			{"payer": 2, "payee": 1, "amount": 100},
			{"payer": 3, "payee": 1, "amount": 100}
		]
	}`, string(b))

	settled, err := Resolve([]ExpenseRecord{expense(1, 10, alice, alice)}, roster(alice))
	require.NoError(t, err)
	b, err = json.Marshal(settled)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": {"1": 0}, "settle": []}`, string(b))
}
