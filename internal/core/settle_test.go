package core

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSettlements(t *testing.T) {
	cases := []struct {
		name   string
		status Balance
		want   []Settlement
	}{
		{
			name:   "one creditor two debtors, tie broken by lower id",
			status: Balance{alice: Cents(200), bob: Cents(-100), carol: Cents(-100)},
			want: []Settlement{
				{Payer: bob, Payee: alice, Amount: Cents(100)},
				{Payer: carol, Payee: alice, Amount: Cents(100)},
			},
		},
		{
			name:   "largest pair first",
			status: Balance{1: Cents(50), 2: Cents(30), 3: Cents(-40), 4: Cents(-40)},
			want: []Settlement{
				{Payer: 3, Payee: 1, Amount: Cents(40)},
				{Payer: 4, Payee: 2, Amount: Cents(30)},
				{Payer: 4, Payee: 1, Amount: Cents(10)},
			},
		},
		{
			name:   "already settled",
			status: Balance{alice: Cents(0), bob: Cents(0)},
			want:   []Settlement{},
		},
		{
			name:   "empty balance",
			status: Balance{},
			want:   []Settlement{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.status.Clone()
			settle, err := PlanSettlements(tc.status)
			require.NoError(t, err)
			assert.Equal(t, tc.want, settle)
			assert.Equal(t, before, tc.status, "input must not be modified")
		})
	}
}

func TestPlanSettlementsUnbalanced(t *testing.T) {
	settle, err := PlanSettlements(Balance{alice: Cents(100), bob: Cents(-50)})
	require.Error(t, err)
	assert.Nil(t, settle)
	assert.ErrorIs(t, err, ErrUnbalancedInput)
	assert.False(t, IsInputError(err))

	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, Balance{alice: Cents(50)}, re.Residual)
	assert.Equal(t, "UnbalancedInput", re.Kind())
}

func TestPlanSettlementsMinInt64(t *testing.T) {
	settle, err := PlanSettlements(Balance{alice: Cents(math.MinInt64), bob: Cents(math.MaxInt64), carol: Cents(1)})
	assert.Nil(t, settle)
	assert.ErrorIs(t, err, ErrAmountOverflow)

	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, alice, re.ParticipantID)
}

func TestApplySettlements(t *testing.T) {
	status := Balance{alice: Cents(200), bob: Cents(-100), carol: Cents(-100)}
	out := ApplySettlements(status, []Settlement{{Payer: bob, Payee: alice, Amount: Cents(100)}})
	assert.Equal(t, Balance{alice: Cents(100), bob: Cents(0), carol: Cents(-100)}, out)
	assert.Equal(t, Cents(200), status[alice])
}

// randomGroup builds a roster with sparse ids and a random set of expenses
// drawn from it.
func randomGroup(r *rand.Rand) ([]ExpenseRecord, []Participant) {
	n := 2 + r.IntN(9)
	participants := make([]Participant, n)
	ids := make([]ParticipantID, n)
	for i := range participants {
		ids[i] = ParticipantID(i*7 + 1 + r.IntN(5))
		participants[i] = Participant{ID: ids[i], Name: "p"}
	}

	m := 1 + r.IntN(12)
	expenses := make([]ExpenseRecord, m)
	for i := range expenses {
		var beneficiaries []ParticipantID
		for _, id := range ids {
			if r.IntN(2) == 0 {
				beneficiaries = append(beneficiaries, id)
			}
		}
		if len(beneficiaries) == 0 {
			beneficiaries = []ParticipantID{ids[r.IntN(n)]}
		}
		expenses[i] = ExpenseRecord{
			ID:            ExpenseID(i + 1),
			Name:          "e",
			Amount:        Cents(1 + r.Int64N(100_000)),
			PaidBy:        ids[r.IntN(n)],
			Beneficiaries: beneficiaries,
		}
	}
	return expenses, participants
}

func TestResolveProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(2024, 11))

	for i := 0; i < 500; i++ {
		expenses, participants := randomGroup(r)

		res, err := Resolve(expenses, participants)
		require.NoError(t, err)

		// conservation
		require.True(t, res.Status.Sum().IsZero(), "status must sum to zero: %v", res.Status)

		// bound
		nonZero := res.Status.NonZero()
		require.LessOrEqual(t, len(res.Settle), max(nonZero-1, 0))

		for _, s := range res.Settle {
			require.NotEqual(t, s.Payer, s.Payee, "self settlement")
			require.True(t, s.Amount.IsPositive(), "non-positive settlement %v", s)
		}

		// replaying the plan zeroes every balance
		for id, v := range ApplySettlements(res.Status, res.Settle) {
			require.Truef(t, v.IsZero(), "participant %d left with %s", id, v)
		}

		// determinism
		again, err := Resolve(expenses, participants)
		require.NoError(t, err)
		a, _ := json.Marshal(res)
		b, _ := json.Marshal(again)
		require.Equal(t, string(a), string(b))
	}
}
