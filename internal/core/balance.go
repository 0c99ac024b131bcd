package core

import (
	"slices"
)

// Balance maps each participant to their net position: positive means the
// group owes them, negative means they owe the group. A valid Balance sums to
// exactly zero.
type Balance map[ParticipantID]Money

// Share is one beneficiary's part of a split expense.
type Share struct {
	Participant ParticipantID
	Amount      Money
}

// Sum returns the total of all entries.
func (b Balance) Sum() Money {
	var total Money
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}

// IDs returns the participant ids in ascending order.
func (b Balance) IDs() []ParticipantID {
	ids := make([]ParticipantID, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NonZero counts the participants whose balance is not zero.
func (b Balance) NonZero() int {
	n := 0
	for _, v := range b {
		if !v.IsZero() {
			n++
		}
	}
	return n
}

func (b Balance) Clone() Balance {
	out := make(Balance, len(b))
	for id, v := range b {
		out[id] = v
	}
	return out
}

// SplitEvenly divides amount among the distinct beneficiaries. Each gets
// amount/k; the remainder amount%k is handed out one cent at a time to the
// beneficiaries with the highest ids, so the shares always add up to amount.
// Shares are returned in ascending participant id order.
func SplitEvenly(amount Money, beneficiaries []ParticipantID) ([]Share, error) {
	if amount.Cents <= 0 {
		return nil, &ResolutionError{Err: ErrNonPositiveAmount}
	}
	ids := uniqueSorted(beneficiaries)
	if len(ids) == 0 {
		return nil, &ResolutionError{Err: ErrEmptyBeneficiarySet}
	}
	return split(amount, ids), nil
}

// split expects a positive amount and a non-empty, sorted, duplicate-free id
// list.
func split(amount Money, ids []ParticipantID) []Share {
	k := int64(len(ids))
	base := amount.Cents / k
	remainder := amount.Cents % k

	shares := make([]Share, len(ids))
	for i, id := range ids {
		c := base
		if int64(len(ids)-i) <= remainder {
			c++
		}
		shares[i] = Share{Participant: id, Amount: Cents(c)}
	}
	return shares
}

// ComputeBalances folds the expenses into a zero-sum balance over the roster.
// Every roster participant is present in the result, at zero when no expense
// touches them. All expenses are validated before anything is accumulated.
// A balance that would leave the int64 range fails with ErrAmountOverflow.
func ComputeBalances(expenses []ExpenseRecord, participants []Participant) (Balance, error) {
	if len(expenses) == 0 {
		return nil, &ResolutionError{Err: ErrEmptyExpenseSet}
	}

	balance := make(Balance, len(participants))
	for _, p := range participants {
		balance[p.ID] = Money{}
	}

	for _, e := range expenses {
		if err := checkExpense(e, balance); err != nil {
			return nil, err
		}
	}

	for _, e := range expenses {
		credited, ok := balance[e.PaidBy].AddChecked(e.Amount)
		if !ok {
			return nil, &ResolutionError{Err: ErrAmountOverflow, ExpenseID: e.ID}
		}
		balance[e.PaidBy] = credited
		for _, s := range split(e.Amount, uniqueSorted(e.Beneficiaries)) {
			debited, ok := balance[s.Participant].SubChecked(s.Amount)
			if !ok {
				return nil, &ResolutionError{Err: ErrAmountOverflow, ExpenseID: e.ID}
			}
			balance[s.Participant] = debited
		}
	}

	// Only reachable if the accumulation above is broken.
	if !balance.Sum().IsZero() {
		return nil, &ResolutionError{Err: ErrUnbalancedInput, Residual: balance}
	}
	return balance, nil
}

func checkExpense(e ExpenseRecord, roster Balance) error {
	if e.Amount.Cents <= 0 {
		return &ResolutionError{Err: ErrNonPositiveAmount, ExpenseID: e.ID}
	}
	if e.Amount.Cents > MaxAmountCents {
		return &ResolutionError{Err: ErrAmountOverflow, ExpenseID: e.ID}
	}
	if len(e.Beneficiaries) == 0 {
		return &ResolutionError{Err: ErrEmptyBeneficiarySet, ExpenseID: e.ID}
	}
	if _, ok := roster[e.PaidBy]; !ok {
		return &ResolutionError{Err: ErrUnknownParticipant, ExpenseID: e.ID, ParticipantID: e.PaidBy}
	}
	for _, id := range e.Beneficiaries {
		if _, ok := roster[id]; !ok {
			return &ResolutionError{Err: ErrUnknownParticipant, ExpenseID: e.ID, ParticipantID: id}
		}
	}
	return nil
}

func uniqueSorted(ids []ParticipantID) []ParticipantID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
