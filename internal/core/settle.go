package core

import (
	"math"
	"slices"
)

// Settlement instructs Payer to transfer Amount to Payee.
type Settlement struct {
	Payer  ParticipantID `json:"payer"`
	Payee  ParticipantID `json:"payee"`
	Amount Money         `json:"amount"`
}

type position struct {
	id        ParticipantID
	magnitude int64
}

// PlanSettlements turns a zero-sum balance into transfers using greedy
// largest-pair matching: at every step the largest debtor pays the largest
// creditor min(credit, debt). Equal magnitudes are broken by lower participant
// id. Each step zeroes at least one side, so at most n-1 settlements are
// emitted for n participants with a non-zero balance. The input is not
// modified.
//
// The plan is not guaranteed to use the minimum number of transfers. A
// balance of math.MinInt64 has no int64 magnitude and fails with
// ErrAmountOverflow.
func PlanSettlements(status Balance) ([]Settlement, error) {
	var creditors, debtors []position
	for _, id := range status.IDs() {
		switch v := status[id].Cents; {
		case v > 0:
			creditors = append(creditors, position{id: id, magnitude: v})
		case v == math.MinInt64:
			return nil, &ResolutionError{Err: ErrAmountOverflow, ParticipantID: id}
		case v < 0:
			debtors = append(debtors, position{id: id, magnitude: -v})
		}
	}

	settle := make([]Settlement, 0, max(len(creditors)+len(debtors)-1, 0))
	for len(creditors) > 0 && len(debtors) > 0 {
		ci, di := largest(creditors), largest(debtors)
		amount := min(creditors[ci].magnitude, debtors[di].magnitude)

		settle = append(settle, Settlement{
			Payer:  debtors[di].id,
			Payee:  creditors[ci].id,
			Amount: Cents(amount),
		})

		creditors[ci].magnitude -= amount
		debtors[di].magnitude -= amount
		if creditors[ci].magnitude == 0 {
			creditors = slices.Delete(creditors, ci, ci+1)
		}
		if debtors[di].magnitude == 0 {
			debtors = slices.Delete(debtors, di, di+1)
		}
	}

	if len(creditors) > 0 || len(debtors) > 0 {
		residual := make(Balance, len(creditors)+len(debtors))
		for _, c := range creditors {
			residual[c.id] = Cents(c.magnitude)
		}
		for _, d := range debtors {
			residual[d.id] = Cents(-d.magnitude)
		}
		return nil, &ResolutionError{Err: ErrUnbalancedInput, Residual: residual}
	}
	return settle, nil
}

// largest returns the index of the biggest magnitude. Positions are kept in
// ascending id order, so the strict comparison makes the lower id win ties.
func largest(ps []position) int {
	best := 0
	for i := 1; i < len(ps); i++ {
		if ps[i].magnitude > ps[best].magnitude {
			best = i
		}
	}
	return best
}

// ApplySettlements replays transfers against a copy of status: the payer's
// balance moves up by the amount and the payee's moves down.
func ApplySettlements(status Balance, settle []Settlement) Balance {
	out := status.Clone()
	for _, s := range settle {
		out[s.Payer] = out[s.Payer].Add(s.Amount)
		out[s.Payee] = out[s.Payee].Sub(s.Amount)
	}
	return out
}
