package core

// ExpensesListResolution is the debt status of every participant and the plan
// that settles it. It is computed on request and never stored.
type ExpensesListResolution struct {
	Currency string       `json:"currency,omitempty"`
	Status   Balance      `json:"status"`
	Settle   []Settlement `json:"settle"`
}

// Resolver runs the balance calculator followed by the settlement planner.
// The zero value is ready to use; Currency only labels the output.
type Resolver struct {
	Currency string
}

// Resolve computes the resolution for one expenses list. It either returns a
// complete resolution or an error, never a partial result.
func (r Resolver) Resolve(expenses []ExpenseRecord, participants []Participant) (ExpensesListResolution, error) {
	status, err := ComputeBalances(expenses, participants)
	if err != nil {
		return ExpensesListResolution{}, err
	}
	settle, err := PlanSettlements(status)
	if err != nil {
		return ExpensesListResolution{}, err
	}
	return ExpensesListResolution{
		Currency: r.Currency,
		Status:   status,
		Settle:   settle,
	}, nil
}

// Resolve is Resolver{}.Resolve.
func Resolve(expenses []ExpenseRecord, participants []Participant) (ExpensesListResolution, error) {
	return Resolver{}.Resolve(expenses, participants)
}
