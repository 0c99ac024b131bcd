package core

import (
	"errors"
	"fmt"
)

// Settlement engine failures. Every error returned by ComputeBalances,
// PlanSettlements and Resolve wraps exactly one of these.
var (
	ErrEmptyExpenseSet     = errors.New("no expenses to resolve")
	ErrUnknownParticipant  = errors.New("unknown participant")
	ErrEmptyBeneficiarySet = errors.New("empty beneficiary set")
	ErrNonPositiveAmount   = errors.New("non-positive amount")
	ErrAmountOverflow      = errors.New("amount overflow")
	ErrUnbalancedInput     = errors.New("unbalanced input")
)

// ResolutionError carries the offending expense/participant so callers can
// build a user-facing message.
type ResolutionError struct {
	Err           error
	ExpenseID     ExpenseID
	ParticipantID ParticipantID
	// Residual holds the non-zero balances left over when Err is ErrUnbalancedInput.
	Residual Balance
}

func (e *ResolutionError) Error() string {
	switch {
	case e.ExpenseID != 0 && e.ParticipantID != 0:
		return fmt.Sprintf("expense %d: %v %d", e.ExpenseID, e.Err, e.ParticipantID)
	case e.ExpenseID != 0:
		return fmt.Sprintf("expense %d: %v", e.ExpenseID, e.Err)
	case len(e.Residual) > 0:
		return fmt.Sprintf("%v: residual total %s across %d participants", e.Err, e.Residual.Sum(), len(e.Residual))
	default:
		return e.Err.Error()
	}
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Kind returns a stable machine-readable name for the error.
func (e *ResolutionError) Kind() string {
	return ErrorKind(e.Err)
}

// ErrorKind maps an engine error to its taxonomy name, or "" when err is not
// an engine error.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyExpenseSet):
		return "EmptyExpenseSet"
	case errors.Is(err, ErrUnknownParticipant):
		return "UnknownParticipant"
	case errors.Is(err, ErrEmptyBeneficiarySet):
		return "EmptyBeneficiarySet"
	case errors.Is(err, ErrNonPositiveAmount):
		return "NonPositiveAmount"
	case errors.Is(err, ErrAmountOverflow):
		return "AmountOverflow"
	case errors.Is(err, ErrUnbalancedInput):
		return "UnbalancedInput"
	default:
		return ""
	}
}

// IsInputError reports whether err was caused by the data handed to the engine
// rather than by a broken invariant.
func IsInputError(err error) bool {
	return errors.Is(err, ErrEmptyExpenseSet) ||
		errors.Is(err, ErrUnknownParticipant) ||
		errors.Is(err, ErrEmptyBeneficiarySet) ||
		errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrAmountOverflow)
}
