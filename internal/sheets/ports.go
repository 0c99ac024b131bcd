package sheets

import (
	"context"
	"time"

	"tesoro/internal/core"
)

// Report is everything written when exporting an expenses list.
type Report struct {
	List         core.ExpensesList
	Participants []core.Participant
	Resolution   core.ExpensesListResolution
	GeneratedAt  time.Time
}

// Ports for outbound adapters.
type (
	// ResolutionExporter writes a report somewhere a person can read it and
	// returns a reference to what was written.
	ResolutionExporter interface {
		ExportResolution(ctx context.Context, r Report) (ref string, err error)
	}
)
