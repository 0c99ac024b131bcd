package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesoro/internal/amqp"
	"tesoro/internal/core"
	"tesoro/internal/repository/memory"
	"tesoro/internal/services"
	"tesoro/internal/sheets"
	sheetsmem "tesoro/internal/sheets/memory"
)

type env struct {
	worker   *ExportWorker
	exporter *sheetsmem.Exporter
	lists    *services.ExpensesListService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	resolutions := services.NewResolutionService(store, nil, "EUR", nil)
	exporter := sheetsmem.New()
	w := NewExportWorker(resolutions, exporter, nil)
	w.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	return &env{
		worker:   w,
		exporter: exporter,
		lists:    services.NewExpensesListService(store, resolutions, nil, "EUR", nil),
	}
}

func (e *env) seedList(t *testing.T, withExpense bool) core.ListID {
	t.Helper()
	ctx := context.Background()
	l, err := e.lists.CreateList(ctx, "alice", services.ListInput{Name: "Trip"})
	require.NoError(t, err)
	ann, err := e.lists.CreateParticipant(ctx, "alice", l.ID, "Ann")
	require.NoError(t, err)
	ben, err := e.lists.CreateParticipant(ctx, "alice", l.ID, "Ben")
	require.NoError(t, err)
	if withExpense {
		_, err = e.lists.CreateExpense(ctx, "alice", l.ID, services.ExpenseInput{
			Name:          "Dinner",
			Amount:        core.Cents(4000),
			PaidBy:        ann.ID,
			Beneficiaries: []core.ParticipantID{ann.ID, ben.ID},
		})
		require.NoError(t, err)
	}
	return l.ID
}

func TestHandleExportRequest(t *testing.T) {
	e := newEnv(t)
	id := e.seedList(t, true)

	err := e.worker.HandleExportRequest(context.Background(), amqp.NewExportRequestMessage(int64(id), "alice"))
	require.NoError(t, err)

	reports := e.exporter.Reports()
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Equal(t, "Trip", r.List.Name)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC), r.GeneratedAt)
	require.Len(t, r.Resolution.Settle, 1)
	assert.Equal(t, core.Cents(2000), r.Resolution.Settle[0].Amount)
}

type reporterFunc func(ctx context.Context, ownerID string, id core.ListID, now time.Time) (sheets.Report, error)

func (f reporterFunc) Report(ctx context.Context, ownerID string, id core.ListID, now time.Time) (sheets.Report, error) {
	return f(ctx, ownerID, id, now)
}

func TestHandleExportRequestPermanentFailures(t *testing.T) {
	e := newEnv(t)
	empty := e.seedList(t, false)
	full := e.seedList(t, true)

	unbalanced := NewExportWorker(reporterFunc(func(_ context.Context, _ string, id core.ListID, _ time.Time) (sheets.Report, error) {
		return sheets.Report{}, fmt.Errorf("resolve expenses list %d: %w", id, &core.ResolutionError{
			Err:      core.ErrUnbalancedInput,
			Residual: core.Balance{1: core.Cents(1), 2: core.Cents(0)},
		})
	}), e.exporter, nil)

	tests := []struct {
		name   string
		worker *ExportWorker
		msg    *amqp.ExportRequestMessage
	}{
		{"missing list", e.worker, amqp.NewExportRequestMessage(999, "alice")},
		{"list without expenses", e.worker, amqp.NewExportRequestMessage(int64(empty), "alice")},
		{"list of another owner", e.worker, amqp.NewExportRequestMessage(int64(full), "mallory")},
		{"settlement does not balance", unbalanced, amqp.NewExportRequestMessage(int64(full), "alice")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.worker.HandleExportRequest(context.Background(), tt.msg)
			require.Error(t, err)
			assert.True(t, amqp.IsPermanent(err), "error %v should not be retried", err)
		})
	}
	assert.Empty(t, e.exporter.Reports())
}

func TestHandleExportRequestExporterFailureIsRetried(t *testing.T) {
	e := newEnv(t)
	id := e.seedList(t, true)
	e.exporter.FailWith(errors.New("quota exceeded"))

	err := e.worker.HandleExportRequest(context.Background(), amqp.NewExportRequestMessage(int64(id), "alice"))
	require.Error(t, err)
	assert.False(t, amqp.IsPermanent(err))
	assert.Contains(t, err.Error(), "quota exceeded")

	e.exporter.FailWith(nil)
	ref, err := e.worker.Export(context.Background(), "alice", id)
	require.NoError(t, err)
	assert.Equal(t, "mem:1 Trip", ref)
}
