package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tesoro/internal/amqp"
	"tesoro/internal/core"
	"tesoro/internal/log"
	"tesoro/internal/services"
	"tesoro/internal/sheets"
)

// Reporter builds the export report of a list.
type Reporter interface {
	Report(ctx context.Context, ownerID string, id core.ListID, now time.Time) (sheets.Report, error)
}

// ExportWorker writes resolutions requested over AMQP to a spreadsheet.
type ExportWorker struct {
	reports    Reporter
	exporter   sheets.ResolutionExporter
	logger     *log.Logger
	structured *log.StructuredLogger
	now        func() time.Time
}

func NewExportWorker(reports Reporter, exporter sheets.ResolutionExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	return &ExportWorker{
		reports:    reports,
		exporter:   exporter,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		now:        time.Now,
	}
}

// HandleExportRequest processes a single export request from AMQP. Requests
// for lists that are gone or cannot be resolved are dropped; exporter
// failures are retried. A settlement that does not balance is dropped too,
// since retrying recomputes the same plan.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	id := core.ListID(msg.ListID)
	w.logger.InfoContext(ctx, "Processing export request",
		log.FieldMessageID, msg.ID,
		log.FieldListID, id,
		log.FieldOwnerID, msg.OwnerID)

	ref, err := w.Export(ctx, msg.OwnerID, id)
	if err != nil {
		if errors.Is(err, core.ErrUnbalancedInput) {
			fields := log.NewFields().WithList(id).WithError(err).WithOperation(log.OpExport)
			var re *core.ResolutionError
			if errors.As(err, &re) && re.Residual != nil {
				fields.WithBalances(re.Residual)
			}
			w.logger.ErrorContext(ctx, "Settlement invariant violated, dropping export request", fields.ToSlice()...)
			return amqp.Permanent(err)
		}
		if services.IsNotFound(err) || core.IsInputError(err) {
			w.logger.WarnContext(ctx, "Dropping export request",
				log.NewFields().WithList(id).WithError(err).WithOperation(log.OpExport).ToSlice()...)
			return amqp.Permanent(err)
		}
		w.structured.LogError(ctx, "Export failed, will retry", err, log.ComponentWorker, log.OpExport,
			log.NewFields().WithList(id))
		return err
	}

	w.logger.InfoContext(ctx, "Resolution exported",
		log.FieldMessageID, msg.ID,
		log.FieldListID, id,
		"sheets_ref", ref)
	return nil
}

// Export resolves one list and writes it out, returning the exporter's
// reference to the written report.
func (w *ExportWorker) Export(ctx context.Context, ownerID string, id core.ListID) (string, error) {
	report, err := w.reports.Report(ctx, ownerID, id, w.now().UTC())
	if err != nil {
		return "", fmt.Errorf("build report: %w", err)
	}
	ref, err := w.exporter.ExportResolution(ctx, report)
	if err != nil {
		return "", fmt.Errorf("export resolution: %w", err)
	}
	return ref, nil
}
