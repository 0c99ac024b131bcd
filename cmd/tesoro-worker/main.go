package main

import (
	"context"
	"errors"
	"os"

	"tesoro/internal/amqp"
	"tesoro/internal/cli"
	"tesoro/internal/config"
	"tesoro/internal/log"
	"tesoro/internal/services"
	"tesoro/internal/sheets"
	gsheet "tesoro/internal/sheets/google"
	memsheets "tesoro/internal/sheets/memory"
	"tesoro/internal/worker"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting tesoro-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	if cfg.DataBackend == "memory" {
		logger.Warn("Worker uses its own memory store; exports will not see lists created by the server")
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Resolutions are computed fresh for every export.
	resolutions := services.NewResolutionService(res.Store, nil, cfg.DefaultCurrency, logger)
	exportWorker := worker.NewExportWorker(resolutions, exporter, logger)

	err = amqpClient.ConsumeExportRequests(ctx, cfg.ExportBatchSize, exportWorker.HandleExportRequest)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

// newExporter returns the Google Sheets exporter, or an in-memory one when no
// spreadsheet is configured.
func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.ResolutionExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exports are kept in memory")
		return memsheets.New(), nil
	}
	client, err := gsheet.NewWithServiceAccount(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
