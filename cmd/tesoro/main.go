package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tesoro/internal/amqp"
	"tesoro/internal/cache"
	"tesoro/internal/cli"
	"tesoro/internal/core"
	apphttp "tesoro/internal/http"
	"tesoro/internal/log"
	"tesoro/internal/services"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	res, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close store", log.FieldError, err)
		}
	}()

	resolutionCache := cache.NewLRUCache[core.ListID, core.ExpensesListResolution](cfg.ResolutionCacheSize, cfg.ResolutionCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(resolutionCache)
	cacheManager.Run(ctx, time.Minute)

	// Export is optional; without a broker the export endpoint answers 503.
	var publisher services.ExportPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without export", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	resolutions := services.NewResolutionService(res.Store, resolutionCache, cfg.DefaultCurrency, logger)
	lists := services.NewExpensesListService(res.Store, resolutions, publisher, cfg.DefaultCurrency, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, lists, res.Store.Ping, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting tesoro server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cancel()
		cacheManager.Wait()
		os.Exit(1)
	}
	cacheManager.Wait()
	logger.Info("Server stopped gracefully")
}
