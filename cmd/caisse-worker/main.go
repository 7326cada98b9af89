package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caisse/internal/amqp"
	"caisse/internal/backend"
	"caisse/internal/cli"
	"caisse/internal/log"
	"caisse/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting caisse-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The sheet source decides whether this worker imports daily sheets
	// and exports paid invoices, or only drains the local sync queue.
	factory := backend.NewFactory(logger.Logger)
	sheetSource, err := factory.CreateSheetSource(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize sheet source", log.FieldError, err, "source", cfg.SheetSource)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, sheetSource.Journal, sheetSource.Source, cfg.SyncBatchSize)

	// On startup, drain invoices that were committed while the worker
	// was down, then pull the current month's sheets.
	if sheetSource.Journal != nil {
		logger.Info("Performing startup sync check")
		if err := syncWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Startup sync check failed", log.FieldError, err)
			// Keep running, the periodic sync retries.
		}
	}
	if sheetSource.Source != nil {
		if imported, err := syncWorker.ImportCurrentMonth(ctx); err != nil {
			logger.Error("Initial daily-sheet import failed", log.FieldError, err)
		} else {
			logger.Info("Initial daily-sheet import completed", "imported", imported)
		}
	}

	// Consume record-sync messages with automatic reconnection.
	go func() {
		if err := amqpClient.ConsumeWithReconnect(ctx, func(msg *amqp.RecordSyncMessage) error {
			return syncWorker.HandleSyncMessage(ctx, msg)
		}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			cancel()
		}
	}()

	// Periodic catch-up sync and daily-sheet import.
	syncTicker := time.NewTicker(cfg.SyncInterval)
	defer syncTicker.Stop()
	importTicker := time.NewTicker(cfg.ImportInterval)
	defer importTicker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-syncTicker.C:
				if err := syncWorker.ProcessPendingInvoices(ctx); err != nil {
					logger.Error("Periodic sync failed", log.FieldError, err)
				}
			case <-importTicker.C:
				if sheetSource.Source == nil {
					continue
				}
				if imported, err := syncWorker.ImportCurrentMonth(ctx); err != nil {
					logger.Error("Periodic daily-sheet import failed", log.FieldError, err)
				} else if imported > 0 {
					logger.Info("Periodic daily-sheet import completed", "imported", imported)
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
