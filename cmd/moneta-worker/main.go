package main

import (
	"context"
	"errors"
	"os"
	"time"

	"moneta/internal/cli"
	applog "moneta/internal/log"
	"moneta/internal/worker"

	"github.com/robfig/cron/v3"
)

func main() {
	logger, cfg := cli.MustInit(applog.ComponentWorker)
	logger.Info("Starting moneta-worker")

	res, err := cli.InitBackend(context.Background(), logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	mirror, err := cli.InitMirror(context.Background(), logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize transaction mirror", "error", err)
		os.Exit(1)
	}

	utc := cron.New(cron.WithLocation(time.UTC))
	ctx, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		<-utc.Stop().Done()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	rollover := worker.NewRollover(res.Ledger)

	// Catch up on a rollover missed while the worker was down.
	logger.Info("Running initial monthly rollover...")
	if err := rollover.Run(ctx); err != nil {
		logger.Error("Initial rollover failed", "error", err)
	}

	if _, err := rollover.Schedule(ctx, utc, cfg.RolloverSchedule); err != nil {
		logger.Error("Failed to schedule rollover", "error", err)
		stop()
		<-done
		os.Exit(1)
	}
	utc.Start()
	logger.Info("Monthly rollover scheduled", "schedule", cfg.RolloverSchedule)

	if res.Publisher != nil {
		mw := worker.NewMirrorWorker(mirror)
		go func() {
			err := res.Publisher.ConsumeLedgerEvents(ctx, mw.HandleLedgerEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption failed", "error", err)
				stop()
			}
		}()
		logger.Info("Mirroring ledger events", "queue", cfg.AMQPQueue, "spreadsheet", cfg.GoogleSpreadsheetID != "")
	} else {
		logger.Info("Skipping ledger event mirroring - AMQP not available")
	}

	<-done
	logger.Info("Worker stopped")
}
