package main

import (
	"os"
	"time"

	"smartbudget/internal/amqp"
	"smartbudget/internal/backend"
	"smartbudget/internal/cli"
	"smartbudget/internal/log"
	"smartbudget/internal/worker"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting smartbudget-worker", "consumers", cfg.WorkerConcurrency)

	client, err := amqp.NewClient(amqp.Config{
		URL:          cfg.AMQPURL,
		Exchange:     cfg.AMQPExchange,
		RequestQueue: cfg.AMQPRequestQueue,
		ResultQueue:  cfg.AMQPResultQueue,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewAnalysisWorker(cfg, backend.NewFactory(logger), client, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := w.Run(ctx, client, cfg.WorkerConcurrency); err != nil && ctx.Err() == nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		client.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	processed, failed := w.Stats()
	logger.Info("Worker stopped", "processed", processed, "failed", failed)
}
