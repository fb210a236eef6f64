package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"smartbudget/internal/backend"
	"smartbudget/internal/cli"
	apphttp "smartbudget/internal/http"
	"smartbudget/internal/log"
	"smartbudget/internal/middleware/ratelimit"
	"smartbudget/internal/services"
)

func main() {
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	analyzer := services.NewAnalysisService(cfg.Pipeline.Options(), logger)
	factory := backend.NewFactory(logger)

	srv := apphttp.NewServer(":"+cfg.Port, analyzer, apphttp.ServerOptions{
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      ratelimit.DefaultConfig(),
		CacheSize:      cfg.CacheSize,
		CacheTTL:       cfg.CacheTTL,
		Ready:          cli.SheetsReadiness(cfg, factory),
	}, logger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting smartbudget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"max_upload_bytes", cfg.MaxUploadBytes)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
