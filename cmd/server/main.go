package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/formforge/formforge/internal/audit"
	"github.com/formforge/formforge/internal/config"
	"github.com/formforge/formforge/internal/form"
	"github.com/formforge/formforge/internal/i18n"
	"github.com/formforge/formforge/internal/inference"
	"github.com/formforge/formforge/internal/logging"
	"github.com/formforge/formforge/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"inference_configured", cfg.Inference.URL != "",
		"upload_budget_bytes", cfg.Upload.MaxTotalBytes,
		"audit_enabled", cfg.Database.URL != "",
	)

	ctx := context.Background()

	bundle, err := i18n.Load()
	if err != nil {
		slog.Error("failed to load locale tables", "error", err)
		os.Exit(1)
	}

	// Connect the optional audit database
	var auditSvc *audit.Service
	if cfg.Database.URL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		auditSvc = audit.New(pool)
		if err := auditSvc.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare audit schema", "error", err)
			os.Exit(1)
		}
		slog.Info("submission audit enabled")
	}

	// Build the extraction client and the session store
	limiter := inference.NewLimiter(cfg.Inference.MaxConcurrent, cfg.Inference.MaxWaitTime)
	client := inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout, limiter)
	if !client.Configured() {
		slog.Warn("no inference endpoint configured; submissions are disabled until INFERENCE_URL is set")
	}

	store := form.NewStore(form.StoreConfig{
		MaxTotalBytes: cfg.Upload.MaxTotalBytes,
		IdleTTL:       cfg.Session.IdleTTL,
		Defaults: form.Defaults{
			Model:             cfg.Inference.DefaultModel,
			SystemInstruction: cfg.Inference.DefaultSystemInstruction,
			Locale:            cfg.Inference.DefaultLocale,
		},
	}, client)

	server := web.NewServer(cfg, store, bundle, client, auditSvc)

	// Background session sweeper
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go store.RunSweeper(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
