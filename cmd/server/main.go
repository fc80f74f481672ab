package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelarena/modelarena/internal/api"
	"github.com/modelarena/modelarena/internal/config"
	"github.com/modelarena/modelarena/internal/crypto"
	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/eval"
	"github.com/modelarena/modelarena/internal/llm"
	"github.com/modelarena/modelarena/internal/logging"
	"github.com/modelarena/modelarena/internal/metrics"
	"github.com/modelarena/modelarena/internal/server"
	_ "github.com/lib/pq"
	"log/slog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting modelarena")

	db, err := database.Connect(context.Background(), cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	cipher, err := crypto.New(cfg.Crypto.Key)
	if err != nil {
		logger.Error("failed to init credential cipher", "error", err)
		os.Exit(1)
	}

	modelRepo := database.NewModelConfigRepository(db)
	testSetRepo := database.NewTestSetRepository(db)
	evalRepo := database.NewEvalRepository(db)
	usageRepo := database.NewUsageStatRepository(db)

	factory := llm.NewFactory(cipher)

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	orchestrator := eval.New(evalRepo, modelRepo, testSetRepo, usageRepo, factory, collector, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.HealthCheck(r.Context(), db); err != nil {
			logger.Error("health check failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"modelarena","status":"ready","version":"0.1.0"}`))
	})

	mux.Handle("/metrics", collector.Handler())

	logger.Info("auth configured", "jwt_secret_set", cfg.Auth.JWTSecret != "change-this-secret")

	api.SetupRoutes(mux, orchestrator, modelRepo, testSetRepo, evalRepo, usageRepo, cipher, factory, cfg.Auth, logger)

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(mux))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("received shutdown signal", "signal", sig.String())
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("modelarena stopped")
}
