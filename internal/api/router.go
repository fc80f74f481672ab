package api

import (
	"net/http"
	"strings"

	"github.com/modelarena/modelarena/internal/auth"
	"github.com/modelarena/modelarena/internal/config"
	"github.com/modelarena/modelarena/internal/crypto"
	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/eval"
	"github.com/modelarena/modelarena/internal/llm"
	"log/slog"
)

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, orchestrator *eval.Orchestrator, modelRepo *database.ModelConfigRepository, testSetRepo *database.TestSetRepository, evalRepo *database.EvalRepository, usageRepo *database.UsageStatRepository, cipher *crypto.Cipher, factory *llm.Factory, authConfig config.AuthConfig, logger *slog.Logger) {
	authHandler := NewAuthHandler(authConfig, logger)
	modelHandler := NewModelHandler(modelRepo, cipher, factory, logger)
	testSetHandler := NewTestSetHandler(testSetRepo, logger)
	evalHandler := NewEvalHandler(orchestrator, evalRepo, modelRepo, logger)
	statsHandler := NewStatsHandler(usageRepo, logger)

	// Auth middleware
	authMiddleware := auth.Middleware(authConfig)
	protected := func(handler http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authMiddleware(handler).ServeHTTP(w, r)
		}
	}

	// Authentication routes
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", protected(authHandler.ValidateToken))

	// Model configuration routes
	mux.HandleFunc("/api/models", protected(modelHandler.HandleModels))
	mux.HandleFunc("/api/models/", protected(modelHandler.HandleModelByID))

	// Test set routes
	mux.HandleFunc("/api/testsets", protected(testSetHandler.HandleTestSets))
	mux.HandleFunc("/api/testsets/", protected(testSetHandler.HandleTestSetByID))

	// Evaluation routes
	mux.HandleFunc("/api/eval/compare", protected(evalHandler.CreateCompare))
	mux.HandleFunc("/api/eval/compare/", protected(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/stream") {
			evalHandler.HandleCompareStream(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	mux.HandleFunc("/api/eval/batch", protected(evalHandler.CreateBatch))
	mux.HandleFunc("/api/eval/sessions", protected(evalHandler.ListSessions))
	mux.HandleFunc("/api/eval/sessions/", protected(evalHandler.HandleSessionByID))

	// Usage statistics routes
	mux.HandleFunc("/api/stats/overview", protected(statsHandler.Overview))
	mux.HandleFunc("/api/stats/models", protected(statsHandler.ByModel))
	mux.HandleFunc("/api/stats/trend", protected(statsHandler.Trend))
}
