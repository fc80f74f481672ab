package api

import (
	"net/http"
	"strconv"

	"github.com/modelarena/modelarena/internal/database"
	"log/slog"
)

const (
	defaultTrendDays = 7
	maxTrendDays     = 90
)

// StatsHandler exposes aggregated usage statistics.
type StatsHandler struct {
	repo   *database.UsageStatRepository
	logger *slog.Logger
}

// NewStatsHandler creates a handler for usage statistics routes.
func NewStatsHandler(repo *database.UsageStatRepository, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{repo: repo, logger: logger}
}

// Overview handles GET /api/stats/overview
func (h *StatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	overview, err := h.repo.Overview(r.Context())
	if err != nil {
		h.logger.Error("failed to aggregate usage overview", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

// ByModel handles GET /api/stats/models
func (h *StatsHandler) ByModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	usage, err := h.repo.ByModel(r.Context())
	if err != nil {
		h.logger.Error("failed to aggregate model usage", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models": usage,
		"count":  len(usage),
	})
}

// Trend handles GET /api/stats/trend with an optional ?days= window.
func (h *StatsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := defaultTrendDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 1 || val > maxTrendDays {
			http.Error(w, "Days must be between 1 and 90", http.StatusBadRequest)
			return
		}
		days = val
	}

	trend, err := h.repo.Trend(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to aggregate usage trend", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"trend": trend,
	})
}
