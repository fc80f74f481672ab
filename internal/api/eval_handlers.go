package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/eval"
	"github.com/modelarena/modelarena/internal/models"
	"log/slog"
)

// EvalHandler exposes compare and batch evaluation sessions.
type EvalHandler struct {
	orchestrator *eval.Orchestrator
	repo         *database.EvalRepository
	modelRepo    *database.ModelConfigRepository
	logger       *slog.Logger
}

// NewEvalHandler creates a handler for evaluation routes.
func NewEvalHandler(orchestrator *eval.Orchestrator, repo *database.EvalRepository, modelRepo *database.ModelConfigRepository, logger *slog.Logger) *EvalHandler {
	return &EvalHandler{
		orchestrator: orchestrator,
		repo:         repo,
		modelRepo:    modelRepo,
		logger:       logger,
	}
}

// CreateCompareRequest is the payload for starting a compare session.
type CreateCompareRequest struct {
	Name         *string  `json:"name,omitempty"`
	ModelIDs     []string `json:"model_ids"`
	Prompt       string   `json:"prompt"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
}

// CreateBatchRequest is the payload for starting a batch session.
type CreateBatchRequest struct {
	Name         *string  `json:"name,omitempty"`
	ModelIDs     []string `json:"model_ids"`
	TestSetID    string   `json:"test_set_id"`
	JudgeModelID *string  `json:"judge_model_id,omitempty"`
}

// CreateCompare handles POST /api/eval/compare
func (h *EvalHandler) CreateCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateCompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validateModelIDs(r, req.ModelIDs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "Prompt is required", http.StatusBadRequest)
		return
	}

	session, err := h.orchestrator.CreateCompare(r.Context(), req.Name, req.ModelIDs, req.Prompt, req.SystemPrompt)
	if err != nil {
		h.logger.Error("failed to create compare session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// HandleCompareStream dispatches the compare streaming routes:
//
//	GET /api/eval/compare/:id/stream           all models, interleaved
//	GET /api/eval/compare/:id/stream/:modelId  one model
func (h *EvalHandler) HandleCompareStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	// ["", "api", "eval", "compare", id, "stream", modelId?]
	if len(parts) < 6 || parts[4] == "" || parts[5] != "stream" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}
	sessionID := parts[4]

	send, ok := h.startEventStream(w)
	if !ok {
		return
	}

	var err error
	if len(parts) >= 7 && parts[6] != "" {
		err = h.orchestrator.StreamModel(r.Context(), sessionID, parts[6], send)
	} else {
		err = h.orchestrator.RunCompare(r.Context(), sessionID, send)
	}
	if err != nil {
		// Headers are already out; the error travels as a terminal event.
		h.logger.Error("compare stream failed", "session_id", sessionID, "error", err)
		_ = send(eval.StreamEvent{Done: true, Error: err.Error()})
	}
}

// startEventStream prepares a newline-delimited JSON response and returns a
// send function that writes one event per line and flushes it immediately.
func (h *EvalHandler) startEventStream(w http.ResponseWriter) (eval.SendFunc, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := json.NewEncoder(w)
	return func(event eval.StreamEvent) error {
		if err := encoder.Encode(event); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}, true
}

// CreateBatch handles POST /api/eval/batch. The session is returned pending;
// processing continues in the background and is observed by polling.
func (h *EvalHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validateModelIDs(r, req.ModelIDs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.TestSetID == "" {
		http.Error(w, "Test set ID is required", http.StatusBadRequest)
		return
	}

	session, err := h.orchestrator.CreateBatch(r.Context(), req.Name, req.ModelIDs, req.TestSetID, req.JudgeModelID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Test set not found", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create batch session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, session)
}

// ListSessions handles GET /api/eval/sessions with an optional ?type= filter.
func (h *EvalHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionType := r.URL.Query().Get("type")
	if sessionType != "" && sessionType != models.SessionTypeCompare && sessionType != models.SessionTypeBatch {
		http.Error(w, "Invalid session type. Must be: compare or batch", http.StatusBadRequest)
		return
	}

	sessions, err := h.repo.ListSessions(r.Context(), sessionType)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// HandleSessionByID handles GET /api/eval/sessions/:id and
// GET /api/eval/sessions/:id/export
func (h *EvalHandler) HandleSessionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	// ["", "api", "eval", "sessions", id, "export"?]
	if len(parts) < 5 || parts[4] == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}
	id := parts[4]

	if len(parts) == 6 && parts[5] == "export" {
		h.exportSession(w, r, id)
		return
	}
	if len(parts) > 5 {
		http.NotFound(w, r)
		return
	}

	detail, err := h.repo.GetSessionDetail(r.Context(), id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to get session", "session_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *EvalHandler) exportSession(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := h.repo.GetSessionDetail(r.Context(), id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to export session", "session_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	export := models.SessionExport{
		Session: models.ExportedSession{
			ID:        detail.ID,
			Name:      detail.Name,
			Type:      detail.Type,
			Status:    detail.Status,
			CreatedAt: detail.CreatedAt,
		},
		Results: detail.Results,
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=session-%s.json", id))
	writeJSON(w, http.StatusOK, export)
}

// validateModelIDs rejects empty selections and selections referencing
// unknown models before any session row is written.
func (h *EvalHandler) validateModelIDs(r *http.Request, ids []string) error {
	if len(ids) == 0 {
		return ValidationError{Field: "model_ids", Message: "At least one model is required"}
	}

	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			return ValidationError{Field: "model_ids", Message: "Duplicate model id: " + id}
		}
		seen[id] = true
	}

	configs, err := h.modelRepo.GetByIDs(r.Context(), ids)
	if err != nil {
		return fmt.Errorf("failed to resolve models: %w", err)
	}
	if len(configs) != len(ids) {
		return ValidationError{Field: "model_ids", Message: "One or more models do not exist"}
	}

	return nil
}
