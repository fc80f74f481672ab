package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/modelarena/modelarena/internal/crypto"
	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/llm"
	"github.com/modelarena/modelarena/internal/models"
	"log/slog"
)

// ModelHandler manages registered model configurations. Credentials are
// encrypted before they reach the repository and masked on every read path.
type ModelHandler struct {
	repo    *database.ModelConfigRepository
	cipher  *crypto.Cipher
	factory *llm.Factory
	logger  *slog.Logger
}

// NewModelHandler creates a handler for model configuration routes.
func NewModelHandler(repo *database.ModelConfigRepository, cipher *crypto.Cipher, factory *llm.Factory, logger *slog.Logger) *ModelHandler {
	return &ModelHandler{
		repo:    repo,
		cipher:  cipher,
		factory: factory,
		logger:  logger,
	}
}

// HandleModels handles GET /api/models and POST /api/models
func (h *ModelHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listModels(w, r)
	case http.MethodPost:
		h.createModel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleModelByID handles GET/PUT/DELETE /api/models/:id and
// POST /api/models/:id/test
func (h *ModelHandler) HandleModelByID(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/test") {
		h.testModel(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getModel(w, r)
	case http.MethodPut:
		h.updateModel(w, r)
	case http.MethodDelete:
		h.deleteModel(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ModelHandler) listModels(w http.ResponseWriter, r *http.Request) {
	configs, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list models", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	masked := make([]models.ModelConfig, 0, len(configs))
	for _, m := range configs {
		masked = append(masked, h.maskModel(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models": masked,
		"count":  len(masked),
	})
}

// CreateModelRequest is the payload for registering a model. Omitted tuning
// fields fall back to defaults; explicit zero values (temperature 0, inactive
// on creation) are preserved.
type CreateModelRequest struct {
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	APIKey       string   `json:"api_key"`
	BaseURL      *string  `json:"base_url,omitempty"`
	ModelID      string   `json:"model_id"`
	Temperature  *float32 `json:"temperature,omitempty"`
	TopP         *float32 `json:"top_p,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
	TimeoutMs    *int     `json:"timeout_ms,omitempty"`
	RetryCount   *int     `json:"retry_count,omitempty"`
	IsJudge      bool     `json:"is_judge"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

func (req CreateModelRequest) toModelConfig() models.ModelConfig {
	m := models.ModelConfig{
		Name:         req.Name,
		Provider:     req.Provider,
		APIKey:       req.APIKey,
		BaseURL:      req.BaseURL,
		ModelID:      req.ModelID,
		Temperature:  llm.DefaultTemperature,
		TopP:         1.0,
		MaxTokens:    llm.DefaultMaxTokens,
		SystemPrompt: req.SystemPrompt,
		TimeoutMs:    30000,
		RetryCount:   2,
		IsJudge:      req.IsJudge,
		IsActive:     true,
	}

	if req.Temperature != nil {
		m.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		m.TopP = *req.TopP
	}
	if req.MaxTokens != nil {
		m.MaxTokens = *req.MaxTokens
	}
	if req.TimeoutMs != nil {
		m.TimeoutMs = *req.TimeoutMs
	}
	if req.RetryCount != nil {
		m.RetryCount = *req.RetryCount
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	return m
}

func (h *ModelHandler) createModel(w http.ResponseWriter, r *http.Request) {
	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	m := req.toModelConfig()

	if err := ValidateModelConfig(&m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	encrypted, err := h.cipher.Encrypt(m.APIKey)
	if err != nil {
		h.logger.Error("failed to encrypt credential", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	m.APIKey = encrypted

	if err := h.repo.Create(r.Context(), &m); err != nil {
		h.logger.Error("failed to create model", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("model registered", "model_id", m.ID, "provider", m.Provider)
	writeJSON(w, http.StatusCreated, h.maskModel(m))
}

func (h *ModelHandler) getModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSegment(r.URL.Path, 3)
	if !ok {
		http.Error(w, "Model ID required", http.StatusBadRequest)
		return
	}

	m, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to get model", "model_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.maskModel(*m))
}

func (h *ModelHandler) updateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSegment(r.URL.Path, 3)
	if !ok {
		http.Error(w, "Model ID required", http.StatusBadRequest)
		return
	}

	var update models.ModelConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if update.BaseURL != nil && *update.BaseURL != "" {
		if err := ValidateURL(*update.BaseURL); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	// A new plaintext key replaces the stored ciphertext; a masked or
	// already-encrypted value means the client did not change it.
	if update.APIKey != nil {
		key := *update.APIKey
		if key == "" || strings.Contains(key, "****") || crypto.IsEncrypted(key) {
			update.APIKey = nil
		} else {
			encrypted, err := h.cipher.Encrypt(key)
			if err != nil {
				h.logger.Error("failed to encrypt credential", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			update.APIKey = &encrypted
		}
	}

	m, err := h.repo.Update(r.Context(), id, update)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to update model", "model_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.maskModel(*m))
}

func (h *ModelHandler) deleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSegment(r.URL.Path, 3)
	if !ok {
		http.Error(w, "Model ID required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to delete model", "model_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}

// TestModelResponse reports the outcome of a connectivity probe.
type TestModelResponse struct {
	Success   bool   `json:"success"`
	LatencyMs int64  `json:"latency_ms"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// testModel handles POST /api/models/:id/test. It sends a minimal prompt to
// the configured backend and reports reachability plus round-trip latency.
func (h *ModelHandler) testModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSegment(r.URL.Path, 3)
	if !ok {
		http.Error(w, "Model ID required", http.StatusBadRequest)
		return
	}

	m, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to get model", "model_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	adapter, err := h.factory.ForModel(*m)
	if err != nil {
		h.logger.Error("failed to build adapter", "model_id", id, "error", err)
		writeJSON(w, http.StatusOK, TestModelResponse{Success: false, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	start := time.Now()
	result, err := adapter.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: "Reply with the single word: pong"},
	}, llm.ChatOptions{MaxTokens: 16, Timeout: time.Duration(m.TimeoutMs) * time.Millisecond})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		writeJSON(w, http.StatusOK, TestModelResponse{Success: false, LatencyMs: latency, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, TestModelResponse{Success: true, LatencyMs: latency, Response: result.Content})
}

// maskModel returns a copy safe for responses: the credential never leaves
// the server in plaintext or ciphertext form.
func (h *ModelHandler) maskModel(m models.ModelConfig) models.ModelConfig {
	plain, err := h.cipher.Decrypt(m.APIKey)
	if err != nil {
		m.APIKey = "****"
		return m
	}
	m.APIKey = crypto.Mask(plain)
	return m
}

// pathSegment extracts the n-th slash-separated segment of an URL path.
func pathSegment(path string, index int) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) <= index || parts[index] == "" {
		return "", false
	}
	return parts[index], true
}
