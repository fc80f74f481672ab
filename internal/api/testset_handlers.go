package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelarena/modelarena/internal/database"
	"github.com/modelarena/modelarena/internal/models"
	"log/slog"
)

// TestSetHandler manages test sets and their cases.
type TestSetHandler struct {
	repo   *database.TestSetRepository
	logger *slog.Logger
}

// NewTestSetHandler creates a handler for test set routes.
func NewTestSetHandler(repo *database.TestSetRepository, logger *slog.Logger) *TestSetHandler {
	return &TestSetHandler{repo: repo, logger: logger}
}

// CreateTestSetRequest is the payload for creating a test set.
type CreateTestSetRequest struct {
	Name        string                 `json:"name"`
	Description *string                `json:"description,omitempty"`
	Cases       []models.TestCaseInput `json:"cases,omitempty"`
}

// HandleTestSets handles GET /api/testsets and POST /api/testsets
func (h *TestSetHandler) HandleTestSets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTestSets(w, r)
	case http.MethodPost:
		h.createTestSet(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTestSetByID dispatches /api/testsets/:id and its case subroutes:
//
//	GET/PUT/DELETE /api/testsets/:id
//	POST           /api/testsets/:id/cases
//	POST           /api/testsets/:id/import
//	PUT/DELETE     /api/testsets/:id/cases/:caseId
func (h *TestSetHandler) HandleTestSetByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	// ["", "api", "testsets", id, ...]
	if len(parts) < 4 || parts[3] == "" {
		http.Error(w, "Test set ID required", http.StatusBadRequest)
		return
	}
	id := parts[3]

	switch {
	case len(parts) == 4:
		switch r.Method {
		case http.MethodGet:
			h.getTestSet(w, r, id)
		case http.MethodPut:
			h.updateTestSet(w, r, id)
		case http.MethodDelete:
			h.deleteTestSet(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case len(parts) == 5 && parts[4] == "cases":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.addCase(w, r, id)
	case len(parts) == 5 && parts[4] == "import":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.importCases(w, r, id)
	case len(parts) == 6 && parts[4] == "cases":
		switch r.Method {
		case http.MethodPut:
			h.updateCase(w, r, id, parts[5])
		case http.MethodDelete:
			h.deleteCase(w, r, id, parts[5])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

func (h *TestSetHandler) listTestSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list test sets", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"test_sets": sets,
		"count":     len(sets),
	})
}

func (h *TestSetHandler) createTestSet(w http.ResponseWriter, r *http.Request) {
	var req CreateTestSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}
	for _, input := range req.Cases {
		if err := ValidateTestCaseInput(input); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	ts := &models.TestSet{Name: req.Name, Description: req.Description}
	if err := h.repo.Create(r.Context(), ts, req.Cases); err != nil {
		h.logger.Error("failed to create test set", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, ts)
}

func (h *TestSetHandler) getTestSet(w http.ResponseWriter, r *http.Request, id string) {
	ts, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to get test set", "test_set_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ts)
}

func (h *TestSetHandler) updateTestSet(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Name        *string `json:"name,omitempty"`
		Description *string `json:"description,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name != nil && *req.Name == "" {
		http.Error(w, "Name cannot be empty", http.StatusBadRequest)
		return
	}

	ts, err := h.repo.Update(r.Context(), id, req.Name, req.Description)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to update test set", "test_set_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ts)
}

func (h *TestSetHandler) deleteTestSet(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to delete test set", "test_set_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}

func (h *TestSetHandler) addCase(w http.ResponseWriter, r *http.Request, id string) {
	var input models.TestCaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := ValidateTestCaseInput(input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tc, err := h.repo.AddCase(r.Context(), id, input)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to add test case", "test_set_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tc)
}

func (h *TestSetHandler) updateCase(w http.ResponseWriter, r *http.Request, id, caseID string) {
	var input models.TestCaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := ValidateTestCaseInput(input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tc, err := h.repo.UpdateCase(r.Context(), id, caseID, input)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to update test case", "test_set_id", id, "case_id", caseID, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tc)
}

func (h *TestSetHandler) deleteCase(w http.ResponseWriter, r *http.Request, id, caseID string) {
	if err := h.repo.DeleteCase(r.Context(), id, caseID); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to delete test case", "test_set_id", id, "case_id", caseID, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusNoContent)
}

func (h *TestSetHandler) importCases(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Cases []models.TestCaseInput `json:"cases"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Cases) == 0 {
		http.Error(w, "At least one case is required", http.StatusBadRequest)
		return
	}
	for _, input := range req.Cases {
		if err := ValidateTestCaseInput(input); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	imported, err := h.repo.ImportCases(r.Context(), id, req.Cases)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			h.logger.Error("failed to import test cases", "test_set_id", id, "error", err)
		}
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}
