package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/modelarena/modelarena/internal/auth"
	"github.com/modelarena/modelarena/internal/config"
)

func testAuthHandler() *AuthHandler {
	cfg := config.AuthConfig{
		JWTSecret:     "test-secret",
		AdminPassword: "correct-horse",
		TokenDuration: time.Hour,
	}
	return NewAuthHandler(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLoginSuccess(t *testing.T) {
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password": "correct-horse"}`))
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Errorf("expected future expiry, got %v", resp.ExpiresAt)
	}

	userID, err := auth.ValidateToken(resp.Token, "test-secret")
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if userID != "admin" {
		t.Errorf("unexpected user id %q", userID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password": "guess"}`))
	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Errorf("expected generic error message, got %q", rec.Body.String())
	}
}

func TestLoginBadBody(t *testing.T) {
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader("{not json"))
	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoginMethodNotAllowed(t *testing.T) {
	handler := testAuthHandler()

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestValidateTokenEndpoint(t *testing.T) {
	handler := testAuthHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil)
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "admin"))

	rec := httptest.NewRecorder()
	handler.ValidateToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Valid  bool   `json:"valid"`
		UserID string `json:"userID"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Valid || resp.UserID != "admin" {
		t.Errorf("unexpected response %+v", resp)
	}
}
