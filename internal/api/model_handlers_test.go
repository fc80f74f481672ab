package api

import (
	"encoding/json"
	"testing"

	"github.com/modelarena/modelarena/internal/llm"
)

func decodeCreateModelRequest(t *testing.T, payload string) CreateModelRequest {
	t.Helper()
	var req CreateModelRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	return req
}

func TestCreateModelRequestDefaults(t *testing.T) {
	req := decodeCreateModelRequest(t, `{
		"name": "GPT-4o",
		"provider": "openai",
		"api_key": "sk-test",
		"model_id": "gpt-4o"
	}`)

	m := req.toModelConfig()

	if m.Temperature != llm.DefaultTemperature {
		t.Errorf("expected default temperature, got %v", m.Temperature)
	}
	if m.TopP != 1.0 {
		t.Errorf("expected default top_p 1.0, got %v", m.TopP)
	}
	if m.MaxTokens != llm.DefaultMaxTokens {
		t.Errorf("expected default max tokens, got %d", m.MaxTokens)
	}
	if m.TimeoutMs != 30000 {
		t.Errorf("expected default timeout, got %d", m.TimeoutMs)
	}
	if m.RetryCount != 2 {
		t.Errorf("expected default retry count, got %d", m.RetryCount)
	}
	if !m.IsActive {
		t.Error("expected new models to default to active")
	}

	if err := ValidateModelConfig(&m); err != nil {
		t.Errorf("defaulted config failed validation: %v", err)
	}
}

func TestCreateModelRequestPreservesExplicitZeroes(t *testing.T) {
	req := decodeCreateModelRequest(t, `{
		"name": "Deterministic",
		"provider": "openai",
		"api_key": "sk-test",
		"model_id": "gpt-4o",
		"temperature": 0,
		"top_p": 0,
		"retry_count": 0,
		"is_active": false
	}`)

	m := req.toModelConfig()

	if m.Temperature != 0 {
		t.Errorf("explicit temperature 0 was overridden to %v", m.Temperature)
	}
	if m.TopP != 0 {
		t.Errorf("explicit top_p 0 was overridden to %v", m.TopP)
	}
	if m.RetryCount != 0 {
		t.Errorf("explicit retry_count 0 was overridden to %d", m.RetryCount)
	}
	if m.IsActive {
		t.Error("explicit is_active false was overridden")
	}

	if err := ValidateModelConfig(&m); err != nil {
		t.Errorf("temperature-0 config failed validation: %v", err)
	}
}

func TestCreateModelRequestExplicitValues(t *testing.T) {
	req := decodeCreateModelRequest(t, `{
		"name": "Tuned",
		"provider": "anthropic",
		"api_key": "sk-test",
		"model_id": "claude-sonnet",
		"temperature": 1.2,
		"max_tokens": 4096,
		"timeout_ms": 60000,
		"is_judge": true
	}`)

	m := req.toModelConfig()

	if m.Temperature != 1.2 {
		t.Errorf("unexpected temperature %v", m.Temperature)
	}
	if m.MaxTokens != 4096 {
		t.Errorf("unexpected max tokens %d", m.MaxTokens)
	}
	if m.TimeoutMs != 60000 {
		t.Errorf("unexpected timeout %d", m.TimeoutMs)
	}
	if !m.IsJudge {
		t.Error("expected judge flag to carry through")
	}
	if m.TopP != 1.0 {
		t.Errorf("expected default top_p for omitted field, got %v", m.TopP)
	}
}
