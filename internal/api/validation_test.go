package api

import (
	"errors"
	"testing"

	"github.com/modelarena/modelarena/internal/models"
)

func validConfig() *models.ModelConfig {
	return &models.ModelConfig{
		Name:        "GPT-4o",
		Provider:    models.ProviderOpenAI,
		APIKey:      "sk-test",
		ModelID:     "gpt-4o",
		Temperature: 0.7,
		TopP:        1.0,
		MaxTokens:   2048,
		TimeoutMs:   30000,
		RetryCount:  2,
	}
}

func TestValidateModelConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.ModelConfig)
		wantField string
	}{
		{"valid", func(m *models.ModelConfig) {}, ""},
		{"missing name", func(m *models.ModelConfig) { m.Name = "" }, "name"},
		{"unknown provider", func(m *models.ModelConfig) { m.Provider = "cohere" }, "provider"},
		{"missing api key", func(m *models.ModelConfig) { m.APIKey = "" }, "api_key"},
		{"missing model id", func(m *models.ModelConfig) { m.ModelID = "" }, "model_id"},
		{"bad base url", func(m *models.ModelConfig) {
			u := "ftp://example.com"
			m.BaseURL = &u
		}, "base_url"},
		{"custom provider without base url", func(m *models.ModelConfig) {
			m.Provider = models.ProviderCustom
		}, "base_url"},
		{"custom provider with base url", func(m *models.ModelConfig) {
			m.Provider = models.ProviderCustom
			u := "https://llm.internal/v1"
			m.BaseURL = &u
		}, ""},
		{"temperature too high", func(m *models.ModelConfig) { m.Temperature = 2.5 }, "temperature"},
		{"temperature negative", func(m *models.ModelConfig) { m.Temperature = -0.1 }, "temperature"},
		{"top_p too high", func(m *models.ModelConfig) { m.TopP = 1.5 }, "top_p"},
		{"max tokens zero", func(m *models.ModelConfig) { m.MaxTokens = 0 }, "max_tokens"},
		{"max tokens too high", func(m *models.ModelConfig) { m.MaxTokens = 200000 }, "max_tokens"},
		{"timeout too low", func(m *models.ModelConfig) { m.TimeoutMs = 500 }, "timeout_ms"},
		{"timeout too high", func(m *models.ModelConfig) { m.TimeoutMs = 700000 }, "timeout_ms"},
		{"retry count negative", func(m *models.ModelConfig) { m.RetryCount = -1 }, "retry_count"},
		{"retry count too high", func(m *models.ModelConfig) { m.RetryCount = 11 }, "retry_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateModelConfig(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}

			var vErr ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q (%s)", tt.wantField, vErr.Field, vErr.Message)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://api.openai.com/v1",
		"http://localhost:8000",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("expected %q to be valid, got %v", u, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"ftp://example.com",
		"https://",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("expected %q to be rejected", u)
		}
	}
}

func TestValidateTestCaseInput(t *testing.T) {
	if err := ValidateTestCaseInput(models.TestCaseInput{Prompt: "what is 2+2?"}); err != nil {
		t.Errorf("expected valid input, got %v", err)
	}

	if err := ValidateTestCaseInput(models.TestCaseInput{}); err == nil {
		t.Error("expected missing prompt to be rejected")
	}

	negative := -1
	if err := ValidateTestCaseInput(models.TestCaseInput{Prompt: "q", Order: &negative}); err == nil {
		t.Error("expected negative order to be rejected")
	}
}
