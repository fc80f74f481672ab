package api

import (
	"fmt"
	"net/url"

	"github.com/modelarena/modelarena/internal/models"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validProviders = []string{
	models.ProviderOpenAI,
	models.ProviderAnthropic,
	models.ProviderZhipu,
	models.ProviderMoonshot,
	models.ProviderQianwen,
	models.ProviderCustom,
}

// ValidateModelConfig validates a model configuration before it is stored.
// The API key is expected in plaintext here; encryption happens afterwards.
func ValidateModelConfig(m *models.ModelConfig) error {
	if m.Name == "" {
		return ValidationError{Field: "name", Message: "Name is required"}
	}

	providerValid := false
	for _, p := range validProviders {
		if m.Provider == p {
			providerValid = true
			break
		}
	}
	if !providerValid {
		return ValidationError{Field: "provider", Message: "Invalid provider (must be openai, anthropic, zhipu, moonshot, qianwen, or custom)"}
	}

	if m.APIKey == "" {
		return ValidationError{Field: "api_key", Message: "API key is required"}
	}

	if m.ModelID == "" {
		return ValidationError{Field: "model_id", Message: "Model ID is required"}
	}

	if m.BaseURL != nil && *m.BaseURL != "" {
		if err := ValidateURL(*m.BaseURL); err != nil {
			return err
		}
	}
	if m.Provider == models.ProviderCustom && (m.BaseURL == nil || *m.BaseURL == "") {
		return ValidationError{Field: "base_url", Message: "Base URL is required for custom providers"}
	}

	if m.Temperature < 0.0 || m.Temperature > 2.0 {
		return ValidationError{Field: "temperature", Message: "Temperature must be between 0.0 and 2.0"}
	}

	if m.TopP < 0.0 || m.TopP > 1.0 {
		return ValidationError{Field: "top_p", Message: "Top-p must be between 0.0 and 1.0"}
	}

	if m.MaxTokens < 1 || m.MaxTokens > 128000 {
		return ValidationError{Field: "max_tokens", Message: "Max tokens must be between 1 and 128000"}
	}

	if m.TimeoutMs < 1000 || m.TimeoutMs > 600000 {
		return ValidationError{Field: "timeout_ms", Message: "Timeout must be between 1000 and 600000 milliseconds"}
	}

	if m.RetryCount < 0 || m.RetryCount > 10 {
		return ValidationError{Field: "retry_count", Message: "Retry count must be between 0 and 10"}
	}

	return nil
}

// ValidateURL validates a URL string
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return ValidationError{Field: "base_url", Message: "URL is required"}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return ValidationError{Field: "base_url", Message: "Invalid URL format"}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return ValidationError{Field: "base_url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return ValidationError{Field: "base_url", Message: "URL must have a host"}
	}

	return nil
}

// ValidateTestCaseInput validates one test case payload.
func ValidateTestCaseInput(input models.TestCaseInput) error {
	if input.Prompt == "" {
		return ValidationError{Field: "prompt", Message: "Prompt is required"}
	}
	if input.Order != nil && *input.Order < 0 {
		return ValidationError{Field: "order", Message: "Order cannot be negative"}
	}
	return nil
}
