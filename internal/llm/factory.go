package llm

import (
	"fmt"
	"time"

	"github.com/modelarena/modelarena/internal/crypto"
	"github.com/modelarena/modelarena/internal/models"
)

// Factory resolves stored model configurations into live adapters. The
// provider-to-adapter mapping is closed: anthropic gets its own adapter,
// everything else is treated as OpenAI-compatible.
type Factory struct {
	cipher *crypto.Cipher
}

// NewFactory constructs a Factory around the credential cipher.
func NewFactory(cipher *crypto.Cipher) *Factory {
	return &Factory{cipher: cipher}
}

// ForModel decrypts the model's credential and returns a ready adapter.
// Decryption failure is a fatal configuration error; it is never retried
// and the decrypted key is not cached beyond the returned adapter.
func (f *Factory) ForModel(cfg models.ModelConfig) (Adapter, error) {
	apiKey, err := f.cipher.Decrypt(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential for model %s: %w", cfg.ID, err)
	}

	switch cfg.Provider {
	case models.ProviderAnthropic:
		return NewAnthropicAdapter(apiKey, cfg.ModelID, cfg.BaseURL), nil
	default:
		return NewOpenAIAdapter(apiKey, cfg.ModelID, cfg.BaseURL), nil
	}
}

// OptionsFor derives per-call options from a model configuration.
func OptionsFor(cfg models.ModelConfig) ChatOptions {
	opts := ChatOptions{
		MaxTokens: cfg.MaxTokens,
	}
	if cfg.Temperature >= 0 {
		temp := cfg.Temperature
		opts.Temperature = &temp
	}
	if cfg.TopP > 0 {
		topP := cfg.TopP
		opts.TopP = &topP
	}
	if cfg.TimeoutMs > 0 {
		opts.Timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	return opts
}
