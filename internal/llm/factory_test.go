package llm

import (
	"bytes"
	"testing"
	"time"

	"github.com/modelarena/modelarena/internal/crypto"
	"github.com/modelarena/modelarena/internal/models"
)

func testFactory(t *testing.T) (*Factory, *crypto.Cipher) {
	t.Helper()
	cipher, err := crypto.New(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}
	return NewFactory(cipher), cipher
}

func encryptedKey(t *testing.T, cipher *crypto.Cipher) string {
	t.Helper()
	encrypted, err := cipher.Encrypt("sk-test-key")
	if err != nil {
		t.Fatalf("failed to encrypt key: %v", err)
	}
	return encrypted
}

func TestForModelSelectsAdapterByProvider(t *testing.T) {
	factory, cipher := testFactory(t)
	key := encryptedKey(t, cipher)

	tests := []struct {
		provider      string
		wantAnthropic bool
	}{
		{models.ProviderAnthropic, true},
		{models.ProviderOpenAI, false},
		{models.ProviderZhipu, false},
		{models.ProviderMoonshot, false},
		{models.ProviderQianwen, false},
		{models.ProviderCustom, false},
		{"something-new", false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			adapter, err := factory.ForModel(models.ModelConfig{
				ID:       "m1",
				Provider: tt.provider,
				APIKey:   key,
				ModelID:  "some-model",
			})
			if err != nil {
				t.Fatalf("ForModel returned error: %v", err)
			}

			_, isAnthropic := adapter.(*AnthropicAdapter)
			if isAnthropic != tt.wantAnthropic {
				t.Errorf("provider %q: anthropic adapter = %t, want %t", tt.provider, isAnthropic, tt.wantAnthropic)
			}
		})
	}
}

func TestForModelFailsOnUndecryptableKey(t *testing.T) {
	factory, _ := testFactory(t)

	_, err := factory.ForModel(models.ModelConfig{
		ID:       "m1",
		Provider: models.ProviderOpenAI,
		APIKey:   "not-encrypted-at-all",
		ModelID:  "some-model",
	})
	if err == nil {
		t.Fatal("expected error for undecryptable credential")
	}
}

func TestOptionsFor(t *testing.T) {
	cfg := models.ModelConfig{
		Temperature: 0.3,
		TopP:        0.9,
		MaxTokens:   512,
		TimeoutMs:   45000,
	}

	opts := OptionsFor(cfg)

	if opts.Temperature == nil || *opts.Temperature != 0.3 {
		t.Errorf("unexpected temperature %v", opts.Temperature)
	}
	if opts.TopP == nil || *opts.TopP != 0.9 {
		t.Errorf("unexpected top_p %v", opts.TopP)
	}
	if opts.MaxTokens != 512 {
		t.Errorf("unexpected max tokens %d", opts.MaxTokens)
	}
	if opts.Timeout != 45*time.Second {
		t.Errorf("unexpected timeout %v", opts.Timeout)
	}
}

func TestOptionsForZeroTimeout(t *testing.T) {
	opts := OptionsFor(models.ModelConfig{MaxTokens: 100})
	if opts.Timeout != 0 {
		t.Errorf("expected no timeout, got %v", opts.Timeout)
	}
}
