package models

import "time"

// Known provider identifiers. Anything else is treated as an
// OpenAI-compatible endpoint.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderZhipu     = "zhipu"
	ProviderMoonshot  = "moonshot"
	ProviderQianwen   = "qianwen"
	ProviderCustom    = "custom"
)

// ModelConfig is a registered LLM backend. APIKey is stored encrypted and is
// only ever exposed in masked form by read paths.
type ModelConfig struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	APIKey       string    `json:"api_key"`
	BaseURL      *string   `json:"base_url,omitempty"`
	ModelID      string    `json:"model_id"`
	Temperature  float32   `json:"temperature"`
	TopP         float32   `json:"top_p"`
	MaxTokens    int       `json:"max_tokens"`
	SystemPrompt *string   `json:"system_prompt,omitempty"`
	TimeoutMs    int       `json:"timeout_ms"`
	RetryCount   int       `json:"retry_count"`
	IsJudge      bool      `json:"is_judge"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ModelConfigUpdate carries optional field updates. Nil fields are left
// unchanged.
type ModelConfigUpdate struct {
	Name         *string  `json:"name,omitempty"`
	Provider     *string  `json:"provider,omitempty"`
	APIKey       *string  `json:"api_key,omitempty"`
	BaseURL      *string  `json:"base_url,omitempty"`
	ModelID      *string  `json:"model_id,omitempty"`
	Temperature  *float32 `json:"temperature,omitempty"`
	TopP         *float32 `json:"top_p,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
	TimeoutMs    *int     `json:"timeout_ms,omitempty"`
	RetryCount   *int     `json:"retry_count,omitempty"`
	IsJudge      *bool    `json:"is_judge,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
}
