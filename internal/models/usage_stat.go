package models

import "time"

// UsageStat is the per-model, per-calendar-day token and request counter.
// Rows are upserted additively and never decremented.
type UsageStat struct {
	ModelID      string    `json:"model_id"`
	Date         time.Time `json:"date"`
	TokensInput  int64     `json:"tokens_input"`
	TokensOutput int64     `json:"tokens_output"`
	RequestCount int64     `json:"request_count"`
}

// UsageOverview aggregates usage across all models and sessions.
type UsageOverview struct {
	TotalTokensInput  int64 `json:"total_tokens_input"`
	TotalTokensOutput int64 `json:"total_tokens_output"`
	TotalRequests     int64 `json:"total_requests"`
	ActiveModels      int   `json:"active_models"`
	TotalSessions     int   `json:"total_sessions"`
}

// ModelUsage is cumulative usage for one model.
type ModelUsage struct {
	ModelID      string `json:"model_id"`
	ModelName    string `json:"model_name"`
	Provider     string `json:"provider"`
	TokensInput  int64  `json:"tokens_input"`
	TokensOutput int64  `json:"tokens_output"`
	RequestCount int64  `json:"request_count"`
}

// DailyUsage is usage summed across models for one day.
type DailyUsage struct {
	Date         string `json:"date"`
	TokensInput  int64  `json:"tokens_input"`
	TokensOutput int64  `json:"tokens_output"`
	RequestCount int64  `json:"request_count"`
}
