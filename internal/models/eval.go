package models

import "time"

// Session types.
const (
	SessionTypeCompare = "compare"
	SessionTypeBatch   = "batch"
)

// Session statuses. Sessions have no failed terminal state; failure is
// recorded per result.
const (
	SessionPending   = "pending"
	SessionRunning   = "running"
	SessionCompleted = "completed"
)

// Result statuses.
const (
	ResultPending = "pending"
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// EvalSession is one evaluation run: a single prompt compared across models
// (compare) or a test set executed against models (batch).
type EvalSession struct {
	ID           string     `json:"id"`
	Name         *string    `json:"name,omitempty"`
	Type         string     `json:"type"`
	ModelIDs     []string   `json:"model_ids"`
	Prompt       *string    `json:"prompt,omitempty"`
	SystemPrompt *string    `json:"system_prompt,omitempty"`
	TestSetID    *string    `json:"test_set_id,omitempty"`
	JudgeModelID *string    `json:"judge_model_id,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	// ResultCount is populated by list queries only.
	ResultCount int `json:"result_count"`
}

// EvalResult is the outcome of one (model, prompt) invocation. It is created
// pending and receives exactly one terminal update.
type EvalResult struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	ModelID        string    `json:"model_id"`
	TestCaseID     *string   `json:"test_case_id,omitempty"`
	Prompt         string    `json:"prompt"`
	Response       string    `json:"response"`
	TokensInput    int       `json:"tokens_input"`
	TokensOutput   int       `json:"tokens_output"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Score          *float64  `json:"score,omitempty"`
	ScoreComment   *string   `json:"score_comment,omitempty"`
	Status         string    `json:"status"`
	Error          *string   `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResultUpdate is the single terminal update applied to a pending result.
type ResultUpdate struct {
	Response       string
	TokensInput    int
	TokensOutput   int
	ResponseTimeMs int64
	Score          *float64
	ScoreComment   *string
	Status         string
	Error          *string
}

// SessionDetail is a session together with its results in creation order.
type SessionDetail struct {
	EvalSession
	Results []EvalResult `json:"results"`
}

// SessionExport is the flattened export document for a session.
type SessionExport struct {
	Session ExportedSession `json:"session"`
	Results []EvalResult    `json:"results"`
}

// ExportedSession is the session header included in an export.
type ExportedSession struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name,omitempty"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
