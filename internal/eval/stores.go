package eval

import (
	"context"
	"time"

	"github.com/modelarena/modelarena/internal/llm"
	"github.com/modelarena/modelarena/internal/models"
)

// SessionStore persists evaluation sessions and results. The orchestrator is
// the only writer of session lifecycle fields.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.EvalSession) error
	GetSession(ctx context.Context, id string) (*models.EvalSession, error)
	MarkRunning(ctx context.Context, id string) error
	CompleteSession(ctx context.Context, id string) error
	CompleteSessionIfAllReported(ctx context.Context, id string) (bool, error)
	CreateResult(ctx context.Context, res *models.EvalResult) error
	EnsureCompareResult(ctx context.Context, res *models.EvalResult) error
	FinalizeResult(ctx context.Context, id string, update models.ResultUpdate) error
}

// ModelStore reads registered model configurations.
type ModelStore interface {
	Get(ctx context.Context, id string) (*models.ModelConfig, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.ModelConfig, error)
}

// TestSetStore reads test sets with their cases in stable order.
type TestSetStore interface {
	Get(ctx context.Context, id string) (*models.TestSet, error)
}

// UsageStore additively increments per-model daily usage counters.
type UsageStore interface {
	Increment(ctx context.Context, modelID string, day time.Time, tokensInput, tokensOutput int) error
}

// AdapterFactory resolves a model configuration into a live adapter.
type AdapterFactory interface {
	ForModel(cfg models.ModelConfig) (llm.Adapter, error)
}

// CallRecorder observes completed provider calls for monitoring.
type CallRecorder interface {
	RecordModelCall(provider, model, status string, tokensInput, tokensOutput int)
}
