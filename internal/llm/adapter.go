package llm

import (
	"context"
	"fmt"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Defaults applied when a model configuration leaves options unset.
const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 2048
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes a single adapter invocation. Nil pointer fields fall
// back to provider defaults.
type ChatOptions struct {
	Temperature *float32
	TopP        *float32
	MaxTokens   int
	Timeout     time.Duration
}

// ChatResult is a completed non-streaming generation.
type ChatResult struct {
	Content      string
	TokensInput  int
	TokensOutput int
	ResponseTime time.Duration
}

// StreamChunk is one event of a streaming generation. Exactly one chunk per
// invocation has Done set; transport failures surface on that terminal chunk
// via Err instead of an error return.
type StreamChunk struct {
	Content      string
	Done         bool
	TokensInput  int
	TokensOutput int
	ResponseTime time.Duration
	Err          string
}

// Adapter is the uniform interface over one provider's wire protocol.
// Implementations are stateless beyond their construction parameters, safe
// for concurrent use, and never retry internally.
type Adapter interface {
	// Chat performs a synchronous single-shot completion.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error)

	// Stream produces an ordered, finite sequence of chunks. The returned
	// channel is closed after the terminal chunk. Abandoning the channel
	// detaches the consumer; the producer exits when ctx is cancelled.
	Stream(ctx context.Context, messages []Message, opts ChatOptions) <-chan StreamChunk
}

// ProviderError wraps an upstream provider failure with its origin.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func maxTokens(opts ChatOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return DefaultMaxTokens
}

func applyTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// emit delivers a chunk unless the consumer's context is already gone.
func emit(ctx context.Context, out chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
