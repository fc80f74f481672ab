package eval

import (
	"context"
	"errors"
	"time"

	"github.com/modelarena/modelarena/internal/llm"
)

const (
	retryInitialBackoff = 500 * time.Millisecond
	retryMaxBackoff     = 8 * time.Second
	retryBackoffFactor  = 2
)

// chatWithRetry calls the adapter with exponential backoff. Only provider
// errors are retried; anything else (context cancellation, configuration
// problems) fails immediately.
func (o *Orchestrator) chatWithRetry(ctx context.Context, adapter llm.Adapter, messages []llm.Message, opts llm.ChatOptions, maxRetries int) (*llm.ChatResult, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	backoff := retryInitialBackoff
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := adapter.Chat(ctx, messages, opts)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var provErr *llm.ProviderError
		if !errors.As(err, &provErr) {
			return nil, err
		}
		if attempt == maxRetries {
			break
		}

		o.logger.Warn("provider call failed, retrying",
			"provider", provErr.Provider,
			"attempt", attempt+1,
			"backoff", backoff.String(),
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= retryBackoffFactor
		if backoff > retryMaxBackoff {
			backoff = retryMaxBackoff
		}
	}

	return nil, lastErr
}
