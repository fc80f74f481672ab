package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicAdapter speaks the Anthropic messages protocol. System turns are
// carried in a dedicated top-level block rather than interleaved, so all
// system-role messages are concatenated in original order.
type AnthropicAdapter struct {
	client  anthropic.Client
	modelID string
}

// NewAnthropicAdapter constructs an adapter for one configured model.
func NewAnthropicAdapter(apiKey, modelID string, baseURL *string) *AnthropicAdapter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != nil && *baseURL != "" {
		opts = append(opts, option.WithBaseURL(*baseURL))
	}

	return &AnthropicAdapter{
		client:  anthropic.NewClient(opts...),
		modelID: modelID,
	}
}

func splitSystem(messages []Message) (string, []anthropic.MessageParam) {
	var systemParts []string
	var turns []anthropic.MessageParam

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, m.Content)
		case RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	return strings.Join(systemParts, "\n"), turns
}

func (a *AnthropicAdapter) buildParams(messages []Message, opts ChatOptions) anthropic.MessageNewParams {
	system, turns := splitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.modelID),
		MaxTokens: int64(maxTokens(opts)),
		Messages:  turns,
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*opts.Temperature))
	} else {
		params.Temperature = anthropic.Float(float64(DefaultTemperature))
	}
	if opts.TopP != nil {
		params.TopP = anthropic.Float(float64(*opts.TopP))
	}

	return params
}

// Chat performs a single-shot completion.
func (a *AnthropicAdapter) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error) {
	ctx, cancel := applyTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	message, err := a.client.Messages.New(ctx, a.buildParams(messages, opts))
	if err != nil {
		return nil, &ProviderError{Provider: "anthropic", Err: err}
	}

	if len(message.Content) == 0 {
		return nil, &ProviderError{Provider: "anthropic", Err: errors.New("no content in response")}
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &ChatResult{
		Content:      content.String(),
		TokensInput:  int(message.Usage.InputTokens),
		TokensOutput: int(message.Usage.OutputTokens),
		ResponseTime: time.Since(start),
	}, nil
}

// Stream performs a streaming completion. Input tokens arrive on the
// message_start event, output tokens on message_delta.
func (a *AnthropicAdapter) Stream(ctx context.Context, messages []Message, opts ChatOptions) <-chan StreamChunk {
	out := make(chan StreamChunk)

	go func() {
		defer close(out)

		ctx, cancel := applyTimeout(ctx, opts.Timeout)
		defer cancel()

		start := time.Now()

		stream := a.client.Messages.NewStreaming(ctx, a.buildParams(messages, opts))
		defer stream.Close()

		var tokensInput, tokensOutput int

		for stream.Next() {
			event := stream.Current()

			switch evt := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				tokensInput = int(evt.Message.Usage.InputTokens)
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := evt.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !emit(ctx, out, StreamChunk{Content: delta.Text}) {
						return
					}
				}
			case anthropic.MessageDeltaEvent:
				tokensOutput = int(evt.Usage.OutputTokens)
			}
		}

		if err := stream.Err(); err != nil {
			emit(ctx, out, StreamChunk{Done: true, Err: err.Error(), ResponseTime: time.Since(start)})
			return
		}

		emit(ctx, out, StreamChunk{
			Done:         true,
			TokensInput:  tokensInput,
			TokensOutput: tokensOutput,
			ResponseTime: time.Since(start),
		})
	}()

	return out
}
