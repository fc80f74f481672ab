package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter speaks the OpenAI chat-completions wire format. It also
// covers every OpenAI-compatible vendor (zhipu, moonshot, qianwen, custom
// endpoints) via a base URL override.
type OpenAIAdapter struct {
	client  *openai.Client
	modelID string
}

// NewOpenAIAdapter constructs an adapter for one configured model.
func NewOpenAIAdapter(apiKey, modelID string, baseURL *string) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != nil && *baseURL != "" {
		cfg.BaseURL = strings.TrimRight(*baseURL, "/")
	}

	return &OpenAIAdapter{
		client:  openai.NewClientWithConfig(cfg),
		modelID: modelID,
	}
}

func (a *OpenAIAdapter) buildRequest(messages []Message, opts ChatOptions) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:     a.modelID,
		Messages:  msgs,
		MaxTokens: maxTokens(opts),
	}

	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}

	return req
}

// Chat performs a single-shot completion. Token counts come from the usage
// payload; providers that omit it yield zeros.
func (a *OpenAIAdapter) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResult, error) {
	ctx, cancel := applyTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, a.buildRequest(messages, opts))
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: "openai", Err: errors.New("no choices in response")}
	}

	return &ChatResult{
		Content:      resp.Choices[0].Message.Content,
		TokensInput:  resp.Usage.PromptTokens,
		TokensOutput: resp.Usage.CompletionTokens,
		ResponseTime: time.Since(start),
	}, nil
}

// Stream performs a streaming completion, requesting usage metadata on the
// final provider chunk.
func (a *OpenAIAdapter) Stream(ctx context.Context, messages []Message, opts ChatOptions) <-chan StreamChunk {
	out := make(chan StreamChunk)

	go func() {
		defer close(out)

		ctx, cancel := applyTimeout(ctx, opts.Timeout)
		defer cancel()

		start := time.Now()

		req := a.buildRequest(messages, opts)
		req.Stream = true
		req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

		stream, err := a.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			emit(ctx, out, StreamChunk{Done: true, Err: err.Error(), ResponseTime: time.Since(start)})
			return
		}
		defer stream.Close()

		var tokensInput, tokensOutput int

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				emit(ctx, out, StreamChunk{Done: true, Err: err.Error(), ResponseTime: time.Since(start)})
				return
			}

			if chunk.Usage != nil {
				tokensInput = chunk.Usage.PromptTokens
				tokensOutput = chunk.Usage.CompletionTokens
			}

			if len(chunk.Choices) > 0 {
				if delta := chunk.Choices[0].Delta.Content; delta != "" {
					if !emit(ctx, out, StreamChunk{Content: delta}) {
						return
					}
				}
			}
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
