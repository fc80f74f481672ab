package eval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelarena/modelarena/internal/llm"
	"github.com/modelarena/modelarena/internal/models"
)

// StreamEvent is one event on a compare session's output channel.
// Non-terminal events carry only incremental text; the terminal event
// carries usage and timing.
type StreamEvent struct {
	ModelID        string `json:"modelId"`
	Chunk          string `json:"chunk,omitempty"`
	Done           bool   `json:"done"`
	TokensInput    int    `json:"tokensInput,omitempty"`
	TokensOutput   int    `json:"tokensOutput,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs,omitempty"`
	Error          string `json:"error,omitempty"`
}

// SendFunc delivers one event to the client. A non-nil error means the
// client is gone and forwarding should stop.
type SendFunc func(StreamEvent) error

// Orchestrator drives compare and batch evaluation sessions: it fans a
// request out to the selected models, contains per-model failures, and owns
// all session/result lifecycle writes.
type Orchestrator struct {
	sessions SessionStore
	configs  ModelStore
	testSets TestSetStore
	usage    UsageStore
	factory  AdapterFactory
	recorder CallRecorder
	logger   *slog.Logger
}

// New constructs an Orchestrator. recorder may be nil.
func New(sessions SessionStore, configs ModelStore, testSets TestSetStore, usage UsageStore, factory AdapterFactory, recorder CallRecorder, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		configs:  configs,
		testSets: testSets,
		usage:    usage,
		factory:  factory,
		recorder: recorder,
		logger:   logger,
	}
}

// CreateCompare persists a pending compare session. The model set is fixed
// at creation time.
func (o *Orchestrator) CreateCompare(ctx context.Context, name *string, modelIDs []string, prompt string, systemPrompt *string) (*models.EvalSession, error) {
	session := &models.EvalSession{
		Name:         name,
		Type:         models.SessionTypeCompare,
		ModelIDs:     modelIDs,
		Prompt:       &prompt,
		SystemPrompt: systemPrompt,
	}

	if err := o.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// StreamModel runs one model of a compare session and forwards its chunks to
// send. Each (session, model) pair is driven by its own client connection;
// the session-level pending→running transition is an idempotent CAS, and the
// session completes once the last model reports a terminal event.
func (o *Orchestrator) StreamModel(ctx context.Context, sessionID, modelID string, send SendFunc) error {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Type != models.SessionTypeCompare {
		return fmt.Errorf("session %s is not a compare session", sessionID)
	}
	if !containsString(session.ModelIDs, modelID) {
		return fmt.Errorf("model %s is not part of session %s", modelID, sessionID)
	}

	model, err := o.configs.Get(ctx, modelID)
	if err != nil {
		return err
	}

	if err := o.sessions.MarkRunning(ctx, sessionID); err != nil {
		return err
	}

	o.streamOne(ctx, session, *model, send)

	// A client disconnect cancels ctx; completion bookkeeping still has to
	// run or the last model's disconnect would strand the session in running.
	completed, err := o.sessions.CompleteSessionIfAllReported(context.WithoutCancel(ctx), sessionID)
	if err != nil {
		return err
	}
	if completed {
		o.logger.Info("compare session completed", "session_id", sessionID)
	}

	return nil
}

// RunCompare drives all of a compare session's models concurrently from one
// server-side call, interleaving their events onto a single send. The join
// is all-settled: every model reaches a terminal state before the session is
// marked completed, and no model's failure cancels a sibling.
func (o *Orchestrator) RunCompare(ctx context.Context, sessionID string, send SendFunc) error {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Type != models.SessionTypeCompare {
		return fmt.Errorf("session %s is not a compare session", sessionID)
	}

	if err := o.sessions.MarkRunning(ctx, sessionID); err != nil {
		return err
	}

	selected, err := o.configs.GetByIDs(ctx, session.ModelIDs)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	lockedSend := func(event StreamEvent) error {
		mu.Lock()
		defer mu.Unlock()
		return send(event)
	}

	var wg sync.WaitGroup
	for _, model := range selected {
		wg.Add(1)
		go func(model models.ModelConfig) {
			defer wg.Done()
			o.streamOne(ctx, session, model, lockedSend)
		}(model)
	}
	wg.Wait()

	return o.sessions.CompleteSession(ctx, sessionID)
}

// streamOne executes one model's streaming generation: it creates the
// pending result, forwards chunks, and applies the terminal update plus
// usage accounting. All provider failures are contained here.
func (o *Orchestrator) streamOne(ctx context.Context, session *models.EvalSession, model models.ModelConfig, send SendFunc) {
	prompt := ""
	if session.Prompt != nil {
		prompt = *session.Prompt
	}

	result := &models.EvalResult{
		SessionID: session.ID,
		ModelID:   model.ID,
		Prompt:    prompt,
	}
	if err := o.sessions.EnsureCompareResult(ctx, result); err != nil {
		o.logger.Error("failed to create result", "session_id", session.ID, "model_id", model.ID, "error", err)
		return
	}

	// A reopened stream for an already-finished model replays the stored
	// outcome instead of invoking the provider again.
	if result.Status != models.ResultPending {
		if result.Response != "" {
			send(StreamEvent{ModelID: model.ID, Chunk: result.Response, Done: false})
		}
		errMsg := ""
		if result.Error != nil {
			errMsg = *result.Error
		}
		send(StreamEvent{
			ModelID:        model.ID,
			Done:           true,
			TokensInput:    result.TokensInput,
			TokensOutput:   result.TokensOutput,
			ResponseTimeMs: result.ResponseTimeMs,
			Error:          errMsg,
		})
		return
	}

	adapter, err := o.factory.ForModel(model)
	if err != nil {
		o.finalizeFailure(ctx, result.ID, model, err.Error(), 0)
		send(StreamEvent{ModelID: model.ID, Done: true, Error: err.Error()})
		return
	}

	messages := buildMessages(systemPromptFor(session, model), prompt)

	var response []byte
	clientGone := false
	sawTerminal := false

	for chunk := range adapter.Stream(ctx, messages, llm.OptionsFor(model)) {
		if !chunk.Done {
			response = append(response, chunk.Content...)
			if !clientGone {
				if err := send(StreamEvent{ModelID: model.ID, Chunk: chunk.Content, Done: false}); err != nil {
					// Consumer detached; keep draining so the result still finalizes.
					clientGone = true
				}
			}
			continue
		}
		sawTerminal = true

		status := models.ResultSuccess
		var errMsg *string
		if chunk.Err != "" {
			status = models.ResultFailed
			msg := chunk.Err
			errMsg = &msg
		}

		update := models.ResultUpdate{
			Response:       string(response),
			TokensInput:    chunk.TokensInput,
			TokensOutput:   chunk.TokensOutput,
			ResponseTimeMs: chunk.ResponseTime.Milliseconds(),
			Status:         status,
			Error:          errMsg,
		}
		if err := o.sessions.FinalizeResult(ctx, result.ID, update); err != nil {
			o.logger.Error("failed to finalize result", "result_id", result.ID, "error", err)
		}

		// Compare streams count toward usage even on failure; the request
		// was made and tokens may have been consumed before the error.
		if err := o.usage.Increment(ctx, model.ID, time.Now(), chunk.TokensInput, chunk.TokensOutput); err != nil {
			o.logger.Error("failed to increment usage stat", "model_id", model.ID, "error", err)
		}
		if o.recorder != nil {
			o.recorder.RecordModelCall(model.Provider, model.ModelID, status, chunk.TokensInput, chunk.TokensOutput)
		}

		if !clientGone {
			send(StreamEvent{
				ModelID:        model.ID,
				Done:           true,
				TokensInput:    chunk.TokensInput,
				TokensOutput:   chunk.TokensOutput,
				ResponseTimeMs: chunk.ResponseTime.Milliseconds(),
				Error:          chunk.Err,
			})
		}
	}

	// Cancellation (a dropped client connection) can close the stream before
	// the provider reports a terminal chunk. Finalize under a detached
	// context so the result does not stay pending forever.
	if !sawTerminal {
		msg := "stream ended without a terminal event"
		if err := ctx.Err(); err != nil {
			msg = err.Error()
		}
		o.finalizeFailure(context.WithoutCancel(ctx), result.ID, model, msg, 0)
	}
}

// CreateBatch persists a pending batch session and kicks off processing in a
// detached goroutine. The caller gets the pending session immediately and
// polls for progress; background failures are logged, never propagated.
func (o *Orchestrator) CreateBatch(ctx context.Context, name *string, modelIDs []string, testSetID string, judgeModelID *string) (*models.EvalSession, error) {
	if _, err := o.testSets.Get(ctx, testSetID); err != nil {
		return nil, err
	}

	session := &models.EvalSession{
		Name:         name,
		Type:         models.SessionTypeBatch,
		ModelIDs:     modelIDs,
		TestSetID:    &testSetID,
		JudgeModelID: judgeModelID,
	}

	if err := o.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	go func() {
		if err := o.runBatch(context.Background(), session.ID); err != nil {
			o.logger.Error("batch session failed", "session_id", session.ID, "error", err)
		}
	}()

	return session, nil
}

// RunBatchSync processes a batch session to completion on the calling
// goroutine. CreateBatch uses it detached; tests drive it directly.
func (o *Orchestrator) RunBatchSync(ctx context.Context, sessionID string) error {
	return o.runBatch(ctx, sessionID)
}

func (o *Orchestrator) runBatch(ctx context.Context, sessionID string) error {
	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if err := o.sessions.MarkRunning(ctx, sessionID); err != nil {
		return err
	}

	testSet, err := o.testSets.Get(ctx, *session.TestSetID)
	if err != nil {
		// Session still terminates; there is nothing to run.
		if completeErr := o.sessions.CompleteSession(ctx, sessionID); completeErr != nil {
			o.logger.Error("failed to complete empty batch session", "session_id", sessionID, "error", completeErr)
		}
		return fmt.Errorf("failed to load test set: %w", err)
	}

	selected, err := o.configs.GetByIDs(ctx, session.ModelIDs)
	if err != nil {
		return err
	}

	var judge *models.ModelConfig
	if session.JudgeModelID != nil {
		judge, err = o.configs.Get(ctx, *session.JudgeModelID)
		if err != nil {
			// Judging is best-effort; run the batch unscored.
			o.logger.Warn("judge model unavailable", "session_id", sessionID, "judge_model_id", *session.JudgeModelID, "error", err)
			judge = nil
		}
	}

	o.logger.Info("batch session started",
		"session_id", sessionID,
		"models", len(selected),
		"cases", len(testSet.Cases))

	// Cases run strictly in order; models run concurrently within a case.
	// This caps peak provider connections at the model count.
	for _, testCase := range testSet.Cases {
		var wg sync.WaitGroup
		for _, model := range selected {
			wg.Add(1)
			go func(model models.ModelConfig, testCase models.TestCase) {
				defer wg.Done()
				o.runBatchCase(ctx, sessionID, model, testCase, judge)
			}(model, testCase)
		}
		wg.Wait()
	}

	if err := o.sessions.CompleteSession(ctx, sessionID); err != nil {
		return err
	}

	o.logger.Info("batch session completed", "session_id", sessionID)
	return nil
}

// runBatchCase executes one (model, case) pair. Every failure is contained
// here as a failed result; nothing propagates to sibling invocations.
func (o *Orchestrator) runBatchCase(ctx context.Context, sessionID string, model models.ModelConfig, testCase models.TestCase, judge *models.ModelConfig) {
	result := &models.EvalResult{
		SessionID:  sessionID,
		ModelID:    model.ID,
		TestCaseID: &testCase.ID,
		Prompt:     testCase.Prompt,
	}
	if err := o.sessions.CreateResult(ctx, result); err != nil {
		o.logger.Error("failed to create result", "session_id", sessionID, "model_id", model.ID, "error", err)
		return
	}

	adapter, err := o.factory.ForModel(model)
	if err != nil {
		o.finalizeFailure(ctx, result.ID, model, err.Error(), 0)
		return
	}

	messages := buildMessages(model.SystemPrompt, testCase.Prompt)

	chatResult, err := o.chatWithRetry(ctx, adapter, messages, llm.OptionsFor(model), model.RetryCount)
	if err != nil {
		o.finalizeFailure(ctx, result.ID, model, err.Error(), 0)
		return
	}

	var score *float64
	var comment *string
	if judge != nil {
		if judged := o.runJudge(ctx, *judge, testCase, chatResult.Content); judged != nil {
			score = &judged.Score
			comment = &judged.Comment
		}
	}

	update := models.ResultUpdate{
		Response:       chatResult.Content,
		TokensInput:    chatResult.TokensInput,
		TokensOutput:   chatResult.TokensOutput,
		ResponseTimeMs: chatResult.ResponseTime.Milliseconds(),
		Score:          score,
		ScoreComment:   comment,
		Status:         models.ResultSuccess,
	}
	if err := o.sessions.FinalizeResult(ctx, result.ID, update); err != nil {
		o.logger.Error("failed to finalize result", "result_id", result.ID, "error", err)
	}

	o.recordSuccess(ctx, model, chatResult.TokensInput, chatResult.TokensOutput)
}

func (o *Orchestrator) finalizeFailure(ctx context.Context, resultID string, model models.ModelConfig, errMsg string, elapsed time.Duration) {
	update := models.ResultUpdate{
		Status:         models.ResultFailed,
		ResponseTimeMs: elapsed.Milliseconds(),
		Error:          &errMsg,
	}
	if err := o.sessions.FinalizeResult(ctx, resultID, update); err != nil {
		o.logger.Error("failed to finalize failed result", "result_id", resultID, "error", err)
	}

	if o.recorder != nil {
		o.recorder.RecordModelCall(model.Provider, model.ModelID, models.ResultFailed, 0, 0)
	}
}

func (o *Orchestrator) recordSuccess(ctx context.Context, model models.ModelConfig, tokensInput, tokensOutput int) {
	if err := o.usage.Increment(ctx, model.ID, time.Now(), tokensInput, tokensOutput); err != nil {
		o.logger.Error("failed to increment usage stat", "model_id", model.ID, "error", err)
	}

	if o.recorder != nil {
		o.recorder.RecordModelCall(model.Provider, model.ModelID, models.ResultSuccess, tokensInput, tokensOutput)
	}
}

// buildMessages assembles the conversation: optional system prompt first,
// then the user prompt.
func buildMessages(systemPrompt *string, prompt string) []llm.Message {
	var messages []llm.Message
	if systemPrompt != nil && *systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: *systemPrompt})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return messages
}

// systemPromptFor prefers a session-level override over the model's own
// configured system prompt.
func systemPromptFor(session *models.EvalSession, model models.ModelConfig) *string {
	if session.SystemPrompt != nil && *session.SystemPrompt != "" {
		return session.SystemPrompt
	}
	return model.SystemPrompt
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
