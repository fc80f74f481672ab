package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelarena/modelarena/internal/llm"
	"github.com/modelarena/modelarena/internal/models"
)

const judgeMaxTokens = 256

// JudgeScore is a parsed judge verdict on a single response.
type JudgeScore struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// runJudge asks the judge model to score a candidate response. Scoring is
// best-effort: any failure (adapter construction, provider error, unparseable
// output) is logged and reported as nil so the underlying result is kept.
func (o *Orchestrator) runJudge(ctx context.Context, judge models.ModelConfig, testCase models.TestCase, response string) *JudgeScore {
	adapter, err := o.factory.ForModel(judge)
	if err != nil {
		o.logger.Warn("judge adapter unavailable", "judge_model_id", judge.ID, "error", err)
		return nil
	}

	temperature := float32(0)
	opts := llm.ChatOptions{
		Temperature: &temperature,
		MaxTokens:   judgeMaxTokens,
		Timeout:     time.Duration(judge.TimeoutMs) * time.Millisecond,
	}

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: buildJudgePrompt(testCase, response)},
	}

	result, err := adapter.Chat(ctx, messages, opts)
	if err != nil {
		o.logger.Warn("judge call failed", "judge_model_id", judge.ID, "error", err)
		return nil
	}

	score, err := parseJudgeOutput(result.Content)
	if err != nil {
		o.logger.Warn("judge output not parseable", "judge_model_id", judge.ID, "error", err)
		return nil
	}

	return score
}

func buildJudgePrompt(testCase models.TestCase, response string) string {
	var b strings.Builder

	b.WriteString("You are an impartial evaluator of AI responses.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(testCase.Prompt)
	b.WriteString("\n\nReference answer:\n")
	if testCase.ReferenceAnswer != nil && *testCase.ReferenceAnswer != "" {
		b.WriteString(*testCase.ReferenceAnswer)
	} else {
		b.WriteString("none")
	}
	b.WriteString("\n\nScoring criteria:\n")
	if testCase.ScoringCriteria != nil && *testCase.ScoringCriteria != "" {
		b.WriteString(*testCase.ScoringCriteria)
	} else {
		b.WriteString("Judge accuracy, completeness, and clarity.")
	}
	b.WriteString("\n\nCandidate response:\n")
	b.WriteString(response)
	b.WriteString("\n\nScore the candidate response from 1 to 10. Respond with strict JSON only, no other text:\n")
	b.WriteString(`{"score": <number 1-10>, "comment": "<one-sentence justification>"}`)

	return b.String()
}

// parseJudgeOutput extracts the first JSON object from the judge's reply.
// Judges often wrap the verdict in prose or markdown fences, so anything
// around the object is ignored.
func parseJudgeOutput(output string) (*JudgeScore, error) {
	raw, ok := extractJSONObject(output)
	if !ok {
		return nil, fmt.Errorf("no JSON object in judge output")
	}

	score := &JudgeScore{}
	if err := json.Unmarshal([]byte(raw), score); err != nil {
		return nil, fmt.Errorf("failed to parse judge verdict: %w", err)
	}

	return score, nil
}

// extractJSONObject returns the first balanced top-level {...} in s,
// ignoring braces inside JSON strings.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
