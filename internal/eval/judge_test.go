package eval

import (
	"strings"
	"testing"

	"github.com/modelarena/modelarena/internal/models"
)

func strPtr(s string) *string { return &s }

func TestParseJudgeOutput(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    JudgeScore
		wantErr bool
	}{
		{
			name:   "bare object",
			output: `{"score": 7, "comment": "ok"}`,
			want:   JudgeScore{Score: 7, Comment: "ok"},
		},
		{
			name:   "surrounded by prose",
			output: "Here is my evaluation:\n{\"score\": 7, \"comment\": \"ok\"}\nThanks!",
			want:   JudgeScore{Score: 7, Comment: "ok"},
		},
		{
			name:   "markdown fenced",
			output: "```json\n{\"score\": 9.5, \"comment\": \"excellent\"}\n```",
			want:   JudgeScore{Score: 9.5, Comment: "excellent"},
		},
		{
			name:   "braces inside comment string",
			output: `{"score": 4, "comment": "missing the {expected} structure"}`,
			want:   JudgeScore{Score: 4, Comment: "missing the {expected} structure"},
		},
		{
			name:    "no json at all",
			output:  "I would rate this a seven out of ten.",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			output:  `{"score": 7, "comment": "ok"`,
			wantErr: true,
		},
		{
			name:    "object is not a verdict shape",
			output:  `{"rating": "high"}`,
			want:    JudgeScore{},
			wantErr: false,
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := parseJudgeOutput(tt.output)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", score)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseJudgeOutput returned error: %v", err)
			}
			if score.Score != tt.want.Score || score.Comment != tt.want.Comment {
				t.Errorf("got %+v, want %+v", *score, tt.want)
			}
		})
	}
}

func TestExtractJSONObjectIgnoresStringBraces(t *testing.T) {
	input := `prefix {"a": "close }", "b": {"nested": "\" {"}} suffix {"second": 1}`

	raw, ok := extractJSONObject(input)
	if !ok {
		t.Fatal("expected an object to be found")
	}
	if raw != `{"a": "close }", "b": {"nested": "\" {"}}` {
		t.Errorf("unexpected extraction %q", raw)
	}
}

func TestBuildJudgePromptWithFullCase(t *testing.T) {
	testCase := models.TestCase{
		Prompt:          "What is 2+2?",
		ReferenceAnswer: strPtr("4"),
		ScoringCriteria: strPtr("Exact arithmetic only."),
	}

	prompt := buildJudgePrompt(testCase, "The answer is 4.")

	for _, fragment := range []string{
		"What is 2+2?",
		"Reference answer:\n4",
		"Exact arithmetic only.",
		"The answer is 4.",
		`{"score": <number 1-10>`,
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestBuildJudgePromptDefaults(t *testing.T) {
	prompt := buildJudgePrompt(models.TestCase{Prompt: "question"}, "response")

	if !strings.Contains(prompt, "Reference answer:\nnone") {
		t.Error("expected missing reference answer to render as none")
	}
	if !strings.Contains(prompt, "Judge accuracy, completeness, and clarity.") {
		t.Error("expected default scoring criteria")
	}
}
