package llm

import (
	"testing"
)

func TestSplitSystemConcatenatesSystemTurns(t *testing.T) {
	messages := []Message{
		{Role: RoleSystem, Content: "first rule"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleSystem, Content: "second rule"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "question"},
	}

	system, turns := splitSystem(messages)

	if system != "first rule\nsecond rule" {
		t.Errorf("unexpected system prompt %q", system)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 conversation turns, got %d", len(turns))
	}
}

func TestSplitSystemWithoutSystemTurns(t *testing.T) {
	system, turns := splitSystem([]Message{{Role: RoleUser, Content: "hello"}})

	if system != "" {
		t.Errorf("expected empty system prompt, got %q", system)
	}
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
}

func TestMaxTokensDefault(t *testing.T) {
	if got := maxTokens(ChatOptions{}); got != DefaultMaxTokens {
		t.Errorf("expected default %d, got %d", DefaultMaxTokens, got)
	}
	if got := maxTokens(ChatOptions{MaxTokens: 64}); got != 64 {
		t.Errorf("expected 64, got %d", got)
	}
}
