package tokens

import (
	"testing"

	"prismgw/prism/pkg/dialect"
)

func TestCountHeuristic(t *testing.T) {
	c := NewCounter()

	tests := []struct {
		name  string
		text  string
		model string
		min   int
		max   int
	}{
		{"empty", "", "claude-3-haiku", 0, 0},
		{"simple words", "hello world", "unknown-model", 2, 2},
		{"punctuation counts", "hello, world!", "unknown-model", 4, 4},
		{"claude scales down", "one two three four five six seven eight nine ten", "claude-3-haiku", 9, 9},
		{"minimum one token", ".", "claude-3-haiku", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Count(tt.text, tt.model)
			if got < tt.min || got > tt.max {
				t.Errorf("Count(%q, %q) = %d, want [%d, %d]", tt.text, tt.model, got, tt.min, tt.max)
			}
		})
	}
}

func TestCountCJK(t *testing.T) {
	c := NewCounter()

	// Each ideograph costs extra on top of the word it forms.
	ascii := c.Count("hello", "unknown-model")
	cjk := c.Count("你好世界", "unknown-model")
	if cjk <= ascii {
		t.Errorf("CJK text counted %d tokens, want more than ascii %d", cjk, ascii)
	}
}

func TestCountTiktokenExact(t *testing.T) {
	c := NewCounter()

	// gpt-3.5-turbo has a registered encoding; the exact count for a
	// short greeting is stable across tiktoken versions.
	got := c.Count("hello world", "gpt-3.5-turbo")
	if got < 1 || got > 4 {
		t.Errorf("Count(hello world, gpt-3.5-turbo) = %d, want a small exact count", got)
	}
}

func TestCountMessages(t *testing.T) {
	c := NewCounter()

	msgs := []dialect.Message{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "Hello"},
	}
	got := c.CountMessages(msgs, "claude-3-haiku")

	// 2 conversation + 2x4 message overhead plus content makes this
	// strictly larger than the bare content counts.
	content := c.Count("You are helpful.", "claude-3-haiku") + c.Count("Hello", "claude-3-haiku")
	if got <= content {
		t.Errorf("CountMessages = %d, want > bare content %d", got, content)
	}

	if c.CountMessages(nil, "claude-3-haiku") != 0 {
		t.Error("empty conversation should count zero tokens")
	}
}

func TestCountMessagesImages(t *testing.T) {
	c := NewCounter()

	without := c.CountMessages([]dialect.Message{{Role: "user", Content: "look"}}, "gpt-4")
	with := c.CountMessages([]dialect.Message{{Role: "user", Content: "look", Images: 2}}, "gpt-4")
	if with-without != 2*imageTokens {
		t.Errorf("image cost = %d, want %d", with-without, 2*imageTokens)
	}
}

func TestContextWindow(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"gpt-4", 8192},
		{"gpt-4-32k", 32768},
		{"gpt-4-turbo-2024-04-09", 128000},
		{"claude-3-opus-20240229", 200000},
		{"totally-unknown", defaultContextWindow},
	}
	for _, tt := range tests {
		if got := ContextWindow(tt.model); got != tt.want {
			t.Errorf("ContextWindow(%q) = %d, want %d", tt.model, got, tt.want)
		}
	}
}

func TestContextUsageClamped(t *testing.T) {
	if got := ContextUsage("gpt-4", 8192*2); got != 1 {
		t.Errorf("usage = %v, want clamped to 1", got)
	}
	if got := ContextUsage("gpt-4", 4096); got != 0.5 {
		t.Errorf("usage = %v, want 0.5", got)
	}
}
