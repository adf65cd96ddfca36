package routing

import (
	"errors"
	"testing"

	mockrouting "prismgw/prism/internal/routing"
	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/providerfactory"
)

func newTestManager() *providerfactory.Manager {
	m := providerfactory.NewManager()
	m.Register(mockrouting.NewMockProvider("openai", dialect.OpenAI))
	m.Register(mockrouting.NewMockProvider("anthropic", dialect.Anthropic))
	return m
}

func TestSelectByModel(t *testing.T) {
	s := NewSelector(newTestManager())

	tests := []struct {
		model    string
		expected string
	}{
		{"gpt-4", "openai"},
		{"gpt-3.5-turbo", "openai"},
		{"o1-preview", "openai"},
		{"text-davinci-003", "openai"},
		{"claude-3-opus-20240229", "anthropic"},
		{"claude-2", "anthropic"},
		// Unknown prefix falls back to the first provider in name order.
		{"llama-3-70b", "anthropic"},
		{"", "anthropic"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, err := s.SelectByModel(tt.model)
			if err != nil {
				t.Fatalf("SelectByModel(%q): %v", tt.model, err)
			}
			if p.GetName() != tt.expected {
				t.Errorf("SelectByModel(%q) = %s, want %s", tt.model, p.GetName(), tt.expected)
			}
		})
	}
}

func TestSelectByModelDialectMissing(t *testing.T) {
	// Only an OpenAI-dialect provider is configured; Claude models fall
	// back to it rather than failing.
	m := providerfactory.NewManager()
	m.Register(mockrouting.NewMockProvider("openai", dialect.OpenAI))
	s := NewSelector(m)

	p, err := s.SelectByModel("claude-3-haiku-20240307")
	if err != nil {
		t.Fatalf("SelectByModel: %v", err)
	}
	if p.GetName() != "openai" {
		t.Errorf("expected fallback to openai, got %s", p.GetName())
	}
}

func TestSelectByModelNoProviders(t *testing.T) {
	s := NewSelector(providerfactory.NewManager())

	_, err := s.SelectByModel("gpt-4")
	if err == nil {
		t.Fatal("expected error with no providers")
	}
	var npe *NoProviderError
	if !errors.As(err, &npe) {
		t.Fatalf("expected NoProviderError, got %T", err)
	}
	if npe.Model != "gpt-4" {
		t.Errorf("error model = %q, want gpt-4", npe.Model)
	}
}

func TestSelectByName(t *testing.T) {
	s := NewSelector(newTestManager())

	p, err := s.SelectByName("openai")
	if err != nil {
		t.Fatalf("SelectByName: %v", err)
	}
	if p.GetName() != "openai" {
		t.Errorf("got %s, want openai", p.GetName())
	}

	_, err = s.SelectByName("missing")
	var npe *NoProviderError
	if !errors.As(err, &npe) {
		t.Fatalf("expected NoProviderError, got %T", err)
	}
}
