package routing

import (
	"fmt"
	"strings"

	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/providerfactory"
	"prismgw/prism/pkg/providers"
)

// Selector routes requests to providers by model-name prefix. Models
// with an OpenAI-style prefix go to an OpenAI-dialect provider, Claude
// models to an Anthropic-dialect provider, and anything else falls back
// to the first configured provider.
type Selector struct {
	manager *providerfactory.Manager
}

// NewSelector creates a selector over the given provider manager.
func NewSelector(manager *providerfactory.Manager) *Selector {
	return &Selector{manager: manager}
}

// openAIPrefixes are model-name prefixes served by OpenAI-dialect APIs.
var openAIPrefixes = []string{"gpt-", "o1", "text-"}

// SelectByModel picks the provider for a model name.
func (s *Selector) SelectByModel(model string) (providers.Provider, error) {
	if d, ok := dialectForModel(model); ok {
		if p := s.firstWithDialect(d); p != nil {
			return p, nil
		}
	}

	// Unknown prefix, or no provider speaks the model's dialect: fall
	// back to the first configured provider.
	all := s.manager.All()
	if len(all) == 0 {
		return nil, &NoProviderError{Model: model}
	}
	return all[0], nil
}

// SelectByName returns the named provider, for explicit overrides.
func (s *Selector) SelectByName(name string) (providers.Provider, error) {
	p, ok := s.manager.Get(name)
	if !ok {
		return nil, &NoProviderError{Provider: name}
	}
	return p, nil
}

func (s *Selector) firstWithDialect(d dialect.Dialect) providers.Provider {
	for _, p := range s.manager.All() {
		if p.Dialect() == d {
			return p
		}
	}
	return nil
}

func dialectForModel(model string) (dialect.Dialect, bool) {
	for _, prefix := range openAIPrefixes {
		if strings.HasPrefix(model, prefix) {
			return dialect.OpenAI, true
		}
	}
	if strings.HasPrefix(model, "claude-") {
		return dialect.Anthropic, true
	}
	return "", false
}

// NoProviderError indicates no provider could serve a request.
type NoProviderError struct {
	Model    string
	Provider string
}

func (e *NoProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("no provider named %q", e.Provider)
	}
	return fmt.Sprintf("no provider available for model %q", e.Model)
}
