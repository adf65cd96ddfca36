// Package providerfactory constructs and manages upstream providers from
// configuration.
package providerfactory

import (
	"fmt"

	"prismgw/prism/pkg/netproxy"
	"prismgw/prism/pkg/providers"
	"prismgw/prism/pkg/providers/anthropic"
	"prismgw/prism/pkg/providers/openai"
)

// New creates a provider for the given configuration.
func New(config providers.ProviderConfig, pm *netproxy.Manager) (providers.Provider, error) {
	switch config.Type {
	case "openai":
		return openai.NewProvider(config, pm)
	case "anthropic":
		return anthropic.NewProvider(config, pm)
	default:
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unknown provider type %q", config.Type),
		}
	}
}
