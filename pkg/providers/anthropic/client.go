package anthropic

import (
	"context"
	"strings"
	"time"

	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/netproxy"
	"prismgw/prism/pkg/providers"
)

const (
	// DefaultBaseURL is the Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com/v1"

	// APIVersion is the anthropic-version header value.
	APIVersion = "2023-06-01"
)

// Provider is an Anthropic-dialect upstream.
type Provider struct {
	*providers.HTTPProvider
	baseURL string
	apiKey  string
}

// NewProvider creates an Anthropic provider.
func NewProvider(config providers.ProviderConfig, pm *netproxy.Manager) (*Provider, error) {
	if config.APIKey == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "api_key", Message: "API key is required"}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	base, err := providers.NewHTTPProvider(config, pm)
	if err != nil {
		return nil, err
	}

	return &Provider{
		HTTPProvider: base,
		baseURL:      baseURL,
		apiKey:       config.APIKey,
	}, nil
}

// Dialect returns the Anthropic wire format.
func (p *Provider) Dialect() dialect.Dialect {
	return dialect.Anthropic
}

// Send forwards a raw messages request.
func (p *Provider) Send(ctx context.Context, body []byte) (*providers.RawCall, error) {
	return p.DoCall(ctx, "POST", p.messagesURL(), body, p.headers())
}

// OpenStream forwards a raw streaming request and returns the SSE reader.
func (p *Provider) OpenStream(ctx context.Context, body []byte) (providers.StreamReader, error) {
	url := p.messagesURL()
	resp, err := p.DoRequest(ctx, "POST", url, body, p.headers())
	if err != nil {
		return nil, err
	}

	meta := &providers.RawCall{
		Provider:    p.GetName(),
		URL:         url,
		Method:      "POST",
		RequestBody: body,
	}
	return providers.NewSSEReader(p.GetName(), resp, meta), nil
}

// HealthCheck sends a one-token request, since the API has no listing
// endpoint that works with every compatible gateway.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	call, err := p.Send(ctx, p.TestBody())
	if err != nil {
		return err
	}
	_ = call
	return nil
}

// TestBody returns the minimal connectivity-test request.
func (p *Provider) TestBody() []byte {
	return []byte(`{"model":"claude-3-haiku-20240307","messages":[{"role":"user","content":"Hello"}],"max_tokens":5}`)
}

func (p *Provider) messagesURL() string {
	return p.baseURL + "/messages"
}

func (p *Provider) headers() map[string]string {
	// Some Anthropic-compatible gateways authenticate with a bearer
	// token instead of the x-api-key header.
	if strings.Contains(p.baseURL, "aliyuncs.com") {
		return map[string]string{
			"Authorization":     "Bearer " + p.apiKey,
			"anthropic-version": APIVersion,
		}
	}
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": APIVersion,
	}
}
