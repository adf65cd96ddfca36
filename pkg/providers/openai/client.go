package openai

import (
	"context"
	"strings"
	"time"

	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/netproxy"
	"prismgw/prism/pkg/providers"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider is an OpenAI-dialect upstream.
type Provider struct {
	*providers.HTTPProvider
	baseURL string
	apiKey  string
}

// NewProvider creates an OpenAI provider.
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

// Dialect returns the OpenAI wire format.
func (p *Provider) Dialect() dialect.Dialect {
	return dialect.OpenAI
}

// Send forwards a raw chat completion request.
func (p *Provider) Send(ctx context.Context, body []byte) (*providers.RawCall, error) {
	return p.DoCall(ctx, "POST", p.chatURL(), body, p.headers())
}

// OpenStream forwards a raw streaming request and returns the SSE reader.
func (p *Provider) OpenStream(ctx context.Context, body []byte) (providers.StreamReader, error) {
	url := p.chatURL()
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

// HealthCheck probes the models listing endpoint.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := p.DoRequest(ctx, "GET", p.baseURL+"/models", nil, p.headers())
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// TestBody returns the minimal connectivity-test request.
func (p *Provider) TestBody() []byte {
	return []byte(`{"model":"gpt-3.5-turbo","messages":[{"role":"user","content":"Hello"}],"max_tokens":5}`)
}

func (p *Provider) chatURL() string {
	return p.baseURL + "/chat/completions"
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}
}
