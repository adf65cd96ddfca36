package providers

import (
	"context"
	"testing"
	"time"

	"prismgw/prism/pkg/providers"
)

// TestConfig returns a provider configuration suitable for tests.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		Timeout:             5 * time.Second,
		MaxRetries:          2,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config pointed at a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// CollectStreamEvents drains a stream reader and returns all events.
func CollectStreamEvents(t *testing.T, sr providers.StreamReader) []*providers.StreamEvent {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var events []*providers.StreamEvent
	for {
		ev, err := sr.Read(ctx)
		if err != nil {
			break
		}
		events = append(events, ev)
	}
	return events
}

// ConcatenateEventData joins the raw data of all stream events.
func ConcatenateEventData(events []*providers.StreamEvent) string {
	var result string
	for _, ev := range events {
		result += ev.Data
	}
	return result
}

// WaitForCondition polls until the condition holds or the timeout expires.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, message)
		}
		<-ticker.C
	}
}
