package providerfactory

import (
	"testing"

	testhelpers "prismgw/prism/internal/providers"
	mockrouting "prismgw/prism/internal/routing"
	"prismgw/prism/pkg/dialect"
	"prismgw/prism/pkg/providers"
)

func TestNewUnknownType(t *testing.T) {
	_, err := New(providers.ProviderConfig{Name: "x", Type: "mystery"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown provider type")
	}
}

func TestNewKnownTypes(t *testing.T) {
	for _, typ := range []string{"openai", "anthropic"} {
		p, err := New(testhelpers.TestConfig(typ, typ), nil)
		if err != nil {
			t.Fatalf("New(%s): %v", typ, err)
		}
		if p.GetName() != typ {
			t.Errorf("name = %s, want %s", p.GetName(), typ)
		}
		p.Close()
	}
}

func TestManagerOrdering(t *testing.T) {
	m := NewManager()
	m.Register(mockrouting.NewMockProvider("zeta", dialect.OpenAI))
	m.Register(mockrouting.NewMockProvider("alpha", dialect.Anthropic))
	m.Register(mockrouting.NewMockProvider("mid", dialect.OpenAI))

	all := m.All()
	if len(all) != 3 {
		t.Fatalf("got %d providers, want 3", len(all))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if all[i].GetName() != want {
			t.Errorf("all[%d] = %s, want %s", i, all[i].GetName(), want)
		}
	}
}

func TestManagerRegisterReplaces(t *testing.T) {
	m := NewManager()
	m.Register(mockrouting.NewMockProvider("dup", dialect.OpenAI))
	replacement := mockrouting.NewMockProvider("dup", dialect.Anthropic)
	m.Register(replacement)

	if m.ProviderCount() != 1 {
		t.Fatalf("count = %d, want 1", m.ProviderCount())
	}
	p, ok := m.Get("dup")
	if !ok {
		t.Fatal("provider not found")
	}
	if p.Dialect() != dialect.Anthropic {
		t.Error("replacement did not take effect")
	}
}

func TestLoadFromConfigPartialFailure(t *testing.T) {
	m := NewManager()
	configs := []providers.ProviderConfig{
		testhelpers.TestConfig("good", "openai"),
		{Name: "bad", Type: "mystery"},
	}

	err := m.LoadFromConfig(configs, nil)
	if err == nil {
		t.Fatal("expected error for the bad provider")
	}
	// The good provider must still be registered.
	if _, ok := m.Get("good"); !ok {
		t.Error("good provider missing after partial failure")
	}
	if m.ProviderCount() != 1 {
		t.Errorf("count = %d, want 1", m.ProviderCount())
	}
}

func TestManagerHealthSnapshot(t *testing.T) {
	m := NewManager()
	healthy := mockrouting.NewMockProvider("up", dialect.OpenAI)
	sick := mockrouting.NewMockProvider("down", dialect.OpenAI)
	sick.SetHealthy(false)
	m.Register(healthy)
	m.Register(sick)

	snap := m.HealthSnapshot()
	if !snap["up"].Healthy {
		t.Error("up should be healthy")
	}
	if snap["down"].Healthy {
		t.Error("down should be unhealthy")
	}
}

func TestManagerClose(t *testing.T) {
	m := NewManager()
	m.Register(mockrouting.NewMockProvider("a", dialect.OpenAI))
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.ProviderCount() != 0 {
		t.Errorf("count after close = %d, want 0", m.ProviderCount())
	}
}
