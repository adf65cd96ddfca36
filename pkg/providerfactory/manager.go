package providerfactory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"prismgw/prism/pkg/netproxy"
	"prismgw/prism/pkg/providers"
)

// Manager holds the configured providers. Iteration order is the sorted
// provider name order so fallback routing stays deterministic.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]providers.Provider
	order     []string
	logger    *slog.Logger
}

// NewManager creates an empty provider manager.
func NewManager() *Manager {
	return &Manager{
		providers: make(map[string]providers.Provider),
		logger:    slog.Default().With("component", "providerfactory"),
	}
}

// LoadFromConfig constructs providers from their configurations.
// Individual failures are collected; providers that construct cleanly
// remain usable.
func (m *Manager) LoadFromConfig(configs []providers.ProviderConfig, pm *netproxy.Manager) error {
	var errs []error

	for _, cfg := range configs {
		p, err := New(cfg, pm)
		if err != nil {
			m.logger.Warn("failed to initialize provider",
				"provider", cfg.Name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("provider %s: %w", cfg.Name, err))
			continue
		}
		m.Register(p)
		m.logger.Info("provider initialized",
			"provider", cfg.Name,
			"dialect", p.Dialect(),
		)
	}

	return errors.Join(errs...)
}

// Register adds a provider, replacing any previous one with the same name.
func (m *Manager) Register(p providers.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := p.GetName()
	if old, ok := m.providers[name]; ok {
		old.Close()
	} else {
		m.order = append(m.order, name)
		sort.Strings(m.order)
	}
	m.providers[name] = p
}

// Get returns a provider by name.
func (m *Manager) Get(name string) (providers.Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[name]
	return p, ok
}

// All returns the providers in sorted name order.
func (m *Manager) All() []providers.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]providers.Provider, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.providers[name])
	}
	return out
}

// ProviderCount returns the number of registered providers.
func (m *Manager) ProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// HealthSnapshot returns per-provider health keyed by name.
func (m *Manager) HealthSnapshot() map[string]providers.ProviderHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]providers.ProviderHealth, len(m.providers))
	for name, p := range m.providers {
		out[name] = p.GetHealth()
	}
	return out
}

// Close closes all providers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, p := range m.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.providers = make(map[string]providers.Provider)
	m.order = nil
	return errors.Join(errs...)
}
