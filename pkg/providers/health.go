package providers

import (
	"sync"
	"time"
)

// healthTracker tracks consecutive failures for the health circuit.
type healthTracker struct {
	mu                  sync.RWMutex
	healthy             bool
	lastChecked         time.Time
	lastError           string
	consecutiveFailures int
}

func newHealthTracker() *healthTracker {
	return &healthTracker{healthy: true}
}

func (h *healthTracker) markSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.healthy = true
	h.consecutiveFailures = 0
	h.lastChecked = time.Now()
	h.lastError = ""
}

func (h *healthTracker) markFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	h.lastChecked = time.Now()
	if err != nil {
		h.lastError = err.Error()
	}
	if h.consecutiveFailures >= unhealthyThreshold {
		h.healthy = false
	}
}

func (h *healthTracker) isHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.healthy
}

func (h *healthTracker) snapshot() ProviderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return ProviderHealth{
		Healthy:             h.healthy,
		LastChecked:         h.lastChecked,
		LastError:           h.lastError,
		ConsecutiveFailures: h.consecutiveFailures,
	}
}
