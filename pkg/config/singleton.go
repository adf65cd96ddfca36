package config

import (
	"sync"
)

var (
	mu     sync.RWMutex
	active *Config
)

// Initialize loads the configuration file and installs it as the active
// configuration.
func Initialize(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	Set(cfg)
	return nil
}

// Set installs cfg as the active configuration.
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	active = cfg
}

// GetConfig returns the active configuration, falling back to defaults
// when Initialize was never called.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if active == nil {
		return DefaultConfig()
	}
	return active
}
