package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} references in config values.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LoadConfig reads, expands, and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses raw YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	expandEnvNode(&root)

	cfg := &Config{}
	if err := root.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandEnvNode walks the YAML tree and replaces ${VAR} references in
// scalar string values. Unset variables leave the literal untouched so
// misconfigurations stay visible.
func expandEnvNode(n *yaml.Node) {
	if n == nil {
		return
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Value = envVarPattern.ReplaceAllStringFunc(n.Value, func(m string) string {
			name := envVarPattern.FindStringSubmatch(m)[1]
			if v, ok := os.LookupEnv(name); ok {
				return v
			}
			return m
		})
		return
	}
	for _, child := range n.Content {
		expandEnvNode(child)
	}
}

// applyEnvOverrides applies PRISM_* environment overrides on top of the
// file configuration. Only operational knobs are overridable; provider
// credentials belong in the file (with ${VAR} expansion).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRISM_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PRISM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PRISM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PRISM_LOGGING_DB_PATH"); v != "" {
		cfg.Logging.DBPath = v
	}
	if v := os.Getenv("PRISM_PROXY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Proxy.Timeout = d
		}
	}
}
