// Package config loads and validates Prism's YAML configuration.
//
// Configuration is read from a YAML file, `${VAR}` values are expanded
// from the environment, defaults are applied, and the result is validated
// before use. A package-level singleton makes the active configuration
// available to all components, and an fsnotify-based watcher can reload
// it when the file changes.
package config
