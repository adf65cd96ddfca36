package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionDefaults(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default")
	}
	if GitCommit == "" || BuildDate == "" {
		t.Error("build metadata should have defaults")
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := map[string]bool{
		"run":     false,
		"test":    false,
		"init":    false,
		"export":  false,
		"stats":   false,
		"version": false,
	}
	for _, c := range rootCmd.Commands() {
		name := strings.Fields(c.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestRunCommandServerAlias(t *testing.T) {
	if !runCmd.HasAlias("server") {
		t.Error("run should be invocable as server")
	}
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	origCfg := cfgFile
	cfgFile = filepath.Join(dir, "config.yaml")
	defer func() { cfgFile = origCfg }()

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	// A second run without --force must refuse to overwrite.
	if err := runInit(initCmd, nil); err == nil {
		t.Error("runInit should refuse to overwrite an existing file")
	}
}
