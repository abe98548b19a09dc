package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != defaultListenAddress {
		t.Fatalf("default listen address %q", cfg.ListenAddress)
	}
	if cfg.LocalDomain == 0 {
		t.Fatalf("default config has zero domain")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}

	// Loading the generated file round-trips.
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if *reloaded != *cfg {
		t.Fatalf("reloaded config differs: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "ListenAddress = \":8645\"\nLocalDomain = 5\nBogusField = true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{ListenAddress: ":8645", LocalDomain: 5}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := (&Config{LocalDomain: 5}).Validate(); err == nil {
		t.Fatalf("missing listen address accepted")
	}
	if err := (&Config{ListenAddress: ":8645"}).Validate(); err == nil {
		t.Fatalf("zero domain accepted")
	}
}
