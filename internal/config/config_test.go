package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NIMBUS_CONFIG_DIR", dir)
	t.Setenv("NIMBUS_SERVER_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("Expected default server URL, got %s", cfg.ServerURL)
	}
	if cfg.TokenPath != filepath.Join(dir, "token") {
		t.Errorf("Unexpected token path %s", cfg.TokenPath)
	}
	if cfg.PreviewsDir != filepath.Join(dir, "previews") {
		t.Errorf("Unexpected previews dir %s", cfg.PreviewsDir)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NIMBUS_CONFIG_DIR", dir)
	t.Setenv("NIMBUS_SERVER_URL", "")

	content := []byte("server_url: https://api.example.com/v1\ntoken_path: /tmp/custom-token\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0600); err != nil {
		t.Fatalf("Writing config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "https://api.example.com/v1" {
		t.Errorf("Expected file server URL, got %s", cfg.ServerURL)
	}
	if cfg.TokenPath != "/tmp/custom-token" {
		t.Errorf("Expected file token path, got %s", cfg.TokenPath)
	}

	t.Setenv("NIMBUS_SERVER_URL", "https://staging.example.com/v1")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != "https://staging.example.com/v1" {
		t.Errorf("Expected env override, got %s", cfg.ServerURL)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NIMBUS_CONFIG_DIR", dir)
	t.Setenv("NIMBUS_SERVER_URL", "")

	cfg := &Config{ServerURL: "https://api.example.com/v1"}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ServerURL != "https://api.example.com/v1" {
		t.Errorf("Expected saved server URL, got %s", loaded.ServerURL)
	}
}
