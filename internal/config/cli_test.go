package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCLIConfig_Missing(t *testing.T) {
	cfg, err := LoadCLIConfig(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("LoadCLIConfig() error = %v", err)
	}
	if cfg.DatabaseURL != "" || cfg.CachePath != "" {
		t.Errorf("expected empty profile, got %+v", cfg)
	}
}

func TestCLIConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	cfg := &CLIConfig{DatabaseURL: "postgres://localhost/site", CachePath: "/var/lib/sitecontrol/cache.db"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}

	loaded, err := LoadCLIConfig(path)
	if err != nil {
		t.Fatalf("LoadCLIConfig() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded %+v, want %+v", loaded, cfg)
	}
}

func TestLoadCLIConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("database_url: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCLIConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestCLIConfig_Set(t *testing.T) {
	var cfg CLIConfig
	if err := cfg.Set("database_url", "postgres://db"); err != nil {
		t.Fatalf("Set(database_url) error = %v", err)
	}
	if err := cfg.Set("cache_path", "cache.db"); err != nil {
		t.Fatalf("Set(cache_path) error = %v", err)
	}
	if cfg.DatabaseURL != "postgres://db" || cfg.CachePath != "cache.db" {
		t.Errorf("unexpected profile %+v", cfg)
	}
	if err := cfg.Set("api_key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}
