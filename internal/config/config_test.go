package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("explicit missing config file should fail")
	}

	cfg, err = loadWithoutFile(t)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	if cfg.Allegro.Subject != "admin" {
		t.Fatalf("unexpected default subject %q", cfg.Allegro.Subject)
	}
	if cfg.Allegro.PageLimit != 20 {
		t.Fatalf("unexpected default page limit %d", cfg.Allegro.PageLimit)
	}
	if cfg.Allegro.TokenLifetime != 12*time.Hour {
		t.Fatalf("unexpected default token lifetime %s", cfg.Allegro.TokenLifetime)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default addr %q", cfg.HTTP.Addr)
	}
	if cfg.Reconciler.QueueSize != 64 {
		t.Fatalf("unexpected default queue size %d", cfg.Reconciler.QueueSize)
	}
	if cfg.Sync.Enabled {
		t.Fatal("background sync must default to off")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := []byte(`
allegro:
  client_id: client-1
  subject: sklep
  page_limit: 0
  token_lifetime: 6h
sync:
  enabled: true
  interval: 2m
`)
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Allegro.ClientID != "client-1" || cfg.Allegro.Subject != "sklep" {
		t.Fatalf("file values not applied: %+v", cfg.Allegro)
	}
	if cfg.Allegro.PageLimit != 0 {
		t.Fatalf("page_limit 0 means fetch all, got %d", cfg.Allegro.PageLimit)
	}
	if cfg.Allegro.TokenLifetime != 6*time.Hour {
		t.Fatalf("unexpected token lifetime %s", cfg.Allegro.TokenLifetime)
	}
	if !cfg.Sync.Enabled || cfg.Sync.Interval != 2*time.Minute {
		t.Fatalf("sync settings not applied: %+v", cfg.Sync)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := loadWithoutFile(t)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}

	cfg.Allegro.TokenLifetime = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero token lifetime must fail validation")
	}

	cfg, _ = loadWithoutFile(t)
	cfg.Sync.Enabled = true
	cfg.Sync.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled sync without interval must fail validation")
	}

	cfg, _ = loadWithoutFile(t)
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram without bot token must fail validation")
	}
}

func TestResolveMaxRows(t *testing.T) {
	cfg, err := loadWithoutFile(t)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if got := cfg.ResolveMaxRows(0); got != 100000 {
		t.Fatalf("expected config default, got %d", got)
	}
	if got := cfg.ResolveMaxRows(500); got != 500 {
		t.Fatalf("expected override, got %d", got)
	}
}

// loadWithoutFile runs Load from an empty directory so only defaults and
// environment apply.
func loadWithoutFile(t *testing.T) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return Load("")
}
