package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/firasghr/GoProfileEngine/config"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
storage_root: /srv/profiles
browser_path: /usr/bin/chromium
headless: true
max_concurrent_sessions: 10
launch_timeout: 2m
close_grace: 5s
keep_alive_interval: 30s
session_duration: 45m
max_visits_per_session: 8
store_backend: sqlite
proxy_file: /etc/engine/proxies.json
probe_proxies: true
probe_url: https://www.gstatic.com/generate_204
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageRoot != "/srv/profiles" {
		t.Errorf("StorageRoot = %q", cfg.StorageRoot)
	}
	if cfg.MaxConcurrentSessions != 10 {
		t.Errorf("MaxConcurrentSessions = %d", cfg.MaxConcurrentSessions)
	}
	if cfg.LaunchTimeout != 2*time.Minute {
		t.Errorf("LaunchTimeout = %s", cfg.LaunchTimeout)
	}
	if cfg.SessionDuration != 45*time.Minute {
		t.Errorf("SessionDuration = %s", cfg.SessionDuration)
	}
	if cfg.StoreBackend != "sqlite" || !cfg.ProbeProxies {
		t.Errorf("backend/probe: %q %v", cfg.StoreBackend, cfg.ProbeProxies)
	}
}

func TestLoad_RejectsInvalidBackend(t *testing.T) {
	path := writeConfig(t, `
storage_root: /srv/profiles
max_concurrent_sessions: 10
launch_timeout: 2m
close_grace: 5s
keep_alive_interval: 30s
session_duration: 45m
max_visits_per_session: 8
store_backend: mongodb
`)
	if _, err := config.Load(path); err == nil {
		t.Error("expected validation error for store_backend mongodb")
	}
}

func TestLoad_RejectsMissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `
browser_path: /usr/bin/chromium
`)
	if _, err := config.Load(path); err == nil {
		t.Error("expected validation error for missing required fields")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefault_IsValidAndFresh(t *testing.T) {
	a := config.Default()
	b := config.Default()

	if a.MaxConcurrentSessions != 25 || a.LaunchTimeout != 3*time.Minute {
		t.Errorf("unexpected defaults: %+v", a)
	}
	if a.CloseGrace != 5*time.Second || a.KeepAliveInterval != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", a)
	}
	if a.StoreBackend != "json" {
		t.Errorf("default backend = %q", a.StoreBackend)
	}

	a.MaxConcurrentSessions = 1
	if b.MaxConcurrentSessions != 25 {
		t.Error("Default() returned a shared instance")
	}
}
