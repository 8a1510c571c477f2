// Package config provides configuration management for GoProfileEngine.
// It supports YAML-based configuration loading via koanf with struct-level
// validation, plus safe defaults tuned for a mid-sized profile pool.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all tunable parameters for the profile engine.
// The struct is designed to be loaded once at startup and then shared across
// goroutines as a read-only value, making it inherently thread-safe after
// initialization.  Fields cover storage layout, browser process control,
// session policy, and persistence backend selection.
type Config struct {
	// StorageRoot is the directory under which every profile's isolated
	// storage tree is created.  One subdirectory per profile id.
	StorageRoot string `koanf:"storage_root" validate:"required"`

	// BrowserPath is the path to the browser executable launched for each
	// session.  Anti-detection browser builds are supported; the engine only
	// requires that the binary accepts Chromium-style flags.
	BrowserPath string `koanf:"browser_path"`

	// Headless controls whether browser processes run without a visible
	// window.  Production pools run headless; set false for debugging.
	Headless bool `koanf:"headless"`

	// MaxConcurrentSessions bounds the number of simultaneously running
	// browser instances.  Launch requests beyond this bound are rejected
	// with a typed error rather than queued; the caller's retry layer owns
	// the decision to wait.  Keep this <= 50 on an 8-core host.
	MaxConcurrentSessions int `koanf:"max_concurrent_sessions" validate:"required,min=1"`

	// LaunchTimeout is how long the supervisor waits for a freshly started
	// browser process to report ready.  Anti-detection builds patch the
	// binary at startup and can take far longer than stock Chromium, so the
	// default is minutes, not seconds.
	LaunchTimeout time.Duration `koanf:"launch_timeout" validate:"required"`

	// CloseGrace is the window between the graceful termination signal and
	// the forced kill during instance shutdown.
	CloseGrace time.Duration `koanf:"close_grace" validate:"required"`

	// KeepAliveInterval is how often each instance's liveness monitor fires.
	KeepAliveInterval time.Duration `koanf:"keep_alive_interval" validate:"required"`

	// SessionDuration is the default lifetime of a session when the caller
	// supplies no duration hint.
	SessionDuration time.Duration `koanf:"session_duration" validate:"required"`

	// MaxVisitsPerSession caps the number of visits recorded within one
	// session before ShouldTerminate reports true.
	MaxVisitsPerSession int `koanf:"max_visits_per_session" validate:"required,min=1"`

	// StoreBackend selects where profile and fingerprint records persist:
	// "json" for flat files under StorageRoot, "sqlite" for a single
	// database file.  Records round-trip identically through both.
	StoreBackend string `koanf:"store_backend" validate:"required,oneof=json sqlite"`

	// ProxyFile is the path to a JSON file containing proxy descriptors
	// (host, port, credentials, and the geographic metadata every
	// fingerprint is derived from).  Required for launchable profiles.
	ProxyFile string `koanf:"proxy_file"`

	// ProbeProxies enables a pre-launch connectivity probe through each
	// newly assigned proxy.  The probe handshakes with a browser-shaped TLS
	// ClientHello so the check itself does not flag the egress IP.
	ProbeProxies bool `koanf:"probe_proxies"`

	// ProbeURL is the endpoint hit by the proxy probe.  Ignored when
	// ProbeProxies is false.
	ProbeURL string `koanf:"probe_url" validate:"omitempty,url"`
}

// Load reads a YAML file at path, deserialises it into a Config, and
// validates required fields and value constraints.  It returns an error if
// the file cannot be read, the YAML is malformed, or validation fails.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load %q: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %q: %w", path, err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate %q: %w", path, err)
	}

	return &cfg, nil
}

// Default returns a *Config pre-filled with production-sensible defaults.
// The values are tuned for a pool of a few dozen concurrent browser
// instances on a single host.  Callers are free to mutate the returned
// struct before passing it to other components; each call returns a fresh
// independent copy.
func Default() *Config {
	return &Config{
		StorageRoot:           "./profiles",
		BrowserPath:           "",
		Headless:              true,
		MaxConcurrentSessions: 25,
		LaunchTimeout:         3 * time.Minute,
		CloseGrace:            5 * time.Second,
		KeepAliveInterval:     30 * time.Second,
		SessionDuration:       30 * time.Minute,
		MaxVisitsPerSession:   10,
		StoreBackend:          "json",
		ProxyFile:             "",
		ProbeProxies:          false,
		ProbeURL:              "https://www.gstatic.com/generate_204",
	}
}
