// GoProfileEngine maintains pools of persistent, evolving browser identities.
//
// Startup sequence:
//  1. Load configuration (YAML file or defaults).
//  2. Load the proxy pool with its geographic metadata.
//  3. Open the persistence backend (JSON files or SQLite).
//  4. Build the engine: allocator, fingerprint generator, session manager
//     and browser supervisor.
//  5. Provision the requested number of profiles through the worker pool and
//     optionally launch a session for each.
//  6. Monitor metrics in a background goroutine.
//  7. Block until OS signals SIGINT or SIGTERM, then perform a clean
//     shutdown: close every instance, flush records, release the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/firasghr/GoProfileEngine/behavior"
	"github.com/firasghr/GoProfileEngine/browser"
	"github.com/firasghr/GoProfileEngine/config"
	"github.com/firasghr/GoProfileEngine/engine"
	"github.com/firasghr/GoProfileEngine/logger"
	"github.com/firasghr/GoProfileEngine/proxy"
	"github.com/firasghr/GoProfileEngine/store"
	"github.com/firasghr/GoProfileEngine/worker"
)

func main() {
	// ── Flags ──────────────────────────────────────────────────────────────
	configFile := flag.String("config", "", "Path to YAML config file (optional; uses defaults if omitted)")
	profileCount := flag.Int("profiles", 0, "Number of profiles to provision at startup")
	categoryFlag := flag.String("category", string(behavior.NewVisitor), "Behavioral category for provisioned profiles")
	launchAll := flag.Bool("launch", false, "Launch a session for every provisioned profile")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// ── Logger ─────────────────────────────────────────────────────────────
	level := logger.LevelInfo
	if *verbose {
		level = logger.LevelDebug
	}
	log := logger.New(level, os.Stdout)
	log.Info("GoProfileEngine starting up")

	// ── Configuration ──────────────────────────────────────────────────────
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Errorf("failed to load config from %q: %v", *configFile, err)
			os.Exit(1)
		}
		log.Infof("configuration loaded from %q", *configFile)
	} else {
		cfg = config.Default()
		log.Info("using default configuration")
	}

	category := behavior.Category(*categoryFlag)
	if !category.Valid() {
		log.Errorf("unknown category %q", *categoryFlag)
		os.Exit(1)
	}

	// ── Proxy pool ─────────────────────────────────────────────────────────
	pm := &proxy.Manager{}
	if cfg.ProxyFile != "" {
		if err := pm.LoadFile(cfg.ProxyFile); err != nil {
			log.Errorf("failed to load proxies from %q: %v", cfg.ProxyFile, err)
			os.Exit(1)
		}
		log.Infof("loaded %d proxies from %q", pm.Count(), cfg.ProxyFile)
	} else {
		log.Warn("no proxy file configured; provisioned profiles will not be launchable")
	}

	// ── Store ──────────────────────────────────────────────────────────────
	storePath := filepath.Join(cfg.StorageRoot, "records")
	if cfg.StoreBackend == "sqlite" {
		storePath = filepath.Join(cfg.StorageRoot, "records.db")
	}
	if err := os.MkdirAll(cfg.StorageRoot, 0o750); err != nil {
		log.Errorf("failed to create storage root %q: %v", cfg.StorageRoot, err)
		os.Exit(1)
	}
	st, err := store.Open(cfg.StoreBackend, storePath)
	if err != nil {
		log.Errorf("failed to open %s store: %v", cfg.StoreBackend, err)
		os.Exit(1)
	}

	// ── Engine ─────────────────────────────────────────────────────────────
	eng, err := engine.New(cfg, &browser.ChromeLauncher{}, st, pm, log)
	if err != nil {
		log.Errorf("failed to build engine: %v", err)
		os.Exit(1)
	}

	// ── Provisioning ───────────────────────────────────────────────────────
	// Fan provisioning and launches out through the worker pool; launches are
	// slow (minutes for anti-detection builds), so the pool width mirrors the
	// concurrent-session bound rather than profile count.
	if *profileCount > 0 {
		wp := worker.NewPool(cfg.MaxConcurrentSessions)
		wp.Start()
		log.Infof("provisioning %d profiles (category %s)…", *profileCount, category)

		ctx := context.Background()
		for i := 0; i < *profileCount; i++ {
			if err := wp.Submit(ctx, func() {
				p, err := eng.ProvisionProfile(ctx, category, "", nil)
				if err != nil {
					log.Errorf("provisioning failed: %v", err)
					return
				}
				if !*launchAll {
					return
				}
				if _, err := eng.LaunchSession(ctx, p.ID, 0); err != nil {
					log.Errorf("launch failed for profile %s: %v", p.ID, err)
				}
			}); err != nil {
				log.Errorf("submit failed: %v", err)
			}
		}
		wp.Stop()
		log.Infof("provisioning complete: %d profiles, %d active sessions",
			len(eng.ListProfiles()), eng.ActiveSessions())
	}

	// ── Metrics monitor ────────────────────────────────────────────────────
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			s := eng.Metrics().Snapshot()
			log.Infof("metrics – launches: %d | failures: %d | crashes: %d | active: %d | visits: %d | evolutions: %d",
				s.Launches, s.LaunchFailures, s.Crashes, s.ActiveInstances, s.VisitsRecorded, s.Evolutions)
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Println() // newline after ^C
	log.Infof("received signal %s; shutting down", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}

	s := eng.Metrics().Snapshot()
	log.Infof("final metrics – launches: %d | closes: %d | crashes: %d | visits: %d",
		s.Launches, s.Closes, s.Crashes, s.VisitsRecorded)
	log.Info("GoProfileEngine shut down cleanly")
}
