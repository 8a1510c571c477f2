// Package engine is the facade of the profile engine: it owns the profile
// table and coordinates provisioning, session launch, visit recording,
// behavioral evolution and teardown across the underlying components.
//
// Architecture notes:
//   - The engine is the only writer of profile records.  Components below it
//     (session manager, supervisor, generator) own their own state and are
//     synchronised internally; the engine's RWMutex guards only the profile
//     table and the records in it.
//   - Every mutating operation writes the profile through the store before
//     returning, so a process restart loses at most the in-flight call.
//   - Instance termination flows back in through the supervisor's callback:
//     the fingerprint cache entry is released, the session ended and the
//     profile's live references cleared on the same path whether the
//     termination was requested or a crash.
//
// Lock ordering: the engine never calls into the supervisor while holding
// its own lock, because supervisor teardown paths call back into the engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/firasghr/GoProfileEngine/behavior"
	"github.com/firasghr/GoProfileEngine/browser"
	"github.com/firasghr/GoProfileEngine/config"
	"github.com/firasghr/GoProfileEngine/fingerprint"
	"github.com/firasghr/GoProfileEngine/logger"
	"github.com/firasghr/GoProfileEngine/metrics"
	"github.com/firasghr/GoProfileEngine/profile"
	"github.com/firasghr/GoProfileEngine/proxy"
	"github.com/firasghr/GoProfileEngine/session"
	"github.com/firasghr/GoProfileEngine/storage"
	"github.com/firasghr/GoProfileEngine/store"
)

// ErrProfileNotFound is returned when the referenced profile id is unknown.
var ErrProfileNotFound = errors.New("engine: profile not found")

// ErrNoProxyAssigned is returned by LaunchSession for a profile without a
// proxy.  A fingerprint needs the proxy's geography; there is no sensible
// fallback location to invent.
var ErrNoProxyAssigned = errors.New("engine: profile has no assigned proxy")

// LaunchResult reports a successful session launch.
type LaunchResult struct {
	SessionID   string
	InstanceID  string
	Fingerprint *fingerprint.Fingerprint
}

// Engine coordinates the full profile lifecycle.
type Engine struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics

	store      store.Store
	proxies    *proxy.Manager
	prober     *proxy.Prober
	alloc      *storage.Allocator
	gen        *fingerprint.Generator
	sessions   *session.Manager
	supervisor *browser.Supervisor

	mu       sync.RWMutex
	profiles map[string]*profile.Profile
}

// New wires an Engine from its components.  Profiles already persisted in st
// are loaded back into the table with their live references cleared, since
// no session or process survives a restart.
func New(cfg *config.Config, launcher browser.ProcessLauncher, st store.Store, proxies *proxy.Manager, log *logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.New(logger.LevelInfo, nil)
	}
	m := metrics.New()

	e := &Engine{
		cfg:     cfg,
		log:     log.Component("engine"),
		metrics: m,

		store:    st,
		proxies:  proxies,
		prober:   &proxy.Prober{},
		alloc:    storage.NewAllocator(cfg.StorageRoot),
		gen:      fingerprint.NewGenerator(st, log),
		sessions: session.NewManager(),
		supervisor: browser.NewSupervisor(launcher, browser.Options{
			MaxConcurrent:     cfg.MaxConcurrentSessions,
			LaunchTimeout:     cfg.LaunchTimeout,
			CloseGrace:        cfg.CloseGrace,
			KeepAliveInterval: cfg.KeepAliveInterval,
		}, log, m),
		profiles: make(map[string]*profile.Profile),
	}
	e.supervisor.OnTerminate(e.handleInstanceTerminated)

	existing, err := st.ListProfiles()
	if err != nil {
		return nil, fmt.Errorf("engine: load profiles: %w", err)
	}
	for _, p := range existing {
		p.CurrentSessionID = ""
		p.SessionStartedAt = time.Time{}
		p.CurrentInstanceID = ""
		e.profiles[p.ID] = p
	}
	if len(existing) > 0 {
		e.log.Infof("restored %d profiles from store", len(existing))
	}
	return e, nil
}

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *metrics.Metrics { return e.metrics }

// ProvisionProfile creates a new profile of the given category: behavioral
// parameters are sampled, a proxy is bound and the isolated storage tree is
// created.  A non-nil descriptor pins the profile to that specific egress;
// nil draws the next descriptor from the pool (when one is available).  The
// profile is persisted before it is returned.
func (e *Engine) ProvisionProfile(ctx context.Context, category behavior.Category, name string, d *proxy.Descriptor) (*profile.Profile, error) {
	p, err := profile.New(category, name)
	if err != nil {
		return nil, fmt.Errorf("engine: provision: %w", err)
	}

	if d == nil {
		d = e.proxies.Next()
	}
	if d != nil {
		if e.cfg.ProbeProxies {
			if err := e.prober.Probe(ctx, d, e.cfg.ProbeURL); err != nil {
				return nil, fmt.Errorf("engine: provision: proxy %s unreachable: %w", d.ID, err)
			}
		}
		p.AssignProxy(d)
	}

	p.Storage = e.alloc.Allocate(p.ID)
	if err := e.alloc.Ensure(p.Storage); err != nil {
		return nil, fmt.Errorf("engine: provision profile %s: %w", p.ID, err)
	}
	if err := e.store.SaveProfile(p); err != nil {
		return nil, fmt.Errorf("engine: provision profile %s: %w", p.ID, err)
	}

	e.mu.Lock()
	e.profiles[p.ID] = p
	e.mu.Unlock()

	e.log.Infof("provisioned profile %s (category %s, proxy %s)", p.ID, p.Category, proxyID(p))
	return p.Clone(), nil
}

// AssignProxy binds a specific descriptor to the profile, replacing any
// previous assignment.  The next session's fingerprint is derived entirely
// from the new descriptor's geography.
func (e *Engine) AssignProxy(profileID string, d *proxy.Descriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles[profileID]
	if !ok {
		return fmt.Errorf("engine: id %s: %w", profileID, ErrProfileNotFound)
	}
	p.AssignProxy(d)
	return e.persistLocked(p)
}

// LaunchSession opens a session for the profile and launches its browser
// instance.  durationHint overrides the configured session duration; zero
// keeps the default.
//
// The sequence is: claim the session slot (fails with the session manager's
// conflict error when one is already active), generate a fresh fingerprint
// from the assigned proxy's geography, render and validate the spoof
// script, ensure the storage tree, then hand the launch to the supervisor.
// Any failure after the session was claimed rolls the session back, so a
// failed launch never leaves the profile session-locked.
func (e *Engine) LaunchSession(ctx context.Context, profileID string, durationHint time.Duration) (*LaunchResult, error) {
	e.mu.RLock()
	p, ok := e.profiles[profileID]
	var (
		category behavior.Category
		geo      *proxy.Descriptor
		paths    storage.Paths
	)
	if ok {
		category = p.Category
		geo = p.Proxy
		paths = p.Storage
	}
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("engine: id %s: %w", profileID, ErrProfileNotFound)
	}
	if geo == nil {
		return nil, fmt.Errorf("engine: profile %s: %w", profileID, ErrNoProxyAssigned)
	}

	duration := e.cfg.SessionDuration
	if durationHint > 0 {
		duration = durationHint
	}
	sess, err := e.sessions.Create(profileID, duration, e.cfg.MaxVisitsPerSession)
	if err != nil {
		return nil, err
	}

	fp, err := e.gen.Generate(profileID, category, geo)
	if err != nil {
		_ = e.sessions.Terminate(sess.ID)
		return nil, fmt.Errorf("engine: launch profile %s: %w", profileID, err)
	}

	script, err := fingerprint.SpoofScript(fp)
	if err != nil {
		e.gen.Release(fp.ID)
		_ = e.sessions.Terminate(sess.ID)
		return nil, fmt.Errorf("engine: launch profile %s: %w", profileID, err)
	}

	if err := e.alloc.Ensure(paths); err != nil {
		e.gen.Release(fp.ID)
		_ = e.sessions.Terminate(sess.ID)
		return nil, fmt.Errorf("engine: launch profile %s: %w", profileID, err)
	}

	inst, err := e.supervisor.Launch(ctx, browser.LaunchSpec{
		Paths:       paths,
		Fingerprint: fp,
		SpoofScript: script,
		Proxy:       geo,
		BrowserPath: e.cfg.BrowserPath,
		Headless:    e.cfg.Headless,
	})
	if err != nil {
		e.gen.Release(fp.ID)
		_ = e.sessions.Terminate(sess.ID)
		return nil, err
	}

	e.mu.Lock()
	p, ok = e.profiles[profileID]
	if !ok {
		// The profile was deleted while the launch was in flight.  Persisting
		// now would resurrect its record, so tear the instance down instead;
		// the termination callback releases the fingerprint and the session.
		e.mu.Unlock()
		_ = e.supervisor.Close(ctx, inst.ID)
		return nil, fmt.Errorf("engine: id %s: %w", profileID, ErrProfileNotFound)
	}
	p.CurrentSessionID = sess.ID
	p.SessionStartedAt = sess.StartedAt
	p.CurrentInstanceID = inst.ID
	p.RotateFingerprint(fp.ID)
	p.LastUsedAt = time.Now()
	err = e.persistLocked(p)
	e.mu.Unlock()
	if err != nil {
		e.log.Errorf("profile %s: persist after launch: %v", profileID, err)
	}

	e.log.Infof("session %s launched for profile %s (instance %s)", sess.ID, profileID, inst.ID)
	return &LaunchResult{SessionID: sess.ID, InstanceID: inst.ID, Fingerprint: fp}, nil
}

// CloseSession ends the profile's session and shuts its browser instance
// down.  Idempotent: closing a profile with no active session returns nil.
// The instance teardown flows through the supervisor's termination callback,
// which clears the profile's live references and persists it.
func (e *Engine) CloseSession(ctx context.Context, profileID string) error {
	e.mu.RLock()
	p, ok := e.profiles[profileID]
	var instanceID string
	if ok {
		instanceID = p.CurrentInstanceID
	}
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("engine: id %s: %w", profileID, ErrProfileNotFound)
	}

	if instanceID != "" {
		if err := e.supervisor.Close(ctx, instanceID); err != nil {
			return fmt.Errorf("engine: close profile %s: %w", profileID, err)
		}
	}

	// The callback already ended the session when an instance existed; this
	// covers sessions whose launch never produced one.
	if sess, err := e.sessions.ActiveForProfile(profileID); err == nil {
		_ = e.sessions.Terminate(sess.ID)
		e.clearSessionRefs(profileID)
	}
	return nil
}

// GetProfile returns a copy of the profile record for inspection.
func (e *Engine) GetProfile(profileID string) (*profile.Profile, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.profiles[profileID]
	if !ok {
		return nil, fmt.Errorf("engine: id %s: %w", profileID, ErrProfileNotFound)
	}
	return p.Clone(), nil
}

// ListProfiles returns copies of every profile in the table.
func (e *Engine) ListProfiles() []*profile.Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*profile.Profile, 0, len(e.profiles))
	for _, p := range e.profiles {
		out = append(out, p.Clone())
	}
	return out
}

// Session returns the profile's active session, if any.
func (e *Engine) Session(profileID string) (*session.Session, error) {
	return e.sessions.ActiveForProfile(profileID)
}

// RecordVisitOutcome folds one completed visit into the profile: the session
// activity log, the running metrics, and the evolution check.  When the
// promotion fires, the profile's category advances and its behavioral
// parameters are re-sampled for the new category.  When the visit exhausts
// the session's quota or time budget, the session is wound down.
func (e *Engine) RecordVisitOutcome(ctx context.Context, profileID, url string, outcome behavior.Outcome) error {
	e.mu.Lock()
	p, ok := e.profiles[profileID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("engine: id %s: %w", profileID, ErrProfileNotFound)
	}

	sess, _ := e.sessions.ActiveForProfile(profileID)
	if sess != nil {
		sess.RecordActivity(session.Activity{
			URL:           url,
			Duration:      outcome.Duration,
			Success:       outcome.Success,
			FingerprintID: p.CurrentFingerprintID,
		})
	}

	p.Metrics.RecordVisit(outcome)
	p.LastUsedAt = time.Now()
	e.metrics.VisitsRecorded.Add(1)

	if rec := behavior.MaybeEvolve(p.Category, &p.Metrics); rec != nil {
		params, err := behavior.Synthesize(rec.To)
		if err == nil {
			p.Category = rec.To
			p.Params = params
			p.Evolution = append(p.Evolution, *rec)
			e.metrics.Evolutions.Add(1)
			e.log.Infof("profile %s evolved %s -> %s (score %.3f)", p.ID, rec.From, rec.To, rec.Score)
		}
	}

	err := e.persistLocked(p)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("engine: record visit for %s: %w", profileID, err)
	}

	if sess != nil && sess.ShouldTerminate() {
		e.log.Infof("session %s exhausted for profile %s; closing", sess.ID, profileID)
		return e.CloseSession(ctx, profileID)
	}
	return nil
}

// DeleteProfile removes the profile, its record and its storage tree.  An
// active session and instance are forcibly ended first; a profile is never
// deleted out from under a running browser.
func (e *Engine) DeleteProfile(ctx context.Context, profileID string) error {
	e.mu.RLock()
	p, ok := e.profiles[profileID]
	var root string
	if ok {
		root = p.Storage.Root
	}
	e.mu.RUnlock()

	if !ok {
		return fmt.Errorf("engine: id %s: %w", profileID, ErrProfileNotFound)
	}

	if err := e.CloseSession(ctx, profileID); err != nil {
		return fmt.Errorf("engine: delete profile %s: %w", profileID, err)
	}

	e.mu.Lock()
	delete(e.profiles, profileID)
	e.mu.Unlock()

	if err := e.store.DeleteProfile(profileID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("engine: delete profile %s: %w", profileID, err)
	}
	if root != "" {
		if err := os.RemoveAll(root); err != nil {
			return fmt.Errorf("engine: delete storage for %s: %w", profileID, err)
		}
	}
	e.log.Infof("deleted profile %s", profileID)
	return nil
}

// ActiveSessions returns the number of profiles with an active session.
func (e *Engine) ActiveSessions() int { return e.sessions.ActiveCount() }

// ActiveInstances returns the number of running browser instances.
func (e *Engine) ActiveInstances() int { return e.supervisor.Count() }

// Shutdown closes every instance and the store.  Session state is in-memory
// only; terminated implicitly.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.supervisor.CloseAll(ctx)
	return e.store.Close()
}

// handleInstanceTerminated is the supervisor's termination callback.  It
// runs once per instance, for explicit closes and crashes alike.
func (e *Engine) handleInstanceTerminated(inst *browser.Instance, crashed bool) {
	e.gen.Release(inst.FingerprintID)

	if sess, err := e.sessions.ActiveForProfile(inst.ProfileID); err == nil {
		_ = e.sessions.Terminate(sess.ID)
	}
	e.clearSessionRefs(inst.ProfileID)

	if crashed {
		e.log.Warnf("instance %s for profile %s terminated after crash", inst.ID, inst.ProfileID)
	}
}

// clearSessionRefs drops the profile's live session and instance references
// and persists the record.
func (e *Engine) clearSessionRefs(profileID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles[profileID]
	if !ok {
		return
	}
	p.CurrentSessionID = ""
	p.SessionStartedAt = time.Time{}
	p.CurrentInstanceID = ""
	p.LastUsedAt = time.Now()
	if err := e.persistLocked(p); err != nil {
		e.log.Errorf("profile %s: persist after termination: %v", profileID, err)
	}
}

// persistLocked writes p through the store.  Callers hold e.mu.
func (e *Engine) persistLocked(p *profile.Profile) error {
	return e.store.SaveProfile(p)
}

func proxyID(p *profile.Profile) string {
	if p.Proxy == nil {
		return "none"
	}
	return p.Proxy.ID
}
