// Package browser – the Supervisor.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firasghr/GoProfileEngine/logger"
	"github.com/firasghr/GoProfileEngine/metrics"
)

// ErrInstanceNotFound is returned by Get for unknown instance ids.
var ErrInstanceNotFound = errors.New("browser: instance not found")

// ErrCapacityExceeded is returned by Launch when the pool is at its
// configured concurrent-instance bound.  The supervisor rejects rather than
// queues: the caller's retry/scheduling layer has the context to decide
// whether to wait, pick another profile, or drop the work, and an internal
// queue would hide that decision and its memory cost inside the supervisor.
var ErrCapacityExceeded = errors.New("browser: max concurrent instances reached")

// ErrLaunchFailure wraps any failure between the launch request and the
// process reporting ready.  The attempt is fully cleaned up; the caller may
// retry with a fresh fingerprint or proxy.
var ErrLaunchFailure = errors.New("browser: launch failure")

// Options tunes a Supervisor.
type Options struct {
	// MaxConcurrent bounds the number of simultaneously running instances.
	MaxConcurrent int

	// LaunchTimeout bounds one launch attempt, from process start to ready.
	// Generous by default: anti-detection builds start slowly.
	LaunchTimeout time.Duration

	// CloseGrace is the window between the graceful close request and the
	// forced kill.
	CloseGrace time.Duration

	// KeepAliveInterval is the period of each instance's liveness monitor.
	KeepAliveInterval time.Duration
}

func (o *Options) fillDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 25
	}
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = 3 * time.Minute
	}
	if o.CloseGrace <= 0 {
		o.CloseGrace = 5 * time.Second
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = 30 * time.Second
	}
}

// Supervisor launches, monitors and reaps browser instances.
//
// Concurrency model:
//   - The active-instance table is guarded by a RWMutex and mutated only by
//     the supervisor itself; callers observe instances through Get/Count.
//   - Capacity is a buffered-channel semaphore.  A slot is taken before the
//     (slow) launch begins so that concurrent launches cannot overcommit,
//     and released exactly once per instance through cleanupOnce.
//   - Each instance gets two goroutines: a keep-alive ticker and an exit
//     watcher.  Both funnel into reap, and both exit when the keep-alive
//     channel closes, so a terminated instance leaves nothing running.
type Supervisor struct {
	launcher ProcessLauncher
	opts     Options
	log      *logger.Logger
	metrics  *metrics.Metrics

	// onTerminate, when set, is invoked once per instance after removal
	// from the active table.  The engine uses it to release the fingerprint
	// cache entry and end the session on crash.
	onTerminate func(inst *Instance, crashed bool)

	mu        sync.RWMutex
	instances map[string]*Instance

	slots chan struct{}
}

// NewSupervisor creates a Supervisor driving processes through launcher.
func NewSupervisor(launcher ProcessLauncher, opts Options, log *logger.Logger, m *metrics.Metrics) *Supervisor {
	opts.fillDefaults()
	if log == nil {
		log = logger.New(logger.LevelInfo, nil)
	}
	if m == nil {
		m = metrics.New()
	}
	return &Supervisor{
		launcher:  launcher,
		opts:      opts,
		log:       log.Component("supervisor"),
		metrics:   m,
		instances: make(map[string]*Instance),
		slots:     make(chan struct{}, opts.MaxConcurrent),
	}
}

// OnTerminate registers a callback invoked once per instance after it leaves
// the active table, with crashed=true when the termination was detected
// rather than requested.  Must be set before the first Launch.
func (s *Supervisor) OnTerminate(fn func(inst *Instance, crashed bool)) {
	s.onTerminate = fn
}

// Launch starts a browser instance for spec.
//
// The call blocks until the process reports ready (bounded by the launch
// timeout) but launches for different profiles proceed concurrently; the
// only serialisation is the capacity semaphore.  When the pool is full the
// request is rejected immediately with ErrCapacityExceeded.
func (s *Supervisor) Launch(ctx context.Context, spec LaunchSpec) (*Instance, error) {
	if spec.Fingerprint == nil {
		return nil, fmt.Errorf("%w: spec has no fingerprint", ErrLaunchFailure)
	}

	select {
	case s.slots <- struct{}{}:
	default:
		return nil, fmt.Errorf("browser: %d instances running: %w", s.opts.MaxConcurrent, ErrCapacityExceeded)
	}

	inst := &Instance{
		ID:            uuid.NewString(),
		ProfileID:     spec.Fingerprint.ProfileID,
		FingerprintID: spec.Fingerprint.ID,
		Paths:         spec.Paths,
		state:         StateLaunching,
		stopKeepAlive: make(chan struct{}),
	}

	launchCtx, cancel := context.WithTimeout(ctx, s.opts.LaunchTimeout)
	defer cancel()

	proc, err := s.launcher.Launch(launchCtx, spec)
	if err != nil {
		<-s.slots // the instance never existed; release directly
		s.metrics.LaunchFailures.Add(1)
		return nil, fmt.Errorf("%w: profile %s: %v", ErrLaunchFailure, spec.Fingerprint.ProfileID, err)
	}

	inst.proc = proc
	inst.CreatedAt = time.Now()
	inst.lastActivity = inst.CreatedAt
	inst.setState(StateRunning)

	s.mu.Lock()
	s.instances[inst.ID] = inst
	s.mu.Unlock()

	s.metrics.Launches.Add(1)
	s.metrics.ActiveInstances.Add(1)

	go s.keepAlive(inst)
	go s.watchExit(inst)

	s.log.Infof("instance %s launched (profile %s, fingerprint %s)",
		inst.ID, inst.ProfileID, inst.FingerprintID)
	return inst, nil
}

// Get returns the active instance with the given id.
func (s *Supervisor) Get(instanceID string) (*Instance, error) {
	s.mu.RLock()
	inst, ok := s.instances[instanceID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("browser: id %s: %w", instanceID, ErrInstanceNotFound)
	}
	return inst, nil
}

// Count returns the number of active instances.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	n := len(s.instances)
	s.mu.RUnlock()
	return n
}

// Close shuts the instance down: a graceful close first, then a forced kill
// when the process has not exited within the grace window.  The instance is
// always removed from the active table and its keep-alive monitor stopped,
// even when the graceful close fails.
//
// Close is idempotent: closing an unknown id – including one already reaped
// after a crash – returns nil, because explicit closes and crash cleanup
// race by design and the second arrival must not fail.
func (s *Supervisor) Close(ctx context.Context, instanceID string) error {
	s.mu.RLock()
	inst, ok := s.instances[instanceID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	inst.setState(StateClosing)

	graceCtx, cancel := context.WithTimeout(ctx, s.opts.CloseGrace)
	defer cancel()

	if err := inst.proc.Close(graceCtx); err != nil {
		s.log.Warnf("instance %s: graceful close failed (%v); killing", inst.ID, err)
		inst.proc.Kill()
	}

	s.finalize(inst, false)
	s.metrics.Closes.Add(1)
	s.log.Infof("instance %s closed (profile %s)", inst.ID, inst.ProfileID)
	return nil
}

// CloseAll closes every active instance.  Used at engine shutdown.
func (s *Supervisor) CloseAll(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = s.Close(ctx, id)
		}(id)
	}
	wg.Wait()
}

// keepAlive is the per-instance liveness monitor.  Every interval it checks
// the process and refreshes the last-activity timestamp; a dead process is
// reaped immediately, which prevents unbounded accumulation of dead entries
// in the active table.  The loop exits when the keep-alive channel closes.
func (s *Supervisor) keepAlive(inst *Instance) {
	ticker := time.NewTicker(s.opts.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-inst.stopKeepAlive:
			return
		case <-ticker.C:
			if !inst.proc.Alive() {
				s.reap(inst)
				return
			}
			inst.touch()
		}
	}
}

// watchExit reaps the instance the moment its process ends without a close
// request – a crash or an external kill.  Funnels into the same cleanup
// path as keep-alive detection and explicit close.
func (s *Supervisor) watchExit(inst *Instance) {
	select {
	case <-inst.stopKeepAlive:
	case <-inst.proc.Exited():
		s.reap(inst)
	}
}

// reap handles an unsolicited process exit.  finalize is once-guarded, so a
// reap racing an explicit Close performs no double cleanup; whichever path
// arrives second finds nothing to do.
func (s *Supervisor) reap(inst *Instance) {
	if inst.State() == StateClosing || inst.State() == StateTerminated {
		return
	}
	s.log.Warnf("instance %s: process exited unexpectedly (profile %s); reaping",
		inst.ID, inst.ProfileID)
	s.metrics.Crashes.Add(1)
	inst.proc.Kill()
	s.finalize(inst, true)
}

// finalize performs the single shared cleanup path: stop the monitor, drop
// the table entry, release the capacity slot, notify the engine.  Runs at
// most once per instance.
func (s *Supervisor) finalize(inst *Instance, crashed bool) {
	inst.cleanupOnce.Do(func() {
		inst.cancelKeepAlive()
		inst.setState(StateTerminated)

		s.mu.Lock()
		delete(s.instances, inst.ID)
		s.mu.Unlock()

		<-s.slots
		s.metrics.ActiveInstances.Add(-1)

		if s.onTerminate != nil {
			s.onTerminate(inst, crashed)
		}
	})
}
