// Package browser – Instance.
package browser

import (
	"sync"
	"time"

	"github.com/firasghr/GoProfileEngine/storage"
)

// InstanceState is the lifecycle state of a browser instance.
type InstanceState string

const (
	// StateLaunching means the process is starting but not yet ready.
	StateLaunching InstanceState = "LAUNCHING"

	// StateRunning means the process is ready and monitored.
	StateRunning InstanceState = "RUNNING"

	// StateClosing means a graceful shutdown is in progress.
	StateClosing InstanceState = "CLOSING"

	// StateTerminated is terminal.  A terminated instance is removed from
	// the active table and cannot be reused.
	StateTerminated InstanceState = "TERMINATED"
)

// Instance is one running external browser process and its bookkeeping.
type Instance struct {
	// ID uniquely identifies the instance.
	ID string

	// ProfileID and FingerprintID identify the owning identity.  One
	// fingerprint has at most one live instance.
	ProfileID     string
	FingerprintID string

	// Paths is the isolated storage set the process was launched with.
	Paths storage.Paths

	// CreatedAt records when the launch completed.
	CreatedAt time.Time

	proc Process

	mu           sync.RWMutex
	state        InstanceState
	lastActivity time.Time

	// stopKeepAlive cancels the keep-alive monitor.  Closed exactly once
	// via stopOnce regardless of how many of the shutdown paths (explicit
	// close, crash reap, exit watcher) reach it.
	stopKeepAlive chan struct{}
	stopOnce      sync.Once

	// cleanupOnce guarantees table removal and slot release happen once
	// even when an explicit close races a crash detection.
	cleanupOnce sync.Once
}

// State returns the current lifecycle state.
func (in *Instance) State() InstanceState {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

// LastActivity returns the most recent keep-alive refresh time.
func (in *Instance) LastActivity() time.Time {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.lastActivity
}

func (in *Instance) setState(s InstanceState) {
	in.mu.Lock()
	in.state = s
	in.mu.Unlock()
}

func (in *Instance) touch() {
	in.mu.Lock()
	in.lastActivity = time.Now()
	in.mu.Unlock()
}

// cancelKeepAlive stops the monitor.  Double-cancellation is a no-op.
func (in *Instance) cancelKeepAlive() {
	in.stopOnce.Do(func() { close(in.stopKeepAlive) })
}

// Alive reports whether the underlying process is still running.
func (in *Instance) Alive() bool {
	return in.proc != nil && in.proc.Alive()
}
