// Package session provides finite-state tracking of profile browsing
// sessions.
//
// A session is a bounded period of activity for one profile: it has a fixed
// duration budget, a visit quota, and an append-only activity log.  The
// package is deliberately independent of fingerprint generation and process
// supervision – it answers exactly one question for its callers: should this
// profile open a fresh session, keep using the current one, or wind down?
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a session.
type State string

const (
	// StateActive means the session is accepting activity.
	StateActive State = "ACTIVE"

	// StateTerminated is terminal.  A terminated session never reactivates;
	// a new session always gets a fresh id.
	StateTerminated State = "TERMINATED"
)

// Activity is one logged visit within a session.
type Activity struct {
	URL           string        `json:"url"`
	Duration      time.Duration `json:"duration"`
	Success       bool          `json:"success"`
	FingerprintID string        `json:"fingerprint_id"`
	At            time.Time     `json:"at"`
}

// Session represents one bounded period of profile activity.
//
// Mutable fields (state, visits, activity log) are guarded by mu; identity
// fields (ID, ProfileID, StartedAt, Duration, MaxVisits) are set once at
// construction and never mutated, so they may be read without the lock.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	// ProfileID is the owning profile.
	ProfileID string

	// StartedAt records when the session was created.
	StartedAt time.Time

	// Duration is the session's time budget.
	Duration time.Duration

	// MaxVisits caps the number of visits before the session should end.
	MaxVisits int

	mu         sync.RWMutex
	state      State
	visits     int
	activities []Activity
}

// newSession constructs an ACTIVE session.  Only the Manager creates
// sessions, enforcing the one-active-session-per-profile invariant.
func newSession(profileID string, duration time.Duration, maxVisits int) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		StartedAt: time.Now(),
		Duration:  duration,
		MaxVisits: maxVisits,
		state:     StateActive,
	}
}

// State returns the current lifecycle state.  Safe for concurrent use.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Visits returns the number of visits recorded so far.
func (s *Session) Visits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visits
}

// Activities returns a copy of the activity log.  The copy is safe to retain
// and iterate without holding any lock.
func (s *Session) Activities() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// RecordActivity appends one visit to the session log and increments the
// visit counter.  It does not change the session state: deciding whether the
// quota is now exhausted is ShouldTerminate's job, so callers keep a single
// code path for winding sessions down.
func (s *Session) RecordActivity(a Activity) {
	if a.At.IsZero() {
		a.At = time.Now()
	}
	s.mu.Lock()
	s.activities = append(s.activities, a)
	s.visits++
	s.mu.Unlock()
}

// ShouldTerminate reports whether the session has exhausted its time budget
// or its visit quota.  A terminated session always reports true.
func (s *Session) ShouldTerminate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateTerminated {
		return true
	}
	if time.Since(s.StartedAt) > s.Duration {
		return true
	}
	return s.visits >= s.MaxVisits
}

// terminate transitions the session to TERMINATED.  Idempotent: terminating
// an already-terminated session is a no-op, not an error.
func (s *Session) terminate() {
	s.mu.Lock()
	s.state = StateTerminated
	s.mu.Unlock()
}
