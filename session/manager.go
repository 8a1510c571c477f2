// Package session – Manager enforces session exclusivity across profiles.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSessionConflict is returned by Create when the profile already has a
// non-terminated session.  The caller decides whether to reuse the existing
// session or terminate it first; the manager never does either implicitly.
var ErrSessionConflict = errors.New("session: conflict: profile already has an active session")

// ErrSessionNotFound is returned when the referenced session id or profile
// has no tracked session.
var ErrSessionNotFound = errors.New("session: not found")

// Manager owns the active-session table.
//
// Concurrency model: a single RWMutex guards both maps.  All mutations of
// session membership go through the manager – no caller outside this package
// may create or terminate sessions directly – so the
// one-active-session-per-profile invariant holds by construction.
type Manager struct {
	mu        sync.RWMutex
	byID      map[string]*Session
	byProfile map[string]*Session // only ACTIVE sessions
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		byID:      make(map[string]*Session),
		byProfile: make(map[string]*Session),
	}
}

// Create starts a new session for profileID.  It fails with
// ErrSessionConflict when a non-terminated session already exists for the
// profile – a profile can only ever browse as one identity instance at a
// time.
func (m *Manager) Create(profileID string, duration time.Duration, maxVisits int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byProfile[profileID]; ok && existing.State() != StateTerminated {
		return nil, fmt.Errorf("session: profile %s: session %s still active: %w",
			profileID, existing.ID, ErrSessionConflict)
	}

	s := newSession(profileID, duration, maxVisits)
	m.byID[s.ID] = s
	m.byProfile[profileID] = s
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.byID[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session: id %s: %w", sessionID, ErrSessionNotFound)
	}
	return s, nil
}

// ActiveForProfile returns the profile's current session, or an error when
// none is active.
func (m *Manager) ActiveForProfile(profileID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.byProfile[profileID]
	m.mu.RUnlock()
	if !ok || s.State() == StateTerminated {
		return nil, fmt.Errorf("session: profile %s has no active session: %w", profileID, ErrSessionNotFound)
	}
	return s, nil
}

// Terminate ends the session with the given id and releases the profile's
// active slot.  Termination is idempotent: terminating an unknown or
// already-terminated session returns nil, because callers reach this path
// from both explicit closes and crash cleanup and must not fail on the
// second arrival.
func (m *Manager) Terminate(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byID[sessionID]
	if !ok {
		return nil
	}
	s.terminate()
	if cur, ok := m.byProfile[s.ProfileID]; ok && cur.ID == sessionID {
		delete(m.byProfile, s.ProfileID)
	}
	return nil
}

// ActiveCount returns the number of profiles with an active session.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	n := len(m.byProfile)
	m.mu.RUnlock()
	return n
}
