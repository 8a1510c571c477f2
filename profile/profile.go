// Package profile defines the persistent record of one synthetic browsing
// identity.
//
// A Profile is plain data: behavioral parameters, the assigned proxy with
// its geographic metadata, storage paths, running metrics, and references to
// the current session and fingerprint.  All mutation happens inside the
// engine under its lock; this package only provides the record shape and
// the few helpers that encode record-level rules (proxy reassignment
// replaces, fingerprint rotation keeps history).
package profile

import (
	"time"

	"github.com/google/uuid"

	"github.com/firasghr/GoProfileEngine/behavior"
	"github.com/firasghr/GoProfileEngine/proxy"
	"github.com/firasghr/GoProfileEngine/storage"
)

// Profile is the persistent record of one browsing identity.  It serialises
// losslessly to JSON; the engine persists it after every mutating operation.
type Profile struct {
	// ID uniquely identifies the profile.
	ID string `json:"id"`

	// Name is an optional operator-facing label.
	Name string `json:"name,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`

	// Category is the behavioral archetype.  It changes only through the
	// evolution rule; there is no other reassignment path.
	Category behavior.Category `json:"category"`

	// Params is the sampled behavioral bundle.  Immutable between
	// evolutions.
	Params behavior.Params `json:"params"`

	// Proxy is the assigned egress descriptor, including the geographic
	// metadata every fingerprint is derived from.  A profile with a nil
	// proxy is non-launchable.
	Proxy *proxy.Descriptor `json:"proxy,omitempty"`

	// Storage is the profile's isolated path set.
	Storage storage.Paths `json:"storage"`

	// Metrics is the running performance record.
	Metrics behavior.Metrics `json:"metrics"`

	// Evolution is the append-only promotion history.
	Evolution []behavior.EvolutionRecord `json:"evolution,omitempty"`

	// Session reference.  CurrentSessionID is empty when no session is
	// active; the live session object itself is owned by the session
	// manager, not persisted here.
	CurrentSessionID string    `json:"current_session_id,omitempty"`
	SessionStartedAt time.Time `json:"session_started_at,omitzero"`

	// Fingerprint reference.  History holds the ids of rotated-out
	// fingerprints, oldest first.
	CurrentFingerprintID string    `json:"current_fingerprint_id,omitempty"`
	FingerprintRotatedAt time.Time `json:"fingerprint_rotated_at,omitzero"`
	FingerprintHistory   []string  `json:"fingerprint_history,omitempty"`

	// CurrentInstanceID is the live browser instance, empty when none.
	// Not persisted: a process handle never survives an engine restart.
	CurrentInstanceID string `json:"-"`
}

// New creates a profile of the given category with freshly sampled
// behavioral parameters.
func New(category behavior.Category, name string) (*Profile, error) {
	params, err := behavior.Synthesize(category)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Profile{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  now,
		LastUsedAt: now,
		Category:   category,
		Params:     params,
	}, nil
}

// AssignProxy binds d to the profile, replacing any previous assignment.
// Replacement is total: the old descriptor's geography is discarded with it,
// never merged, because a fingerprint mixing two locations is exactly the
// inconsistency the engine exists to prevent.
func (p *Profile) AssignProxy(d *proxy.Descriptor) {
	p.Proxy = d
}

// RotateFingerprint records a newly generated fingerprint as current and
// moves the previous one into history.
func (p *Profile) RotateFingerprint(fingerprintID string) {
	if p.CurrentFingerprintID != "" {
		p.FingerprintHistory = append(p.FingerprintHistory, p.CurrentFingerprintID)
	}
	p.CurrentFingerprintID = fingerprintID
	p.FingerprintRotatedAt = time.Now()
}

// Launchable reports whether the profile can start a browser instance.
func (p *Profile) Launchable() bool {
	return p.Proxy != nil
}

// Clone returns a deep-enough copy for read-only reporting: slices are
// copied, and the proxy descriptor is copied by value so the caller cannot
// mutate the original through the pointer.
func (p *Profile) Clone() *Profile {
	out := *p
	if p.Proxy != nil {
		d := *p.Proxy
		out.Proxy = &d
	}
	out.Evolution = append([]behavior.EvolutionRecord(nil), p.Evolution...)
	out.FingerprintHistory = append([]string(nil), p.FingerprintHistory...)
	return &out
}
