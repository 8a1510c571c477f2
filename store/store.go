// Package store persists profile and fingerprint records.
//
// Two backends implement the same interface: a JSON-file store that keeps
// one file per record under a directory tree, and a SQLite store for
// deployments that want a single-file database with transactional writes.
// Records are stored as their canonical JSON encoding in both backends, so
// switching backends is a data migration of trivial shape.
package store

import (
	"errors"
	"fmt"

	"github.com/firasghr/GoProfileEngine/fingerprint"
	"github.com/firasghr/GoProfileEngine/profile"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store is the persistence boundary of the engine.  Every mutating engine
// operation writes through before returning, so a restart loses at most the
// in-flight operation.
type Store interface {
	// SaveProfile writes the full profile record, replacing any previous
	// version.
	SaveProfile(p *profile.Profile) error

	// LoadProfile reads the profile with the given id.
	LoadProfile(id string) (*profile.Profile, error)

	// ListProfiles returns every stored profile.
	ListProfiles() ([]*profile.Profile, error)

	// DeleteProfile removes the profile record.  Deleting an absent record
	// returns ErrNotFound.
	DeleteProfile(id string) error

	// SaveFingerprint writes a fingerprint record.
	SaveFingerprint(fp *fingerprint.Fingerprint) error

	// LoadFingerprint reads the fingerprint with the given id.
	LoadFingerprint(id string) (*fingerprint.Fingerprint, error)

	// Close releases backend resources.
	Close() error
}

// Open creates a store of the given backend ("json" or "sqlite") rooted at
// path: a directory for the JSON backend, a database file for SQLite.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "json", "":
		return OpenJSON(path)
	case "sqlite":
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}
