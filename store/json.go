package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/firasghr/GoProfileEngine/fingerprint"
	"github.com/firasghr/GoProfileEngine/profile"
)

// JSONStore keeps one pretty-printed JSON file per record under
// root/profiles and root/fingerprints.  Writes go through a temp file and
// rename so a crash mid-write never leaves a truncated record behind.
//
// A single mutex serialises all operations.  The store sits behind the
// engine, whose own lock already orders mutations per profile; the store
// lock only protects concurrent writers for different profiles from
// interleaving directory operations.
type JSONStore struct {
	root string
	mu   sync.Mutex
}

// OpenJSON creates (if needed) the directory layout under root and returns
// the store.
func OpenJSON(root string) (*JSONStore, error) {
	for _, dir := range []string{
		filepath.Join(root, "profiles"),
		filepath.Join(root, "fingerprints"),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("store: create %q: %w", dir, err)
		}
	}
	return &JSONStore{root: root}, nil
}

// SaveProfile writes the profile record.
func (s *JSONStore) SaveProfile(p *profile.Profile) error {
	return s.write(filepath.Join(s.root, "profiles", p.ID+".json"), p)
}

// LoadProfile reads the profile with the given id.
func (s *JSONStore) LoadProfile(id string) (*profile.Profile, error) {
	var p profile.Profile
	if err := s.read(filepath.Join(s.root, "profiles", id+".json"), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns every stored profile, skipping files that are not
// records.
func (s *JSONStore) ListProfiles() ([]*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, "profiles")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("store: list %q: %w", dir, err)
	}

	var out []*profile.Profile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name())) // #nosec G304 -- path built from our own directory listing
		if err != nil {
			return nil, fmt.Errorf("store: read %q: %w", e.Name(), err)
		}
		var p profile.Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("store: decode %q: %w", e.Name(), err)
		}
		out = append(out, &p)
	}
	return out, nil
}

// DeleteProfile removes the profile record.
func (s *JSONStore) DeleteProfile(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.root, "profiles", id+".json")
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("store: profile %q: %w", id, ErrNotFound)
		}
		return fmt.Errorf("store: delete %q: %w", path, err)
	}
	return nil
}

// SaveFingerprint writes a fingerprint record.
func (s *JSONStore) SaveFingerprint(fp *fingerprint.Fingerprint) error {
	return s.write(filepath.Join(s.root, "fingerprints", fp.ID+".json"), fp)
}

// LoadFingerprint reads the fingerprint with the given id.
func (s *JSONStore) LoadFingerprint(id string) (*fingerprint.Fingerprint, error) {
	var fp fingerprint.Fingerprint
	if err := s.read(filepath.Join(s.root, "fingerprints", id+".json"), &fp); err != nil {
		return nil, err
	}
	return &fp, nil
}

// Close is a no-op for the file backend.
func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) write(path string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("store: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename %q: %w", path, err)
	}
	return nil
}

func (s *JSONStore) read(path string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from store root and record id
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("store: %q: %w", filepath.Base(path), ErrNotFound)
		}
		return fmt.Errorf("store: read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %q: %w", path, err)
	}
	return nil
}
