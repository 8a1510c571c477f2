package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/firasghr/GoProfileEngine/fingerprint"
	"github.com/firasghr/GoProfileEngine/profile"
)

// SQLiteStore persists records in a single SQLite database file.  Each
// record is one row keyed by id with the JSON encoding as the payload; the
// pure-Go driver keeps the build cgo-free.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fingerprints (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`

// OpenSQLite opens (creating if needed) the database at path and ensures
// the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %q: %w", path, err)
	}
	// The driver serialises access per connection; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveProfile upserts the profile record.
func (s *SQLiteStore) SaveProfile(p *profile.Profile) error {
	return s.save("profiles", p.ID, p)
}

// LoadProfile reads the profile with the given id.
func (s *SQLiteStore) LoadProfile(id string) (*profile.Profile, error) {
	var p profile.Profile
	if err := s.load("profiles", id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns every stored profile.
func (s *SQLiteStore) ListProfiles() ([]*profile.Profile, error) {
	rows, err := s.db.Query(`SELECT data FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("store: list profiles: %w", err)
	}
	defer rows.Close()

	var out []*profile.Profile
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan profile: %w", err)
		}
		var p profile.Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("store: decode profile: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list profiles: %w", err)
	}
	return out, nil
}

// DeleteProfile removes the profile row.
func (s *SQLiteStore) DeleteProfile(id string) error {
	res, err := s.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete profile %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: profile %q: %w", id, ErrNotFound)
	}
	return nil
}

// SaveFingerprint upserts a fingerprint record.
func (s *SQLiteStore) SaveFingerprint(fp *fingerprint.Fingerprint) error {
	return s.save("fingerprints", fp.ID, fp)
}

// LoadFingerprint reads the fingerprint with the given id.
func (s *SQLiteStore) LoadFingerprint(id string) (*fingerprint.Fingerprint, error) {
	var fp fingerprint.Fingerprint
	if err := s.load("fingerprints", id, &fp); err != nil {
		return nil, err
	}
	return &fp, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) save(table, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s %q: %w", table, id, err)
	}
	// Table names come from the two call sites above, never from input.
	q := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, table)
	if _, err := s.db.Exec(q, id, string(data)); err != nil {
		return fmt.Errorf("store: save %s %q: %w", table, id, err)
	}
	return nil
}

func (s *SQLiteStore) load(table, id string, v any) error {
	q := fmt.Sprintf(`SELECT data FROM %s WHERE id = ?`, table)
	var data []byte
	err := s.db.QueryRow(q, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s %q: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("store: load %s %q: %w", table, id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("store: decode %s %q: %w", table, id, err)
	}
	return nil
}
