// Package storage provides deterministic, isolated filesystem layouts for
// browser profiles.
//
// Two profiles must never share a path: cookies, cache, or local storage
// leaking between identities is an immediate cross-contamination signal.  The
// allocator therefore derives every path purely from the profile id, so the
// same id always maps to the same tree and distinct ids can never collide.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrAllocation is wrapped by every failure to materialise a profile's
// storage tree, alongside the underlying filesystem error.
var ErrAllocation = errors.New("storage: allocation failure")

// Paths is the complete isolated storage set for one profile.
type Paths struct {
	// Root is the profile's private directory; every other path lives
	// beneath it.
	Root string `json:"root"`

	// UserDataDir is handed to the browser process as its data directory.
	UserDataDir string `json:"user_data_dir"`

	// CookiesFile holds the serialised cookie list (JSON array).
	CookiesFile string `json:"cookies_file"`

	// CacheDir is the browser's disk cache location.
	CacheDir string `json:"cache_dir"`

	// IndexedDBDir holds site databases.
	IndexedDBDir string `json:"indexeddb_dir"`

	// LocalStorageFile and SessionStorageFile hold the serialised key/value
	// stores (JSON objects).
	LocalStorageFile   string `json:"local_storage_file"`
	SessionStorageFile string `json:"session_storage_file"`

	// LogFile receives the browser process's stdout/stderr.
	LogFile string `json:"log_file"`
}

// Allocator computes and materialises per-profile storage trees beneath a
// fixed root directory.  Allocator is stateless apart from the root, so a
// single instance may be shared by any number of goroutines.
type Allocator struct {
	root string
}

// NewAllocator creates an Allocator rooted at root.  The root itself is
// created on first Ensure, not here, so constructing an Allocator never
// touches the filesystem.
func NewAllocator(root string) *Allocator {
	return &Allocator{root: root}
}

// Allocate computes the storage layout for profileID.  It is a pure
// function of (root, profileID): no filesystem access, no randomness.  Call
// Ensure before handing the paths to a browser process.
func (a *Allocator) Allocate(profileID string) Paths {
	root := filepath.Join(a.root, profileID)
	return Paths{
		Root:               root,
		UserDataDir:        filepath.Join(root, "user-data"),
		CookiesFile:        filepath.Join(root, "cookies.json"),
		CacheDir:           filepath.Join(root, "cache"),
		IndexedDBDir:       filepath.Join(root, "indexeddb"),
		LocalStorageFile:   filepath.Join(root, "local-storage.json"),
		SessionStorageFile: filepath.Join(root, "session-storage.json"),
		LogFile:            filepath.Join(root, "browser.log"),
	}
}

// Ensure creates every directory in p and initialises the structured files
// with empty content (an empty JSON array for cookies, empty JSON objects
// for the storage files) when they do not yet exist.  Ensure is idempotent:
// existing files are never truncated, so it is safe to call before every
// launch.
//
// Any filesystem error aborts immediately and is returned wrapped; a
// partially created tree is acceptable because the next Ensure resumes where
// this one stopped.
func (a *Allocator) Ensure(p Paths) error {
	for _, dir := range []string{p.Root, p.UserDataDir, p.CacheDir, p.IndexedDBDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("%w: create dir %q: %w", ErrAllocation, dir, err)
		}
	}

	seeds := []struct {
		path    string
		content string
	}{
		{p.CookiesFile, "[]"},
		{p.LocalStorageFile, "{}"},
		{p.SessionStorageFile, "{}"},
		{p.LogFile, ""},
	}
	for _, s := range seeds {
		if err := seedFile(s.path, s.content); err != nil {
			return err
		}
	}
	return nil
}

// seedFile writes content to path only when the file does not exist yet.
func seedFile(path, content string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("%w: stat %q: %w", ErrAllocation, path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return fmt.Errorf("%w: init %q: %w", ErrAllocation, path, err)
	}
	return nil
}
