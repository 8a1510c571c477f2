package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/firasghr/GoProfileEngine/storage"
)

func TestAllocate_Deterministic(t *testing.T) {
	a := storage.NewAllocator("/srv/profiles")
	p1 := a.Allocate("profile-a")
	p2 := a.Allocate("profile-a")
	if p1 != p2 {
		t.Errorf("same id produced different layouts:\n%+v\n%+v", p1, p2)
	}
}

func TestAllocate_DistinctProfilesNeverShare(t *testing.T) {
	a := storage.NewAllocator("/srv/profiles")
	pa := a.Allocate("profile-a")
	pb := a.Allocate("profile-b")

	aPaths := []string{pa.Root, pa.UserDataDir, pa.CookiesFile, pa.CacheDir,
		pa.IndexedDBDir, pa.LocalStorageFile, pa.SessionStorageFile, pa.LogFile}
	bPaths := []string{pb.Root, pb.UserDataDir, pb.CookiesFile, pb.CacheDir,
		pb.IndexedDBDir, pb.LocalStorageFile, pb.SessionStorageFile, pb.LogFile}

	seen := make(map[string]bool, len(aPaths))
	for _, p := range aPaths {
		seen[p] = true
	}
	for _, p := range bPaths {
		if seen[p] {
			t.Errorf("path %q shared between profiles", p)
		}
	}
}

func TestEnsure_CreatesTreeAndSeeds(t *testing.T) {
	a := storage.NewAllocator(t.TempDir())
	p := a.Allocate("profile-a")
	if err := a.Ensure(p); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	for _, dir := range []string{p.Root, p.UserDataDir, p.CacheDir, p.IndexedDBDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %q missing: %v", dir, err)
		}
	}

	checks := map[string]string{
		p.CookiesFile:        "[]",
		p.LocalStorageFile:   "{}",
		p.SessionStorageFile: "{}",
	}
	for path, want := range checks {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %q: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", filepath.Base(path), data, want)
		}
	}
}

func TestEnsure_IdempotentKeepsExistingData(t *testing.T) {
	a := storage.NewAllocator(t.TempDir())
	p := a.Allocate("profile-a")
	if err := a.Ensure(p); err != nil {
		t.Fatal(err)
	}

	cookies := `[{"name":"sid","value":"abc"}]`
	if err := os.WriteFile(p.CookiesFile, []byte(cookies), 0o640); err != nil {
		t.Fatal(err)
	}

	if err := a.Ensure(p); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	data, err := os.ReadFile(p.CookiesFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != cookies {
		t.Errorf("cookies truncated by Ensure: %q", data)
	}
}
