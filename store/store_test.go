package store_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/firasghr/GoProfileEngine/behavior"
	"github.com/firasghr/GoProfileEngine/fingerprint"
	"github.com/firasghr/GoProfileEngine/profile"
	"github.com/firasghr/GoProfileEngine/proxy"
	"github.com/firasghr/GoProfileEngine/store"
)

// openBackends returns one store per backend, each rooted in its own temp
// location, so every test covers both.
func openBackends(t *testing.T) map[string]store.Store {
	t.Helper()
	js, err := store.OpenJSON(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sq, err := store.OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		js.Close()
		sq.Close()
	})
	return map[string]store.Store{"json": js, "sqlite": sq}
}

func sampleProfile(t *testing.T) *profile.Profile {
	t.Helper()
	p, err := profile.New(behavior.ReturningRegular, "test")
	if err != nil {
		t.Fatal(err)
	}
	p.AssignProxy(&proxy.Descriptor{
		ID: "nyc-1", Host: "203.0.113.10", Port: 8080, Protocol: "http",
		Country: "US", City: "New York", Timezone: "America/New_York",
		Latitude: 40.71, Longitude: -74.0, ISP: "Comcast Business", ASN: 7922,
	})
	p.Metrics.RecordVisit(behavior.Outcome{Success: true, ResponseTime: time.Second})
	p.RotateFingerprint("fp-1")
	p.RotateFingerprint("fp-2")
	return p
}

func TestStore_ProfileRoundTrip(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			p := sampleProfile(t)
			if err := st.SaveProfile(p); err != nil {
				t.Fatalf("SaveProfile: %v", err)
			}

			got, err := st.LoadProfile(p.ID)
			if err != nil {
				t.Fatalf("LoadProfile: %v", err)
			}
			if got.ID != p.ID || got.Category != p.Category {
				t.Errorf("identity mismatch: %+v", got)
			}
			if got.Proxy == nil || got.Proxy.Timezone != "America/New_York" {
				t.Errorf("proxy not round-tripped: %+v", got.Proxy)
			}
			if got.Metrics.TotalVisits != 1 {
				t.Errorf("metrics not round-tripped: %+v", got.Metrics)
			}
			if got.CurrentFingerprintID != "fp-2" || len(got.FingerprintHistory) != 1 {
				t.Errorf("fingerprint refs not round-tripped: %+v", got)
			}
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			p := sampleProfile(t)
			if err := st.SaveProfile(p); err != nil {
				t.Fatal(err)
			}
			p.Category = behavior.LoyalUser
			if err := st.SaveProfile(p); err != nil {
				t.Fatal(err)
			}

			got, err := st.LoadProfile(p.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Category != behavior.LoyalUser {
				t.Errorf("category = %s after overwrite, want loyalUser", got.Category)
			}
		})
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			a, b := sampleProfile(t), sampleProfile(t)
			for _, p := range []*profile.Profile{a, b} {
				if err := st.SaveProfile(p); err != nil {
					t.Fatal(err)
				}
			}

			all, err := st.ListProfiles()
			if err != nil {
				t.Fatal(err)
			}
			if len(all) != 2 {
				t.Fatalf("listed %d profiles, want 2", len(all))
			}

			if err := st.DeleteProfile(a.ID); err != nil {
				t.Fatalf("DeleteProfile: %v", err)
			}
			if _, err := st.LoadProfile(a.ID); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("load after delete = %v, want ErrNotFound", err)
			}
			if err := st.DeleteProfile(a.ID); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("second delete = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStore_FingerprintRoundTrip(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			fp := &fingerprint.Fingerprint{
				ID:        "fp-1",
				ProfileID: "profile-a",
				CreatedAt: time.Now(),
				UserAgent: "Mozilla/5.0",
				Timezone:  "America/New_York",
				Fonts:     []string{"Arial", "Calibri"},
				Hardware:  fingerprint.Hardware{MemoryGB: 16, Cores: 8},
				Permissions: map[string]string{
					"notifications": "granted",
				},
			}
			if err := st.SaveFingerprint(fp); err != nil {
				t.Fatalf("SaveFingerprint: %v", err)
			}

			got, err := st.LoadFingerprint("fp-1")
			if err != nil {
				t.Fatalf("LoadFingerprint: %v", err)
			}
			if got.ProfileID != "profile-a" || got.Hardware.MemoryGB != 16 {
				t.Errorf("fingerprint mismatch: %+v", got)
			}
			if got.Permissions["notifications"] != "granted" {
				t.Errorf("permissions not round-tripped: %v", got.Permissions)
			}
		})
	}
}

func TestStore_LoadUnknown(t *testing.T) {
	for name, st := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := st.LoadProfile("missing"); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("LoadProfile = %v, want ErrNotFound", err)
			}
			if _, err := st.LoadFingerprint("missing"); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("LoadFingerprint = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := store.Open("etcd", t.TempDir()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
