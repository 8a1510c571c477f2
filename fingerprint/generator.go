// Package fingerprint – the generator.
package fingerprint

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firasghr/GoProfileEngine/behavior"
	"github.com/firasghr/GoProfileEngine/logger"
	"github.com/firasghr/GoProfileEngine/proxy"
)

// coordinateJitterDeg is the maximum jitter applied to the proxy's
// coordinates in either direction.  Small enough that the reported position
// never leaves the proxy's city, large enough that two profiles behind the
// same proxy do not report bit-identical positions.
const coordinateJitterDeg = 0.01

// Persister is where generated fingerprints are durably recorded.  The
// concrete backend (flat files, SQLite) is chosen by the caller.
type Persister interface {
	SaveFingerprint(fp *Fingerprint) error
}

// Generator derives fingerprints and caches them in memory for the lifetime
// of the owning browser instance.
//
// Concurrency model: the cache map is guarded by a RWMutex.  Entries are
// append-only while an instance lives – a fingerprint is never mutated after
// Generate returns – so concurrent readers need no further coordination.
type Generator struct {
	persister Persister
	log       *logger.Logger

	mu    sync.RWMutex
	cache map[string]*Fingerprint
}

// NewGenerator creates a Generator that records fingerprints through p.
// p may be nil in tests; generated fingerprints are then cache-only.
func NewGenerator(p Persister, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.New(logger.LevelInfo, nil)
	}
	return &Generator{
		persister: p,
		log:       log.Component("fingerprint"),
		cache:     make(map[string]*Fingerprint),
	}
}

// Generate derives a complete fingerprint for profileID from geo.
//
// Every location-sensitive attribute – timezone, geolocation, locale, fonts,
// hardware, WebRTC addresses – is derived from the same descriptor; the
// attributes that are deliberately location-independent (screen, WebGL,
// canvas/audio noise, permissions) are sampled from reference pools but kept
// internally consistent with the chosen user agent's platform and device
// category.
//
// Generate fails with a MissingGeographicDataError naming the missing field
// when geo is nil or incomplete.  On failure nothing is persisted and
// nothing enters the cache: a partial fingerprint must never become
// launchable.
func (g *Generator) Generate(profileID string, cat behavior.Category, geo *proxy.Descriptor) (*Fingerprint, error) {
	if err := validateGeo(profileID, geo); err != nil {
		return nil, err
	}

	// User agent first: the device category and platform it fixes constrain
	// every pool sampled after it.
	ua := pickUserAgent(cat)
	screen := pickScreen(ua.deviceCategory)
	webgl := pickWebGL(ua.platform)

	fonts, fontVariant, ok := deriveFonts(geo.Country, geo.City, geo.ISP, geo.Organization)
	if !ok {
		return nil, &MissingGeographicDataError{ProfileID: profileID, Field: "country"}
	}
	locale := localeTable[strings.ToUpper(geo.Country)]

	fp := &Fingerprint{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		CreatedAt: time.Now(),

		UserAgent:      renderUserAgent(ua),
		DeviceCategory: ua.deviceCategory,
		Platform:       ua.platform,

		Screen: Screen{
			Width:      screen.width,
			Height:     screen.height,
			ColorDepth: 24,
			PixelRatio: screen.pixelRatio,
		},
		Viewport: viewportFor(screen),
		WebGL:    WebGL{Vendor: webgl.vendor, Renderer: webgl.renderer},

		Timezone: geo.Timezone,
		Geolocation: Geolocation{
			Latitude:  jitter(geo.Latitude),
			Longitude: jitter(geo.Longitude),
			Accuracy:  20 + rand.Float64()*80,
		},
		Locale:    locale.locale,
		Languages: locale.languages,

		Fonts:       fonts,
		FontVariant: fontVariant,

		Hardware: deriveHardware(geo.Country, geo.City, geo.ISP, geo.Organization, geo.ASN),
		WebRTC:   deriveWebRTC(geo.Country),
		Noise: Noise{
			CanvasSeed: rand.Uint32(),
			AudioMag:   0.00001 + rand.Float64()*0.00009,
		},

		Permissions: samplePermissions(),
	}

	if g.persister != nil {
		if err := g.persister.SaveFingerprint(fp); err != nil {
			return nil, fmt.Errorf("fingerprint: persist %s for profile %s: %w", fp.ID, profileID, err)
		}
	}

	g.mu.Lock()
	g.cache[fp.ID] = fp
	g.mu.Unlock()

	g.log.Debugf("generated fingerprint %s for profile %s (tz=%s, fonts=%s, mem=%dGB)",
		fp.ID, profileID, fp.Timezone, fp.FontVariant, fp.Hardware.MemoryGB)
	return fp, nil
}

// Cached returns the in-memory fingerprint with the given id, if present.
// Safe for concurrent use.
func (g *Generator) Cached(id string) (*Fingerprint, bool) {
	g.mu.RLock()
	fp, ok := g.cache[id]
	g.mu.RUnlock()
	return fp, ok
}

// Release drops the cached entry for id.  Called by the supervisor when the
// owning browser instance terminates; the persisted record remains, so the
// fingerprint can still be reloaded and replayed.  Releasing an unknown id
// is a no-op.
func (g *Generator) Release(id string) {
	g.mu.Lock()
	delete(g.cache, id)
	g.mu.Unlock()
}

// CacheSize returns the number of live cached fingerprints.
func (g *Generator) CacheSize() int {
	g.mu.RLock()
	n := len(g.cache)
	g.mu.RUnlock()
	return n
}

// validateGeo checks the descriptor fields the pipeline cannot proceed
// without.  Each check names the specific missing field so the operator can
// fix the proxy record without re-deriving internal state.
func validateGeo(profileID string, geo *proxy.Descriptor) error {
	switch {
	case geo == nil:
		return &MissingGeographicDataError{ProfileID: profileID, Field: "descriptor"}
	case geo.Timezone == "":
		return &MissingGeographicDataError{ProfileID: profileID, Field: "timezone"}
	case geo.Latitude == 0 && geo.Longitude == 0:
		return &MissingGeographicDataError{ProfileID: profileID, Field: "coordinates"}
	case geo.Country == "":
		return &MissingGeographicDataError{ProfileID: profileID, Field: "country"}
	}
	return nil
}

// jitter offsets v by up to ±coordinateJitterDeg.
func jitter(v float64) float64 {
	return v + (rand.Float64()*2-1)*coordinateJitterDeg
}

// samplePermissions makes an independent weighted grant/deny decision per
// capability, mirroring observed real-user grant rates.
func samplePermissions() map[string]string {
	grant := func(p float64) string {
		if rand.Float64() < p {
			return "granted"
		}
		return "denied"
	}
	return map[string]string{
		"notifications": grant(0.6),
		"geolocation":   grant(0.4),
		"camera":        grant(0.3),
		"microphone":    grant(0.3),
	}
}
