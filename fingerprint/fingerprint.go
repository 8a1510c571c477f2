// Package fingerprint derives complete, internally-consistent browser
// fingerprints from a profile's assigned proxy location.
//
// Anti-bot systems do not score attributes in isolation; they correlate
// them.  A browser reporting an America/New_York timezone while its fonts
// say Tokyo, or a residential DSL line exposing 32 GB of RAM, is a stronger
// automation signal than any single spoofed value.  This package therefore
// enforces one rule end to end: every location-sensitive attribute of a
// fingerprint is derived from the same geographic descriptor – the one
// attached to the profile's proxy – and generation fails loudly when that
// descriptor is incomplete.  There is no hardcoded default path: a fabricated
// "plausible" value is exactly the inconsistency the rule exists to prevent.
package fingerprint

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingGeographicData is matched (via errors.Is) by every
// MissingGeographicDataError.  Callers branch on this sentinel; the concrete
// error carries the profile id and the name of the missing field.
var ErrMissingGeographicData = errors.New("fingerprint: missing geographic data")

// MissingGeographicDataError reports that fingerprint generation was
// requested without a complete geographic descriptor.  It is fatal for the
// generation attempt: no fingerprint record is produced or persisted.
type MissingGeographicDataError struct {
	// ProfileID is the profile the fingerprint was requested for.
	ProfileID string

	// Field names the missing descriptor field ("descriptor", "timezone",
	// "coordinates", "country", …).
	Field string
}

func (e *MissingGeographicDataError) Error() string {
	return fmt.Sprintf("fingerprint: profile %s: missing geographic data: %s", e.ProfileID, e.Field)
}

// Is makes errors.Is(err, ErrMissingGeographicData) succeed for this type.
func (e *MissingGeographicDataError) Is(target error) bool {
	return target == ErrMissingGeographicData
}

// Screen describes the emulated display.
type Screen struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	ColorDepth int     `json:"color_depth"`
	PixelRatio float64 `json:"pixel_ratio"`
}

// Viewport is the inner browser window size, always smaller than the screen
// it sits on.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WebGL identifies the emulated graphics stack.  Vendor/renderer pairs come
// from reference pools of real hardware strings and are chosen to match the
// user agent's platform.
type WebGL struct {
	Vendor   string `json:"vendor"`
	Renderer string `json:"renderer"`
}

// Geolocation is the position reported by the geolocation API: the proxy's
// coordinates plus a small per-fingerprint jitter.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Hardware describes the emulated machine class.
type Hardware struct {
	// MemoryGB is reported through navigator.deviceMemory.
	MemoryGB int `json:"memory_gb"`

	// Cores is reported through navigator.hardwareConcurrency.
	Cores int `json:"cores"`
}

// WebRTC holds the addresses exposed through WebRTC ICE candidates: a
// private-range local address and a public address consistent with the
// proxy's region.
type WebRTC struct {
	LocalIP  string `json:"local_ip"`
	PublicIP string `json:"public_ip"`
}

// Noise holds the per-fingerprint randomisation seeds for canvas and audio
// entropy sources.  These are independent per call and deliberately not
// geography-derived.
type Noise struct {
	CanvasSeed uint32  `json:"canvas_seed"`
	AudioMag   float64 `json:"audio_mag"`
}

// Fingerprint is one immutable snapshot of every browser/device-observable
// attribute for a profile.  Once generated it is persisted keyed by ID and
// replayed verbatim for the owning browser instance; a changed attribute
// mid-instance is itself a detection signal.
type Fingerprint struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`

	UserAgent      string `json:"user_agent"`
	DeviceCategory string `json:"device_category"` // "desktop" or "mobile"
	Platform       string `json:"platform"`        // navigator.platform value

	Screen   Screen   `json:"screen"`
	Viewport Viewport `json:"viewport"`
	WebGL    WebGL    `json:"webgl"`

	Timezone    string      `json:"timezone"`
	Geolocation Geolocation `json:"geolocation"`
	Locale      string      `json:"locale"`
	Languages   []string    `json:"languages"`

	Fonts       []string `json:"fonts"`
	FontVariant string   `json:"font_variant"` // graduated set label, see fonts.go

	Hardware Hardware `json:"hardware"`
	WebRTC   WebRTC   `json:"webrtc"`
	Noise    Noise    `json:"noise"`

	// Permissions maps capability name ("notifications", "geolocation",
	// "camera", "microphone") to "granted" or "denied".
	Permissions map[string]string `json:"permissions"`
}
