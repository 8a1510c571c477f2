// Package fingerprint – reference attribute pools.
//
// The pools below hold real-world hardware and browser strings.  They are
// sampled during generation; only the choice of entry is random, never the
// strings themselves, so every emitted combination exists in the wild.
package fingerprint

import (
	"fmt"
	"math/rand/v2"

	"github.com/firasghr/GoProfileEngine/behavior"
)

// pinnedChromeVersion is the browser-engine version every generated user
// agent is normalised to.  Pinning one current value keeps the UA, the
// Sec-Ch-Ua client hints, and the binary's own version claims in agreement.
const pinnedChromeVersion = "132.0.0.0"

// uaCandidate is one entry of the user-agent pool.  The weight fields bias
// selection per behavioral category: returning and loyal identities skew
// heavily toward desktop Windows, matching the population that habitual
// visitors are drawn from.
type uaCandidate struct {
	osFragment     string // the parenthesised OS part of the UA string
	platform       string // navigator.platform
	deviceCategory string // "desktop" or "mobile"

	weightNew       int
	weightReturning int
	weightLoyal     int
}

var uaPool = []uaCandidate{
	{
		osFragment:     "Windows NT 10.0; Win64; x64",
		platform:       "Win32",
		deviceCategory: "desktop",
		weightNew:      40, weightReturning: 60, weightLoyal: 65,
	},
	{
		osFragment:     "Macintosh; Intel Mac OS X 10_15_7",
		platform:       "MacIntel",
		deviceCategory: "desktop",
		weightNew:      20, weightReturning: 25, weightLoyal: 25,
	},
	{
		osFragment:     "X11; Linux x86_64",
		platform:       "Linux x86_64",
		deviceCategory: "desktop",
		weightNew:      10, weightReturning: 10, weightLoyal: 8,
	},
	{
		osFragment:     "Linux; Android 14; Pixel 8",
		platform:       "Linux armv81",
		deviceCategory: "mobile",
		weightNew:      30, weightReturning: 5, weightLoyal: 2,
	},
}

// weightFor returns the candidate's selection weight for the category.
func (c uaCandidate) weightFor(cat behavior.Category) int {
	switch cat {
	case behavior.ReturningRegular:
		return c.weightReturning
	case behavior.LoyalUser:
		return c.weightLoyal
	default:
		return c.weightNew
	}
}

// pickUserAgent makes a weighted random choice from the category-filtered
// pool and renders the UA string with the pinned engine version.
func pickUserAgent(cat behavior.Category) uaCandidate {
	total := 0
	for _, c := range uaPool {
		total += c.weightFor(cat)
	}
	n := rand.IntN(total)
	for _, c := range uaPool {
		n -= c.weightFor(cat)
		if n < 0 {
			return c
		}
	}
	return uaPool[0] // unreachable; weights are positive
}

// renderUserAgent builds the final UA string for a candidate.  Mobile
// candidates carry the "Mobile" token Chrome adds on Android.
func renderUserAgent(c uaCandidate) string {
	if c.deviceCategory == "mobile" {
		return fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Mobile Safari/537.36",
			c.osFragment, pinnedChromeVersion,
		)
	}
	return fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
		c.osFragment, pinnedChromeVersion,
	)
}

// screenPreset couples a display mode with the device category it occurs on.
type screenPreset struct {
	width, height  int
	pixelRatio     float64
	deviceCategory string
}

var screenPresets = []screenPreset{
	{1920, 1080, 1.0, "desktop"},
	{2560, 1440, 1.0, "desktop"},
	{1366, 768, 1.0, "desktop"},
	{1536, 864, 1.25, "desktop"},
	{1680, 1050, 1.0, "desktop"},
	{393, 852, 2.75, "mobile"},
	{412, 915, 2.625, "mobile"},
	{360, 800, 3.0, "mobile"},
}

// pickScreen samples a display mode consistent with the device category of
// the already-chosen user agent.
func pickScreen(deviceCategory string) screenPreset {
	matching := make([]screenPreset, 0, len(screenPresets))
	for _, s := range screenPresets {
		if s.deviceCategory == deviceCategory {
			matching = append(matching, s)
		}
	}
	return matching[rand.IntN(len(matching))]
}

// viewportFor derives the inner window size from a screen mode.  Desktop
// windows lose vertical space to the tab strip, toolbar and OS taskbar;
// mobile browsers are effectively fullscreen minus the status bar.
func viewportFor(s screenPreset) Viewport {
	if s.deviceCategory == "mobile" {
		return Viewport{Width: s.width, Height: s.height - 60}
	}
	return Viewport{Width: s.width, Height: s.height - 130}
}

// webglPreset pairs a vendor string with a renderer string exactly as real
// hardware reports them through the WEBGL_debug_renderer_info extension.
type webglPreset struct {
	vendor, renderer string
	platform         string // navigator.platform this pair occurs on
}

var webglPresets = []webglPreset{
	{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)", "Win32"},
	{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 770 Direct3D11 vs_5_0 ps_5_0, D3D11)", "Win32"},
	{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce GTX 1650 Direct3D11 vs_5_0 ps_5_0, D3D11)", "Win32"},
	{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)", "Win32"},
	{"Google Inc. (Apple)", "ANGLE (Apple, Apple M1, OpenGL 4.1)", "MacIntel"},
	{"Google Inc. (Intel Inc.)", "ANGLE (Intel Inc., Intel Iris Plus Graphics, OpenGL 4.1)", "MacIntel"},
	{"Google Inc. (Intel)", "ANGLE (Intel, Mesa Intel(R) UHD Graphics 630 (CFL GT2), OpenGL 4.6)", "Linux x86_64"},
	{"Google Inc. (AMD)", "ANGLE (AMD, AMD Radeon RX 6600 (radeonsi navi23), OpenGL 4.6)", "Linux x86_64"},
	{"Google Inc. (Qualcomm)", "ANGLE (Qualcomm, Adreno (TM) 740, OpenGL ES 3.2)", "Linux armv81"},
	{"Google Inc. (ARM)", "ANGLE (ARM, Mali-G715, OpenGL ES 3.2)", "Linux armv81"},
}

// pickWebGL samples a vendor/renderer pair that occurs on the chosen
// platform, so a MacIntel UA never reports a Direct3D renderer.
func pickWebGL(platform string) webglPreset {
	matching := make([]webglPreset, 0, len(webglPresets))
	for _, w := range webglPresets {
		if w.platform == platform {
			matching = append(matching, w)
		}
	}
	if len(matching) == 0 {
		// Every uaPool platform has entries above; this guards pool edits.
		matching = webglPresets
	}
	return matching[rand.IntN(len(matching))]
}

// localeInfo is the language identity of one country.
type localeInfo struct {
	locale    string
	languages []string
}

// localeTable maps ISO country codes to the locale reported through
// navigator.language.  Countries not listed here still generate (locale is
// required to be geography-consistent, and "en-US" in an unlisted country is
// a mismatch), so the generator fails on unknown countries at the font step,
// which shares this table's key set via fontBaseSets.
var localeTable = map[string]localeInfo{
	"US": {"en-US", []string{"en-US", "en"}},
	"CA": {"en-CA", []string{"en-CA", "en", "fr-CA"}},
	"GB": {"en-GB", []string{"en-GB", "en"}},
	"AU": {"en-AU", []string{"en-AU", "en"}},
	"DE": {"de-DE", []string{"de-DE", "de", "en"}},
	"FR": {"fr-FR", []string{"fr-FR", "fr", "en"}},
	"NL": {"nl-NL", []string{"nl-NL", "nl", "en"}},
	"ES": {"es-ES", []string{"es-ES", "es", "en"}},
	"IT": {"it-IT", []string{"it-IT", "it", "en"}},
	"PL": {"pl-PL", []string{"pl-PL", "pl", "en"}},
	"BR": {"pt-BR", []string{"pt-BR", "pt", "en"}},
	"MX": {"es-MX", []string{"es-MX", "es", "en"}},
	"JP": {"ja-JP", []string{"ja-JP", "ja", "en"}},
	"KR": {"ko-KR", []string{"ko-KR", "ko", "en"}},
	"IN": {"en-IN", []string{"en-IN", "en", "hi"}},
	"SG": {"en-SG", []string{"en-SG", "en", "zh"}},
}
