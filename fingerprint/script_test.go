package fingerprint_test

import (
	"strings"
	"testing"

	"github.com/firasghr/GoProfileEngine/behavior"
	"github.com/firasghr/GoProfileEngine/fingerprint"
)

func TestSpoofScript_EmbedsFingerprintValues(t *testing.T) {
	g := fingerprint.NewGenerator(nil, nil)
	fp, err := g.Generate("profile-a", behavior.NewVisitor, nycBusinessProxy())
	if err != nil {
		t.Fatal(err)
	}

	script, err := fingerprint.SpoofScript(fp)
	if err != nil {
		t.Fatalf("SpoofScript: %v", err)
	}

	for _, want := range []string{
		fp.Platform,
		fp.WebGL.Vendor,
		fp.WebGL.Renderer,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script does not embed %q", want)
		}
	}
}

func TestSpoofScript_ParsesForEveryCategory(t *testing.T) {
	// SpoofScript syntax-checks its output before returning; a rendering bug
	// for any attribute combination would surface here as an error.
	g := fingerprint.NewGenerator(nil, nil)
	for _, c := range []behavior.Category{
		behavior.NewVisitor, behavior.ReturningRegular, behavior.LoyalUser,
	} {
		for i := 0; i < 10; i++ {
			fp, err := g.Generate("profile-a", c, nycBusinessProxy())
			if err != nil {
				t.Fatal(err)
			}
			if _, err := fingerprint.SpoofScript(fp); err != nil {
				t.Fatalf("category %s: %v", c, err)
			}
		}
	}
}
