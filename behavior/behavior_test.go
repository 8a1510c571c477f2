package behavior_test

import (
	"testing"

	"github.com/firasghr/GoProfileEngine/behavior"
)

func TestSynthesize_WithinCategoryRanges(t *testing.T) {
	categories := []behavior.Category{
		behavior.NewVisitor,
		behavior.ReturningRegular,
		behavior.LoyalUser,
	}
	for _, c := range categories {
		for i := 0; i < 50; i++ {
			p, err := behavior.Synthesize(c)
			if err != nil {
				t.Fatalf("Synthesize(%s): %v", c, err)
			}
			if !behavior.InRange(c, p) {
				t.Fatalf("Synthesize(%s) produced out-of-range params: %+v", c, p)
			}
		}
	}
}

func TestSynthesize_UnknownCategory(t *testing.T) {
	if _, err := behavior.Synthesize(behavior.Category("powerUser")); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestSynthesize_CategoriesDiffer(t *testing.T) {
	// A new visitor must bounce more and stay less than a loyal user;
	// the sampled extremes of the two ranges must not overlap.
	nv, err := behavior.Synthesize(behavior.NewVisitor)
	if err != nil {
		t.Fatal(err)
	}
	lu, err := behavior.Synthesize(behavior.LoyalUser)
	if err != nil {
		t.Fatal(err)
	}
	if nv.BounceRate <= lu.BounceRate {
		t.Errorf("new visitor bounce rate %.2f should exceed loyal user %.2f",
			nv.BounceRate, lu.BounceRate)
	}
	if nv.ReturnProbability >= lu.ReturnProbability {
		t.Errorf("new visitor return probability %.2f should be below loyal user %.2f",
			nv.ReturnProbability, lu.ReturnProbability)
	}
}

func TestCategory_Valid(t *testing.T) {
	if !behavior.NewVisitor.Valid() {
		t.Error("newVisitor should be valid")
	}
	if behavior.Category("bot").Valid() {
		t.Error("bot should be invalid")
	}
}
