// Package behavior synthesizes and evolves the behavioral identity of a
// profile.
//
// Each profile belongs to one of three categories – new visitor, returning
// regular, loyal user – and carries a bundle of numeric parameters (bounce
// rate, session duration, scroll depth, …) sampled from category-specific
// closed ranges.  The parameters are sampled once at creation and re-sampled
// only when the profile is promoted to the next category; they never drift
// between evolutions, because a fingerprinting system that observes the same
// identity behaving inconsistently across visits has found its signal.
package behavior

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Category labels the behavioral archetype of a profile.
type Category string

const (
	// NewVisitor models a first-contact identity: high bounce rate, short
	// sessions, shallow scrolling.
	NewVisitor Category = "newVisitor"

	// ReturningRegular models an identity with an established visit habit.
	ReturningRegular Category = "returningRegular"

	// LoyalUser models a deeply engaged identity: long sessions, deep
	// scrolling, high return probability.
	LoyalUser Category = "loyalUser"
)

// Valid reports whether c is one of the three known categories.
func (c Category) Valid() bool {
	switch c {
	case NewVisitor, ReturningRegular, LoyalUser:
		return true
	}
	return false
}

// next returns the category c promotes into, or c itself when c is terminal.
func (c Category) next() Category {
	switch c {
	case NewVisitor:
		return ReturningRegular
	case ReturningRegular:
		return LoyalUser
	}
	return c
}

// Params is one sampled behavioral parameter bundle.
type Params struct {
	// BounceRate is the probability a visit ends after a single page.
	BounceRate float64 `json:"bounce_rate"`

	// AvgSessionDuration is the target length of one browsing session.
	AvgSessionDuration time.Duration `json:"avg_session_duration"`

	// PagesPerSession is the target number of pages viewed per session.
	PagesPerSession float64 `json:"pages_per_session"`

	// ScrollDepth is the fraction of page height scrolled, in [0,1].
	ScrollDepth float64 `json:"scroll_depth"`

	// ClickFrequency is clicks per minute of active browsing.
	ClickFrequency float64 `json:"click_frequency"`

	// TimeOnPage is the target dwell time per page.
	TimeOnPage time.Duration `json:"time_on_page"`

	// ReturnProbability is the chance the identity revisits within its
	// habitual interval.
	ReturnProbability float64 `json:"return_probability"`
}

// paramRange is a closed interval sampled uniformly.
type paramRange struct{ lo, hi float64 }

func (r paramRange) sample() float64 { return r.lo + rand.Float64()*(r.hi-r.lo) }

// contains reports whether v lies within the closed interval.
func (r paramRange) contains(v float64) bool { return v >= r.lo && v <= r.hi }

// categoryRanges is one row of the range table: the sampling intervals for
// every parameter of one category.  Durations are expressed in seconds.
type categoryRanges struct {
	bounceRate         paramRange
	sessionDurationSec paramRange
	pagesPerSession    paramRange
	scrollDepth        paramRange
	clickFrequency     paramRange
	timeOnPageSec      paramRange
	returnProbability  paramRange
}

// rangeTable maps each category to its sampling intervals.  The rows are
// ordered so each promotion step moves every parameter toward deeper
// engagement.
var rangeTable = map[Category]categoryRanges{
	NewVisitor: {
		bounceRate:         paramRange{0.5, 0.9},
		sessionDurationSec: paramRange{30, 180},
		pagesPerSession:    paramRange{1, 3},
		scrollDepth:        paramRange{0.2, 0.5},
		clickFrequency:     paramRange{0.5, 2},
		timeOnPageSec:      paramRange{10, 60},
		returnProbability:  paramRange{0.05, 0.25},
	},
	ReturningRegular: {
		bounceRate:         paramRange{0.3, 0.6},
		sessionDurationSec: paramRange{120, 600},
		pagesPerSession:    paramRange{3, 8},
		scrollDepth:        paramRange{0.4, 0.8},
		clickFrequency:     paramRange{1.5, 4},
		timeOnPageSec:      paramRange{30, 180},
		returnProbability:  paramRange{0.3, 0.6},
	},
	LoyalUser: {
		bounceRate:         paramRange{0.1, 0.3},
		sessionDurationSec: paramRange{300, 1800},
		pagesPerSession:    paramRange{5, 15},
		scrollDepth:        paramRange{0.6, 1.0},
		clickFrequency:     paramRange{2, 6},
		timeOnPageSec:      paramRange{60, 300},
		returnProbability:  paramRange{0.6, 0.95},
	},
}

// Synthesize samples a fresh parameter bundle from c's range table row.
// Every parameter is sampled independently and uniformly from its closed
// range.  Returns an error for unknown categories rather than falling back
// to a default row.
func Synthesize(c Category) (Params, error) {
	r, ok := rangeTable[c]
	if !ok {
		return Params{}, fmt.Errorf("behavior: unknown category %q", c)
	}
	return Params{
		BounceRate:         r.bounceRate.sample(),
		AvgSessionDuration: time.Duration(r.sessionDurationSec.sample() * float64(time.Second)),
		PagesPerSession:    r.pagesPerSession.sample(),
		ScrollDepth:        r.scrollDepth.sample(),
		ClickFrequency:     r.clickFrequency.sample(),
		TimeOnPage:         time.Duration(r.timeOnPageSec.sample() * float64(time.Second)),
		ReturnProbability:  r.returnProbability.sample(),
	}, nil
}

// InRange reports whether every parameter of p lies within c's configured
// closed ranges.  Used by callers that audit persisted profiles after
// reload.
func InRange(c Category, p Params) bool {
	r, ok := rangeTable[c]
	if !ok {
		return false
	}
	return r.bounceRate.contains(p.BounceRate) &&
		r.sessionDurationSec.contains(p.AvgSessionDuration.Seconds()) &&
		r.pagesPerSession.contains(p.PagesPerSession) &&
		r.scrollDepth.contains(p.ScrollDepth) &&
		r.clickFrequency.contains(p.ClickFrequency) &&
		r.timeOnPageSec.contains(p.TimeOnPage.Seconds()) &&
		r.returnProbability.contains(p.ReturnProbability)
}
