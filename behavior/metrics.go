// Package behavior – visit metrics and category evolution.
package behavior

import (
	"math/rand/v2"
	"time"
)

// Evolution tuning.  The score weights success rate against response time;
// a profile whose visits succeed quickly looks like a healthy identity worth
// promoting, while one that times out or errors stays where it is.
const (
	// evolutionScoreThreshold is the minimum score required for promotion.
	evolutionScoreThreshold = 0.8

	// evolutionVisitThreshold is the minimum total visit count required for
	// promotion.  A young profile never evolves regardless of elapsed time.
	evolutionVisitThreshold = 10

	// responseTimeCeiling is the response time at which the latency half of
	// the score bottoms out at zero.
	responseTimeCeiling = 30 * time.Second
)

// promotionProbability is the per-check chance of promotion once the score
// and visit gates are both cleared.
var promotionProbability = map[Category]float64{
	NewVisitor:       0.3,
	ReturningRegular: 0.2,
}

// Metrics is the running performance record of one profile.  It is embedded
// in the profile record and mutated only through RecordVisit; the evolution
// score in particular is derived, never set directly.
type Metrics struct {
	TotalVisits      int           `json:"total_visits"`
	SuccessfulVisits int           `json:"successful_visits"`
	FailedVisits     int           `json:"failed_visits"`
	AvgResponseTime  time.Duration `json:"avg_response_time"`
	LastVisitTime    time.Duration `json:"last_visit_time"`
	EvolutionScore   float64       `json:"evolution_score"`
}

// Outcome describes one completed visit as reported by the caller.
type Outcome struct {
	// Success is true when the visit completed without a transport or
	// page-level error.
	Success bool

	// ResponseTime is the page's end-to-end load time.
	ResponseTime time.Duration

	// Duration is the total wall-clock time of the visit.
	Duration time.Duration
}

// EvolutionRecord documents one category promotion.
type EvolutionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	From      Category  `json:"from"`
	To        Category  `json:"to"`
	Score     float64   `json:"score"`
}

// RecordVisit folds outcome into m: counters are incremented, the rolling
// average response time is updated with newAvg = (oldAvg*(n-1) + sample)/n,
// and the evolution score is recomputed as
//
//	0.7*successRate + 0.3*max(0, 1 - avgResponseTime/30s)
//
// m is mutated in place; callers own any synchronisation around the profile
// record that embeds it.
func (m *Metrics) RecordVisit(outcome Outcome) {
	m.TotalVisits++
	if outcome.Success {
		m.SuccessfulVisits++
	} else {
		m.FailedVisits++
	}

	n := m.TotalVisits
	m.AvgResponseTime = (m.AvgResponseTime*time.Duration(n-1) + outcome.ResponseTime) / time.Duration(n)
	m.LastVisitTime = outcome.Duration

	successRate := float64(m.SuccessfulVisits) / float64(m.TotalVisits)
	latencyScore := 1 - m.AvgResponseTime.Seconds()/responseTimeCeiling.Seconds()
	if latencyScore < 0 {
		latencyScore = 0
	}
	m.EvolutionScore = 0.7*successRate + 0.3*latencyScore
}

// MaybeEvolve decides whether a profile of category c with metrics m is
// promoted.  Promotion requires score > 0.8 and more than 10 total visits,
// and is then probabilistic per check (0.3 for newVisitor, 0.2 for
// returningRegular).  Loyal users are terminal; demotion does not exist.
//
// The returned record is non-nil only when promotion fired; the caller
// re-samples the profile's parameters for the new category and appends the
// record to the profile's evolution history.
func MaybeEvolve(c Category, m *Metrics) *EvolutionRecord {
	if m.EvolutionScore <= evolutionScoreThreshold || m.TotalVisits <= evolutionVisitThreshold {
		return nil
	}
	prob, ok := promotionProbability[c]
	if !ok {
		return nil
	}
	if rand.Float64() >= prob {
		return nil
	}
	return &EvolutionRecord{
		Timestamp: time.Now(),
		From:      c,
		To:        c.next(),
		Score:     m.EvolutionScore,
	}
}
