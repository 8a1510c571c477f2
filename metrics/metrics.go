// Package metrics provides lightweight, lock-free pool counters using
// atomic operations so they impose minimal overhead on hot paths.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics tracks aggregate statistics for the profile pool.
//
// All counters are accessed exclusively through atomic operations: there is
// no mutex contention even with every instance's keep-alive monitor and the
// engine's visit recording running concurrently, and the struct may be
// passed as a pointer without additional synchronisation.
type Metrics struct {
	// Launches is the number of browser instances successfully started.
	Launches atomic.Uint64

	// LaunchFailures counts launch attempts that never reached RUNNING.
	LaunchFailures atomic.Uint64

	// Closes counts explicit, caller-initiated instance shutdowns.
	Closes atomic.Uint64

	// Crashes counts instances reaped after an unsolicited process exit.
	Crashes atomic.Uint64

	// ActiveInstances is a gauge of currently running instances.
	ActiveInstances atomic.Int64

	// VisitsRecorded counts visit outcomes fed to the behavioral model.
	VisitsRecorded atomic.Uint64

	// Evolutions counts category promotions across all profiles.
	Evolutions atomic.Uint64

	startTime time.Time
}

// New creates a Metrics instance with the start time set to now.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Uptime returns the time elapsed since the metrics instance was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Snapshot is a point-in-time copy of all counters.  Because the loads are
// not performed under a single lock the values may be very slightly
// inconsistent at nanosecond granularity, which is acceptable for
// monitoring purposes.
type Snapshot struct {
	Launches        uint64
	LaunchFailures  uint64
	Closes          uint64
	Crashes         uint64
	ActiveInstances int64
	VisitsRecorded  uint64
	Evolutions      uint64
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Launches:        m.Launches.Load(),
		LaunchFailures:  m.LaunchFailures.Load(),
		Closes:          m.Closes.Load(),
		Crashes:         m.Crashes.Load(),
		ActiveInstances: m.ActiveInstances.Load(),
		VisitsRecorded:  m.VisitsRecorded.Load(),
		Evolutions:      m.Evolutions.Load(),
	}
}
