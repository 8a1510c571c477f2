package metrics_test

import (
	"sync"
	"testing"

	"github.com/firasghr/GoProfileEngine/metrics"
)

func TestSnapshot_ReflectsCounters(t *testing.T) {
	m := metrics.New()
	m.Launches.Add(3)
	m.LaunchFailures.Add(1)
	m.Closes.Add(2)
	m.Crashes.Add(1)
	m.ActiveInstances.Add(2)
	m.ActiveInstances.Add(-1)
	m.VisitsRecorded.Add(10)
	m.Evolutions.Add(1)

	s := m.Snapshot()
	if s.Launches != 3 || s.LaunchFailures != 1 || s.Closes != 2 || s.Crashes != 1 {
		t.Errorf("lifecycle counters: %+v", s)
	}
	if s.ActiveInstances != 1 {
		t.Errorf("gauge = %d, want 1", s.ActiveInstances)
	}
	if s.VisitsRecorded != 10 || s.Evolutions != 1 {
		t.Errorf("behavioral counters: %+v", s)
	}
}

func TestCounters_ConcurrentIncrements(t *testing.T) {
	m := metrics.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.VisitsRecorded.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().VisitsRecorded; got != 5000 {
		t.Errorf("visits = %d, want 5000", got)
	}
}

func TestUptime_Advances(t *testing.T) {
	m := metrics.New()
	if m.Uptime() < 0 {
		t.Error("negative uptime")
	}
}
