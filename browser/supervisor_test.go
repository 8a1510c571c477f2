package browser_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/firasghr/GoProfileEngine/browser"
	"github.com/firasghr/GoProfileEngine/fingerprint"
)

// fakeProcess is an in-memory Process whose exit is controlled by the test.
type fakeProcess struct {
	closeErr error

	mu     sync.Mutex
	exited chan struct{}
	kills  int32
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{exited: make(chan struct{})}
}

func (p *fakeProcess) Alive() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

func (p *fakeProcess) Close(ctx context.Context) error {
	if p.closeErr != nil {
		return p.closeErr
	}
	p.die()
	return nil
}

func (p *fakeProcess) Kill() {
	atomic.AddInt32(&p.kills, 1)
	p.die()
}

func (p *fakeProcess) Exited() <-chan struct{} { return p.exited }

func (p *fakeProcess) die() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.exited:
	default:
		close(p.exited)
	}
}

// fakeLauncher hands out fakeProcesses, or fails when launchErr is set.
type fakeLauncher struct {
	launchErr error

	mu    sync.Mutex
	procs []*fakeProcess
}

func (l *fakeLauncher) Launch(ctx context.Context, spec browser.LaunchSpec) (browser.Process, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	p := newFakeProcess()
	l.mu.Lock()
	l.procs = append(l.procs, p)
	l.mu.Unlock()
	return p, nil
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

func testSpec(profileID string) browser.LaunchSpec {
	return browser.LaunchSpec{
		Fingerprint: &fingerprint.Fingerprint{ID: "fp-" + profileID, ProfileID: profileID},
	}
}

func testOptions() browser.Options {
	return browser.Options{
		MaxConcurrent:     2,
		LaunchTimeout:     time.Second,
		CloseGrace:        100 * time.Millisecond,
		KeepAliveInterval: 20 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestLaunch_RegistersRunningInstance(t *testing.T) {
	s := browser.NewSupervisor(&fakeLauncher{}, testOptions(), nil, nil)

	inst, err := s.Launch(context.Background(), testSpec("profile-a"))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if inst.State() != browser.StateRunning {
		t.Errorf("state = %s, want RUNNING", inst.State())
	}
	if inst.ProfileID != "profile-a" || inst.FingerprintID != "fp-profile-a" {
		t.Errorf("identity fields: %+v", inst)
	}
	if s.Count() != 1 {
		t.Errorf("count = %d, want 1", s.Count())
	}

	got, err := s.Get(inst.ID)
	if err != nil || got.ID != inst.ID {
		t.Errorf("Get = %v, %v", got, err)
	}
}

func TestLaunch_CapacityRejectsAndRecovers(t *testing.T) {
	s := browser.NewSupervisor(&fakeLauncher{}, testOptions(), nil, nil)
	ctx := context.Background()

	a, err := s.Launch(ctx, testSpec("a"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Launch(ctx, testSpec("b")); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Launch(ctx, testSpec("c")); !errors.Is(err, browser.ErrCapacityExceeded) {
		t.Fatalf("third launch = %v, want ErrCapacityExceeded", err)
	}

	// Closing an instance frees its slot for the next launch.
	if err := s.Close(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Launch(ctx, testSpec("c")); err != nil {
		t.Errorf("launch after close: %v", err)
	}
}

func TestLaunch_RejectsSpecWithoutFingerprint(t *testing.T) {
	opts := testOptions()
	opts.MaxConcurrent = 1
	s := browser.NewSupervisor(&fakeLauncher{}, opts, nil, nil)
	ctx := context.Background()

	if _, err := s.Launch(ctx, browser.LaunchSpec{}); !errors.Is(err, browser.ErrLaunchFailure) {
		t.Fatalf("launch without fingerprint = %v, want ErrLaunchFailure", err)
	}

	// The rejection happened before any slot was taken.
	if _, err := s.Launch(ctx, testSpec("a")); err != nil {
		t.Errorf("launch after rejection: %v", err)
	}
}

func TestLaunch_FailureReleasesSlot(t *testing.T) {
	l := &fakeLauncher{launchErr: errors.New("binary not found")}
	opts := testOptions()
	opts.MaxConcurrent = 1
	s := browser.NewSupervisor(l, opts, nil, nil)
	ctx := context.Background()

	if _, err := s.Launch(ctx, testSpec("a")); !errors.Is(err, browser.ErrLaunchFailure) {
		t.Fatalf("launch = %v, want ErrLaunchFailure", err)
	}
	if s.Count() != 0 {
		t.Errorf("count = %d after failed launch, want 0", s.Count())
	}

	// The slot must be free again or this second attempt would be rejected.
	l.launchErr = nil
	if _, err := s.Launch(ctx, testSpec("a")); err != nil {
		t.Errorf("launch after failure: %v", err)
	}
}

func TestClose_Idempotent(t *testing.T) {
	l := &fakeLauncher{}
	s := browser.NewSupervisor(l, testOptions(), nil, nil)
	ctx := context.Background()

	inst, err := s.Launch(ctx, testSpec("a"))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Close(ctx, inst.ID); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if inst.State() != browser.StateTerminated {
		t.Errorf("state = %s, want TERMINATED", inst.State())
	}
	if err := s.Close(ctx, inst.ID); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := s.Close(ctx, "never-existed"); err != nil {
		t.Errorf("Close unknown id: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
}

func TestClose_KillsAfterGracefulFailure(t *testing.T) {
	l := &fakeLauncher{}
	s := browser.NewSupervisor(l, testOptions(), nil, nil)
	ctx := context.Background()

	inst, err := s.Launch(ctx, testSpec("a"))
	if err != nil {
		t.Fatal(err)
	}
	proc := l.last()
	proc.closeErr = errors.New("browser not responding")

	if err := s.Close(ctx, inst.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if atomic.LoadInt32(&proc.kills) == 0 {
		t.Error("process not killed after graceful close failed")
	}
	if s.Count() != 0 {
		t.Errorf("count = %d, want 0", s.Count())
	}
}

func TestCrash_ReapedAndReported(t *testing.T) {
	l := &fakeLauncher{}
	s := browser.NewSupervisor(l, testOptions(), nil, nil)

	var crashes int32
	s.OnTerminate(func(inst *browser.Instance, crashed bool) {
		if crashed {
			atomic.AddInt32(&crashes, 1)
		}
	})

	inst, err := s.Launch(context.Background(), testSpec("a"))
	if err != nil {
		t.Fatal(err)
	}

	// Simulate the browser dying underneath the supervisor.
	l.last().die()

	waitFor(t, func() bool { return s.Count() == 0 }, "crashed instance to be reaped")
	waitFor(t, func() bool { return atomic.LoadInt32(&crashes) == 1 }, "crash callback")
	if inst.State() != browser.StateTerminated {
		t.Errorf("state = %s, want TERMINATED", inst.State())
	}
}

func TestOnTerminate_FiresOncePerInstance(t *testing.T) {
	l := &fakeLauncher{}
	s := browser.NewSupervisor(l, testOptions(), nil, nil)

	var calls int32
	s.OnTerminate(func(inst *browser.Instance, crashed bool) {
		atomic.AddInt32(&calls, 1)
	})

	ctx := context.Background()
	inst, err := s.Launch(ctx, testSpec("a"))
	if err != nil {
		t.Fatal(err)
	}

	// Explicit close racing the exit watcher: the callback still fires once.
	if err := s.Close(ctx, inst.ID); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("callback fired %d times, want 1", n)
	}
}

func TestCloseAll(t *testing.T) {
	s := browser.NewSupervisor(&fakeLauncher{}, testOptions(), nil, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if _, err := s.Launch(ctx, testSpec(id)); err != nil {
			t.Fatal(err)
		}
	}
	s.CloseAll(ctx)
	if s.Count() != 0 {
		t.Errorf("count = %d after CloseAll, want 0", s.Count())
	}
}
