package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/firasghr/GoProfileEngine/worker"
)

func TestPool_ExecutesAllJobs(t *testing.T) {
	const jobs = 500
	wp := worker.NewPool(10)
	wp.Start()

	ctx := context.Background()
	var counter int64
	for i := 0; i < jobs; i++ {
		if err := wp.Submit(ctx, func() {
			atomic.AddInt64(&counter, 1)
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wp.Stop()

	if counter != jobs {
		t.Errorf("expected %d jobs executed, got %d", jobs, counter)
	}
}

func TestPool_ZeroWorkersFallsBackToOne(t *testing.T) {
	wp := worker.NewPool(0)
	wp.Start()
	var ran int64
	if err := wp.Submit(context.Background(), func() { atomic.AddInt64(&ran, 1) }); err != nil {
		t.Fatal(err)
	}
	wp.Stop()
	if ran != 1 {
		t.Errorf("expected job to run, ran=%d", ran)
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	wp := worker.NewPool(2)
	wp.Start()
	wp.Stop()

	err := wp.Submit(context.Background(), func() {})
	if !errors.Is(err, worker.ErrPoolStopped) {
		t.Errorf("Submit after Stop = %v, want ErrPoolStopped", err)
	}
}

func TestPool_StopWaitsForBlockedSubmit(t *testing.T) {
	// One worker wedged on a job and a full buffer park the next Submit
	// inside its send.  Stop must wait for that send to complete instead of
	// closing the queue underneath it, which would panic the sender.
	wp := worker.NewPool(1)
	wp.Start()
	release := make(chan struct{})

	ctx := context.Background()
	if err := wp.Submit(ctx, func() { <-release }); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ { // fill the buffer (workerCount*4)
		if err := wp.Submit(ctx, func() {}); err != nil {
			t.Fatal(err)
		}
	}

	var ran int64
	submitDone := make(chan error, 1)
	go func() {
		submitDone <- wp.Submit(ctx, func() { atomic.AddInt64(&ran, 1) })
	}()
	time.Sleep(50 * time.Millisecond) // let the Submit park in its send

	stopDone := make(chan struct{})
	go func() {
		wp.Stop()
		close(stopDone)
	}()
	time.Sleep(50 * time.Millisecond) // Stop is now waiting behind the Submit

	close(release)
	if err := <-submitDone; err != nil {
		t.Fatalf("blocked Submit: %v", err)
	}
	<-stopDone
	if n := atomic.LoadInt64(&ran); n != 1 {
		t.Errorf("job from blocked Submit ran %d times, want 1", n)
	}
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	// One worker stuck on a blocking job plus a full buffer: the next Submit
	// must return when the context is cancelled instead of hanging.
	wp := worker.NewPool(1)
	wp.Start()
	block := make(chan struct{})
	defer func() {
		close(block)
		wp.Stop()
	}()

	ctx := context.Background()
	if err := wp.Submit(ctx, func() { <-block }); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ { // fill the buffer (workerCount*4)
		if err := wp.Submit(ctx, func() {}); err != nil {
			t.Fatal(err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := wp.Submit(cancelled, func() {}); !errors.Is(err, context.Canceled) {
		t.Errorf("Submit with cancelled context = %v, want context.Canceled", err)
	}
}

