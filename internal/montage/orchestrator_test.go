package montage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	err     error
	panics  bool

	mu   sync.Mutex
	runs int
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan struct{}, 64),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) RunOnce(ctx context.Context) (*Artifact, error) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()

	r.started <- struct{}{}
	<-r.release
	if r.panics {
		panic("runner blew up")
	}
	if r.err != nil {
		return nil, r.err
	}
	return &Artifact{StorageKey: "outputs/montage_output_test.mp4"}, nil
}

func (r *blockingRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func waitIdle(t *testing.T, o *Orchestrator) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := o.Status(context.Background())
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if !st.IsCreating {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("orchestrator never returned to idle")
	return Status{}
}

func TestTriggerSingleFlight(t *testing.T) {
	runner := newBlockingRunner()
	o := NewOrchestrator(testLogger(t), runner, newFakeCatalog())

	const callers = 16
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- o.Trigger()
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for alreadyRunning := range results {
		if !alreadyRunning {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("%d triggers accepted, want exactly 1", accepted)
	}

	<-runner.started
	st, err := o.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.IsCreating || st.State != "creating" {
		t.Fatalf("status = %+v, want creating", st)
	}
	if st.StartedAt == nil {
		t.Fatal("StartedAt not set while running")
	}

	close(runner.release)
	waitIdle(t, o)
	if runner.runCount() != 1 {
		t.Fatalf("runner ran %d times, want 1", runner.runCount())
	}
}

func TestTriggerAgainAfterCompletion(t *testing.T) {
	runner := newBlockingRunner()
	o := NewOrchestrator(testLogger(t), runner, newFakeCatalog())

	if o.Trigger() {
		t.Fatal("first trigger reported already running")
	}
	<-runner.started
	close(runner.release)
	st := waitIdle(t, o)
	if st.LastCompletedAt == nil {
		t.Fatal("LastCompletedAt not set after successful run")
	}

	// Release channel is closed, so the second run returns immediately.
	if o.Trigger() {
		t.Fatal("second trigger reported already running after idle")
	}
	<-runner.started
	waitIdle(t, o)
	if runner.runCount() != 2 {
		t.Fatalf("runner ran %d times, want 2", runner.runCount())
	}
}

func TestRunFailureDoesNotMarkCompletion(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = fmt.Errorf("publish failed")
	o := NewOrchestrator(testLogger(t), runner, newFakeCatalog())

	o.Trigger()
	<-runner.started
	close(runner.release)
	st := waitIdle(t, o)
	if st.LastCompletedAt != nil {
		t.Fatalf("LastCompletedAt = %v after failed run, want nil", st.LastCompletedAt)
	}
	if st.State != "idle" {
		t.Fatalf("state = %q, want idle", st.State)
	}
}

func TestRunPanicReturnsToIdle(t *testing.T) {
	runner := newBlockingRunner()
	runner.panics = true
	o := NewOrchestrator(testLogger(t), runner, newFakeCatalog())

	o.Trigger()
	<-runner.started
	close(runner.release)
	st := waitIdle(t, o)
	if st.LastCompletedAt != nil {
		t.Fatal("panicked run recorded a completion")
	}

	// The orchestrator must accept new work after a panic.
	runner.panics = false
	if o.Trigger() {
		t.Fatal("trigger rejected after panic recovery")
	}
	<-runner.started
	waitIdle(t, o)
}

func TestStatusReportsPendingPool(t *testing.T) {
	catalog := newFakeCatalog()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	seedItem(catalog, nil, "incoming/a.mp4", base)
	newest := seedItem(catalog, nil, "incoming/b.mp4", base.Add(time.Hour))
	seedItem(catalog, nil, "archive/c.mp4.20240101000000", base.Add(2*time.Hour))

	o := NewOrchestrator(testLogger(t), newBlockingRunner(), catalog)
	st, err := o.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.PendingCount != 2 {
		t.Fatalf("pending = %d, want 2", st.PendingCount)
	}
	if st.LastUploadAt == nil || !st.LastUploadAt.Equal(newest.CreatedAt) {
		t.Fatalf("last upload = %v, want %v", st.LastUploadAt, newest.CreatedAt)
	}
	if st.State != "idle" || st.IsCreating {
		t.Fatalf("status = %+v, want idle", st)
	}
}
