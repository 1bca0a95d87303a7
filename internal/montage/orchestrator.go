package montage

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/socialreel-backend/internal/platform/dbctx"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

// Runner is the unit of work the orchestrator schedules; *Reconciler
// satisfies it.
type Runner interface {
	RunOnce(ctx context.Context) (*Artifact, error)
}

// Orchestrator owns the single-flight build lifecycle: at most one
// build runs at a time, triggers are fire-and-forget, and status is
// always answerable without waiting on a running build.
type Orchestrator struct {
	log     *logger.Logger
	runner  Runner
	catalog Catalog

	mu              sync.Mutex
	running         bool
	startedAt       *time.Time
	lastCompletedAt *time.Time
}

func NewOrchestrator(log *logger.Logger, runner Runner, catalog Catalog) *Orchestrator {
	return &Orchestrator{
		log:     log.With("service", "Orchestrator"),
		runner:  runner,
		catalog: catalog,
	}
}

// Trigger schedules a build unless one is already running. The
// check-then-set happens under the mutex so racing callers cannot both
// start work. The build runs detached from the caller's context.
func (o *Orchestrator) Trigger() (alreadyRunning bool) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return true
	}
	o.running = true
	now := time.Now().UTC()
	o.startedAt = &now
	o.mu.Unlock()

	go o.run()
	return false
}

func (o *Orchestrator) run() {
	// The state machine must return to idle even if the run panics.
	completed := false
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("Build panicked", "panic", rec)
		}
		o.mu.Lock()
		o.running = false
		if completed {
			now := time.Now().UTC()
			o.lastCompletedAt = &now
		}
		o.mu.Unlock()
	}()

	artifact, err := o.runner.RunOnce(context.Background())
	if err != nil {
		o.log.Error("Build failed", "error", err)
		return
	}
	if artifact != nil {
		o.log.Info("Build published", "artifact", artifact.StorageKey)
	}
	completed = true
}

type Status struct {
	State           string     `json:"status"`
	IsCreating      bool       `json:"is_video_creating"`
	StartedAt       *time.Time `json:"started_at"`
	LastCompletedAt *time.Time `json:"last_run"`
	PendingCount    int        `json:"pending_count"`
	LastUploadAt    *time.Time `json:"last_upload_at"`
}

// Status reports the run state plus a live catalog view of the pending
// pool. It never blocks on a running build.
func (o *Orchestrator) Status(ctx context.Context) (Status, error) {
	o.mu.Lock()
	st := Status{
		State:           "idle",
		IsCreating:      o.running,
		StartedAt:       o.startedAt,
		LastCompletedAt: o.lastCompletedAt,
	}
	o.mu.Unlock()
	if st.IsCreating {
		st.State = "creating"
	}

	rows, err := o.catalog.ListPendingIncoming(dbctx.New(ctx))
	if err != nil {
		return Status{}, err
	}
	st.PendingCount = len(rows)
	for _, row := range rows {
		t := row.CreatedAt
		if st.LastUploadAt == nil || t.After(*st.LastUploadAt) {
			st.LastUploadAt = &t
		}
	}
	return st, nil
}
