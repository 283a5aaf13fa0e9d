package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentboard/agentboard/internal/logging"
	"github.com/agentboard/agentboard/internal/realtime"
	"github.com/agentboard/agentboard/internal/store"
)

// DefaultInterval is the pause between loop iterations.
const DefaultInterval = 5 * time.Second

// Store is the slice of storage the loop consumes.
type Store interface {
	GetEntity(ctx context.Context, id int64) (*store.Entity, error)
	ListTasksByStatus(ctx context.Context, status store.TaskStatus) ([]*store.Task, error)
	// ApplyAssignments must commit the whole batch in one transaction.
	ApplyAssignments(ctx context.Context, assignments []store.Assignment) error
}

// Broadcaster fans notifications out to a project's subscribers.
type Broadcaster interface {
	BroadcastToProject(n *realtime.Notification, projectID int64)
}

// Runner drives the assignment loop. It holds no task state of its own;
// every iteration re-reads the board from storage.
type Runner struct {
	store    Store
	cell     *ConfigCell
	bus      Broadcaster
	interval time.Duration
	log      *slog.Logger
}

// NewRunner creates a runner. A non-positive interval falls back to
// DefaultInterval.
func NewRunner(st Store, cell *ConfigCell, bus Broadcaster, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		store:    st,
		cell:     cell,
		bus:      bus,
		interval: interval,
		log:      logging.WithComponent("autopilot"),
	}
}

// Run executes the loop until the context is cancelled. Each turn runs one
// iteration and then sleeps the full interval, so iterations never overlap
// and an erroring iteration still backs off. Cancellation is checked once
// per turn; an iteration already underway finishes first.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("autopilot loop started", slog.Duration("interval", r.interval))

	for {
		// An in-flight commit must complete even if shutdown arrives
		// mid-iteration, so the iteration runs detached from cancellation.
		if err := r.runOnce(context.WithoutCancel(ctx)); err != nil {
			r.log.Error("autopilot iteration failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			r.log.Info("autopilot loop stopped")
			return
		case <-time.After(r.interval):
		}
	}
}

// runOnce performs a single scan-assign-notify iteration. Errors are
// returned for logging but never escalate past the iteration boundary.
func (r *Runner) runOnce(ctx context.Context) error {
	cfg := r.cell.Get()
	if !cfg.Enabled || cfg.ManagerID == 0 {
		return nil
	}

	manager, err := r.store.GetEntity(ctx, cfg.ManagerID)
	if errors.Is(err, store.ErrNotFound) {
		// Transient misconfiguration: the manager may be registered later.
		r.log.Warn("autopilot manager entity not found", slog.Int64("manager_id", cfg.ManagerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading manager entity: %w", err)
	}

	tasks, err := r.store.ListTasksByStatus(ctx, store.StatusPending)
	if err != nil {
		return fmt.Errorf("listing pending tasks: %w", err)
	}

	var staged []store.Assignment
	var notices []*realtime.Notification
	for _, task := range tasks {
		// The policy only fills gaps: tasks with any assignee are untouched.
		if len(task.Assignees) > 0 {
			continue
		}
		msg := fmt.Sprintf("Autopilot: Manager %s self-assigned task '%s'", manager.Name, task.Title)
		staged = append(staged, store.Assignment{
			TaskID:     task.ID,
			EntityID:   manager.ID,
			LogMessage: msg,
			LogType:    store.LogTypeAction,
		})
		notices = append(notices, realtime.NewTaskLogNotification(
			task.ID, msg, store.LogTypeAction, task.ProjectID, time.Now()))
	}

	if len(staged) == 0 {
		return nil
	}

	if err := r.store.ApplyAssignments(ctx, staged); err != nil {
		return fmt.Errorf("committing assignments: %w", err)
	}

	r.log.Info("autopilot assigned tasks",
		slog.Int("count", len(staged)),
		slog.String("manager", manager.Name))

	// Broadcast strictly after the commit: clients must never observe a
	// notification describing state that storage has not recorded.
	for _, n := range notices {
		r.bus.BroadcastToProject(n, n.ProjectID)
	}
	return nil
}
