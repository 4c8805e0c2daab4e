package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bindrelay/internal/metrics"
)

// TaskStore abstracts the persistence layer for binding tasks and their
// firing history.
type TaskStore interface {
	InsertTask(ctx context.Context, task *BindingTask) error
	GetTask(ctx context.Context, id string) (*BindingTask, error)
	ListTasks(ctx context.Context) ([]*BindingTask, error)
	DeleteTask(ctx context.Context, id string) error

	InsertFiring(ctx context.Context, firing *Firing) error
	ListFirings(ctx context.Context, taskID string, limit int) ([]*Firing, error)
}

// TaskRunner executes one firing of a task.
type TaskRunner interface {
	RunOnce(ctx context.Context, task *BindingTask) (int, error)
}

// Scheduler owns the live-timer registry: one self-rescheduling cron entry
// per binding task, plus the reconciliation loop keeping the registry
// converged with the task store. Reconciliation only ever adds timers; the
// only removal path is the expiry check at firing time, so interval or
// expiry edits to a stored task take effect when the current timer
// terminates and the next pass schedules the new definition.
type Scheduler struct {
	store  TaskStore
	runner TaskRunner
	logger *slog.Logger

	cron    *cron.Cron
	entryMu sync.Mutex
	entries map[string]cron.EntryID
	running sync.Map // taskID -> struct{}{}

	kick chan struct{}
	ctx  context.Context

	now func() time.Time
}

// NewScheduler constructs a scheduler with the given dependencies.
func NewScheduler(store TaskStore, runner TaskRunner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		runner:  runner,
		logger:  logger,
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		kick:    make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Start begins firing timers. ctx is used for background operations (store
// writes, runner executions).
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
}

// Stop stops all timers and returns a context that is done once in-flight
// firings have returned. Relay calls still in flight may be dropped.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Sync is one reconciliation pass: load every persisted task and create a
// live timer for each id not already in the registry. Existing timers are
// left untouched. A load failure skips the whole pass; no partial registry
// corruption is possible because a pass only adds.
func (s *Scheduler) Sync(ctx context.Context) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		metrics.ReconcileFailures.Inc()
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, task := range tasks {
		s.scheduleTask(task)
	}
	metrics.ReconcilePasses.Inc()
	return nil
}

// Kick requests an immediate reconciliation pass from the running loop.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// RunReconcileLoop runs Sync once immediately, then on every cadence tick
// and on every Kick, until ctx is cancelled.
func (s *Scheduler) RunReconcileLoop(ctx context.Context, cadence time.Duration) {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	if err := s.Sync(ctx); err != nil {
		s.logger.Error("reconcile pass skipped", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}
		if err := s.Sync(ctx); err != nil {
			s.logger.Error("reconcile pass skipped", "err", err)
		}
	}
}

// HasTimer reports whether a live timer exists for the task id.
func (s *Scheduler) HasTimer(taskID string) bool {
	s.entryMu.Lock()
	defer s.entryMu.Unlock()
	_, ok := s.entries[taskID]
	return ok
}

// TimerCount returns the current registry size.
func (s *Scheduler) TimerCount() int {
	s.entryMu.Lock()
	defer s.entryMu.Unlock()
	return len(s.entries)
}

// scheduleTask creates a live timer for the task unless one already exists.
// The timer captures the definition as read now; it fires every Interval
// seconds until the expiry check removes it. Expired tasks still present in
// the store are scheduled too and self-terminate on their first firing.
func (s *Scheduler) scheduleTask(task *BindingTask) {
	if task.Interval <= 0 {
		s.logger.Warn("task has non-positive interval, not scheduling", "task_id", task.ID, "interval_s", task.Interval)
		return
	}
	snapshot := *task
	s.entryMu.Lock()
	defer s.entryMu.Unlock()
	if _, ok := s.entries[task.ID]; ok {
		return
	}
	entryID := s.cron.Schedule(
		cron.Every(time.Duration(task.Interval)*time.Second),
		cron.FuncJob(func() { s.fire(&snapshot) }),
	)
	s.entries[task.ID] = entryID
	metrics.TimersStarted.Inc()
	metrics.LiveTimers.Set(float64(len(s.entries)))
	s.logger.Info("live timer created", "task_id", task.ID, "interval_s", task.Interval, "expiry", task.Expiry)
}

// fire handles one timer firing: terminate at expiry, otherwise run the
// extraction-and-relay cycle and record the outcome. A firing that arrives
// while the previous one for the same task is still in flight is skipped and
// recorded; a task never overlaps itself.
func (s *Scheduler) fire(task *BindingTask) {
	ctx := s.ctxOrBackground()
	now := s.now()
	if task.Expired(now) {
		s.removeTimer(task.ID)
		metrics.TimersExpired.Inc()
		metrics.Firings.WithLabelValues(string(FiringStatusExpired)).Inc()
		s.logger.Info("task expired, timer removed", "task_id", task.ID, "expiry", task.Expiry)
		s.recordFiring(ctx, task.ID, now, FiringStatusExpired, 0, nil)
		return
	}

	if !s.markTaskRunning(task.ID) {
		s.logger.Info("skipping firing because task is still running", "task_id", task.ID)
		metrics.Firings.WithLabelValues(string(FiringStatusSkipped)).Inc()
		s.recordFiring(ctx, task.ID, now, FiringStatusSkipped, 0, nil)
		return
	}
	defer s.clearTaskRunning(task.ID)

	relayed, err := s.runner.RunOnce(ctx, task)
	status := FiringStatusRelayed
	switch {
	case err != nil:
		status = FiringStatusFailed
	case relayed == 0:
		status = FiringStatusEmpty
	}
	metrics.Firings.WithLabelValues(string(status)).Inc()
	s.recordFiring(ctx, task.ID, now, status, relayed, err)
}

func (s *Scheduler) removeTimer(taskID string) {
	s.entryMu.Lock()
	defer s.entryMu.Unlock()
	if entryID, ok := s.entries[taskID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, taskID)
		metrics.LiveTimers.Set(float64(len(s.entries)))
	}
}

// recordFiring appends a firing record best effort; history is informational
// and a write failure must not affect the timer.
func (s *Scheduler) recordFiring(ctx context.Context, taskID string, at time.Time, status FiringStatus, relayed int, runErr error) {
	firing := &Firing{
		ID:           NewID(),
		TaskID:       taskID,
		FiredAt:      at.UTC(),
		Status:       status,
		RelayedCount: relayed,
	}
	if runErr != nil {
		msg := runErr.Error()
		firing.Error = &msg
	}
	if err := s.store.InsertFiring(ctx, firing); err != nil {
		s.logger.Warn("record firing", "task_id", taskID, "err", err)
	}
}

// markTaskRunning claims the single execution slot of a task. It returns
// false when a previous firing still holds it.
func (s *Scheduler) markTaskRunning(taskID string) bool {
	_, loaded := s.running.LoadOrStore(taskID, struct{}{})
	return !loaded
}

func (s *Scheduler) clearTaskRunning(taskID string) {
	s.running.Delete(taskID)
}

func (s *Scheduler) ctxOrBackground() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}
