// Package scheduler implements the periodic billing tasks of the RentRoll
// service: generation of missing monthly rent records and recalculation of
// rent payment statuses.
//
// The Scheduler owns a small, fixed set of named tasks, each with a next-run
// timestamp and an interval. A single goroutine polls once per tick, runs
// every task whose due time has passed, and reschedules it: on success to
// now + interval, on failure to now + a fixed backoff window. One task's
// failure never blocks the others, and the poll loop itself never dies on a
// task error.
//
// The Scheduler is constructed and owned by the application's startup
// routine and injected where needed; there is no package-level instance.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rentroll/internal/types"
)

// Built-in task names. These are the only tasks the scheduler registers;
// callers address them through ForceRun and TasksStatus.
const (
	TaskGenerateMissingRents    = "generate-missing-rents"
	TaskRecalculateRentStatuses = "recalculate-rent-statuses"
)

// Default timing parameters, matching production behavior.
const (
	DefaultTickInterval   = 60 * time.Second
	DefaultTaskInterval   = 24 * time.Hour
	DefaultFailureBackoff = time.Hour
	DefaultGenerationHour = 9
	DefaultRecalcHour     = 8
)

// TaskHandler is the body of a scheduled task. The now argument is the
// wall-clock snapshot taken at the start of the run; handlers use it for
// every date computation so a run is consistent even if it straddles
// midnight.
type TaskHandler func(ctx context.Context, now time.Time) error

// TaskStatus is the read-only snapshot returned by TasksStatus.
type TaskStatus struct {
	Name    string     `json:"name"`
	LastRun *time.Time `json:"last_run"`
	NextRun time.Time  `json:"next_run"`
	Running bool       `json:"running"`
}

// task is the internal descriptor for one scheduled task. The running flag
// is an explicit re-entrancy guard: a task that is still executing is never
// considered due, even if its handler outlives several ticks.
type task struct {
	name     string
	lastRun  *time.Time
	nextRun  time.Time
	interval time.Duration
	running  bool
	handler  TaskHandler
}

// Config holds the dependencies and timing parameters for a Scheduler.
// Zero-valued durations fall back to the package defaults.
type Config struct {
	Generator    *RentGenerator
	Recalculator *StatusRecalculator
	Clock        types.Clock
	Logger       *slog.Logger

	TickInterval   time.Duration
	TaskInterval   time.Duration
	FailureBackoff time.Duration
	// GenerationHour and RecalcHour anchor the daily runs. They are
	// pointers so hour 0 (midnight) is distinguishable from unset; nil
	// falls back to the package default.
	GenerationHour *int
	RecalcHour     *int
	// Location anchors the daily run hours. Nil means the system local zone.
	Location *time.Location
}

// Scheduler drives the billing tasks. All exported methods are safe for
// concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	tasks   []*task
	running bool
	stopCh  chan struct{}

	clock   types.Clock
	logger  *slog.Logger
	tick    time.Duration
	backoff time.Duration
}

// New creates a Scheduler with its two built-in tasks registered. The first
// due time of each task is the next occurrence of its configured hour in the
// configured zone: today if that hour has not yet passed, tomorrow
// otherwise.
func New(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	interval := cfg.TaskInterval
	if interval <= 0 {
		interval = DefaultTaskInterval
	}
	backoff := cfg.FailureBackoff
	if backoff <= 0 {
		backoff = DefaultFailureBackoff
	}
	genHour := DefaultGenerationHour
	if cfg.GenerationHour != nil {
		genHour = *cfg.GenerationHour
	}
	recalcHour := DefaultRecalcHour
	if cfg.RecalcHour != nil {
		recalcHour = *cfg.RecalcHour
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	now := clock.Now().In(loc)

	s := &Scheduler{
		clock:   clock,
		logger:  logger,
		tick:    tick,
		backoff: backoff,
	}

	s.tasks = []*task{
		{
			name:     TaskGenerateMissingRents,
			nextRun:  nextOccurrence(now, genHour),
			interval: interval,
			handler:  cfg.Generator.Run,
		},
		{
			name:     TaskRecalculateRentStatuses,
			nextRun:  nextOccurrence(now, recalcHour),
			interval: interval,
			handler:  cfg.Recalculator.Run,
		},
	}

	return s
}

// nextOccurrence returns the next time the given hour strikes in now's
// location: today if the hour has not yet passed (the exact hour counts as
// not yet passed), otherwise tomorrow.
func nextOccurrence(now time.Time, hour int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !candidate.Before(now) {
		return candidate
	}
	return candidate.AddDate(0, 0, 1)
}

// Start begins the poll loop. It performs one synchronous due-task check
// immediately so tasks that were overdue at process start run without
// waiting a full tick, then polls every tick interval until Stop is called
// or ctx is cancelled. Calling Start on a running scheduler logs a warning
// and does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("scheduler already running, ignoring start request")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.logger.Info("scheduler started",
		"tick_interval", s.tick,
		"tasks", s.taskNames(),
	)

	// Catch up on anything already due before the first tick fires.
	s.checkDueTasks(ctx)

	go func() {
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkDueTasks(ctx)
			case <-stopCh:
				return
			case <-ctx.Done():
				s.Stop()
				return
			}
		}
	}()
}

// Stop cancels future due-task checks. It is idempotent and does not
// interrupt a handler that is already executing; such a handler finishes
// normally but its task will not be polled again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.logger.Info("scheduler stopped")
}

// Running reports whether the poll loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// checkDueTasks runs every task whose due time has passed. Tasks execute
// sequentially; a failing task is rescheduled with the fixed backoff and the
// remaining tasks still run.
func (s *Scheduler) checkDueTasks(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if t.running || t.nextRun.After(now) {
			continue
		}
		t.running = true
		due = append(due, t)
	}
	s.mu.Unlock()

	for _, t := range due {
		s.runTask(ctx, t, now)
	}
}

// runTask executes a single task's handler and reschedules the task based on
// the outcome. The caller must have set t.running beforehand.
func (s *Scheduler) runTask(ctx context.Context, t *task, now time.Time) {
	s.logger.Info("running scheduled task", "task", t.name)

	err := t.handler(ctx, now)

	s.mu.Lock()
	t.running = false
	if err != nil {
		t.nextRun = now.Add(s.backoff)
	} else {
		ranAt := now
		t.lastRun = &ranAt
		t.nextRun = now.Add(t.interval)
	}
	nextRun := t.nextRun
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled task failed",
			"task", t.name,
			"error", err,
			"next_retry", nextRun,
		)
		return
	}
	s.logger.Info("scheduled task completed",
		"task", t.name,
		"next_run", nextRun,
	)
}

// ForceRun executes the named task immediately, bypassing the due-time
// check. Unknown names fail with a not-found error and no state change; a
// task that is currently executing fails with a conflict error.
//
// Timestamps advance only when the handler succeeds, mirroring the
// automatic path; on failure the schedule is left untouched and the
// handler's error is returned to the caller. Force-run never applies the
// failure backoff: it is a manual override, not an automatic retry path.
func (s *Scheduler) ForceRun(ctx context.Context, name string) error {
	s.mu.Lock()
	var target *task
	for _, t := range s.tasks {
		if t.name == name {
			target = t
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return types.NewAppError(types.ErrCodeNotFoundTask, "no task registered under name "+name, nil)
	}
	if target.running {
		s.mu.Unlock()
		return types.NewAppError(types.ErrCodeConflictTaskRunning, "task "+name+" is already running", nil)
	}
	target.running = true
	s.mu.Unlock()

	now := s.clock.Now()
	s.logger.Info("force-running task", "task", name)

	err := target.handler(ctx, now)

	s.mu.Lock()
	target.running = false
	if err == nil {
		ranAt := now
		target.lastRun = &ranAt
		target.nextRun = now.Add(target.interval)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("force-run failed", "task", name, "error", err)
		return err
	}
	s.logger.Info("force-run completed", "task", name)
	return nil
}

// TasksStatus returns a read-only snapshot of every registered task. It has
// no side effects.
func (s *Scheduler) TasksStatus() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		var lastRun *time.Time
		if t.lastRun != nil {
			lr := *t.lastRun
			lastRun = &lr
		}
		statuses = append(statuses, TaskStatus{
			Name:    t.name,
			LastRun: lastRun,
			NextRun: t.nextRun,
			Running: t.running,
		})
	}
	return statuses
}

func (s *Scheduler) taskNames() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.name
	}
	return names
}
