// Package scheduler runs the bot's time-driven triggers: daily reminder,
// weekly review, and month-end review. Jobs are calendar-scheduled (a Next
// function computes each fire time) rather than interval-based, so a weekly
// job fires at the same local wall-clock slot regardless of restarts.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobStatus represents the last known state of a job.
type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusFulfill JobStatus = "fulfill"
	StatusReject  JobStatus = "reject"
)

// Job defines a scheduled trigger.
type Job struct {
	Name        string
	Description string
	// Next returns the first fire time strictly after now.
	Next func(now time.Time) time.Time
	Fn   func(ctx context.Context) error
}

type jobState struct {
	Job
	mu        sync.Mutex
	status    JobStatus
	message   string
	lastRunAt *time.Time
	nextRunAt time.Time
}

// Scheduler manages a collection of named calendar jobs.
type Scheduler struct {
	mu     sync.RWMutex
	jobs   map[string]*jobState
	logger *slog.Logger
}

// New creates an empty Scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:   make(map[string]*jobState),
		logger: logger,
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = &jobState{
		Job:       job,
		status:    StatusIdle,
		nextRunAt: job.Next(time.Now()),
	}
}

// Start launches all registered jobs in background goroutines. They stop
// when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, js := range s.jobs {
		go s.runLoop(ctx, js)
	}
}

// Run manually triggers a job by name, synchronously.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.RLock()
	js, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return &UnknownJobError{Name: name}
	}
	s.execute(ctx, js)
	return nil
}

// UnknownJobError reports a manual trigger for an unregistered job.
type UnknownJobError struct {
	Name string
}

func (e *UnknownJobError) Error() string {
	return "job \"" + e.Name + "\" not found"
}

func (s *Scheduler) runLoop(ctx context.Context, js *jobState) {
	for {
		js.mu.Lock()
		wait := time.Until(js.nextRunAt)
		js.mu.Unlock()
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, js)
			js.mu.Lock()
			js.nextRunAt = js.Next(time.Now())
			js.mu.Unlock()
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, js *jobState) {
	js.mu.Lock()
	if js.status == StatusRunning {
		js.mu.Unlock()
		return
	}
	js.status = StatusRunning
	js.mu.Unlock()

	now := time.Now()
	s.logger.Info("running scheduled job", "job", js.Name)
	err := js.Fn(ctx)

	js.mu.Lock()
	js.lastRunAt = &now
	if err != nil {
		js.status = StatusReject
		js.message = err.Error()
		s.logger.Warn("scheduled job failed", "job", js.Name, "error", err)
	} else {
		js.status = StatusFulfill
		js.message = ""
	}
	js.mu.Unlock()
}

// DailyAt returns a Next function firing every day at hour:min in loc.
func DailyAt(hour, min int, loc *time.Location) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		local := now.In(loc)
		next := time.Date(local.Year(), local.Month(), local.Day(), hour, min, 0, 0, loc)
		if !next.After(local) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// WeeklyOn returns a Next function firing every week on weekday at hour:00
// in loc.
func WeeklyOn(weekday time.Weekday, hour int, loc *time.Location) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		local := now.In(loc)
		next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
		days := (int(weekday) - int(local.Weekday()) + 7) % 7
		next = next.AddDate(0, 0, days)
		if !next.After(local) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	}
}

// MonthEndAt returns a Next function firing on the last day of each month at
// hour:00 in loc.
func MonthEndAt(hour int, loc *time.Location) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		local := now.In(loc)
		next := lastDayAt(local.Year(), local.Month(), hour, loc)
		if !next.After(local) {
			firstOfNext := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
			next = lastDayAt(firstOfNext.Year(), firstOfNext.Month(), hour, loc)
		}
		return next
	}
}

func lastDayAt(year int, month time.Month, hour int, loc *time.Location) time.Time {
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	lastDay := firstOfNext.AddDate(0, 0, -1)
	return time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), hour, 0, 0, 0, loc)
}
