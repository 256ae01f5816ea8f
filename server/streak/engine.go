// Package streak maintains the consecutive-days-recorded counter.
//
// The engine keeps a small persisted cache (count, last recorded day, run
// start, lifetime day total) that is updated in O(1) on each new entry and
// reconstructed by a bounded backward windowed scan of the log store when no
// cache exists. Lapses are detected at read time: no write happens on idle
// days, so a stored count older than yesterday simply reads as 0.
package streak

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/logstore"
)

const (
	// defaultWindowDays is the rebuild scan window size. Tunable; any
	// positive value is correct, 30 keeps per-call result sets small.
	defaultWindowDays = 30

	// defaultMaxWindows caps the rebuild lookback (~3 years). Exhaustion is
	// treated as "the streak is whatever was found".
	defaultMaxWindows = 36
)

// Engine owns the incremental streak state.
type Engine struct {
	state  *store.Store
	logs   logstore.Store
	loc    *time.Location
	logger *slog.Logger

	windowDays int
	maxWindows int
}

// Status is the read-model returned by streak queries.
type Status struct {
	Count          int
	StartDate      string
	TotalDays      int
	HasTodayRecord bool
}

// NewEngine creates a streak engine over the given stores.
func NewEngine(state *store.Store, logs logstore.Store, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		state:      state,
		logs:       logs,
		loc:        loc,
		logger:     logger,
		windowDays: defaultWindowDays,
		maxWindows: defaultMaxWindows,
	}
}

// RecordEntry advances the streak for an entry recorded at now. Idempotent
// per calendar day: the second entry on the same day is a no-op. The
// same-day check is a non-atomic read-then-write; concurrent duplicate
// deliveries could double-count, accepted for single-user usage.
func (e *Engine) RecordEntry(ctx context.Context, now time.Time) error {
	todayKey := e.dayKey(now)

	state, err := e.state.GetStreakState(ctx)
	if err != nil {
		return errors.Wrap(err, "load streak state")
	}
	if state == nil {
		state = &store.StreakState{}
	}
	if state.LastDate == todayKey {
		return nil
	}

	if state.LastDate == e.dayKey(now.AddDate(0, 0, -1)) {
		state.Count++
	} else {
		state.Count = 1
		state.StartDate = todayKey
	}
	state.LastDate = todayKey
	state.TotalDays++

	return errors.Wrap(e.state.SetStreakState(ctx, state), "persist streak state")
}

// QueryStreak reports the effective streak at now. When no cache exists the
// engine rebuilds from the log store and persists the result (the one read
// path with a write side effect). A stored LastDate older than yesterday
// reads as count 0 with a cleared start date.
func (e *Engine) QueryStreak(ctx context.Context, now time.Time) (*Status, error) {
	state, err := e.state.GetStreakState(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load streak state")
	}
	if state == nil {
		rebuilt, status, complete := e.Rebuild(ctx, now)
		if complete {
			if err := e.state.SetStreakState(ctx, rebuilt); err != nil {
				// Best-effort cache population; the answer is still valid.
				e.logger.Warn("failed to persist rebuilt streak state", "error", err)
			}
		}
		return status, nil
	}

	todayKey := e.dayKey(now)
	yesterdayKey := e.dayKey(now.AddDate(0, 0, -1))
	status := &Status{TotalDays: state.TotalDays}
	switch state.LastDate {
	case todayKey:
		status.Count = state.Count
		status.StartDate = state.StartDate
		status.HasTodayRecord = true
	case yesterdayKey:
		status.Count = state.Count
		status.StartDate = state.StartDate
	default:
		// Lapsed. Detected here at read time; the stored fields stay
		// untouched until the next RecordEntry resets the run.
	}
	return status, nil
}

// Rebuild reconstructs streak state from the log store by scanning backward
// from now in fixed-size windows, accumulating recorded day keys until a
// calendar gap is found inside the scanned range. A fetch failure stops the
// scan and yields the best partial answer rather than an error; partial
// results are reported as incomplete so callers skip cache population.
func (e *Engine) Rebuild(ctx context.Context, now time.Time) (*store.StreakState, *Status, bool) {
	local := now.In(e.loc)
	todayKey := e.dayKey(now)
	yesterday := local.AddDate(0, 0, -1)

	recorded := map[string]bool{}
	complete := true

	// Exclusive scan end just past "now"; windows extend backward from it.
	windowEnd := e.startOfDay(local).AddDate(0, 0, 1)
	scanStart := windowEnd

	for w := 0; w < e.maxWindows; w++ {
		winStart := windowEnd.AddDate(0, 0, -e.windowDays)
		entries, err := e.logs.QueryByDateRange(ctx, winStart, windowEnd)
		if err != nil {
			e.logger.Warn("streak rebuild window fetch failed, returning partial result",
				"window", w, "start", winStart.Format(logstore.DateKey), "error", err)
			complete = false
			break
		}
		for _, entry := range entries {
			recorded[entry.DayKey(e.loc)] = true
		}
		scanStart = winStart

		// Conclusive once the first missing day falls inside the scanned
		// range; otherwise every scanned day was recorded and the run may
		// extend further back.
		if _, firstMissing := e.walkBack(recorded, local); !firstMissing.Before(scanStart) {
			break
		}
		windowEnd = winStart
	}

	cursor := local
	hasToday := recorded[todayKey]
	if !hasToday {
		cursor = yesterday
	}
	count, _ := e.walkBack(recorded, cursor)

	state := &store.StreakState{
		Count:     count,
		TotalDays: len(recorded),
	}
	if count > 0 {
		state.StartDate = e.dayKey(cursor.AddDate(0, 0, -(count - 1)))
	}
	switch {
	case hasToday:
		state.LastDate = todayKey
	case recorded[e.dayKey(yesterday)]:
		state.LastDate = e.dayKey(yesterday)
	default:
		state.LastDate = latestKey(recorded)
	}

	status := &Status{
		Count:          count,
		StartDate:      state.StartDate,
		TotalDays:      state.TotalDays,
		HasTodayRecord: hasToday,
	}
	return state, status, complete
}

// walkBack counts consecutive recorded days ending at from (inclusive) and
// returns the first missing day it stopped on.
func (e *Engine) walkBack(recorded map[string]bool, from time.Time) (int, time.Time) {
	day := from
	if !recorded[e.dayKey(day)] {
		// Today unrecorded: the display streak counts back from yesterday.
		day = day.AddDate(0, 0, -1)
	}
	count := 0
	for recorded[e.dayKey(day)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count, day
}

func (e *Engine) dayKey(t time.Time) string {
	return t.In(e.loc).Format(logstore.DateKey)
}

func (e *Engine) startOfDay(t time.Time) time.Time {
	local := t.In(e.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.loc)
}

func latestKey(recorded map[string]bool) string {
	latest := ""
	for key := range recorded {
		if key > latest {
			latest = key
		}
	}
	return latest
}
