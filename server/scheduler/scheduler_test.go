package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyAt(t *testing.T) {
	next := DailyAt(21, 0, time.UTC)

	t.Run("before slot fires same day", func(t *testing.T) {
		now := time.Date(2025, 6, 24, 9, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 24, 21, 0, 0, 0, time.UTC), next(now))
	})

	t.Run("after slot fires tomorrow", func(t *testing.T) {
		now := time.Date(2025, 6, 24, 21, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 25, 21, 0, 0, 0, time.UTC), next(now))
	})
}

func TestWeeklyOn(t *testing.T) {
	next := WeeklyOn(time.Sunday, 20, time.UTC)

	t.Run("midweek fires coming sunday", func(t *testing.T) {
		// 2025-06-24 is a Tuesday.
		now := time.Date(2025, 6, 24, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 29, 20, 0, 0, 0, time.UTC), next(now))
	})

	t.Run("sunday after slot fires next week", func(t *testing.T) {
		now := time.Date(2025, 6, 29, 20, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 7, 6, 20, 0, 0, 0, time.UTC), next(now))
	})

	t.Run("sunday before slot fires today", func(t *testing.T) {
		now := time.Date(2025, 6, 29, 8, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 29, 20, 0, 0, 0, time.UTC), next(now))
	})
}

func TestMonthEndAt(t *testing.T) {
	next := MonthEndAt(20, time.UTC)

	t.Run("mid month fires on last day", func(t *testing.T) {
		now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 6, 30, 20, 0, 0, 0, time.UTC), next(now))
	})

	t.Run("february leap year", func(t *testing.T) {
		now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC), next(now))
	})

	t.Run("past month end rolls to next month", func(t *testing.T) {
		now := time.Date(2025, 6, 30, 20, 0, 1, 0, time.UTC)
		assert.Equal(t, time.Date(2025, 7, 31, 20, 0, 0, 0, time.UTC), next(now))
	})

	t.Run("december rolls into january", func(t *testing.T) {
		now := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 1, 31, 20, 0, 0, 0, time.UTC), next(now))
	})
}

func TestRun(t *testing.T) {
	s := New(nil)
	ran := 0
	s.Register(Job{
		Name: "weekly-review",
		Next: DailyAt(20, 0, time.UTC),
		Fn: func(context.Context) error {
			ran++
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "weekly-review"))
	assert.Equal(t, 1, ran)

	err := s.Run(context.Background(), "no-such-job")
	var unknown *UnknownJobError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no-such-job", unknown.Name)
}

func TestRunRecordsFailure(t *testing.T) {
	s := New(nil)
	s.Register(Job{
		Name: "flaky",
		Next: DailyAt(20, 0, time.UTC),
		Fn: func(context.Context) error {
			return errors.New("push failed")
		},
	})

	require.NoError(t, s.Run(context.Background(), "flaky"))

	js := s.jobs["flaky"]
	js.mu.Lock()
	defer js.mu.Unlock()
	assert.Equal(t, StatusReject, js.status)
	assert.Equal(t, "push failed", js.message)
	assert.NotNil(t, js.lastRunAt)
}
