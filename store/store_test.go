package store

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreakStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryDriver())

	got, err := s.GetStreakState(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "fresh store has no streak state")

	state := &StreakState{Count: 7, LastDate: "2025-06-24", StartDate: "2025-06-18", TotalDays: 42}
	require.NoError(t, s.SetStreakState(ctx, state))

	got, err = s.GetStreakState(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestStreakStateCorruptValueReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	driver := NewMemoryDriver()
	require.NoError(t, driver.Set(ctx, keyStreakState, "{not json"))

	s := New(driver)
	got, err := s.GetStreakState(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStreakStateDriverErrorPropagates(t *testing.T) {
	driver := NewMemoryDriver()
	driver.GetErr = errors.New("connection refused")

	s := New(driver)
	_, err := s.GetStreakState(context.Background())
	assert.Error(t, err)
}

func TestReviewHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemoryDriver())

	got, err := s.GetReviewHistory(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	history := []ReviewHistoryEntry{
		{Date: "2025-06-15", Text: "中旬の振り返り"},
		{Date: "2025-06-22", Text: "下旬の振り返り"},
	}
	require.NoError(t, s.SetReviewHistory(ctx, history))

	got, err = s.GetReviewHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, history, got)
}

func TestLastReviewTextsBounded(t *testing.T) {
	ctx := context.Background()
	driver := NewMemoryDriver()
	s := New(driver)

	long := strings.Repeat("あ", StoredReviewLimit+500)
	require.NoError(t, s.SetLastWeeklyReview(ctx, long))
	require.NoError(t, s.SetLastMonthlyReview(ctx, long))

	weekly, err := s.GetLastWeeklyReview(ctx)
	require.NoError(t, err)
	assert.Equal(t, StoredReviewLimit, utf8.RuneCountInString(weekly))

	monthly, err := s.GetLastMonthlyReview(ctx)
	require.NoError(t, err)
	assert.Equal(t, StoredReviewLimit, utf8.RuneCountInString(monthly))
}

func TestLastReviewAbsentReadsEmpty(t *testing.T) {
	s := New(NewMemoryDriver())
	text, err := s.GetLastWeeklyReview(context.Background())
	require.NoError(t, err)
	assert.Empty(t, text)
}
