// Package store persists the bot's small cross-invocation state: streak
// cache fields, the rolling weekly-review history, and the last generated
// review texts. Everything is stored as string key-value pairs behind a
// Driver; this package owns the typed shapes and their serialization.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Storage keys. Stable; changing one orphans the previous state.
const (
	keyStreakState       = "streak_state"
	keyReviewHistory     = "weekly_review_history"
	keyLastWeeklyReview  = "last_weekly_review"
	keyLastMonthlyReview = "last_monthly_review"
)

// ReviewHistoryCap bounds the rolling weekly-review buffer.
const ReviewHistoryCap = 5

// StoredReviewLimit bounds review text size before storage, in runes.
const StoredReviewLimit = 1000

// StreakState is the persisted streak cache, one instance per user.
// Staleness is detected at read time: a LastDate older than yesterday means
// the effective streak is 0 even though Count is untouched.
type StreakState struct {
	Count     int    `json:"count"`
	LastDate  string `json:"lastDate"`
	StartDate string `json:"startDate"`
	TotalDays int    `json:"totalDays"`
}

// ReviewHistoryEntry is one element of the rolling weekly-review buffer.
type ReviewHistoryEntry struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

// Store provides typed access to the key-value state.
type Store struct {
	driver Driver
}

// New creates a Store over the given driver.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// GetStreakState returns the cached streak state, or nil when none exists.
func (s *Store) GetStreakState(ctx context.Context) (*StreakState, error) {
	raw, ok, err := s.driver.Get(ctx, keyStreakState)
	if err != nil {
		return nil, errors.Wrap(err, "get streak state")
	}
	if !ok {
		return nil, nil
	}
	state := &StreakState{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		// Corrupt cache reads as absent; the caller rebuilds.
		return nil, nil
	}
	return state, nil
}

// SetStreakState persists all streak fields as one logical write.
func (s *Store) SetStreakState(ctx context.Context, state *StreakState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "marshal streak state")
	}
	return errors.Wrap(s.driver.Set(ctx, keyStreakState, string(raw)), "set streak state")
}

// GetReviewHistory returns the rolling weekly-review buffer, oldest first.
func (s *Store) GetReviewHistory(ctx context.Context) ([]ReviewHistoryEntry, error) {
	raw, ok, err := s.driver.Get(ctx, keyReviewHistory)
	if err != nil {
		return nil, errors.Wrap(err, "get review history")
	}
	if !ok {
		return nil, nil
	}
	var history []ReviewHistoryEntry
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, nil
	}
	return history, nil
}

// SetReviewHistory persists the rolling weekly-review buffer.
func (s *Store) SetReviewHistory(ctx context.Context, history []ReviewHistoryEntry) error {
	raw, err := json.Marshal(history)
	if err != nil {
		return errors.Wrap(err, "marshal review history")
	}
	return errors.Wrap(s.driver.Set(ctx, keyReviewHistory, string(raw)), "set review history")
}

// GetLastWeeklyReview returns the most recent weekly review text, or "".
func (s *Store) GetLastWeeklyReview(ctx context.Context) (string, error) {
	raw, _, err := s.driver.Get(ctx, keyLastWeeklyReview)
	return raw, errors.Wrap(err, "get last weekly review")
}

// SetLastWeeklyReview persists the weekly review text, bounded to
// StoredReviewLimit runes.
func (s *Store) SetLastWeeklyReview(ctx context.Context, text string) error {
	return errors.Wrap(s.driver.Set(ctx, keyLastWeeklyReview, boundRunes(text, StoredReviewLimit)), "set last weekly review")
}

// GetLastMonthlyReview returns the most recent monthly review text, or "".
func (s *Store) GetLastMonthlyReview(ctx context.Context) (string, error) {
	raw, _, err := s.driver.Get(ctx, keyLastMonthlyReview)
	return raw, errors.Wrap(err, "get last monthly review")
}

// SetLastMonthlyReview persists the monthly review text, bounded to
// StoredReviewLimit runes.
func (s *Store) SetLastMonthlyReview(ctx context.Context, text string) error {
	return errors.Wrap(s.driver.Set(ctx, keyLastMonthlyReview, boundRunes(text, StoredReviewLimit)), "set last monthly review")
}

func boundRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
