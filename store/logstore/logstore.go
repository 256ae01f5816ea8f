// Package logstore provides access to the external diary log database.
// The core consumes a fully materialized, creation-time-ordered view; the
// adapter owns pagination and the vendor wire format.
package logstore

import (
	"context"
	"time"
)

// Fixed vocabularies for entry metadata. The AI layer is instructed to pick
// from these sets; the aggregation paths must not assume membership is
// exclusive (その他 co-occurring with a specific tag is an AI-layer contract
// violation, not a core error).
var (
	Tags  = []string{"研究", "筋トレ", "勉強", "趣味", "恋愛", "食事", "その他"}
	Moods = []string{"🤩", "😊", "😐", "😰", "😡"}
)

// DateKey is the canonical calendar-day key format.
const DateKey = "2006-01-02"

// Entry is one diary record. Body is empty unless fetched explicitly;
// most aggregation paths operate on metadata only.
type Entry struct {
	ID        string
	CreatedAt time.Time
	Title     string
	Mood      string
	Tags      []string
	Body      string
}

// DayKey returns the entry's calendar-day key in the given location.
func (e *Entry) DayKey(loc *time.Location) string {
	return e.CreatedAt.In(loc).Format(DateKey)
}

// EntryRef is a lightweight id/date pair used for uniform-random sampling.
type EntryRef struct {
	ID   string
	Date time.Time
}

// CreateEntry carries the fields for a new diary record.
type CreateEntry struct {
	Title    string
	Mood     string
	Tags     []string
	Body     string
	ImageURL string
}

// Store is the external log database contract consumed by the core.
type Store interface {
	// QueryByDateRange returns all entries created in [start, end), following
	// pagination cursors until exhausted and re-sorting ascending by creation
	// time. The store's per-page ordering must not be trusted across pages.
	QueryByDateRange(ctx context.Context, start, end time.Time) ([]*Entry, error)

	// QueryByExactDate returns entries created within the single calendar day
	// containing day, in day's location.
	QueryByExactDate(ctx context.Context, day time.Time) ([]*Entry, error)

	// FetchBody retrieves the full body text for one entry. This is a
	// separate, more expensive call; use only when full text is required.
	FetchBody(ctx context.Context, id string) (string, error)

	// QueryAllIDsAndDates lists every entry's id and creation date so callers
	// can sample uniformly over entries rather than over days.
	QueryAllIDsAndDates(ctx context.Context) ([]EntryRef, error)

	// Create appends a new diary record.
	Create(ctx context.Context, create *CreateEntry) error
}

// ValidMood reports whether mood is in the fixed vocabulary.
func ValidMood(mood string) bool {
	for _, m := range Moods {
		if m == mood {
			return true
		}
	}
	return false
}

// ValidTag reports whether tag is in the fixed vocabulary.
func ValidTag(tag string) bool {
	for _, t := range Tags {
		if t == tag {
			return true
		}
	}
	return false
}
