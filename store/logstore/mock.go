package logstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu      sync.Mutex
	entries []*Entry
	bodies  map[string]string
	nextID  int

	// QueryErr, when set, is returned by every query method. Use it to
	// exercise partial-failure paths.
	QueryErr error
	// FailAfterQueries makes queries succeed this many times and then fail.
	// Negative means never fail.
	FailAfterQueries int

	queries int
}

// NewMockStore creates an empty in-memory log store.
func NewMockStore() *MockStore {
	return &MockStore{
		bodies:           map[string]string{},
		FailAfterQueries: -1,
	}
}

// Add inserts an entry directly, assigning an id when absent.
func (m *MockStore) Add(entry *Entry) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		m.nextID++
		entry.ID = fmt.Sprintf("entry-%d", m.nextID)
	}
	m.entries = append(m.entries, entry)
	if entry.Body != "" {
		m.bodies[entry.ID] = entry.Body
	}
	return entry
}

// AddOnDay inserts a metadata-only entry created at noon on the given day key.
func (m *MockStore) AddOnDay(dayKey, title, mood string, tags ...string) *Entry {
	day, err := time.Parse(DateKey, dayKey)
	if err != nil {
		panic(err)
	}
	return m.Add(&Entry{
		CreatedAt: day.Add(12 * time.Hour),
		Title:     title,
		Mood:      mood,
		Tags:      tags,
	})
}

func (m *MockStore) checkFailure() error {
	if m.QueryErr != nil {
		return m.QueryErr
	}
	m.queries++
	if m.FailAfterQueries >= 0 && m.queries > m.FailAfterQueries {
		return fmt.Errorf("mock query failure after %d queries", m.FailAfterQueries)
	}
	return nil
}

// QueryCount reports how many queries have been issued.
func (m *MockStore) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

func (m *MockStore) QueryByDateRange(_ context.Context, start, end time.Time) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFailure(); err != nil {
		return nil, err
	}
	var out []*Entry
	for _, e := range m.entries {
		if !e.CreatedAt.Before(start) && e.CreatedAt.Before(end) {
			copied := *e
			copied.Body = ""
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MockStore) QueryByExactDate(ctx context.Context, day time.Time) ([]*Entry, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return m.QueryByDateRange(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

func (m *MockStore) FetchBody(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFailure(); err != nil {
		return "", err
	}
	return m.bodies[id], nil
}

func (m *MockStore) QueryAllIDsAndDates(_ context.Context) ([]EntryRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFailure(); err != nil {
		return nil, err
	}
	refs := make([]EntryRef, 0, len(m.entries))
	for _, e := range m.entries {
		refs = append(refs, EntryRef{ID: e.ID, Date: e.CreatedAt})
	}
	return refs, nil
}

func (m *MockStore) Create(_ context.Context, create *CreateEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFailure(); err != nil {
		return err
	}
	m.nextID++
	id := fmt.Sprintf("entry-%d", m.nextID)
	m.entries = append(m.entries, &Entry{
		ID:        id,
		CreatedAt: time.Now(),
		Title:     create.Title,
		Mood:      create.Mood,
		Tags:      create.Tags,
	})
	m.bodies[id] = create.Body
	return nil
}
