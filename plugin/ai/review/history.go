package review

import (
	"time"

	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/logstore"
)

// AppendToHistory appends entry to the rolling weekly-review buffer and
// evicts the oldest elements beyond store.ReviewHistoryCap. The returned
// slice is the new buffer for the caller to persist; the input is not
// mutated.
func AppendToHistory(history []store.ReviewHistoryEntry, entry store.ReviewHistoryEntry) []store.ReviewHistoryEntry {
	out := make([]store.ReviewHistoryEntry, 0, len(history)+1)
	out = append(out, history...)
	out = append(out, entry)
	if len(out) > store.ReviewHistoryCap {
		out = out[len(out)-store.ReviewHistoryCap:]
	}
	return out
}

// FilterHistoryByMonth returns the history entries dated within
// [monthStart, monthEnd], inclusive. Best-effort heuristic: a weekly review
// dated near month-start may describe days from the prior month; attribution
// by review date is a documented limitation, not exact.
func FilterHistoryByMonth(history []store.ReviewHistoryEntry, monthStart, monthEnd time.Time) []store.ReviewHistoryEntry {
	startKey := monthStart.Format(logstore.DateKey)
	endKey := monthEnd.Format(logstore.DateKey)
	var out []store.ReviewHistoryEntry
	for _, h := range history {
		if h.Date >= startKey && h.Date <= endKey {
			out = append(out, h)
		}
	}
	return out
}

// SupplementalRange computes the date span whose entries need full-body
// supplementation for a monthly review: the days strictly after the latest
// weekly review's date through month end, which no weekly summary covers.
// ok is false when the history is empty (supplemental set is empty then).
func SupplementalRange(history []store.ReviewHistoryEntry, monthEnd time.Time) (start, end time.Time, ok bool) {
	latest := ""
	for _, h := range history {
		if h.Date > latest {
			latest = h.Date
		}
	}
	if latest == "" {
		return time.Time{}, time.Time{}, false
	}
	latestDay, err := time.ParseInLocation(logstore.DateKey, latest, monthEnd.Location())
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start = latestDay.AddDate(0, 0, 1)
	if start.After(monthEnd) {
		return time.Time{}, time.Time{}, false
	}
	return start, monthEnd, true
}

// SelectSupplemental filters entries to the supplemental date span for the
// month. Returned entries still need bodies fetched by the caller.
func SelectSupplemental(history []store.ReviewHistoryEntry, entries []*logstore.Entry, monthEnd time.Time, loc *time.Location) []*logstore.Entry {
	start, end, ok := SupplementalRange(history, monthEnd)
	if !ok {
		return nil
	}
	startKey := start.Format(logstore.DateKey)
	endKey := end.Format(logstore.DateKey)
	var out []*logstore.Entry
	for _, entry := range entries {
		key := entry.DayKey(loc)
		if key >= startKey && key <= endKey {
			out = append(out, entry)
		}
	}
	return out
}
