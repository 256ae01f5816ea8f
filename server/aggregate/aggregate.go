// Package aggregate turns diary entries into the statistical summaries
// consumed by review prompts and user-facing commands. Aggregation is pure
// and recomputed per request; nothing here is persisted.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ponto2/line-diary/store/logstore"
)

// WeekdayLabels maps time.Weekday to its display label, Sunday first.
var WeekdayLabels = []string{"日", "月", "火", "水", "木", "金", "土"}

// Count is one ranked bucket of a distribution.
type Count struct {
	Key string
	N   int
}

// Stats is the derived statistical summary of a set of entries.
// Distributions are ranked by descending count; equal counts retain the
// encounter order from the input so callers can truncate to a top-N without
// re-sorting.
type Stats struct {
	EntryCount int
	Moods      []Count
	Tags       []Count
	Weekdays   []Count
	UniqueDays int
}

// Aggregate computes the full summary for entries. Empty input yields empty
// (not nil-panicking) aggregates; there is no error path.
func Aggregate(entries []*logstore.Entry, loc *time.Location) *Stats {
	if loc == nil {
		loc = time.UTC
	}

	moods := newCounter()
	tags := newCounter()
	weekdays := newCounter()
	days := map[string]struct{}{}

	for _, e := range entries {
		if e.Mood != "" {
			moods.add(e.Mood)
		}
		for _, tag := range e.Tags {
			tags.add(tag)
		}
		local := e.CreatedAt.In(loc)
		weekdays.add(WeekdayLabels[int(local.Weekday())])
		days[local.Format("2006-01-02")] = struct{}{}
	}

	return &Stats{
		EntryCount: len(entries),
		Moods:      moods.ranked(),
		Tags:       tags.ranked(),
		Weekdays:   weekdays.ranked(),
		UniqueDays: len(days),
	}
}

// TopN returns at most n buckets of a ranked distribution. Truncation is a
// presentation concern; the engine always exposes the full ranking.
func TopN(counts []Count, n int) []Count {
	if len(counts) <= n {
		return counts
	}
	return counts[:n]
}

// Render produces the fixed text block embedded into review prompts.
func (s *Stats) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "記録数: %d件 (記録日数: %d日)\n", s.EntryCount, s.UniqueDays)
	if len(s.Moods) > 0 {
		b.WriteString("気分の分布: ")
		b.WriteString(renderCounts(s.Moods))
		b.WriteString("\n")
	}
	if len(s.Tags) > 0 {
		b.WriteString("タグの分布: ")
		b.WriteString(renderCounts(TopN(s.Tags, 5)))
		b.WriteString("\n")
	}
	if len(s.Weekdays) > 0 {
		b.WriteString("曜日の分布: ")
		b.WriteString(renderCounts(s.Weekdays))
		b.WriteString("\n")
	}
	return b.String()
}

func renderCounts(counts []Count) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s %d件", c.Key, c.N))
	}
	return strings.Join(parts, " / ")
}

// counter preserves first-encounter order for the equal-count tiebreak.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: map[string]int{}}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) ranked() []Count {
	out := make([]Count, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, Count{Key: key, N: c.counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].N > out[j].N })
	return out
}
