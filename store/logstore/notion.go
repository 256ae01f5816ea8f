package logstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const (
	notionAPIBase    = "https://api.notion.com/v1"
	notionAPIVersion = "2022-06-28"

	// Notion caps rich text blocks at 2000 characters.
	notionBodyLimit = 2000
)

// NotionConfig holds the Notion adapter configuration.
type NotionConfig struct {
	Token      string
	DatabaseID string
	BaseURL    string
	Timeout    time.Duration
	Location   *time.Location
}

// NotionStore is the production Store backed by a Notion database.
// One page per entry: Name (title), Mood (select), Tags (multi-select),
// body text as paragraph children blocks.
type NotionStore struct {
	config     *NotionConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotionStore creates a Notion-backed log store.
func NewNotionStore(cfg *NotionConfig, logger *slog.Logger) *NotionStore {
	if cfg.BaseURL == "" {
		cfg.BaseURL = notionAPIBase
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotionStore{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type notionSort struct {
	Timestamp string `json:"timestamp"`
	Direction string `json:"direction"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

type notionPage struct {
	ID          string           `json:"id"`
	CreatedTime time.Time        `json:"created_time"`
	Properties  notionProperties `json:"properties"`
}

type notionProperties struct {
	Name struct {
		Title []notionRichText `json:"title"`
	} `json:"Name"`
	Mood struct {
		Select *notionSelect `json:"select"`
	} `json:"Mood"`
	Tags struct {
		MultiSelect []notionSelect `json:"multi_select"`
	} `json:"Tags"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
	Text      struct {
		Content string `json:"content"`
	} `json:"text"`
}

type notionSelect struct {
	Name string `json:"name"`
}

// QueryByDateRange returns all entries created in [start, end), following
// pagination cursors until exhausted.
func (s *NotionStore) QueryByDateRange(ctx context.Context, start, end time.Time) ([]*Entry, error) {
	filter := map[string]any{
		"and": []any{
			map[string]any{
				"timestamp":    "created_time",
				"created_time": map[string]any{"on_or_after": start.Format(time.RFC3339)},
			},
			map[string]any{
				"timestamp":    "created_time",
				"created_time": map[string]any{"before": end.Format(time.RFC3339)},
			},
		},
	}

	var entries []*Entry
	cursor := ""
	for {
		resp, err := s.queryPage(ctx, filter, cursor)
		if err != nil {
			return nil, err
		}
		for i := range resp.Results {
			entries = append(entries, pageToEntry(&resp.Results[i]))
		}
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	// Per-page ordering is not trusted across cursor boundaries.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// QueryByExactDate returns entries created within the calendar day of day.
func (s *NotionStore) QueryByExactDate(ctx context.Context, day time.Time) ([]*Entry, error) {
	d := day.In(s.config.Location)
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.config.Location)
	return s.QueryByDateRange(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

// QueryAllIDsAndDates lists every entry's id and creation date.
func (s *NotionStore) QueryAllIDsAndDates(ctx context.Context) ([]EntryRef, error) {
	var refs []EntryRef
	cursor := ""
	for {
		resp, err := s.queryPage(ctx, nil, cursor)
		if err != nil {
			return nil, err
		}
		for _, page := range resp.Results {
			refs = append(refs, EntryRef{ID: page.ID, Date: page.CreatedTime})
		}
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return refs, nil
}

// FetchBody retrieves the entry's paragraph blocks joined as plain text.
func (s *NotionStore) FetchBody(ctx context.Context, id string) (string, error) {
	var body bytes.Buffer
	cursor := ""
	for {
		url := fmt.Sprintf("%s/blocks/%s/children?page_size=100", s.config.BaseURL, id)
		if cursor != "" {
			url += "&start_cursor=" + cursor
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", errors.Wrap(err, "build blocks request")
		}
		s.setHeaders(req)

		var resp struct {
			Results []struct {
				Type      string `json:"type"`
				Paragraph struct {
					RichText []notionRichText `json:"rich_text"`
				} `json:"paragraph"`
			} `json:"results"`
			HasMore    bool   `json:"has_more"`
			NextCursor string `json:"next_cursor"`
		}
		if err := s.do(req, &resp); err != nil {
			return "", errors.Wrapf(err, "fetch body for %s", id)
		}
		for _, block := range resp.Results {
			if block.Type != "paragraph" {
				continue
			}
			for _, rt := range block.Paragraph.RichText {
				body.WriteString(rt.PlainText)
			}
			body.WriteString("\n")
		}
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return body.String(), nil
}

// Create appends a new page to the diary database. The body is capped at the
// Notion rich text limit; an image is recorded as a link block, never embedded.
func (s *NotionStore) Create(ctx context.Context, create *CreateEntry) error {
	body := create.Body
	if len(body) > notionBodyLimit {
		body = truncateBytesSafe(body, notionBodyLimit)
	}

	children := []any{
		map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": []any{
					map[string]any{"type": "text", "text": map[string]any{"content": body}},
				},
			},
		},
	}
	if create.ImageURL != "" {
		children = append(children, map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": []any{
					map[string]any{"type": "text", "text": map[string]any{"content": "🔗 "}},
					map[string]any{
						"type": "text",
						"text": map[string]any{
							"content": "写真を開く (Google Drive)",
							"link":    map[string]any{"url": create.ImageURL},
						},
					},
				},
			},
		})
	}

	tags := make([]any, 0, len(create.Tags))
	for _, tag := range create.Tags {
		tags = append(tags, map[string]any{"name": tag})
	}
	title := create.Title
	if title == "" {
		title = "無題"
	}
	mood := create.Mood
	if mood == "" {
		mood = "😐"
	}

	payload := map[string]any{
		"parent": map[string]any{"database_id": s.config.DatabaseID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []any{map[string]any{"text": map[string]any{"content": title}}},
			},
			"Mood": map[string]any{"select": map[string]any{"name": mood}},
			"Tags": map[string]any{"multi_select": tags},
		},
		"children": children,
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal page payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/pages", bytes.NewReader(buf))
	if err != nil {
		return errors.Wrap(err, "build create request")
	}
	s.setHeaders(req)
	return s.do(req, nil)
}

func (s *NotionStore) queryPage(ctx context.Context, filter any, cursor string) (*notionQueryResponse, error) {
	payload := map[string]any{
		"sorts": []notionSort{{Timestamp: "created_time", Direction: "ascending"}},
	}
	if filter != nil {
		payload["filter"] = filter
	}
	if cursor != "" {
		payload["start_cursor"] = cursor
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal query payload")
	}

	url := fmt.Sprintf("%s/databases/%s/query", s.config.BaseURL, s.config.DatabaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return nil, errors.Wrap(err, "build query request")
	}
	s.setHeaders(req)

	resp := &notionQueryResponse{}
	if err := s.do(req, resp); err != nil {
		return nil, errors.Wrap(err, "query database")
	}
	return resp, nil
}

func (s *NotionStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionAPIVersion)
}

func (s *NotionStore) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return errors.Errorf("notion API error (%d): %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func pageToEntry(page *notionPage) *Entry {
	entry := &Entry{
		ID:        page.ID,
		CreatedAt: page.CreatedTime,
		Title:     "無題",
		Mood:      "不明",
	}
	if len(page.Properties.Name.Title) > 0 {
		entry.Title = page.Properties.Name.Title[0].PlainText
	}
	if page.Properties.Mood.Select != nil {
		entry.Mood = page.Properties.Mood.Select.Name
	}
	for _, tag := range page.Properties.Tags.MultiSelect {
		entry.Tags = append(entry.Tags, tag.Name)
	}
	return entry
}

// truncateBytesSafe cuts s to at most limit bytes without splitting a rune.
func truncateBytesSafe(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if i > limit {
			break
		}
		n = i
	}
	return s[:n]
}
