// Package drive stores uploaded photos in Google Drive and hands back a
// browser-viewable link. The diary records only the link; images are never
// embedded in the document store.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
)

// File describes one stored photo.
type File struct {
	ID      string
	Name    string
	ViewURL string
}

// Uploader is the image storage contract consumed by the entry pipeline.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string, takenAt time.Time) (*File, error)
}

// Config holds the Drive uploader configuration.
type Config struct {
	FolderID string
	Token    string
	BaseURL  string
	Timeout  time.Duration
}

// Client uploads via the Drive multipart upload endpoint.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a Drive uploader.
func NewClient(cfg *Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/upload/drive/v3"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Upload stores the image privately in the configured folder and returns a
// viewer link that renders in a plain browser.
func (c *Client) Upload(ctx context.Context, data []byte, contentType string, takenAt time.Time) (*File, error) {
	name := fmt.Sprintf("Photo_%s_%s.jpg", takenAt.Format("20060102_150405"), shortuuid.New()[:8])

	meta := map[string]any{
		"name":    name,
		"parents": []string{c.config.FolderID},
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, errors.Wrap(err, "marshal file metadata")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	metaPart, err := writer.CreatePart(map[string][]string{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, errors.Wrap(err, "create metadata part")
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return nil, errors.Wrap(err, "write metadata part")
	}
	dataPart, err := writer.CreatePart(map[string][]string{"Content-Type": {contentType}})
	if err != nil {
		return nil, errors.Wrap(err, "create media part")
	}
	if _, err := dataPart.Write(data); err != nil {
		return nil, errors.Wrap(err, "write media part")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart body")
	}

	url := c.config.BaseURL + "/files?uploadType=multipart&fields=id,name"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+writer.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "upload to drive")
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read upload response")
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(respData)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, errors.Errorf("drive API error (%d): %s", resp.StatusCode, snippet)
	}

	var uploaded struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(respData, &uploaded); err != nil {
		return nil, errors.Wrap(err, "unmarshal upload response")
	}

	return &File{
		ID:   uploaded.ID,
		Name: uploaded.Name,
		// uc?export=view renders directly in the browser instead of
		// bouncing through the Drive app.
		ViewURL: "https://drive.google.com/uc?export=view&id=" + uploaded.ID,
	}, nil
}

// MockUploader is an in-memory Uploader for tests.
type MockUploader struct {
	Files []*File
	Err   error
}

func (m *MockUploader) Upload(_ context.Context, _ []byte, _ string, takenAt time.Time) (*File, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	f := &File{
		ID:      fmt.Sprintf("file-%d", len(m.Files)+1),
		Name:    "Photo_" + takenAt.Format("20060102_150405") + ".jpg",
		ViewURL: fmt.Sprintf("https://drive.example.com/view/%d", len(m.Files)+1),
	}
	m.Files = append(m.Files, f)
	return f, nil
}
