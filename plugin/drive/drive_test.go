package drive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientUpload(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files", r.URL.Path)
		require.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write([]byte(`{"id": "file-abc", "name": "Photo_20250624_210000_x.jpg"}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{FolderID: "folder-1", Token: "drive-token", BaseURL: srv.URL})
	takenAt := time.Date(2025, 6, 24, 21, 0, 0, 0, time.UTC)

	file, err := c.Upload(context.Background(), []byte("jpeg-bytes"), "image/jpeg", takenAt)
	require.NoError(t, err)

	assert.Equal(t, "Bearer drive-token", gotAuth)
	assert.Contains(t, gotContentType, "multipart/related")
	assert.Equal(t, "file-abc", file.ID)
	assert.Equal(t, "https://drive.google.com/uc?export=view&id=file-abc", file.ViewURL)

	body := string(gotBody)
	assert.Contains(t, body, `"parents":["folder-1"]`)
	assert.Contains(t, body, "Photo_20250624_210000_")
	assert.Contains(t, body, "jpeg-bytes")
}

func TestClientUpload_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "storage quota exceeded"}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{FolderID: "folder-1", Token: "t", BaseURL: srv.URL})
	_, err := c.Upload(context.Background(), []byte("x"), "image/jpeg", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestMockUploader(t *testing.T) {
	m := &MockUploader{}
	f, err := m.Upload(context.Background(), []byte("x"), "image/png", time.Now())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.ViewURL, "https://"))
	assert.Len(t, m.Files, 1)
}
