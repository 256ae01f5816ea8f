package diary

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponto2/line-diary/internal/profile"
	"github.com/ponto2/line-diary/plugin/ai"
	"github.com/ponto2/line-diary/plugin/drive"
	"github.com/ponto2/line-diary/server/streak"
	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/logstore"
)

// testNow is a Tuesday evening; most tests anchor the clock here.
var testNow = time.Date(2025, 6, 24, 21, 0, 0, 0, time.UTC)

type fakeAI struct {
	analysis    *ai.Analysis
	analysisErr error
	reviewText  string
	reviewErr   error

	prompts    []string
	imageCalls int
}

func (f *fakeAI) AnalyzeEntry(context.Context, string) (*ai.Analysis, error) {
	return f.analysis, f.analysisErr
}

func (f *fakeAI) AnalyzeImageEntry(context.Context, string, string) (*ai.Analysis, error) {
	f.imageCalls++
	return f.analysis, f.analysisErr
}

func (f *fakeAI) GenerateReview(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reviewText, f.reviewErr
}

type fakeLine struct {
	pushes      []string
	replies     []string
	replyTokens []string

	content     []byte
	contentType string
	contentErr  error
	pushErr     error
	replyErr    error
}

func (f *fakeLine) Push(_ context.Context, _, text string) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes = append(f.pushes, text)
	return nil
}

func (f *fakeLine) Reply(_ context.Context, replyToken, text string) error {
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replyTokens = append(f.replyTokens, replyToken)
	f.replies = append(f.replies, text)
	return nil
}

func (f *fakeLine) GetMessageContent(context.Context, string) ([]byte, string, error) {
	if f.contentErr != nil {
		return nil, "", f.contentErr
	}
	return f.content, f.contentType, nil
}

// recordingLogs captures create requests so tests can inspect the exact
// payload handed to the log store.
type recordingLogs struct {
	*logstore.MockStore
	created    []*logstore.CreateEntry
	createErrs []error
}

func (r *recordingLogs) Create(ctx context.Context, create *logstore.CreateEntry) error {
	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}
	r.created = append(r.created, create)
	return r.MockStore.Create(ctx, create)
}

type testEnv struct {
	svc      *Service
	logs     *recordingLogs
	ai       *fakeAI
	line     *fakeLine
	state    *store.Store
	uploader *drive.MockUploader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logs := &recordingLogs{MockStore: logstore.NewMockStore()}
	state := store.New(store.NewMemoryDriver())
	aiClient := &fakeAI{
		analysis:   &ai.Analysis{Title: "解析タイトル", Mood: "😊", Tags: []string{"研究"}},
		reviewText: "生成されたレビュー本文",
	}
	line := &fakeLine{content: []byte("jpeg-bytes"), contentType: "image/jpeg"}
	uploader := &drive.MockUploader{}
	logger := slog.New(slog.DiscardHandler)

	p := &profile.Profile{Mode: "dev", LineUserID: "U1", UserProfile: "研究者です。"}
	engine := streak.NewEngine(state, logs, time.UTC, logger)
	svc := NewService(p, logs, state, engine, aiClient, line, uploader, logger)
	svc.now = func() time.Time { return testNow }
	svc.intn = func(int) int { return 0 }

	return &testEnv{svc: svc, logs: logs, ai: aiClient, line: line, state: state, uploader: uploader}
}

func webhookBody(msgType, text, msgID string) []byte {
	return []byte(fmt.Sprintf(`{
		"destination": "Uxxx",
		"events": [{
			"type": "message",
			"replyToken": "rt-1",
			"source": {"type": "user", "userId": "U1"},
			"message": {"id": "%s", "type": "%s", "text": %q}
		}]
	}`, msgID, msgType, text))
}

func TestHandleWebhook_TextEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.HandleWebhook(ctx, webhookBody("text", "今日は実験がうまくいった", "m1")))

	require.Len(t, env.logs.created, 1)
	created := env.logs.created[0]
	assert.Equal(t, "解析タイトル", created.Title)
	assert.Equal(t, "😊", created.Mood)
	assert.Equal(t, []string{"研究"}, created.Tags)
	assert.Equal(t, "今日は実験がうまくいった", created.Body)

	require.Len(t, env.line.replies, 1)
	assert.Equal(t, "📝 記録しました！", env.line.replies[0])
	assert.Equal(t, "rt-1", env.line.replyTokens[0])

	state, err := env.state.GetStreakState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 1, state.Count)
	assert.Equal(t, "2025-06-24", state.LastDate)
}

func TestHandleWebhook_CommandRouted(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.HandleWebhook(context.Background(), webhookBody("text", "/help", "m1")))

	assert.Empty(t, env.logs.created, "commands never create entries")
	require.Len(t, env.line.replies, 1)
	assert.Contains(t, env.line.replies[0], "コマンド一覧")
}

func TestHandleWebhook_ImageEntry(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.HandleWebhook(context.Background(), webhookBody("image", "", "img-1")))

	require.Len(t, env.uploader.Files, 1)
	require.Len(t, env.logs.created, 1)
	created := env.logs.created[0]
	assert.Equal(t, "解析タイトル", created.Title)
	assert.Equal(t, env.uploader.Files[0].ViewURL, created.ImageURL)
	assert.Equal(t, 1, env.ai.imageCalls)

	require.Len(t, env.line.replies, 1)
	assert.Equal(t, "📷 写真を記録しました！", env.line.replies[0])
}

func TestHandleWebhook_UndecodableBodyAcknowledged(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.svc.HandleWebhook(context.Background(), []byte("not json")))
	assert.Empty(t, env.logs.created)
	assert.Empty(t, env.line.replies)
}

func TestHandleWebhook_NonMessageEventsSkipped(t *testing.T) {
	env := newTestEnv(t)
	body := []byte(`{"events": [{"type": "follow", "replyToken": "rt-1"}]}`)
	require.NoError(t, env.svc.HandleWebhook(context.Background(), body))
	assert.Empty(t, env.logs.created)
	assert.Empty(t, env.line.replies)
}

func TestProcessText_AnalysisFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.ai.analysis = nil
	env.ai.analysisErr = errors.New("all candidates failed")

	env.svc.ProcessText(context.Background(), "生のテキスト", env.svc.logger)

	require.Len(t, env.logs.created, 1)
	created := env.logs.created[0]
	assert.Equal(t, "📝 日記", created.Title)
	assert.Equal(t, "😐", created.Mood)
	assert.Equal(t, []string{"その他"}, created.Tags)
	assert.Contains(t, created.Body, "⚠️ AI解析失敗")
	assert.Contains(t, created.Body, "【原文】\n生のテキスト")
}

func TestProcessImage_DownloadFailureStillRecords(t *testing.T) {
	env := newTestEnv(t)
	env.line.contentErr = errors.New("content gone")

	env.svc.ProcessImage(context.Background(), "img-1", env.svc.logger)

	assert.Empty(t, env.uploader.Files)
	require.Len(t, env.logs.created, 1)
	created := env.logs.created[0]
	assert.Equal(t, "📷 写真日記", created.Title)
	assert.Contains(t, created.Body, "⚠️ 画像の取得に失敗しました")
}

func TestProcessImage_UploadFailureDropsLinkOnly(t *testing.T) {
	env := newTestEnv(t)
	env.uploader.Err = errors.New("drive quota")

	env.svc.ProcessImage(context.Background(), "img-1", env.svc.logger)

	require.Len(t, env.logs.created, 1)
	created := env.logs.created[0]
	assert.Equal(t, "解析タイトル", created.Title, "analysis still runs without the link")
	assert.Empty(t, created.ImageURL)
}

func TestSaveEntry_WriteFailureRecordsErrorEntry(t *testing.T) {
	env := newTestEnv(t)
	env.logs.createErrs = []error{errors.New("notion down")}

	env.svc.ProcessText(context.Background(), "text", env.svc.logger)

	require.Len(t, env.logs.created, 1)
	created := env.logs.created[0]
	assert.Equal(t, "❌ システムエラー", created.Title)
	assert.Equal(t, "😰", created.Mood)
	assert.Contains(t, created.Body, "notion down")

	state, err := env.state.GetStreakState(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state, "failed writes do not advance the streak")
}
