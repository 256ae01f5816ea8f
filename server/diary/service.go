// Package diary wires the bot's use cases: the entry-creation pipeline fed
// by the webhook, the interactive commands, and the scheduled review jobs.
package diary

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ponto2/line-diary/internal/profile"
	"github.com/ponto2/line-diary/plugin/ai"
	"github.com/ponto2/line-diary/plugin/ai/review"
	"github.com/ponto2/line-diary/plugin/drive"
	"github.com/ponto2/line-diary/server/linebot"
	"github.com/ponto2/line-diary/server/streak"
	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/logstore"
)

// AIClient is the slice of the AI layer the service uses.
type AIClient interface {
	AnalyzeEntry(ctx context.Context, text string) (*ai.Analysis, error)
	AnalyzeImageEntry(ctx context.Context, text, imageDataURL string) (*ai.Analysis, error)
	GenerateReview(ctx context.Context, prompt string) (string, error)
}

// LineClient is the slice of the LINE transport the service uses.
type LineClient interface {
	Push(ctx context.Context, userID, text string) error
	Reply(ctx context.Context, replyToken, text string) error
	GetMessageContent(ctx context.Context, messageID string) ([]byte, string, error)
}

// Service is the diary bot's application core.
type Service struct {
	profile  *profile.Profile
	logs     logstore.Store
	state    *store.Store
	streak   *streak.Engine
	ai       AIClient
	line     LineClient
	drive    drive.Uploader
	composer *review.Composer
	loc      *time.Location
	logger   *slog.Logger

	// now is the clock, swappable in tests.
	now func() time.Time
	// intn samples [0, n), swappable in tests.
	intn func(n int) int
}

// NewService wires the application core. All collaborators are injected;
// the service holds no global state.
func NewService(p *profile.Profile, logs logstore.Store, state *store.Store, streakEngine *streak.Engine,
	aiClient AIClient, lineClient LineClient, driveUploader drive.Uploader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	loc := p.Location()
	return &Service{
		profile:  p,
		logs:     logs,
		state:    state,
		streak:   streakEngine,
		ai:       aiClient,
		line:     lineClient,
		drive:    driveUploader,
		composer: review.NewComposer(loc),
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		intn:     rand.Intn,
	}
}

// HandleWebhook processes one webhook delivery. It always returns nil so the
// transport acknowledges receipt; failures degrade to fallback entries or
// error replies, never to a dropped delivery.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) error {
	webhook, err := linebot.ParseWebhook(body)
	if err != nil {
		s.logger.Warn("undecodable webhook delivery", "error", err)
		return nil
	}

	for i := range webhook.Events {
		event := &webhook.Events[i]
		if event.Type != linebot.EventTypeMessage {
			continue
		}
		logger := s.logger.With("request_id", uuid.NewString(), "message_type", event.Message.Type)

		switch event.Message.Type {
		case linebot.MessageTypeText:
			text := event.Message.Text
			if strings.HasPrefix(text, linebot.CommandMarker) {
				reply := s.HandleCommand(ctx, strings.TrimPrefix(text, linebot.CommandMarker))
				s.reply(ctx, event.ReplyToken, reply, logger)
				continue
			}
			s.ProcessText(ctx, text, logger)
			s.reply(ctx, event.ReplyToken, "📝 記録しました！", logger)
		case linebot.MessageTypeImage:
			s.ProcessImage(ctx, event.Message.ID, logger)
			s.reply(ctx, event.ReplyToken, "📷 写真を記録しました！", logger)
		}
	}
	return nil
}

// ProcessText records a text diary entry. AI-analysis failure degrades to an
// uncategorized entry with the raw text preserved; data capture is never
// blocked by enrichment.
func (s *Service) ProcessText(ctx context.Context, text string, logger *slog.Logger) {
	analysis, err := s.ai.AnalyzeEntry(ctx, text)
	create := s.buildCreate(analysis, err, text, "📝 日記")
	s.saveEntry(ctx, create, logger)
}

// ProcessImage downloads the photo, stores it in Drive, analyzes it, and
// records the entry with a link. Each stage degrades rather than dropping
// the record.
func (s *Service) ProcessImage(ctx context.Context, messageID string, logger *slog.Logger) {
	data, contentType, err := s.line.GetMessageContent(ctx, messageID)
	if err != nil {
		logger.Warn("image download failed", "error", err)
		s.saveEntry(ctx, &logstore.CreateEntry{
			Title: "📷 写真日記",
			Mood:  "😐",
			Tags:  []string{"その他"},
			Body:  "⚠️ 画像の取得に失敗しました\n\n【エラー】\n" + err.Error(),
		}, logger)
		return
	}

	now := s.now().In(s.loc)
	logText := "📷 写真をアップロードしました"
	imageURL := ""
	if file, uploadErr := s.drive.Upload(ctx, data, contentType, now); uploadErr != nil {
		logger.Warn("drive upload failed", "error", uploadErr)
	} else {
		logText = fmt.Sprintf("📷 写真をアップロードしました\n(%s)", file.Name)
		imageURL = file.ViewURL
	}

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	analysis, err := s.ai.AnalyzeImageEntry(ctx, logText, dataURL)
	create := s.buildCreate(analysis, err, logText, "📷 写真日記")
	create.ImageURL = imageURL
	s.saveEntry(ctx, create, logger)
}

// buildCreate folds an analysis result (or its failure) into a create
// request. The fallback default lives here, not in the parser.
func (s *Service) buildCreate(analysis *ai.Analysis, analysisErr error, text, fallbackTitle string) *logstore.CreateEntry {
	if analysisErr != nil {
		return &logstore.CreateEntry{
			Title: fallbackTitle,
			Mood:  "😐",
			Tags:  []string{"その他"},
			Body:  fmt.Sprintf("⚠️ AI解析失敗\n\n【エラー】\n%s\n\n【原文】\n%s", analysisErr, text),
		}
	}
	return &logstore.CreateEntry{
		Title: analysis.Title,
		Mood:  analysis.Mood,
		Tags:  analysis.Tags,
		Body:  text,
	}
}

func (s *Service) saveEntry(ctx context.Context, create *logstore.CreateEntry, logger *slog.Logger) {
	if err := s.logs.Create(ctx, create); err != nil {
		logger.Warn("entry write failed", "error", err)
		fallback := &logstore.CreateEntry{
			Title: "❌ システムエラー",
			Mood:  "😰",
			Tags:  []string{"その他"},
			Body:  err.Error(),
		}
		if err2 := s.logs.Create(ctx, fallback); err2 != nil {
			// The error-logging write itself failed; log locally and keep
			// the flow alive so the user still gets an acknowledgment.
			logger.Error("error-entry write also failed", "error", err2, "original_error", err)
		}
		return
	}
	if err := s.streak.RecordEntry(ctx, s.now()); err != nil {
		logger.Warn("streak update failed", "error", err)
	}
}

func (s *Service) reply(ctx context.Context, replyToken, text string, logger *slog.Logger) {
	if err := s.line.Reply(ctx, replyToken, review.PushSafeTruncate(text, review.DeliveryLimit)); err != nil {
		logger.Warn("reply failed", "error", err)
	}
}

// push delivers generated text to the configured user, truncated to the
// transport limit.
func (s *Service) push(ctx context.Context, text string) error {
	if s.profile.LineUserID == "" {
		s.logger.Info("LINE user id not configured, skipping push")
		return nil
	}
	return errors.Wrap(s.line.Push(ctx, s.profile.LineUserID, review.PushSafeTruncate(text, review.DeliveryLimit)), "push message")
}
