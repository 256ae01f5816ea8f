package ai

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		raw := `{"title": "初めての学会発表", "mood": "🤩", "tags": ["研究", "勉強"]}`
		got, err := ParseAnalysis(raw)
		require.NoError(t, err)
		assert.Equal(t, "初めての学会発表", got.Title)
		assert.Equal(t, "🤩", got.Mood)
		assert.Equal(t, []string{"研究", "勉強"}, got.Tags)
	})

	t.Run("JSON wrapped in prose", func(t *testing.T) {
		raw := "分析結果はこちらです。\n```json\n{\"title\": \"ランニング\", \"mood\": \"😊\", \"tags\": [\"筋トレ\"]}\n```\nご確認ください。"
		got, err := ParseAnalysis(raw)
		require.NoError(t, err)
		assert.Equal(t, "ランニング", got.Title)
	})

	t.Run("duplicate tags deduplicated", func(t *testing.T) {
		raw := `{"title": "t", "mood": "😐", "tags": ["食事", "食事", "趣味"]}`
		got, err := ParseAnalysis(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"食事", "趣味"}, got.Tags)
	})

	t.Run("no JSON object", func(t *testing.T) {
		_, err := ParseAnalysis("すみません、解析できませんでした。")
		assert.Error(t, err)
	})

	t.Run("missing title", func(t *testing.T) {
		_, err := ParseAnalysis(`{"title": "  ", "mood": "😊", "tags": ["研究"]}`)
		assert.Error(t, err)
	})

	t.Run("mood outside vocabulary", func(t *testing.T) {
		_, err := ParseAnalysis(`{"title": "t", "mood": "🙃", "tags": ["研究"]}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mood")
	})

	t.Run("tag outside vocabulary", func(t *testing.T) {
		_, err := ParseAnalysis(`{"title": "t", "mood": "😊", "tags": ["仕事"]}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tag")
	})

	t.Run("empty tags", func(t *testing.T) {
		_, err := ParseAnalysis(`{"title": "t", "mood": "😊", "tags": []}`)
		assert.Error(t, err)
	})
}

func TestAttemptWithFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("first success wins", func(t *testing.T) {
		var tried []string
		got, err := AttemptWithFallbacks(ctx, []string{"a", "b"}, func(_ context.Context, c string) (int, error) {
			tried = append(tried, c)
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, []string{"a"}, tried)
	})

	t.Run("falls through to later candidate", func(t *testing.T) {
		got, err := AttemptWithFallbacks(ctx, []string{"a", "b", "c"}, func(_ context.Context, c string) (string, error) {
			if c != "b" {
				return "", errors.Errorf("%s unavailable", c)
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	})

	t.Run("all candidates fail aggregates causes", func(t *testing.T) {
		_, err := AttemptWithFallbacks(ctx, []string{"a", "b"}, func(_ context.Context, c string) (struct{}, error) {
			return struct{}{}, errors.Errorf("%s down", c)
		})
		require.Error(t, err)
		var fbErr *FallbackError
		require.ErrorAs(t, err, &fbErr)
		assert.Len(t, fbErr.Causes, 2)
		assert.Contains(t, err.Error(), "[a] a down")
		assert.Contains(t, err.Error(), "[b] b down")
	})

	t.Run("empty candidate list", func(t *testing.T) {
		_, err := AttemptWithFallbacks(ctx, nil, func(_ context.Context, c string) (int, error) {
			return 0, nil
		})
		assert.Error(t, err)
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		_, err := AttemptWithFallbacks(cancelled, []string{"a", "b"}, func(_ context.Context, c string) (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		require.Error(t, err)
		assert.Zero(t, calls)
	})
}

// fakeChatClient scripts per-model responses for provider-level tests.
type fakeChatClient struct {
	responses map[string]string
	errs      map[string]error
	models    []string
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.models = append(f.models, req.Model)
	if err := f.errs[req.Model]; err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.responses[req.Model]}},
		},
	}, nil
}

func newTestProvider(fake *fakeChatClient, models ...string) *Provider {
	cfg := DefaultConfig()
	cfg.Models = models
	return &Provider{client: fake, config: cfg}
}

func TestAnalyzeEntry_ModelFallback(t *testing.T) {
	fake := &fakeChatClient{
		responses: map[string]string{
			"second": `{"title": "回復", "mood": "😊", "tags": ["その他"]}`,
		},
		errs: map[string]error{"first": errors.New("quota exceeded")},
	}
	p := newTestProvider(fake, "first", "second")

	got, err := p.AnalyzeEntry(context.Background(), "今日は早めに休んだ")
	require.NoError(t, err)
	assert.Equal(t, "回復", got.Title)
	assert.Equal(t, []string{"first", "second"}, fake.models)
}

func TestAnalyzeEntry_InvalidPayloadTriesNextModel(t *testing.T) {
	// A parse failure on one model is a candidate failure, not a terminal one.
	fake := &fakeChatClient{
		responses: map[string]string{
			"first":  `{"title": "t", "mood": "🙃", "tags": ["研究"]}`,
			"second": `{"title": "t", "mood": "😊", "tags": ["研究"]}`,
		},
		errs: map[string]error{},
	}
	p := newTestProvider(fake, "first", "second")

	got, err := p.AnalyzeEntry(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "😊", got.Mood)
}

func TestGenerateReview(t *testing.T) {
	t.Run("returns model text", func(t *testing.T) {
		fake := &fakeChatClient{
			responses: map[string]string{"m": "今週もよく頑張りました。"},
			errs:      map[string]error{},
		}
		p := newTestProvider(fake, "m")
		got, err := p.GenerateReview(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "今週もよく頑張りました。", got)
	})

	t.Run("blank text is a candidate failure", func(t *testing.T) {
		fake := &fakeChatClient{
			responses: map[string]string{"m": "   "},
			errs:      map[string]error{},
		}
		p := newTestProvider(fake, "m")
		_, err := p.GenerateReview(context.Background(), "prompt")
		assert.Error(t, err)
	})
}
