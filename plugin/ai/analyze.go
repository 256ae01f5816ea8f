package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ponto2/line-diary/store/logstore"
)

// Analysis is the validated result of entry enrichment.
type Analysis struct {
	Title string
	Mood  string
	Tags  []string
}

// titleDisplayLimit is the conventional title length the model is asked
// for. Not enforced here; the store accepts longer titles.
const titleDisplayLimit = 20

// AnalyzeEntry enriches raw diary text with a title, mood, and tags, trying
// each configured model in order. Parse and validation failures count as
// candidate failures; the caller owns the fallback default when the whole
// chain fails (data capture must never block on enrichment).
func (p *Provider) AnalyzeEntry(ctx context.Context, text string) (*Analysis, error) {
	prompt := buildAnalysisPrompt(text, false)
	return AttemptWithFallbacks(ctx, p.config.Models, func(ctx context.Context, model string) (*Analysis, error) {
		raw, err := p.Complete(ctx, model, prompt)
		if err != nil {
			return nil, err
		}
		return ParseAnalysis(raw)
	})
}

// AnalyzeImageEntry enriches an image message. imageDataURL is a data: URL
// with the inline image bytes.
func (p *Provider) AnalyzeImageEntry(ctx context.Context, text, imageDataURL string) (*Analysis, error) {
	prompt := buildAnalysisPrompt(text, true)
	return AttemptWithFallbacks(ctx, p.config.Models, func(ctx context.Context, model string) (*Analysis, error) {
		raw, err := p.CompleteWithImage(ctx, model, prompt, imageDataURL)
		if err != nil {
			return nil, err
		}
		return ParseAnalysis(raw)
	})
}

func buildAnalysisPrompt(text string, hasImage bool) string {
	var b strings.Builder
	if hasImage {
		fmt.Fprintf(&b, "添付画像を分析し、日記のタイトル(%d文字以内)を付けてください。入力: %s", titleDisplayLimit, text)
	} else {
		fmt.Fprintf(&b, "テキストを分析しJSONを返してください。入力: %s", text)
	}
	fmt.Fprintf(&b, "\n\n出力JSON形式: { \"title\": \"...\", \"mood\": \"%s\", \"tags\": [\"%s\"] }",
		strings.Join(logstore.Moods, "/"), strings.Join(logstore.Tags, "\",\""))
	b.WriteString("\nmoodは候補から1つ、tagsは候補からのみ選ぶこと。")
	return b.String()
}

// ParseAnalysis extracts and validates the model's JSON answer. It fails
// explicitly when required fields are absent or outside the fixed
// vocabularies; it never silently defaults.
func ParseAnalysis(raw string) (*Analysis, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in model response")
	}

	var parsed struct {
		Title string   `json:"title"`
		Mood  string   `json:"mood"`
		Tags  []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, errors.Wrap(err, "unmarshal model response")
	}

	if strings.TrimSpace(parsed.Title) == "" {
		return nil, errors.New("analysis missing title")
	}
	if !logstore.ValidMood(parsed.Mood) {
		return nil, errors.Errorf("analysis mood %q not in vocabulary", parsed.Mood)
	}
	if len(parsed.Tags) == 0 {
		return nil, errors.New("analysis missing tags")
	}
	seen := map[string]bool{}
	tags := make([]string, 0, len(parsed.Tags))
	for _, tag := range parsed.Tags {
		if !logstore.ValidTag(tag) {
			return nil, errors.Errorf("analysis tag %q not in vocabulary", tag)
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	return &Analysis{
		Title: strings.TrimSpace(parsed.Title),
		Mood:  parsed.Mood,
		Tags:  tags,
	}, nil
}

// GenerateReview produces free-form review text from an assembled prompt,
// trying each configured model in order.
func (p *Provider) GenerateReview(ctx context.Context, prompt string) (string, error) {
	return AttemptWithFallbacks(ctx, p.config.Models, func(ctx context.Context, model string) (string, error) {
		text, err := p.Complete(ctx, model, prompt)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", errors.Errorf("empty review text from %s", model)
		}
		return text, nil
	})
}
