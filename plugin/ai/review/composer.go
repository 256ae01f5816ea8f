// Package review assembles bounded, context-aware prompts for weekly and
// monthly narrative reviews, and owns the rolling history of past weekly
// reviews that monthly roll-ups fold in.
package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/ponto2/line-diary/server/aggregate"
	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/logstore"
)

// weeklyPersona is the fixed instruction preamble for weekly reviews.
const weeklyPersona = `あなたはユーザーの成長を見守る「信頼できるメンター」です。
厳しさと優しさを兼ね備え、ユーザーが「また来週も頑張ろう」と思える週次レビューを作成してください。

【📝 出力ルール】
- 全体で400〜600文字程度（LINEで読みやすい長さ）
- Markdown記法（**太字**など）は使用禁止
- 見出しは【 】と絵文字で表現
- ポジティブ7割、改善提案3割のバランスで
- ユーザー情報は参考に留め、本文でそのまま引用しないこと

【📊 レビュー構成】
1. 💪 今週のハイライト
   - 最も印象的だった出来事や成長を1〜2個ピックアップ
   - 「できた事実」を具体的に言語化して自己効力感を高める

2. 🔋 心身のバランスチェック
   - 気分の推移パターンを読み取る（上昇傾向？波がある？）
   - 活動量とリカバリーのバランスについて一言

3. 🎯 来週へのワンポイント
   - 今週の傾向から、来週試してほしい「小さな実験」を1つだけ提案
   - 抽象的なアドバイスではなく、すぐ実行できる具体的なアクションで`

// monthlyPersona is the fixed instruction preamble for monthly reviews.
const monthlyPersona = `あなたはユーザーの成長を見守る「信頼できるメンター」です。
1ヶ月分の記録を俯瞰し、ユーザーが自分の歩みを誇れる月次レビューを作成してください。

【📝 出力ルール】
- 全体で600〜800文字程度
- Markdown記法（**太字**など）は使用禁止
- 見出しは【 】と絵文字で表現
- 週次レビューの内容を最重要の手がかりとして扱い、個別ログは補足として使う
- ユーザー情報は参考に留め、本文でそのまま引用しないこと

【📊 レビュー構成】
1. 🏔 今月の歩み（大きな流れと変化）
2. 📈 数字で見る今月（統計から読み取れる傾向）
3. 🌱 来月への種まき（続けたいこと1つ、変えたいこと1つ）`

// weeklyExample is the fixed worked example appended to weekly prompts to
// anchor tone and format.
const weeklyExample = `【✍️ 出力例（形式の参考）】
【💪 今週のハイライト】
水曜の「初めての学会発表」、準備の記録が火曜まで続いていたのが印象的でした。...

【🔋 心身のバランスチェック】
週前半は😰が続きましたが、金曜から😊に戻っています。...

【🎯 来週へのワンポイント】
寝る前5分、その日の「できたこと」を1行だけ書いてみましょう。...`

// Composer builds review prompts. All composition is deterministic
// concatenation in fixed section order; no truncation is applied at compose
// time (the assembled prompt's size is the caller's concern before the AI
// call, while delivery truncation is PushSafeTruncate's).
type Composer struct {
	loc *time.Location
}

// NewComposer creates a composer using loc for date rendering.
func NewComposer(loc *time.Location) *Composer {
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{loc: loc}
}

// ComposeWeekly builds the weekly review prompt from the user profile, the
// prior review text (omitted when empty), the statistical summary, and the
// full entry list.
func (c *Composer) ComposeWeekly(profile, priorReview string, stats *aggregate.Stats, entries []*logstore.Entry) string {
	var b strings.Builder
	b.WriteString(weeklyPersona)
	b.WriteString("\n\n【👤 ユーザー情報】\n")
	b.WriteString(profile)
	b.WriteString("\n")

	if strings.TrimSpace(priorReview) != "" {
		b.WriteString("\n【🔁 前回の週次レビュー（継続性の参考に）】\n")
		b.WriteString(priorReview)
		b.WriteString("\n")
	}

	b.WriteString("\n【📊 今週の統計】\n")
	b.WriteString(stats.Render())

	b.WriteString("\n")
	b.WriteString(weeklyExample)

	b.WriteString("\n\n【日記ログ】\n")
	for _, entry := range entries {
		b.WriteString(c.renderEntry(entry))
	}
	return b.String()
}

// ComposeMonthly builds the monthly review prompt. The weekly-review history
// is the primary evidentiary input; metadata-only entries are secondary
// context, and supplementalEntries carry full bodies for the days after the
// last weekly review that no weekly summary covers.
func (c *Composer) ComposeMonthly(profile string, weeklyHistory []store.ReviewHistoryEntry, priorMonthlyReview string,
	stats *aggregate.Stats, metadataEntries []*logstore.Entry, yearMonthLabel string, supplementalEntries []*logstore.Entry) string {
	var b strings.Builder
	b.WriteString(monthlyPersona)
	b.WriteString("\n\n【👤 ユーザー情報】\n")
	b.WriteString(profile)
	b.WriteString("\n")

	fmt.Fprintf(&b, "\n【🗓 対象月】%s\n", yearMonthLabel)

	if len(weeklyHistory) > 0 {
		b.WriteString("\n【📚 週次レビュー（最重要の手がかり）】\n")
		for _, h := range weeklyHistory {
			fmt.Fprintf(&b, "--- %s の週次レビュー ---\n%s\n", h.Date, h.Text)
		}
	}

	if strings.TrimSpace(priorMonthlyReview) != "" {
		b.WriteString("\n【🔁 先月の月次レビュー（継続性の参考に）】\n")
		b.WriteString(priorMonthlyReview)
		b.WriteString("\n")
	}

	b.WriteString("\n【📊 今月の統計】\n")
	b.WriteString(stats.Render())

	if len(metadataEntries) > 0 {
		b.WriteString("\n【日記ログ（メタデータのみ）】\n")
		for _, entry := range metadataEntries {
			b.WriteString(c.renderEntryMeta(entry))
		}
	}

	if len(supplementalEntries) > 0 {
		b.WriteString("\n【週次レビュー未反映の日の詳細ログ】\n")
		for _, entry := range supplementalEntries {
			b.WriteString(c.renderEntry(entry))
		}
	}
	return b.String()
}

func (c *Composer) renderEntryMeta(entry *logstore.Entry) string {
	line := fmt.Sprintf("[%s] 気分:%s", entry.DayKey(c.loc), entry.Mood)
	if len(entry.Tags) > 0 {
		line += " タグ:" + strings.Join(entry.Tags, ",")
	}
	return line + " タイトル:" + entry.Title + "\n"
}

func (c *Composer) renderEntry(entry *logstore.Entry) string {
	block := c.renderEntryMeta(entry)
	if strings.TrimSpace(entry.Body) != "" {
		block += entry.Body
		if !strings.HasSuffix(block, "\n") {
			block += "\n"
		}
	}
	return block
}
