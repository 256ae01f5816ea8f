package diary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ponto2/line-diary/server/aggregate"
	"github.com/ponto2/line-diary/store/logstore"
)

const helpMenu = `📖 コマンド一覧
/today … 今日の記録
/yesterday … 昨日の記録
/stats … 最近30日の統計
/streak … 連続記録日数
/review … 週次レビューを今すぐ生成
/monthly … 月次レビューを今すぐ生成
/onthisday … 過去の今日
/random … ランダムに1件振り返る
/help … このメニュー`

// statsWindowDays is the lookback for the /stats command.
const statsWindowDays = 30

// HandleCommand routes one marker-prefixed command and returns the reply
// text. Failures produce a short human-readable message plus the menu,
// never a raw error dump.
func (s *Service) HandleCommand(ctx context.Context, command string) string {
	cmd := ""
	if fields := strings.Fields(command); len(fields) > 0 {
		cmd = strings.ToLower(fields[0])
	}
	switch cmd {
	case "today":
		return s.entriesOfDay(ctx, s.now(), "今日")
	case "yesterday":
		return s.entriesOfDay(ctx, s.now().AddDate(0, 0, -1), "昨日")
	case "stats":
		return s.statsCommand(ctx)
	case "streak":
		return s.streakCommand(ctx)
	case "review":
		return s.reviewCommand(ctx)
	case "monthly":
		return s.monthlyCommand(ctx)
	case "onthisday", "on-this-day":
		return s.onThisDayCommand(ctx)
	case "random":
		return s.randomCommand(ctx)
	case "help", "":
		return helpMenu
	default:
		return fmt.Sprintf("「%s」というコマンドは知りません🙏\n\n%s", cmd, helpMenu)
	}
}

func (s *Service) entriesOfDay(ctx context.Context, day time.Time, label string) string {
	entries, err := s.logs.QueryByExactDate(ctx, day.In(s.loc))
	if err != nil {
		return s.commandFailure("記録の取得に失敗しました")
	}
	if len(entries) == 0 {
		return fmt.Sprintf("%sの記録はまだありません📓", label)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📓 %sの記録 (%d件)\n", label, len(entries))
	for _, entry := range entries {
		fmt.Fprintf(&b, "・%s %s", entry.Mood, entry.Title)
		if len(entry.Tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(entry.Tags, ","))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) statsCommand(ctx context.Context) string {
	now := s.now().In(s.loc)
	entries, err := s.logs.QueryByDateRange(ctx, now.AddDate(0, 0, -statsWindowDays), now)
	if err != nil {
		return s.commandFailure("統計の取得に失敗しました")
	}
	if len(entries) == 0 {
		return fmt.Sprintf("最近%d日の記録がありません📓", statsWindowDays)
	}
	stats := aggregate.Aggregate(entries, s.loc)
	recordRate := float64(stats.UniqueDays) / float64(statsWindowDays) * 100
	return fmt.Sprintf("📊 最近%d日の統計\n%s記録率: %.0f%%", statsWindowDays, stats.Render(), recordRate)
}

func (s *Service) streakCommand(ctx context.Context) string {
	status, err := s.streak.QueryStreak(ctx, s.now())
	if err != nil {
		return s.commandFailure("連続記録の取得に失敗しました")
	}
	if status.Count == 0 {
		return "連続記録は途切れています。今日からまた始めましょう🔥"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 連続記録 %d日目！", status.Count)
	if status.StartDate != "" {
		fmt.Fprintf(&b, "\n(%s から継続中)", status.StartDate)
	}
	if status.TotalDays > 0 {
		fmt.Fprintf(&b, "\n累計記録日数: %d日", status.TotalDays)
	}
	if !status.HasTodayRecord {
		b.WriteString("\n今日はまだ記録がありません。忘れずに📝")
	}
	return b.String()
}

func (s *Service) reviewCommand(ctx context.Context) string {
	text, err := s.RunWeeklyReview(ctx)
	if err != nil {
		return s.commandFailure("週次レビューの生成に失敗しました")
	}
	return text
}

func (s *Service) monthlyCommand(ctx context.Context) string {
	text, err := s.RunMonthlyReview(ctx)
	if err != nil {
		return s.commandFailure("月次レビューの生成に失敗しました")
	}
	return text
}

// onThisDayCommand recalls entries from this calendar day in earlier years.
func (s *Service) onThisDayCommand(ctx context.Context) string {
	refs, err := s.logs.QueryAllIDsAndDates(ctx)
	if err != nil {
		return s.commandFailure("記録の取得に失敗しました")
	}
	now := s.now().In(s.loc)
	var hits []logstore.EntryRef
	for _, ref := range refs {
		d := ref.Date.In(s.loc)
		if d.Month() == now.Month() && d.Day() == now.Day() && d.Year() < now.Year() {
			hits = append(hits, ref)
		}
	}
	if len(hits) == 0 {
		return "過去の今日の記録はまだありません📅"
	}
	return s.recallEntry(ctx, hits[s.intn(len(hits))], "📅 過去の今日")
}

// randomCommand samples uniformly over entries, not over days, so days with
// many entries are not under-represented.
func (s *Service) randomCommand(ctx context.Context) string {
	refs, err := s.logs.QueryAllIDsAndDates(ctx)
	if err != nil {
		return s.commandFailure("記録の取得に失敗しました")
	}
	if len(refs) == 0 {
		return "まだ記録がありません。最初の日記を書いてみましょう📝"
	}
	return s.recallEntry(ctx, refs[s.intn(len(refs))], "🎲 ランダム振り返り")
}

func (s *Service) recallEntry(ctx context.Context, ref logstore.EntryRef, heading string) string {
	day := ref.Date.In(s.loc)
	entries, err := s.logs.QueryByExactDate(ctx, day)
	if err != nil {
		return s.commandFailure("記録の取得に失敗しました")
	}
	var picked *logstore.Entry
	for _, entry := range entries {
		if entry.ID == ref.ID {
			picked = entry
			break
		}
	}
	if picked == nil {
		return s.commandFailure("記録が見つかりませんでした")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n[%s] %s %s", heading, day.Format(logstore.DateKey), picked.Mood, picked.Title)
	if body, err := s.logs.FetchBody(ctx, picked.ID); err == nil && strings.TrimSpace(body) != "" {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(body))
	}
	return b.String()
}

func (s *Service) commandFailure(message string) string {
	return fmt.Sprintf("⚠️ %s。少し待ってからもう一度試してください。\n\n%s", message, helpMenu)
}
