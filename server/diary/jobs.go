package diary

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/ponto2/line-diary/plugin/ai/review"
	"github.com/ponto2/line-diary/server/aggregate"
	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/logstore"
)

// weeklyWindowDays is the lookback for a weekly review.
const weeklyWindowDays = 7

// RunDailyReminder nudges the user when no entry exists for today by the
// trigger time.
func (s *Service) RunDailyReminder(ctx context.Context) error {
	entries, err := s.logs.QueryByExactDate(ctx, s.now().In(s.loc))
	if err != nil {
		return errors.Wrap(err, "check today's entries")
	}
	if len(entries) > 0 {
		return nil
	}
	return s.push(ctx, "今日はまだ日記がありません。ひとことだけでも記録してみませんか？📝")
}

// RunWeeklyReview generates and delivers the weekly review, persists the
// review text for next week's continuity, and appends it to the rolling
// history the monthly roll-up reads. Returns the delivered text.
func (s *Service) RunWeeklyReview(ctx context.Context) (string, error) {
	now := s.now().In(s.loc)
	entries, err := s.logs.QueryByDateRange(ctx, now.AddDate(0, 0, -weeklyWindowDays), now)
	if err != nil {
		return "", errors.Wrap(err, "fetch weekly entries")
	}
	if len(entries) == 0 {
		message := "今週は日記の記録がありませんでした。来週は記録してみましょう！📓"
		if err := s.push(ctx, message); err != nil {
			s.logger.Warn("empty-week notice push failed", "error", err)
		}
		return message, nil
	}

	priorReview, err := s.state.GetLastWeeklyReview(ctx)
	if err != nil {
		// Continuity input only; a missing prior review degrades the
		// prompt, not the review.
		s.logger.Warn("prior weekly review unavailable", "error", err)
		priorReview = ""
	}

	stats := aggregate.Aggregate(entries, s.loc)
	prompt := s.composer.ComposeWeekly(s.profile.UserProfileOrDefault(), priorReview, stats, entries)
	s.logger.Info("weekly review prompt assembled", "prompt_chars", len([]rune(prompt)), "entries", len(entries))

	text, err := s.ai.GenerateReview(ctx, prompt)
	if err != nil {
		notice := "週次レビューの生成に失敗しました。\n" + err.Error()
		if pushErr := s.push(ctx, notice); pushErr != nil {
			s.logger.Warn("failure notice push failed", "error", pushErr)
		}
		return "", errors.Wrap(err, "generate weekly review")
	}

	delivered := "📅 【週次レビュー】\n\n" + text
	if err := s.push(ctx, delivered); err != nil {
		return "", err
	}

	if err := s.state.SetLastWeeklyReview(ctx, text); err != nil {
		s.logger.Warn("persist weekly review failed", "error", err)
	}
	history, err := s.state.GetReviewHistory(ctx)
	if err != nil {
		s.logger.Warn("load review history failed", "error", err)
		history = nil
	}
	history = review.AppendToHistory(history, store.ReviewHistoryEntry{
		Date: now.Format(logstore.DateKey),
		Text: boundHistoryText(text),
	})
	if err := s.state.SetReviewHistory(ctx, history); err != nil {
		s.logger.Warn("persist review history failed", "error", err)
	}
	return delivered, nil
}

// RunMonthlyReview generates and delivers the month-end review. The weekly
// review history is the primary input; entries after the last weekly review
// get full bodies fetched since no weekly summary covers them. Returns the
// delivered text.
func (s *Service) RunMonthlyReview(ctx context.Context) (string, error) {
	now := s.now().In(s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	monthEnd := monthStart.AddDate(0, 1, -1)
	yearMonthLabel := now.Format("2006年1月")

	metadataEntries, err := s.logs.QueryByDateRange(ctx, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return "", errors.Wrap(err, "fetch monthly entries")
	}

	fullHistory, err := s.state.GetReviewHistory(ctx)
	if err != nil {
		s.logger.Warn("load review history failed", "error", err)
		fullHistory = nil
	}
	history := review.FilterHistoryByMonth(fullHistory, monthStart, monthEnd)

	if len(metadataEntries) == 0 && len(history) == 0 {
		message := "今月はレビューできる記録がありませんでした。来月は記録してみましょう！📓"
		if err := s.push(ctx, message); err != nil {
			s.logger.Warn("empty-month notice push failed", "error", err)
		}
		return message, nil
	}

	supplemental := review.SelectSupplemental(history, metadataEntries, monthEnd, s.loc)
	for _, entry := range supplemental {
		body, err := s.logs.FetchBody(ctx, entry.ID)
		if err != nil {
			// Unlike streak rebuild, review composition fails the whole
			// attempt; a partial review is worse than a late one.
			return "", errors.Wrapf(err, "fetch supplemental body for %s", entry.ID)
		}
		entry.Body = body
	}

	priorMonthly, err := s.state.GetLastMonthlyReview(ctx)
	if err != nil {
		s.logger.Warn("prior monthly review unavailable", "error", err)
		priorMonthly = ""
	}

	stats := aggregate.Aggregate(metadataEntries, s.loc)
	prompt := s.composer.ComposeMonthly(s.profile.UserProfileOrDefault(), history, priorMonthly,
		stats, metadataEntries, yearMonthLabel, supplemental)
	s.logger.Info("monthly review prompt assembled",
		"prompt_chars", len([]rune(prompt)), "entries", len(metadataEntries), "supplemental", len(supplemental))

	text, err := s.ai.GenerateReview(ctx, prompt)
	if err != nil {
		notice := "月次レビューの生成に失敗しました。\n" + err.Error()
		if pushErr := s.push(ctx, notice); pushErr != nil {
			s.logger.Warn("failure notice push failed", "error", pushErr)
		}
		return "", errors.Wrap(err, "generate monthly review")
	}

	delivered := "🗓 【月次レビュー】\n\n" + text
	if err := s.push(ctx, delivered); err != nil {
		return "", err
	}
	if err := s.state.SetLastMonthlyReview(ctx, text); err != nil {
		s.logger.Warn("persist monthly review failed", "error", err)
	}
	return delivered, nil
}

func boundHistoryText(text string) string {
	r := []rune(text)
	if len(r) <= store.StoredReviewLimit {
		return text
	}
	return string(r[:store.StoredReviewLimit])
}
