package scheduler

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"krutilka/internal/repository"
	"krutilka/internal/telegram"
)

// LeaderboardReporter раз в месяц публикует рейтинг клиентов по леджеру
// в админский чат.
type LeaderboardReporter struct {
	repos     *repository.Repository
	adminBot  *telegram.Sender
	adminChat int64
	loc       *time.Location
	log       *zap.Logger
}

// NewLeaderboardReporter создаёт публикатор рейтинга
func NewLeaderboardReporter(repos *repository.Repository, adminBot *telegram.Sender, adminChat int64, loc *time.Location, log *zap.Logger) *LeaderboardReporter {
	return &LeaderboardReporter{
		repos:     repos,
		adminBot:  adminBot,
		adminChat: adminChat,
		loc:       loc,
		log:       log,
	}
}

// monthRange возвращает границы календарного месяца, в который попадает now
func monthRange(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}

// formatLeaderboard строит текст рейтинга за месяц
func formatLeaderboard(from time.Time, rows []repository.LeaderboardRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Рейтинг за %s\n", from.Format("01.2006"))
	for i, row := range rows {
		elapsed := time.Duration(row.ElapsedSec) * time.Second
		fmt.Fprintf(&b, "%d. %s — %.1f км, %d тренировок, %s\n",
			i+1, row.ClientName, row.DistanceM/1000, row.Rides, elapsed.Truncate(time.Minute))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Run публикует рейтинг предыдущего месяца
func (l *LeaderboardReporter) Run() {
	now := time.Now().In(l.loc)
	from, to := monthRange(now.AddDate(0, -1, 0))

	rows, err := l.repos.Activity.Leaderboard(from, to, 10)
	if err != nil {
		l.log.Error("рейтинг не построен", zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}

	if err := l.adminBot.SendMessage(l.adminChat, formatLeaderboard(from, rows)); err != nil {
		l.log.Warn("рейтинг не отправлен", zap.Error(err))
	}
}
