package scheduler

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"krutilka/internal/accounts"
	"krutilka/internal/repository"
	"krutilka/internal/telegram"
	"krutilka/internal/wattattack"
)

// AutoAssigner перед стартом брони записывает профиль клиента в
// аккаунт WattAttack её станка, чтобы сессия была преднастроена.
// Маркер в БД и кэш уведомлений делают повторные тики безвредными.
type AutoAssigner struct {
	repos     *repository.Repository
	watt      *wattattack.Client
	registry  *accounts.Registry
	adminBot  *telegram.Sender
	adminChat int64
	cache     *NotifyCache
	lead      time.Duration
	window    time.Duration
	observe   bool // только показывать, без записи профиля
	loc       *time.Location
	log       *zap.Logger
}

// AutoAssignerDeps — зависимости автоназначения
type AutoAssignerDeps struct {
	Repos     *repository.Repository
	Watt      *wattattack.Client
	Registry  *accounts.Registry
	AdminBot  *telegram.Sender
	AdminChat int64
	Cache     *NotifyCache
	Lead      time.Duration
	Window    time.Duration
	Observe   bool
	Location  *time.Location
	Log       *zap.Logger
}

// NewAutoAssigner создаёт цикл автоназначения
func NewAutoAssigner(d AutoAssignerDeps) *AutoAssigner {
	return &AutoAssigner{
		repos:     d.Repos,
		watt:      d.Watt,
		registry:  d.Registry,
		adminBot:  d.AdminBot,
		adminChat: d.AdminChat,
		cache:     d.Cache,
		lead:      d.Lead,
		window:    d.Window,
		observe:   d.Observe,
		loc:       d.Location,
		log:       d.Log,
	}
}

// splitName делит имя клиента на имя и фамилию для профиля аккаунта
func splitName(fullName string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(fullName))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// Run обрабатывает брони, стартующие в окне [now+lead, now+lead+window].
// Все назначения одного тика собираются в одно сообщение админам.
func (a *AutoAssigner) Run() {
	byStand := a.registry.ByStand()
	now := time.Now().In(a.loc)
	from := now.Add(a.lead)
	to := from.Add(a.window)

	booked, err := a.repos.Reservation.ListBookedStartingBetween(from, to)
	if err != nil {
		a.log.Error("брони для автоназначения не получены", zap.Error(err))
		return
	}

	status := "applied"
	if a.observe {
		status = "observed"
	}

	sessions := make(map[string]*wattattack.Session)
	var lines []string

	for _, b := range booked {
		acc, ok := byStand[b.StandID]
		if !ok {
			continue
		}

		applied, err := a.repos.Assignment.WasApplied(b.ReservationID, acc.ID)
		if err != nil {
			a.log.Error("маркер автоназначения не прочитан",
				zap.Int("reservation", b.ReservationID), zap.Error(err))
			continue
		}
		if applied {
			continue
		}
		key := assignmentKey(b.ReservationID, acc.ID, status)
		if a.cache.Has(key) {
			continue
		}

		if !a.observe {
			if err := a.applyProfile(sessions, acc, b); err != nil {
				// Ключ не отмечаем: следующий тик попробует снова
				a.log.Error("профиль не применён",
					zap.String("account", acc.ID),
					zap.Int("reservation", b.ReservationID),
					zap.Error(err))
				continue
			}
			if _, err := a.repos.Assignment.MarkApplied(b.ReservationID, acc.ID, int(b.ClientID)); err != nil {
				a.log.Error("маркер автоназначения не записан",
					zap.Int("reservation", b.ReservationID), zap.Error(err))
			}
		}

		a.cache.Mark(key)
		lines = append(lines, fmt.Sprintf("%s %s–%s, станок %s → %s (аккаунт %s)",
			b.SlotDate.Format("02.01"), b.StartTime, b.EndTime, b.StandCode, b.ClientName, acc.ID))
	}

	if len(lines) == 0 {
		return
	}

	header := "🚴 Автоназначение профилей:"
	if a.observe {
		header = "👀 Предстоящие назначения (наблюдение):"
	}
	if err := a.adminBot.SendMessage(a.adminChat, header+"\n"+strings.Join(lines, "\n")); err != nil {
		a.log.Warn("сводка автоназначения не отправлена", zap.Error(err))
	}
}

func (a *AutoAssigner) applyProfile(sessions map[string]*wattattack.Session, acc accounts.Account, b repository.BookedReservation) error {
	session, ok := sessions[acc.ID]
	if !ok {
		var err error
		session, err = a.watt.Login(acc.Login, acc.Password)
		if err != nil {
			return fmt.Errorf("логин: %w", err)
		}
		sessions[acc.ID] = session
	}

	firstName, lastName := splitName(b.ClientName)
	profile, err := a.watt.GetProfile(session)
	if err != nil {
		return fmt.Errorf("профиль: %w", err)
	}
	profile.FirstName = firstName
	profile.LastName = lastName

	if err := a.watt.UpdateProfile(session, *profile); err != nil {
		return err
	}
	return nil
}
