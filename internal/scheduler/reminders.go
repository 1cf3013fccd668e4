package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"krutilka/internal/repository"
	"krutilka/internal/telegram"
)

// Reminders напоминает клиентам о предстоящих бронях. Уникальная пара
// (бронь, тип напоминания) в workout_notifications гарантирует, что
// напоминание уходит один раз независимо от числа тиков.
type Reminders struct {
	repos     *repository.Repository
	clientBot *telegram.Sender
	before    time.Duration
	loc       *time.Location
	log       *zap.Logger
}

// NewReminders создаёт цикл напоминаний
func NewReminders(repos *repository.Repository, clientBot *telegram.Sender, before time.Duration, loc *time.Location, log *zap.Logger) *Reminders {
	return &Reminders{
		repos:     repos,
		clientBot: clientBot,
		before:    before,
		loc:       loc,
		log:       log,
	}
}

// reminderType строит тип напоминания из интервала, например reminder_4h
func reminderType(before time.Duration) string {
	return fmt.Sprintf("reminder_%dh", int(before.Hours()))
}

// Run отправляет напоминания по броням, стартующим в ближайшие before
func (r *Reminders) Run() {
	now := time.Now().In(r.loc)
	booked, err := r.repos.Reservation.ListBookedStartingBetween(now, now.Add(r.before))
	if err != nil {
		r.log.Error("брони для напоминаний не получены", zap.Error(err))
		return
	}

	kind := reminderType(r.before)
	for _, b := range booked {
		first, err := r.repos.Assignment.MarkNotified(b.ReservationID, kind)
		if err != nil {
			r.log.Error("отметка напоминания не записана",
				zap.Int("reservation", b.ReservationID), zap.Error(err))
			continue
		}
		if !first {
			continue
		}

		telegramID, err := r.repos.Client.GetTelegramID(int(b.ClientID))
		if err != nil || telegramID == 0 {
			continue
		}

		text := fmt.Sprintf("⏰ Напоминание: тренировка %s с %s до %s, станок %s",
			b.SlotDate.Format("02.01.2006"), b.StartTime, b.EndTime, b.StandCode)
		if err := r.clientBot.SendMessage(telegramID, text); err != nil {
			r.log.Warn("напоминание не отправлено",
				zap.Int("reservation", b.ReservationID), zap.Error(err))
		}
	}
}
