package repository

import (
	"database/sql"
)

// AssignmentRepository работает с маркерами автоназначения профилей
// и отметками отправленных напоминаний. Оба вида строк — токены
// идемпотентности: записываются один раз и назад не снимаются.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository создаёт репозиторий маркеров
func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// MarkApplied отмечает, что профиль клиента применён к аккаунту для брони.
// Возвращает true, если маркер записан впервые.
func (r *AssignmentRepository) MarkApplied(reservationID int, accountID string, clientID int) (bool, error) {
	res, err := r.db.Exec(`
		INSERT INTO public.schedule_account_assignments (reservation_id, account_id, client_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (reservation_id, account_id) DO NOTHING`,
		reservationID, accountID, clientID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// WasApplied проверяет маркер автоназначения
func (r *AssignmentRepository) WasApplied(reservationID int, accountID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM public.schedule_account_assignments
			WHERE reservation_id = $1 AND account_id = $2)`,
		reservationID, accountID,
	).Scan(&exists)
	return exists, err
}

// MarkNotified отмечает отправку напоминания данного типа по брони.
// Возвращает true только при первой отметке — повторные прогоны
// планировщика напоминание не дублируют.
func (r *AssignmentRepository) MarkNotified(reservationID int, notificationType string) (bool, error) {
	res, err := r.db.Exec(`
		INSERT INTO public.workout_notifications (reservation_id, notification_type)
		VALUES ($1, $2)
		ON CONFLICT (reservation_id, notification_type) DO NOTHING`,
		reservationID, notificationType)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
