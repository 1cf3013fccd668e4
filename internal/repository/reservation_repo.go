package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Reservation представляет бронь одного станка в одном слоте.
// Свободный станок — строка-заглушка со статусом available без клиента.
type Reservation struct {
	ID         int
	SlotID     int
	StandID    sql.NullInt64
	StandCode  string
	ClientID   sql.NullInt64
	ClientName string
	Status     string
	Source     string
	Notes      string
	UpdatedAt  time.Time
}

// Статусы брони
const (
	StatusAvailable = "available"
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusLegacy    = "legacy"
	StatusHold      = "hold"
	StatusPending   = "pending"
	StatusWaitlist  = "waitlist"
	StatusBlocked   = "blocked"
)

// BookedReservation — бронь вместе с окном её слота, плоская строка
// для сопоставления активностей и автоназначения
type BookedReservation struct {
	ReservationID int
	SlotID        int
	StandID       int64
	StandCode     string
	ClientID      int64
	ClientName    string
	SlotDate      time.Time
	StartTime     string // HH:MM
	EndTime       string // HH:MM
}

// ReservationRepository работает с бронями станков
type ReservationRepository struct {
	db *sql.DB
}

// NewReservationRepository создаёт репозиторий броней
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, slot_id, stand_id, stand_code, client_id,
	client_name, status, source, notes, updated_at`

func scanReservationRow(scan func(dest ...any) error, rv *Reservation) error {
	return scan(&rv.ID, &rv.SlotID, &rv.StandID, &rv.StandCode, &rv.ClientID,
		&rv.ClientName, &rv.Status, &rv.Source, &rv.Notes, &rv.UpdatedAt)
}

// EnsureSlotCapacity досоздаёт заглушки под станки, у которых ещё нет
// строки в этом слоте. Идемпотентна. Возвращает число созданных строк.
func (r *ReservationRepository) EnsureSlotCapacity(slotID int) (int, error) {
	res, err := r.db.Exec(`
		INSERT INTO public.schedule_reservations (slot_id, stand_id, stand_code, status)
		SELECT $1, s.id, s.code, 'available'
		FROM public.stands s
		WHERE s.is_active
		  AND NOT EXISTS (
			SELECT 1 FROM public.schedule_reservations r
			WHERE r.slot_id = $1 AND r.stand_id = s.id
		  )`, slotID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SyncWeekCapacity досоздаёт заглушки по всем слотам недели
func (r *ReservationRepository) SyncWeekCapacity(weekID int) (int, error) {
	res, err := r.db.Exec(`
		INSERT INTO public.schedule_reservations (slot_id, stand_id, stand_code, status)
		SELECT sl.id, s.id, s.code, 'available'
		FROM public.schedule_slots sl
		CROSS JOIN public.stands s
		WHERE sl.week_id = $1
		  AND s.is_active
		  AND NOT EXISTS (
			SELECT 1 FROM public.schedule_reservations r
			WHERE r.slot_id = sl.id AND r.stand_id = s.id
		  )`, weekID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SyncUpcomingCapacity досоздаёт заглушки по всем будущим слотам.
// Вызывается после изменения реестра станков.
func (r *ReservationRepository) SyncUpcomingCapacity() (int, error) {
	res, err := r.db.Exec(`
		INSERT INTO public.schedule_reservations (slot_id, stand_id, stand_code, status)
		SELECT sl.id, s.id, s.code, 'available'
		FROM public.schedule_slots sl
		CROSS JOIN public.stands s
		WHERE sl.slot_date >= CURRENT_DATE
		  AND s.is_active
		  AND NOT EXISTS (
			SELECT 1 FROM public.schedule_reservations r
			WHERE r.slot_id = sl.id AND r.stand_id = s.id
		  )`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetByID возвращает бронь по ID, nil если не найдена
func (r *ReservationRepository) GetByID(id int) (*Reservation, error) {
	rv := &Reservation{}
	err := scanReservationRow(r.db.QueryRow(
		`SELECT `+reservationColumns+` FROM public.schedule_reservations WHERE id = $1`, id).Scan, rv)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rv, nil
}

// ListForSlot возвращает брони слота в порядке станков
func (r *ReservationRepository) ListForSlot(slotID int) ([]Reservation, error) {
	rows, err := r.db.Query(`
		SELECT `+reservationColumns+`
		FROM public.schedule_reservations
		WHERE slot_id = $1
		ORDER BY stand_id NULLS LAST, stand_code`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []Reservation
	for rows.Next() {
		var rv Reservation
		if err := scanReservationRow(rows.Scan, &rv); err != nil {
			continue
		}
		reservations = append(reservations, rv)
	}
	return reservations, rows.Err()
}

// BookAvailableReservation — единственный примитив бронирования.
// Условный UPDATE гарантирует, что из гонки за одну бронь выходит
// победителем ровно один вызов; остальным возвращается nil.
func (r *ReservationRepository) BookAvailableReservation(id, clientID int, clientName, source, notes string) (*Reservation, error) {
	rv := &Reservation{}
	err := scanReservationRow(r.db.QueryRow(`
		UPDATE public.schedule_reservations
		SET client_id = $2, client_name = $3, status = 'booked',
		    source = $4, notes = $5, updated_at = NOW()
		WHERE id = $1 AND status = 'available'
		RETURNING `+reservationColumns,
		id, clientID, clientName, source, notes).Scan, rv)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rv, nil
}

// ClearReservation сбрасывает бронь обратно в заглушку available.
// Строка не удаляется, привязка к станку сохраняется.
func (r *ReservationRepository) ClearReservation(id int) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE public.schedule_reservations
		SET client_id = NULL, client_name = '', status = 'available',
		    source = '', notes = '', updated_at = NOW()
		WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ClearSlotReservations сбрасывает все брони слота и пересинхронизирует
// заглушки. Возвращает число сброшенных строк.
func (r *ReservationRepository) ClearSlotReservations(slotID int) (int, error) {
	res, err := r.db.Exec(`
		UPDATE public.schedule_reservations
		SET client_id = NULL, client_name = '', status = 'available',
		    source = '', notes = '', updated_at = NOW()
		WHERE slot_id = $1 AND status <> 'available'`, slotID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	if _, err := r.EnsureSlotCapacity(slotID); err != nil {
		return int(n), err
	}
	return int(n), nil
}

// UpdateReservation меняет статус и атрибуты брони напрямую.
// clientID == nil снимает клиента. Возвращает nil если брони нет.
func (r *ReservationRepository) UpdateReservation(id int, status string, clientID *int, clientName, notes string) (*Reservation, error) {
	var client sql.NullInt64
	if clientID != nil {
		client = sql.NullInt64{Int64: int64(*clientID), Valid: true}
	}
	if status == StatusAvailable && client.Valid {
		return nil, wrapValidation("свободная бронь не может иметь клиента")
	}

	rv := &Reservation{}
	err := scanReservationRow(r.db.QueryRow(`
		UPDATE public.schedule_reservations
		SET status = $2, client_id = $3, client_name = $4, notes = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+reservationColumns,
		id, status, client, clientName, notes).Scan, rv)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rv, nil
}

// DeleteReservation удаляет строку брони совсем
func (r *ReservationRepository) DeleteReservation(id int) (bool, error) {
	res, err := r.db.Exec("DELETE FROM public.schedule_reservations WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SeatingCopyResult — итог переноса рассадки между слотами
type SeatingCopyResult struct {
	Updated       int
	Cleared       int
	MissingStands []string
}

// CopySlotSeating переносит рассадку по станкам из одного слота в другой.
// Для каждого станка целевого слота берётся клиент источника на том же
// станке; если в источнике станок пуст — цель сбрасывается в available.
func (r *ReservationRepository) CopySlotSeating(sourceSlotID, targetSlotID int) (*SeatingCopyResult, error) {
	source, err := r.ListForSlot(sourceSlotID)
	if err != nil {
		return nil, err
	}
	target, err := r.ListForSlot(targetSlotID)
	if err != nil {
		return nil, err
	}

	byStand := make(map[int64]Reservation)
	for _, rv := range source {
		if rv.StandID.Valid {
			byStand[rv.StandID.Int64] = rv
		}
	}
	targetStands := make(map[int64]bool)
	for _, rv := range target {
		if rv.StandID.Valid {
			targetStands[rv.StandID.Int64] = true
		}
	}

	result := &SeatingCopyResult{}
	for _, rv := range target {
		if !rv.StandID.Valid {
			continue
		}
		src, ok := byStand[rv.StandID.Int64]
		if ok && src.ClientID.Valid {
			_, err := r.db.Exec(`
				UPDATE public.schedule_reservations
				SET client_id = $2, client_name = $3, status = $4,
				    source = $5, notes = $6, updated_at = NOW()
				WHERE id = $1`,
				rv.ID, src.ClientID, src.ClientName, src.Status, src.Source, src.Notes)
			if err != nil {
				return result, err
			}
			result.Updated++
		} else {
			if _, err := r.ClearReservation(rv.ID); err != nil {
				return result, err
			}
			result.Cleared++
		}
	}

	for standID, src := range byStand {
		if !targetStands[standID] {
			result.MissingStands = append(result.MissingStands, src.StandCode)
		}
	}
	return result, nil
}

const bookedColumns = `r.id, r.slot_id, r.stand_id, r.stand_code, r.client_id, r.client_name,
	sl.slot_date, TO_CHAR(sl.start_time, 'HH24:MI'), TO_CHAR(sl.end_time, 'HH24:MI')`

func collectBooked(rows *sql.Rows) ([]BookedReservation, error) {
	defer rows.Close()

	var booked []BookedReservation
	for rows.Next() {
		var b BookedReservation
		if err := rows.Scan(&b.ReservationID, &b.SlotID, &b.StandID, &b.StandCode,
			&b.ClientID, &b.ClientName, &b.SlotDate, &b.StartTime, &b.EndTime); err != nil {
			continue
		}
		booked = append(booked, b)
	}
	return booked, rows.Err()
}

// ListBookedByDate возвращает все брони на дату по всем станкам
func (r *ReservationRepository) ListBookedByDate(date time.Time) ([]BookedReservation, error) {
	rows, err := r.db.Query(`
		SELECT `+bookedColumns+`
		FROM public.schedule_reservations r
		JOIN public.schedule_slots sl ON r.slot_id = sl.id
		WHERE r.status = 'booked'
		  AND r.stand_id IS NOT NULL
		  AND r.client_id IS NOT NULL
		  AND NOT sl.is_cancelled
		  AND sl.slot_date = $1
		ORDER BY sl.start_time`, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	return collectBooked(rows)
}

// ListBookedByDateAndStands возвращает брони на дату по заданным станкам
func (r *ReservationRepository) ListBookedByDateAndStands(date time.Time, standIDs []int64) ([]BookedReservation, error) {
	rows, err := r.db.Query(`
		SELECT `+bookedColumns+`
		FROM public.schedule_reservations r
		JOIN public.schedule_slots sl ON r.slot_id = sl.id
		WHERE r.status = 'booked'
		  AND r.stand_id = ANY($2)
		  AND r.client_id IS NOT NULL
		  AND NOT sl.is_cancelled
		  AND sl.slot_date = $1
		ORDER BY sl.start_time`, date.Format("2006-01-02"), pq.Array(standIDs))
	if err != nil {
		return nil, err
	}
	return collectBooked(rows)
}

// ListBookedStartingBetween возвращает брони, чьи слоты начинаются
// в интервале [from, to]. Времена сравниваются в наивном локальном виде.
func (r *ReservationRepository) ListBookedStartingBetween(from, to time.Time) ([]BookedReservation, error) {
	rows, err := r.db.Query(`
		SELECT `+bookedColumns+`
		FROM public.schedule_reservations r
		JOIN public.schedule_slots sl ON r.slot_id = sl.id
		WHERE r.status = 'booked'
		  AND r.stand_id IS NOT NULL
		  AND r.client_id IS NOT NULL
		  AND NOT sl.is_cancelled
		  AND sl.slot_date + sl.start_time BETWEEN $1::timestamp AND $2::timestamp
		ORDER BY sl.slot_date, sl.start_time`,
		from.Format("2006-01-02 15:04:05"), to.Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	return collectBooked(rows)
}
