package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// Week представляет неделю расписания, идентифицируется понедельником
type Week struct {
	ID               int
	WeekStartDate    time.Time
	Title            string
	Notes            string
	CopiedFromWeekID sql.NullInt64
	CreatedAt        time.Time
}

// Slot представляет бронируемое окно внутри недели
type Slot struct {
	ID           int
	WeekID       int
	SlotDate     time.Time
	StartTime    string // HH:MM
	EndTime      string // HH:MM
	SessionKind  string
	InstructorID sql.NullInt64
	IsCancelled  bool
	Label        string
	Notes        string
	SortIndex    int
	CreatedAt    time.Time
}

// Виды занятий в слоте
const (
	KindSelfService = "self_service"
	KindInstructor  = "instructor"
	KindRace        = "race"
)

// ScheduleRepository работает с неделями и слотами расписания
type ScheduleRepository struct {
	db *sql.DB
}

// NewScheduleRepository создаёт репозиторий расписания
func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// MondayOf приводит произвольную дату к понедельнику её недели
func MondayOf(date time.Time) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ParseClock проверяет время вида HH:MM
func ParseClock(value string) (time.Time, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("время %q: %w", value, ErrValidation)
	}
	return t, nil
}

const weekColumns = "id, week_start_date, title, notes, copied_from_week_id, created_at"

func scanWeek(row *sql.Row) (*Week, error) {
	w := &Week{}
	err := row.Scan(&w.ID, &w.WeekStartDate, &w.Title, &w.Notes, &w.CopiedFromWeekID, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetOrCreateWeek возвращает неделю для даты, создавая её при необходимости.
// Гонка двух создателей безопасна: проигравший перечитывает строку победителя.
func (r *ScheduleRepository) GetOrCreateWeek(date time.Time) (*Week, error) {
	monday := MondayOf(date)

	w, err := scanWeek(r.db.QueryRow(`
		INSERT INTO public.schedule_weeks (week_start_date)
		VALUES ($1)
		ON CONFLICT (week_start_date) DO NOTHING
		RETURNING `+weekColumns,
		monday.Format("2006-01-02"),
	))
	if err == nil {
		return w, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	return r.GetWeekByStart(monday)
}

// CreateWeek создаёт неделю явно, ErrConflict если она уже существует
func (r *ScheduleRepository) CreateWeek(date time.Time, title, notes string) (*Week, error) {
	monday := MondayOf(date)
	w, err := scanWeek(r.db.QueryRow(`
		INSERT INTO public.schedule_weeks (week_start_date, title, notes)
		VALUES ($1, $2, $3)
		RETURNING `+weekColumns,
		monday.Format("2006-01-02"), title, notes,
	))
	if err != nil {
		return nil, wrapConflict(err, fmt.Sprintf("неделя %s уже существует", monday.Format("2006-01-02")))
	}
	return w, nil
}

// GetWeekByID возвращает неделю по ID, nil если не найдена
func (r *ScheduleRepository) GetWeekByID(id int) (*Week, error) {
	w, err := scanWeek(r.db.QueryRow(
		`SELECT `+weekColumns+` FROM public.schedule_weeks WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetWeekByStart возвращает неделю по её понедельнику, nil если не найдена
func (r *ScheduleRepository) GetWeekByStart(monday time.Time) (*Week, error) {
	w, err := scanWeek(r.db.QueryRow(
		`SELECT `+weekColumns+` FROM public.schedule_weeks WHERE week_start_date = $1`,
		MondayOf(monday).Format("2006-01-02")))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListWeeks возвращает недели от новых к старым
func (r *ScheduleRepository) ListWeeks(limit int) ([]Week, error) {
	rows, err := r.db.Query(`
		SELECT `+weekColumns+`
		FROM public.schedule_weeks
		ORDER BY week_start_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weeks []Week
	for rows.Next() {
		var w Week
		if err := rows.Scan(&w.ID, &w.WeekStartDate, &w.Title, &w.Notes, &w.CopiedFromWeekID, &w.CreatedAt); err != nil {
			continue
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// DeleteWeek удаляет неделю вместе со слотами и бронями
func (r *ScheduleRepository) DeleteWeek(id int) (bool, error) {
	res, err := r.db.Exec("DELETE FROM public.schedule_weeks WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const slotColumns = `id, week_id, slot_date,
	TO_CHAR(start_time, 'HH24:MI'), TO_CHAR(end_time, 'HH24:MI'),
	session_kind, instructor_id, is_cancelled, label, notes, sort_index, created_at`

func scanSlotRow(scan func(dest ...any) error, s *Slot) error {
	return scan(&s.ID, &s.WeekID, &s.SlotDate, &s.StartTime, &s.EndTime,
		&s.SessionKind, &s.InstructorID, &s.IsCancelled, &s.Label, &s.Notes, &s.SortIndex, &s.CreatedAt)
}

// CreateSlot создаёт слот и сразу досоздаёт заглушки броней под все станки.
// Возвращает слот и число созданных заглушек.
func (r *ScheduleRepository) CreateSlot(weekID int, date time.Time, startTime, endTime, kind, label string, sortIndex int) (*Slot, int, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return nil, 0, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return nil, 0, err
	}
	if !end.After(start) {
		return nil, 0, fmt.Errorf("конец слота %s не позже начала %s: %w", endTime, startTime, ErrValidation)
	}
	if kind == "" {
		kind = KindSelfService
	}

	s := &Slot{}
	err = scanSlotRow(r.db.QueryRow(`
		INSERT INTO public.schedule_slots (week_id, slot_date, start_time, end_time, session_kind, label, sort_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+slotColumns,
		weekID, date.Format("2006-01-02"), startTime, endTime, kind, label, sortIndex,
	).Scan, s)
	if err != nil {
		return nil, 0, wrapConflict(err, "такой слот уже существует")
	}

	created, err := NewReservationRepository(r.db).EnsureSlotCapacity(s.ID)
	if err != nil {
		return nil, 0, err
	}
	return s, created, nil
}

// GetSlotByID возвращает слот по ID, nil если не найден
func (r *ScheduleRepository) GetSlotByID(id int) (*Slot, error) {
	s := &Slot{}
	err := scanSlotRow(r.db.QueryRow(
		`SELECT `+slotColumns+` FROM public.schedule_slots WHERE id = $1`, id).Scan, s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSlotsForWeek возвращает слоты недели в порядке показа
func (r *ScheduleRepository) ListSlotsForWeek(weekID int) ([]Slot, error) {
	rows, err := r.db.Query(`
		SELECT `+slotColumns+`
		FROM public.schedule_slots
		WHERE week_id = $1
		ORDER BY slot_date, start_time, sort_index`, weekID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var s Slot
		if err := scanSlotRow(rows.Scan, &s); err != nil {
			continue
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// SetSlotCancelled помечает слот отменённым или возвращает обратно
func (r *ScheduleRepository) SetSlotCancelled(id int, cancelled bool) (bool, error) {
	res, err := r.db.Exec(
		"UPDATE public.schedule_slots SET is_cancelled = $1 WHERE id = $2",
		cancelled, id,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteSlot удаляет слот вместе с бронями
func (r *ScheduleRepository) DeleteSlot(id int) (bool, error) {
	res, err := r.db.Exec("DELETE FROM public.schedule_slots WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// clockWindow описывает одно окно дневного шаблона
type clockWindow struct {
	Start string
	End   string
}

// defaultDayTemplate — восемь двухчасовых окон самоката с 06:00 до 22:30
func defaultDayTemplate() []clockWindow {
	return []clockWindow{
		{"06:00", "08:00"},
		{"08:00", "10:00"},
		{"10:00", "12:00"},
		{"12:00", "14:00"},
		{"14:00", "16:00"},
		{"16:00", "18:00"},
		{"18:00", "20:00"},
		{"20:30", "22:30"},
	}
}

// CreateDefaultSlots заполняет неделю дневным шаблоном.
// При force сначала удаляет все слоты недели. Без force неделя
// с уже существующими слотами не трогается (возвращается 0).
func (r *ScheduleRepository) CreateDefaultSlots(weekID int, force bool) (int, error) {
	week, err := r.GetWeekByID(weekID)
	if err != nil {
		return 0, err
	}
	if week == nil {
		return 0, fmt.Errorf("неделя %d: %w", weekID, ErrNotFound)
	}

	if force {
		if _, err := r.db.Exec("DELETE FROM public.schedule_slots WHERE week_id = $1", weekID); err != nil {
			return 0, err
		}
	} else {
		var existing int
		if err := r.db.QueryRow(
			"SELECT COUNT(*) FROM public.schedule_slots WHERE week_id = $1", weekID,
		).Scan(&existing); err != nil {
			return 0, err
		}
		if existing > 0 {
			return 0, nil
		}
	}

	created := 0
	for day := 0; day < 7; day++ {
		date := week.WeekStartDate.AddDate(0, 0, day)
		for i, win := range defaultDayTemplate() {
			if _, _, err := r.CreateSlot(weekID, date, win.Start, win.End, KindSelfService, "", i); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// CopySlotsFromWeek копирует слоты из одной недели в другую со сдвигом дат.
// Слоты, чей сдвинутый кортеж уже есть в целевой неделе, пропускаются.
// Возвращает число скопированных слотов и созданных заглушек броней.
func (r *ScheduleRepository) CopySlotsFromWeek(sourceWeekID, targetWeekID int) (int, int, error) {
	source, err := r.GetWeekByID(sourceWeekID)
	if err != nil {
		return 0, 0, err
	}
	if source == nil {
		return 0, 0, fmt.Errorf("неделя-источник %d: %w", sourceWeekID, ErrNotFound)
	}
	target, err := r.GetWeekByID(targetWeekID)
	if err != nil {
		return 0, 0, err
	}
	if target == nil {
		return 0, 0, fmt.Errorf("целевая неделя %d: %w", targetWeekID, ErrNotFound)
	}

	shiftDays := int(target.WeekStartDate.Sub(source.WeekStartDate).Hours() / 24)

	slots, err := r.ListSlotsForWeek(sourceWeekID)
	if err != nil {
		return 0, 0, err
	}

	reservations := NewReservationRepository(r.db)
	copied, placeholders := 0, 0
	for _, s := range slots {
		shifted := s.SlotDate.AddDate(0, 0, shiftDays)

		var newID int
		err := r.db.QueryRow(`
			INSERT INTO public.schedule_slots
				(week_id, slot_date, start_time, end_time, session_kind, instructor_id, label, notes, sort_index)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (week_id, slot_date, start_time, end_time, label) DO NOTHING
			RETURNING id`,
			targetWeekID, shifted.Format("2006-01-02"), s.StartTime, s.EndTime,
			s.SessionKind, s.InstructorID, s.Label, s.Notes, s.SortIndex,
		).Scan(&newID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return copied, placeholders, err
		}
		copied++

		n, err := reservations.EnsureSlotCapacity(newID)
		if err != nil {
			return copied, placeholders, err
		}
		placeholders += n
	}

	if _, err := r.db.Exec(
		"UPDATE public.schedule_weeks SET copied_from_week_id = $1 WHERE id = $2",
		sourceWeekID, targetWeekID,
	); err != nil {
		return copied, placeholders, err
	}
	return copied, placeholders, nil
}
