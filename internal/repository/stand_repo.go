package repository

import (
	"database/sql"
	"time"
)

// Stand представляет физический станок (велостанок) в зале
type Stand struct {
	ID        int
	Code      string
	Title     string
	IsActive  bool
	SortIndex int
	CreatedAt time.Time
}

// StandRepository работает с реестром станков
type StandRepository struct {
	db *sql.DB
}

// NewStandRepository создаёт репозиторий станков
func NewStandRepository(db *sql.DB) *StandRepository {
	return &StandRepository{db: db}
}

// Create регистрирует новый станок и досоздаёт заглушки броней
// под него во всех будущих слотах
func (r *StandRepository) Create(code, title string, sortIndex int) (*Stand, error) {
	s := &Stand{}
	err := r.db.QueryRow(`
		INSERT INTO public.stands (code, title, sort_index)
		VALUES ($1, $2, $3)
		RETURNING id, code, title, is_active, sort_index, created_at`,
		code, title, sortIndex,
	).Scan(&s.ID, &s.Code, &s.Title, &s.IsActive, &s.SortIndex, &s.CreatedAt)
	if err != nil {
		return nil, wrapConflict(err, "станок с таким кодом уже есть")
	}

	if _, err := r.db.Exec(`
		INSERT INTO public.schedule_reservations (slot_id, stand_id, stand_code, status)
		SELECT sl.id, $1, $2, 'available'
		FROM public.schedule_slots sl
		WHERE sl.slot_date >= CURRENT_DATE`,
		s.ID, s.Code); err != nil {
		return s, err
	}
	return s, nil
}

// GetByID возвращает станок по ID, nil если не найден
func (r *StandRepository) GetByID(id int) (*Stand, error) {
	s := &Stand{}
	err := r.db.QueryRow(`
		SELECT id, code, title, is_active, sort_index, created_at
		FROM public.stands WHERE id = $1`, id,
	).Scan(&s.ID, &s.Code, &s.Title, &s.IsActive, &s.SortIndex, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByCode возвращает станок по коду, nil если не найден
func (r *StandRepository) GetByCode(code string) (*Stand, error) {
	s := &Stand{}
	err := r.db.QueryRow(`
		SELECT id, code, title, is_active, sort_index, created_at
		FROM public.stands WHERE code = $1`, code,
	).Scan(&s.ID, &s.Code, &s.Title, &s.IsActive, &s.SortIndex, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListActive возвращает активные станки в порядке показа
func (r *StandRepository) ListActive() ([]Stand, error) {
	rows, err := r.db.Query(`
		SELECT id, code, title, is_active, sort_index, created_at
		FROM public.stands
		WHERE is_active
		ORDER BY sort_index, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stands []Stand
	for rows.Next() {
		var s Stand
		if err := rows.Scan(&s.ID, &s.Code, &s.Title, &s.IsActive, &s.SortIndex, &s.CreatedAt); err != nil {
			continue
		}
		stands = append(stands, s)
	}
	return stands, rows.Err()
}

// SetActive включает или выключает станок.
// Брони выключенного станка остаются как есть, новые заглушки для него не создаются.
func (r *StandRepository) SetActive(id int, active bool) (bool, error) {
	res, err := r.db.Exec(
		"UPDATE public.stands SET is_active = $1 WHERE id = $2",
		active, id,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
