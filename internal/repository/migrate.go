package repository

import (
	"database/sql"
	"fmt"
)

// Схема создаётся один раз на старте процесса, рабочие запросы
// рассчитывают на уже существующие таблицы.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS public.clients (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		intervals_api_key TEXT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS public.client_telegram_links (
		id SERIAL PRIMARY KEY,
		client_id INT NOT NULL UNIQUE REFERENCES public.clients(id) ON DELETE CASCADE,
		telegram_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS public.stands (
		id SERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		sort_index INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS public.schedule_weeks (
		id SERIAL PRIMARY KEY,
		week_start_date DATE NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		copied_from_week_id INT REFERENCES public.schedule_weeks(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS public.schedule_slots (
		id SERIAL PRIMARY KEY,
		week_id INT NOT NULL REFERENCES public.schedule_weeks(id) ON DELETE CASCADE,
		slot_date DATE NOT NULL,
		start_time TIME NOT NULL,
		end_time TIME NOT NULL,
		session_kind TEXT NOT NULL DEFAULT 'self_service',
		instructor_id INT,
		is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		label TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		sort_index INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT slot_time_order CHECK (end_time > start_time),
		CONSTRAINT slot_unique_tuple UNIQUE (week_id, slot_date, start_time, end_time, label)
	)`,
	`CREATE TABLE IF NOT EXISTS public.schedule_reservations (
		id SERIAL PRIMARY KEY,
		slot_id INT NOT NULL REFERENCES public.schedule_slots(id) ON DELETE CASCADE,
		stand_id INT REFERENCES public.stands(id),
		stand_code TEXT NOT NULL DEFAULT '',
		client_id INT REFERENCES public.clients(id),
		client_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'available',
		source TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_reservation_slot_stand
		ON public.schedule_reservations (slot_id, stand_id) WHERE stand_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_reservation_slot_stand_code
		ON public.schedule_reservations (slot_id, stand_code) WHERE stand_id IS NULL`,
	`CREATE TABLE IF NOT EXISTS public.seen_activity_ids (
		id SERIAL PRIMARY KEY,
		account_id TEXT NOT NULL,
		activity_id TEXT NOT NULL,
		client_id INT,
		override_client_id INT,
		scheduled_name TEXT,
		profile_name TEXT,
		start_time TIMESTAMPTZ,
		sent_clientbot BOOLEAN NOT NULL DEFAULT FALSE,
		sent_strava BOOLEAN NOT NULL DEFAULT FALSE,
		sent_intervals BOOLEAN NOT NULL DEFAULT FALSE,
		distance_m DOUBLE PRECISION,
		elapsed_sec BIGINT,
		elevation_m DOUBLE PRECISION,
		avg_power DOUBLE PRECISION,
		avg_cadence DOUBLE PRECISION,
		avg_heartrate DOUBLE PRECISION,
		fit_path TEXT,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT seen_activity_unique UNIQUE (account_id, activity_id)
	)`,
	`CREATE TABLE IF NOT EXISTS public.schedule_account_assignments (
		id SERIAL PRIMARY KEY,
		reservation_id INT NOT NULL REFERENCES public.schedule_reservations(id) ON DELETE CASCADE,
		account_id TEXT NOT NULL,
		client_id INT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT assignment_unique UNIQUE (reservation_id, account_id)
	)`,
	`CREATE TABLE IF NOT EXISTS public.workout_notifications (
		id SERIAL PRIMARY KEY,
		reservation_id INT NOT NULL REFERENCES public.schedule_reservations(id) ON DELETE CASCADE,
		notification_type TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT notification_unique UNIQUE (reservation_id, notification_type)
	)`,
}

// Migrate приводит схему базы к актуальному виду
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}
