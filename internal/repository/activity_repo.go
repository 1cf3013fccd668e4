package repository

import (
	"database/sql"
	"time"
)

// ActivityRecord — запись леджера о внешне наблюдаемой активности.
// Ключ (account_id, activity_id). Строка дозаполняется по мере
// поступления данных, флаги доставки только взводятся.
type ActivityRecord struct {
	ID               int
	AccountID        string
	ActivityID       string
	ClientID         sql.NullInt64
	OverrideClientID sql.NullInt64 // ручная коррекция, реконсиляция её не трогает
	ScheduledName    sql.NullString
	ProfileName      sql.NullString
	StartTime        sql.NullTime
	SentClientBot    bool
	SentStrava       bool
	SentIntervals    bool
	DistanceM        sql.NullFloat64
	ElapsedSec       sql.NullInt64
	ElevationM       sql.NullFloat64
	AvgPower         sql.NullFloat64
	AvgCadence       sql.NullFloat64
	AvgHeartrate     sql.NullFloat64
	FitPath          sql.NullString
	FirstSeenAt      time.Time
	UpdatedAt        time.Time
}

// LeaderboardRow — строка рейтинга по леджеру за период
type LeaderboardRow struct {
	ClientID   int64
	ClientName string
	Rides      int
	DistanceM  float64
	ElapsedSec int64
}

// ActivityRepository работает с леджером активностей
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository создаёт репозиторий леджера
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// WasSeen проверяет, встречалась ли уже активность
func (r *ActivityRepository) WasSeen(accountID, activityID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM public.seen_activity_ids WHERE account_id = $1 AND activity_id = $2)",
		accountID, activityID,
	).Scan(&exists)
	return exists, err
}

// RecordSeen записывает активность в леджер. Повторная запись дозаполняет
// пустые поля (COALESCE от нового к старому) и взводит флаги доставки
// через OR — взведённый флаг назад не сбрасывается. Возвращает true,
// если строка появилась впервые.
func (r *ActivityRepository) RecordSeen(rec ActivityRecord) (bool, error) {
	var inserted bool
	err := r.db.QueryRow(`
		INSERT INTO public.seen_activity_ids
			(account_id, activity_id, client_id, scheduled_name, profile_name, start_time,
			 sent_clientbot, sent_strava, sent_intervals,
			 distance_m, elapsed_sec, elevation_m, avg_power, avg_cadence, avg_heartrate, fit_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (account_id, activity_id) DO UPDATE SET
			client_id      = COALESCE(EXCLUDED.client_id, seen_activity_ids.client_id),
			scheduled_name = COALESCE(EXCLUDED.scheduled_name, seen_activity_ids.scheduled_name),
			profile_name   = COALESCE(EXCLUDED.profile_name, seen_activity_ids.profile_name),
			start_time     = COALESCE(EXCLUDED.start_time, seen_activity_ids.start_time),
			sent_clientbot = seen_activity_ids.sent_clientbot OR EXCLUDED.sent_clientbot,
			sent_strava    = seen_activity_ids.sent_strava OR EXCLUDED.sent_strava,
			sent_intervals = seen_activity_ids.sent_intervals OR EXCLUDED.sent_intervals,
			distance_m     = COALESCE(EXCLUDED.distance_m, seen_activity_ids.distance_m),
			elapsed_sec    = COALESCE(EXCLUDED.elapsed_sec, seen_activity_ids.elapsed_sec),
			elevation_m    = COALESCE(EXCLUDED.elevation_m, seen_activity_ids.elevation_m),
			avg_power      = COALESCE(EXCLUDED.avg_power, seen_activity_ids.avg_power),
			avg_cadence    = COALESCE(EXCLUDED.avg_cadence, seen_activity_ids.avg_cadence),
			avg_heartrate  = COALESCE(EXCLUDED.avg_heartrate, seen_activity_ids.avg_heartrate),
			fit_path       = COALESCE(EXCLUDED.fit_path, seen_activity_ids.fit_path),
			updated_at     = NOW()
		RETURNING (xmax = 0)`,
		rec.AccountID, rec.ActivityID, rec.ClientID, rec.ScheduledName, rec.ProfileName, rec.StartTime,
		rec.SentClientBot, rec.SentStrava, rec.SentIntervals,
		rec.DistanceM, rec.ElapsedSec, rec.ElevationM, rec.AvgPower, rec.AvgCadence, rec.AvgHeartrate,
		rec.FitPath,
	).Scan(&inserted)
	return inserted, err
}

const activityColumns = `id, account_id, activity_id, client_id, override_client_id,
	scheduled_name, profile_name, start_time,
	sent_clientbot, sent_strava, sent_intervals,
	distance_m, elapsed_sec, elevation_m, avg_power, avg_cadence, avg_heartrate,
	fit_path, first_seen_at, updated_at`

func scanActivityRow(scan func(dest ...any) error, a *ActivityRecord) error {
	return scan(&a.ID, &a.AccountID, &a.ActivityID, &a.ClientID, &a.OverrideClientID,
		&a.ScheduledName, &a.ProfileName, &a.StartTime,
		&a.SentClientBot, &a.SentStrava, &a.SentIntervals,
		&a.DistanceM, &a.ElapsedSec, &a.ElevationM, &a.AvgPower, &a.AvgCadence, &a.AvgHeartrate,
		&a.FitPath, &a.FirstSeenAt, &a.UpdatedAt)
}

// GetSeen возвращает запись леджера, nil если её нет
func (r *ActivityRepository) GetSeen(accountID, activityID string) (*ActivityRecord, error) {
	a := &ActivityRecord{}
	err := scanActivityRow(r.db.QueryRow(
		`SELECT `+activityColumns+`
		FROM public.seen_activity_ids
		WHERE account_id = $1 AND activity_id = $2`,
		accountID, activityID).Scan, a)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListMissingFit возвращает записи без архивного файла, свежие первыми
func (r *ActivityRepository) ListMissingFit(limit int) ([]ActivityRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+activityColumns+`
		FROM public.seen_activity_ids
		WHERE fit_path IS NULL
		ORDER BY first_seen_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ActivityRecord
	for rows.Next() {
		var a ActivityRecord
		if err := scanActivityRow(rows.Scan, &a); err != nil {
			continue
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// ListUndelivered возвращает атрибутированные записи, у которых
// хотя бы один канал доставки ещё не отмечен
func (r *ActivityRepository) ListUndelivered(limit int) ([]ActivityRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+activityColumns+`
		FROM public.seen_activity_ids
		WHERE COALESCE(override_client_id, client_id) IS NOT NULL
		  AND NOT (sent_clientbot AND sent_strava AND sent_intervals)
		ORDER BY first_seen_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ActivityRecord
	for rows.Next() {
		var a ActivityRecord
		if err := scanActivityRow(rows.Scan, &a); err != nil {
			continue
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// SetFitPath запоминает путь к архивному файлу, не затирая уже известный
func (r *ActivityRepository) SetFitPath(accountID, activityID, path string) error {
	_, err := r.db.Exec(`
		UPDATE public.seen_activity_ids
		SET fit_path = COALESCE(fit_path, $3), updated_at = NOW()
		WHERE account_id = $1 AND activity_id = $2`,
		accountID, activityID, path)
	return err
}

// SetOverrideClient вручную переатрибутирует активность.
// Автоматически вычисленный client_id при этом сохраняется.
func (r *ActivityRepository) SetOverrideClient(accountID, activityID string, clientID int) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE public.seen_activity_ids
		SET override_client_id = $3, updated_at = NOW()
		WHERE account_id = $1 AND activity_id = $2`,
		accountID, activityID, clientID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Leaderboard строит рейтинг клиентов по дистанции за период
func (r *ActivityRepository) Leaderboard(from, to time.Time, limit int) ([]LeaderboardRow, error) {
	rows, err := r.db.Query(`
		SELECT COALESCE(a.override_client_id, a.client_id) AS cid,
		       c.name,
		       COUNT(*),
		       COALESCE(SUM(a.distance_m), 0),
		       COALESCE(SUM(a.elapsed_sec), 0)
		FROM public.seen_activity_ids a
		JOIN public.clients c ON c.id = COALESCE(a.override_client_id, a.client_id)
		WHERE a.start_time >= $1 AND a.start_time < $2
		GROUP BY cid, c.name
		ORDER BY COALESCE(SUM(a.distance_m), 0) DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var board []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.ClientID, &row.ClientName, &row.Rides, &row.DistanceM, &row.ElapsedSec); err != nil {
			continue
		}
		board = append(board, row)
	}
	return board, rows.Err()
}

// ClientStats возвращает сводку клиента за период
func (r *ActivityRepository) ClientStats(clientID int, from, to time.Time) (*LeaderboardRow, error) {
	row := &LeaderboardRow{ClientID: int64(clientID)}
	err := r.db.QueryRow(`
		SELECT COALESCE(c.name, ''),
		       COUNT(a.id),
		       COALESCE(SUM(a.distance_m), 0),
		       COALESCE(SUM(a.elapsed_sec), 0)
		FROM public.clients c
		LEFT JOIN public.seen_activity_ids a
			ON COALESCE(a.override_client_id, a.client_id) = c.id
			AND a.start_time >= $2 AND a.start_time < $3
		WHERE c.id = $1
		GROUP BY c.name`,
		clientID, from, to,
	).Scan(&row.ClientName, &row.Rides, &row.DistanceM, &row.ElapsedSec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}
