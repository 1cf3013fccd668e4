package repository

import (
	"database/sql"
	"time"
)

// Client представляет клиента из БД
type Client struct {
	ID              int
	Name            string
	Phone           string
	IntervalsAPIKey sql.NullString
	Notes           sql.NullString
	CreatedAt       time.Time
	DeletedAt       sql.NullTime
}

// ClientRepository работает с таблицей clients
type ClientRepository struct {
	db *sql.DB
}

// NewClientRepository создаёт репозиторий клиентов
func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, name, COALESCE(phone, ''), intervals_api_key, notes, created_at, deleted_at`

// Create создаёт нового клиента
func (r *ClientRepository) Create(name, phone string) (int, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO public.clients (name, phone)
		VALUES ($1, $2)
		RETURNING id`,
		name, phone,
	).Scan(&id)
	return id, err
}

// GetByID возвращает клиента по ID, nil если не найден
func (r *ClientRepository) GetByID(id int) (*Client, error) {
	c := &Client{}
	err := r.db.QueryRow(
		`SELECT `+clientColumns+` FROM public.clients WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.IntervalsAPIKey, &c.Notes, &c.CreatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SearchByName ищет клиентов по подстроке имени
func (r *ClientRepository) SearchByName(query string) ([]Client, error) {
	rows, err := r.db.Query(`
		SELECT `+clientColumns+`
		FROM public.clients
		WHERE name ILIKE '%' || $1 || '%' AND deleted_at IS NULL
		ORDER BY name`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.IntervalsAPIKey, &c.Notes, &c.CreatedAt, &c.DeletedAt); err != nil {
			continue
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// GetTelegramID возвращает telegram_id клиента, 0 если связка не настроена
func (r *ClientRepository) GetTelegramID(clientID int) (int64, error) {
	var telegramID int64
	err := r.db.QueryRow(`
		SELECT COALESCE(
			(SELECT telegram_id FROM public.client_telegram_links WHERE client_id = $1), 0)`,
		clientID,
	).Scan(&telegramID)
	return telegramID, err
}

// LinkTelegram привязывает Telegram к клиенту (или перепривязывает)
func (r *ClientRepository) LinkTelegram(clientID int, telegramID int64) error {
	_, err := r.db.Exec(`
		INSERT INTO public.client_telegram_links (client_id, telegram_id)
		VALUES ($1, $2)
		ON CONFLICT (client_id) DO UPDATE SET telegram_id = $2`,
		clientID, telegramID)
	return err
}

// SetIntervalsKey сохраняет API-ключ Intervals.icu клиента
func (r *ClientRepository) SetIntervalsKey(clientID int, apiKey string) (bool, error) {
	res, err := r.db.Exec(
		"UPDATE public.clients SET intervals_api_key = NULLIF($2, '') WHERE id = $1",
		clientID, apiKey)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SoftDelete мягко удаляет клиента
func (r *ClientRepository) SoftDelete(clientID int) error {
	_, err := r.db.Exec(
		"UPDATE public.clients SET deleted_at = NOW() WHERE id = $1",
		clientID,
	)
	return err
}
