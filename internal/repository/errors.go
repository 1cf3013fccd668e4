package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Ошибки слоя хранения. "Не найдено" репозитории по возможности
// выражают через nil/false, ErrNotFound остаётся для операций,
// которым нечего вернуть кроме ошибки.
var (
	ErrConflict   = errors.New("нарушение уникальности")
	ErrNotFound   = errors.New("запись не найдена")
	ErrValidation = errors.New("некорректные данные")
)

const pgUniqueViolation = "23505"

// wrapConflict переводит нарушение уникальности Postgres в ErrConflict
func wrapConflict(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", msg, ErrConflict)
	}
	return err
}

func wrapValidation(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}
