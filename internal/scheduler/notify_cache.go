package scheduler

import (
	"fmt"
	"sync"
)

// NotifyCache — внутрипроцессный кэш уже отправленных уведомлений
// автоназначения. Проверка и отметка разделены: ключ отмечается только
// после успешной обработки, чтобы сбой не глушил повторные попытки.
// Живёт столько же, сколько процесс; Reset нужен тестам и ручному сбросу.
type NotifyCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewNotifyCache создаёт пустой кэш
func NewNotifyCache() *NotifyCache {
	return &NotifyCache{seen: make(map[string]bool)}
}

// Has проверяет ключ, не отмечая его
func (c *NotifyCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[key]
}

// Mark отмечает ключ обработанным
func (c *NotifyCache) Mark(key string) {
	c.mu.Lock()
	c.seen[key] = true
	c.mu.Unlock()
}

// Reset очищает кэш
func (c *NotifyCache) Reset() {
	c.mu.Lock()
	c.seen = make(map[string]bool)
	c.mu.Unlock()
}

// assignmentKey строит ключ уведомления (бронь, аккаунт, статус)
func assignmentKey(reservationID int, accountID, status string) string {
	return fmt.Sprintf("%d|%s|%s", reservationID, accountID, status)
}
