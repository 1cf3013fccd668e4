package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Account — аккаунт WattAttack, номинально закреплённый за станками.
// Один аккаунт может покрывать несколько станков.
type Account struct {
	ID       string  `json:"account_id"`
	Login    string  `json:"login"`
	Password string  `json:"password"`
	StandIDs []int64 `json:"stand_ids"`
}

// Registry хранит реестр аккаунтов и перечитывает его при изменении
// файла. Реестр статичен между перезагрузками, поэтому подмена
// происходит целиком под блокировкой.
type Registry struct {
	mu       sync.RWMutex
	path     string
	accounts []Account
	log      *zap.Logger
}

// Load читает реестр аккаунтов из JSON-файла
func Load(path string, log *zap.Logger) (*Registry, error) {
	r := &Registry{path: path, log: log}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("не удалось прочитать %s: %w", r.path, err)
	}

	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return fmt.Errorf("не удалось разобрать %s: %w", r.path, err)
	}
	for _, a := range accounts {
		if a.ID == "" {
			return fmt.Errorf("аккаунт без account_id в %s", r.path)
		}
	}

	r.mu.Lock()
	r.accounts = accounts
	r.mu.Unlock()
	return nil
}

// All возвращает копию списка аккаунтов
func (r *Registry) All() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// ByID возвращает аккаунт по идентификатору, nil если такого нет
func (r *Registry) ByID(id string) *Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.accounts {
		if r.accounts[i].ID == id {
			a := r.accounts[i]
			return &a
		}
	}
	return nil
}

// ByStand строит карту станок → аккаунт
func (r *Registry) ByStand() map[int64]Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byStand := make(map[int64]Account)
	for _, a := range r.accounts {
		for _, standID := range a.StandIDs {
			byStand[standID] = a
		}
	}
	return byStand
}

// Watch запускает наблюдение за файлом реестра и перечитывает его
// после изменений. Ошибки перечитывания не роняют процесс —
// остаётся последняя удачно загруженная версия.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	go func() {
		defer watcher.Close()

		var lastEvent time.Time
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if time.Since(lastEvent) < 2*time.Second {
					continue
				}
				lastEvent = time.Now()

				if err := r.reload(); err != nil {
					r.log.Warn("реестр аккаунтов не перечитан", zap.Error(err))
					continue
				}
				r.log.Info("реестр аккаунтов перечитан", zap.Int("accounts", len(r.All())))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.log.Warn("ошибка наблюдателя реестра", zap.Error(err))
			}
		}
	}()

	return watcher.Add(r.path)
}
