package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Archive хранит скачанные FIT-файлы: по подкаталогу на аккаунт,
// файл называется <activity_id>.fit. Уже существующий файл повторно
// не записывается — архив идемпотентен наравне с леджером.
type Archive struct {
	root string
}

// NewArchive создаёт архив с корнем root
func NewArchive(root string) *Archive {
	return &Archive{root: root}
}

// Path возвращает путь файла активности в архиве
func (a *Archive) Path(accountID, activityID string) string {
	return filepath.Join(a.root, accountID, activityID+".fit")
}

// Exists проверяет, есть ли файл активности в архиве
func (a *Archive) Exists(accountID, activityID string) bool {
	_, err := os.Stat(a.Path(accountID, activityID))
	return err == nil
}

// Read возвращает содержимое файла активности
func (a *Archive) Read(accountID, activityID string) ([]byte, error) {
	return os.ReadFile(a.Path(accountID, activityID))
}

// Store записывает файл активности в архив. Возвращает путь и признак,
// что запись действительно произошла (false — файл уже был).
// Запись атомарна: сначала временный файл, потом переименование.
func (a *Archive) Store(accountID, activityID string, data []byte) (string, bool, error) {
	path := a.Path(accountID, activityID)
	if a.Exists(accountID, activityID) {
		return path, false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("каталог архива %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", false, fmt.Errorf("запись %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", false, fmt.Errorf("переименование в %s: %w", path, err)
	}
	return path, true, nil
}
