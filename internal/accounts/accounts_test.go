package accounts

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

const registryJSON = `[
	{"account_id": "acc-1", "login": "one@krutilka.ru", "password": "p1", "stand_ids": [1, 2]},
	{"account_id": "acc-2", "login": "two@krutilka.ru", "password": "p2", "stand_ids": [3]}
]`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write registry file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	r, err := Load(writeRegistry(t, registryJSON), zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(r.All()); got != 2 {
		t.Fatalf("All() len = %d, want 2", got)
	}

	a := r.ByID("acc-2")
	if a == nil {
		t.Fatal("ByID(acc-2) = nil")
	}
	if a.Login != "two@krutilka.ru" {
		t.Errorf("ByID(acc-2).Login = %q", a.Login)
	}
	if r.ByID("acc-9") != nil {
		t.Error("ByID(acc-9) != nil, want nil for unknown account")
	}
}

func TestLoad_MissingID(t *testing.T) {
	path := writeRegistry(t, `[{"login": "x", "password": "y", "stand_ids": [1]}]`)
	if _, err := Load(path, zap.NewNop()); err == nil {
		t.Error("Load() error = nil, want error for account without account_id")
	}
}

func TestRegistry_ByStand(t *testing.T) {
	r, err := Load(writeRegistry(t, registryJSON), zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	byStand := r.ByStand()
	if len(byStand) != 3 {
		t.Fatalf("ByStand() len = %d, want 3", len(byStand))
	}
	if byStand[2].ID != "acc-1" {
		t.Errorf("ByStand()[2].ID = %q, want acc-1", byStand[2].ID)
	}
	if byStand[3].ID != "acc-2" {
		t.Errorf("ByStand()[3].ID = %q, want acc-2", byStand[3].ID)
	}
}

func TestRegistry_ReloadKeepsLastGood(t *testing.T) {
	path := writeRegistry(t, registryJSON)
	r, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("overwrite registry: %v", err)
	}
	if err := r.reload(); err == nil {
		t.Fatal("reload() error = nil, want parse error")
	}

	// Старые данные остаются доступными после неудачной перезагрузки
	if got := len(r.All()); got != 2 {
		t.Errorf("All() len after failed reload = %d, want 2", got)
	}
}
