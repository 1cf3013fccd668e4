package scheduler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArchive_StoreAndRead(t *testing.T) {
	a := NewArchive(t.TempDir())

	path, stored, err := a.Store("alice", "act-1", []byte("fit-data"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if !stored {
		t.Error("Store() stored = false, want true for new file")
	}
	if want := a.Path("alice", "act-1"); path != want {
		t.Errorf("Store() path = %q, want %q", path, want)
	}
	if !a.Exists("alice", "act-1") {
		t.Error("Exists() = false after Store()")
	}

	data, err := a.Read("alice", "act-1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "fit-data" {
		t.Errorf("Read() = %q, want %q", data, "fit-data")
	}
}

func TestArchive_StoreIdempotent(t *testing.T) {
	a := NewArchive(t.TempDir())

	if _, _, err := a.Store("alice", "act-1", []byte("original")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// Повторная запись не трогает существующий файл
	path, stored, err := a.Store("alice", "act-1", []byte("replacement"))
	if err != nil {
		t.Fatalf("second Store() error = %v", err)
	}
	if stored {
		t.Error("second Store() stored = true, want false")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "original" {
		t.Errorf("file content = %q, want untouched %q", data, "original")
	}
}

func TestArchive_PathLayout(t *testing.T) {
	a := NewArchive("/var/lib/krutilka")
	want := filepath.Join("/var/lib/krutilka", "alice", "act-1.fit")
	if got := a.Path("alice", "act-1"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestArchive_NoTempLeftovers(t *testing.T) {
	root := t.TempDir()
	a := NewArchive(root)

	if _, _, err := a.Store("alice", "act-1", []byte("data")); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "alice"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "act-1.fit" {
		t.Errorf("archive dir = %v, want only act-1.fit", entries)
	}
}
