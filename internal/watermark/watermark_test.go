package watermark

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

func TestGetAbsentGroup(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "marks.json"))

	id, ok, err := store.Get("IHS NOR HUA")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Errorf("Get() ok = true for absent group, id = %q", id)
	}
}

func TestSetThenGet(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "marks.json"))

	if err := store.Set("Ops Group", "false_123@g.us_A1@c.us"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	id, ok, err := store.Get("Ops Group")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || id != "false_123@g.us_A1@c.us" {
		t.Errorf("Get() = (%q, %v), want (false_123@g.us_A1@c.us, true)", id, ok)
	}
}

func TestSetIsDurableAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.json")

	if err := NewStore(path).Set("Ops Group", "id-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// A fresh store instance simulates a process restart.
	id, ok, err := NewStore(path).Get("Ops Group")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || id != "id-1" {
		t.Errorf("Get() after restart = (%q, %v), want (id-1, true)", id, ok)
	}
}

func TestSetPreservesOtherGroups(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "marks.json"))

	if err := store.Set("Group A", "id-a"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("Group B", "id-b"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	id, ok, err := store.Get("Group A")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || id != "id-a" {
		t.Errorf("Get(Group A) = (%q, %v), want (id-a, true)", id, ok)
	}
}

func TestDeletedFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.json")
	store := NewStore(path)

	if err := store.Set("Ops Group", "id-1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	// Deleting the store file between cycles makes all history unread.
	_, ok, err := store.Get("Ops Group")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true after store file deleted")
	}
}

func TestCorruptFileReportsStoreIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, _, err := NewStore(path).Get("Ops Group")
	if err == nil {
		t.Fatal("Get() error = nil, want STORE_IO")
	}
	if !errors.HasCode(err, errors.ErrCodeStoreIO) {
		t.Errorf("Get() error code = %q, want %q", errors.CodeOf(err), errors.ErrCodeStoreIO)
	}
}

func TestUnwritablePathReportsStoreIO(t *testing.T) {
	// The parent directory does not exist, so the write must fail.
	store := NewStore(filepath.Join(t.TempDir(), "missing", "marks.json"))

	err := store.Set("Ops Group", "id-1")
	if err == nil {
		t.Fatal("Set() error = nil, want STORE_IO")
	}
	if !errors.HasCode(err, errors.ErrCodeStoreIO) {
		t.Errorf("Set() error code = %q, want %q", errors.CodeOf(err), errors.ErrCodeStoreIO)
	}
}
