package credstore

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFileSlotRoundTrip(t *testing.T) {
	slot := NewFileSlot(filepath.Join(t.TempDir(), "nimbus", "token"))

	if slot.Present() {
		t.Error("Expected empty slot to not be present")
	}
	if _, err := slot.Read(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Expected ErrNoToken, got %v", err)
	}

	if err := slot.Write("tok-abc"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !slot.Present() {
		t.Error("Expected slot to be present after write")
	}

	token, err := slot.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if token != "tok-abc" {
		t.Errorf("Expected tok-abc, got %s", token)
	}
}

func TestFileSlotClearIdempotent(t *testing.T) {
	slot := NewFileSlot(filepath.Join(t.TempDir(), "token"))

	if err := slot.Write("tok"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := slot.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if slot.Present() {
		t.Error("Expected slot absent after clear")
	}
	// Clearing an already-empty slot succeeds too.
	if err := slot.Clear(); err != nil {
		t.Errorf("Second clear failed: %v", err)
	}
}
