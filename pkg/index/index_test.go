package index

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEventIndexPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "events.json")
	idx, err := NewEventIndex(path)
	if err != nil {
		t.Fatalf("NewEventIndex failed: %v", err)
	}

	if err := idx.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected clean index not to be written")
	}

	idx.Set("task-1", "event-1")
	idx.Set("task-2", "event-2")
	idx.Remove("task-2")
	if err := idx.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := NewEventIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Get("task-1"); got != "event-1" {
		t.Errorf("Expected event-1, got %q", got)
	}
	if ids := reloaded.TaskIDs(); len(ids) != 1 || ids[0] != "task-1" {
		t.Errorf("Unexpected ids %v", ids)
	}
}

func TestEventIndexCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	os.WriteFile(path, []byte("{"), 0600)
	if _, err := NewEventIndex(path); err == nil {
		t.Error("Expected error for corrupt index")
	}
}
