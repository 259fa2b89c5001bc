package grid

import (
	"testing"
	"time"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/storage"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

func TestLeadingDays(t *testing.T) {
	tests := map[time.Weekday]int{
		time.Monday:    0,
		time.Tuesday:   1,
		time.Saturday:  5,
		time.Sunday:    6,
		time.Wednesday: 2,
	}
	for wd, want := range tests {
		if got := LeadingDays(wd); got != want {
			t.Errorf("%s: expected %d, got %d", wd, want, got)
		}
	}
}

func TestBuildMonth(t *testing.T) {
	store := tasks.NewStore(storage.NewMemory())
	jan10 := datekey.New(2024, time.January, 10)
	store.Add(jan10, tasks.Task{Text: "plain"})
	store.Add(jan10, tasks.Task{Text: "with advice", Advice: "go for it"})
	store.Add(datekey.New(2024, time.January, 11), tasks.Task{Text: "no advice"})

	cycle := &phase.CycleConfig{Start: datekey.New(2024, time.January, 1), Period: 28}
	now := time.Date(2024, time.January, 15, 18, 45, 0, 0, time.Local)

	// February 2024 starts on a Thursday.
	feb := NewBuilder(store, phase.Classifier{}).Build(2024, time.February, now, cycle)
	if len(feb) != 3+29 {
		t.Fatalf("Expected 32 cells for February 2024, got %d", len(feb))
	}
	for i := 0; i < 3; i++ {
		if feb[i].InCurrentMonth || feb[i].TaskCount != 0 || feb[i].Phase != phase.Unknown {
			t.Errorf("Leading cell %d should be blank, got %+v", i, feb[i])
		}
	}
	if feb[0].Date != datekey.New(2024, time.January, 29) || feb[2].Date != datekey.New(2024, time.January, 31) {
		t.Errorf("Unexpected leading dates %v..%v", feb[0].Date, feb[2].Date)
	}

	// January 2024 starts on a Monday.
	jan := NewBuilder(store, phase.Classifier{}).Build(2024, time.January, now, cycle)
	if len(jan) != 31 {
		t.Fatalf("Expected 31 cells for January 2024, got %d", len(jan))
	}
	d10 := jan[9]
	if d10.Date != jan10 || !d10.InCurrentMonth || d10.TaskCount != 2 || !d10.HasAdvice {
		t.Errorf("Unexpected descriptor for Jan 10: %+v", d10)
	}
	if jan[10].TaskCount != 1 || jan[10].HasAdvice {
		t.Errorf("Unexpected descriptor for Jan 11: %+v", jan[10])
	}
	if !jan[14].IsToday {
		t.Error("Expected Jan 15 to be today")
	}
	for i, d := range jan {
		if d.IsToday && i != 14 {
			t.Errorf("Only Jan 15 should be today, got %v", d.Date)
		}
	}
	if jan[0].Phase != phase.Menstruation || jan[11].Phase != phase.Ovulation || jan[28].Phase != phase.Menstruation {
		t.Errorf("Unexpected phases: %s %s %s", jan[0].Phase, jan[11].Phase, jan[28].Phase)
	}
}

func TestBuildWithoutCycle(t *testing.T) {
	store := tasks.NewStore(storage.NewMemory())
	days := NewBuilder(store, phase.Classifier{}).Build(2024, time.March, time.Now(), nil)
	for _, d := range days {
		if d.Phase != phase.Unknown {
			t.Fatalf("Expected unknown phase without cycle, got %s", d.Phase)
		}
	}
}

func TestBuildDoesNotMutate(t *testing.T) {
	mem := storage.NewMemory()
	store := tasks.NewStore(mem)
	store.Add(datekey.New(2024, time.May, 2), tasks.Task{Text: "x"})
	before, _, _ := mem.Get(tasks.StorageKey)
	NewBuilder(store, phase.Classifier{}).Build(2024, time.May, time.Now(), nil)
	after, _, _ := mem.Get(tasks.StorageKey)
	if before != after {
		t.Error("Build must not write to the store")
	}
}

func TestWeeks(t *testing.T) {
	days := make([]Day, 32)
	rows := Weeks(days)
	if len(rows) != 5 || len(rows[4]) != 4 {
		t.Errorf("Expected 5 rows with a short last row, got %d rows", len(rows))
	}
}

func TestMoveCandidates(t *testing.T) {
	b := NewBuilder(tasks.NewStore(storage.NewMemory()), phase.Classifier{})
	cycle := &phase.CycleConfig{Start: datekey.New(2024, time.January, 1), Period: 28}
	got := b.MoveCandidates(datekey.New(2024, time.January, 3), 0, cycle)
	if len(got) != DefaultMoveDays {
		t.Fatalf("Expected %d candidates, got %d", DefaultMoveDays, len(got))
	}
	if got[0].Date != datekey.New(2024, time.January, 4) || got[0].Info.Phase != phase.Menstruation {
		t.Errorf("Unexpected first candidate %+v", got[0])
	}
	if got[2].Info.Phase != phase.Follicular {
		t.Errorf("Expected follicular on Jan 6, got %s", got[2].Info.Phase)
	}
}
