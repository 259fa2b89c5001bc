package tasks

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/storage"
)

var (
	jan1 = datekey.New(2024, time.January, 1)
	jan2 = datekey.New(2024, time.January, 2)
)

func newTestStore(t *testing.T) (*Store, *storage.Memory, *[]error) {
	t.Helper()
	mem := storage.NewMemory()
	var reported []error
	s := NewStore(mem, WithErrorHandler(func(err error) { reported = append(reported, err) }))
	return s, mem, &reported
}

func mustAdd(t *testing.T, s *Store, key datekey.Key, text string) {
	t.Helper()
	if err := s.Add(key, Task{Text: text}); err != nil {
		t.Fatalf("Add(%s, %q) failed: %v", key, text, err)
	}
}

// stamped is a task stored without an id at index of day's list, as it reads
// after a mutation has persisted its derived id.
func stamped(day datekey.Key, index int, text string) Task {
	return Task{ID: DerivedID(day, index, text), Text: text}
}

func TestAddThenList(t *testing.T) {
	s, _, _ := newTestStore(t)
	if got := s.List(jan1); len(got) != 0 {
		t.Fatalf("Expected empty list, got %v", got)
	}
	mustAdd(t, s, jan1, "x")
	before := len(s.List(jan1))
	task := Task{Text: "y", Advice: "rest"}
	if err := s.Add(jan1, task); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got := s.List(jan1)
	if len(got) != before+1 {
		t.Fatalf("Expected length %d, got %d", before+1, len(got))
	}
	if got[len(got)-1] != task {
		t.Errorf("Expected last task %+v, got %+v", task, got[len(got)-1])
	}
}

func TestAddAddDeleteScenario(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustAdd(t, s, jan1, "x")
	mustAdd(t, s, jan1, "y")
	removed, err := s.DeleteAt(jan1, 0)
	if err != nil || !removed {
		t.Fatalf("DeleteAt failed: removed=%v err=%v", removed, err)
	}
	want := []Task{stamped(jan1, 1, "y")}
	if got := s.List(jan1); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestDeleteAtPreservesOrder(t *testing.T) {
	s, _, _ := newTestStore(t)
	for _, text := range []string{"a", "b", "c", "d"} {
		mustAdd(t, s, jan1, text)
	}
	if _, err := s.DeleteAt(jan1, 1); err != nil {
		t.Fatal(err)
	}
	want := []Task{stamped(jan1, 0, "a"), stamped(jan1, 2, "c"), stamped(jan1, 3, "d")}
	if got := s.List(jan1); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestDeleteAtInvalidIndexIsNoop(t *testing.T) {
	s, mem, _ := newTestStore(t)
	mustAdd(t, s, jan1, "a")
	before, _, _ := mem.Get(StorageKey)
	for _, idx := range []int{-1, 1, 99} {
		removed, err := s.DeleteAt(jan1, idx)
		if err != nil || removed {
			t.Errorf("DeleteAt(%d): expected no-op, got removed=%v err=%v", idx, removed, err)
		}
	}
	if removed, _ := s.DeleteAt(jan2, 0); removed {
		t.Error("DeleteAt on an unknown key should be a no-op")
	}
	after, _, _ := mem.Get(StorageKey)
	if before != after {
		t.Errorf("Expected payload unchanged, got %s -> %s", before, after)
	}
}

func TestEmptiedKeyIsRemoved(t *testing.T) {
	s, mem, _ := newTestStore(t)
	mustAdd(t, s, jan1, "only")
	mustAdd(t, s, jan2, "other")
	if _, err := s.DeleteAt(jan1, 0); err != nil {
		t.Fatal(err)
	}
	raw, _, _ := mem.Get(StorageKey)
	var dump map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &dump); err != nil {
		t.Fatal(err)
	}
	if _, ok := dump[jan1.String()]; ok {
		t.Errorf("Expected %s to be absent from %s", jan1, raw)
	}
	if keys := s.Keys(); !reflect.DeepEqual(keys, []datekey.Key{jan2}) {
		t.Errorf("Expected only %s, got %v", jan2, keys)
	}
}

func TestMoveSingleTaskDay(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustAdd(t, s, jan1, "call mom")
	moved, err := s.Move(jan1, jan2, 0)
	if err != nil || !moved {
		t.Fatalf("Move failed: moved=%v err=%v", moved, err)
	}
	if got := s.List(jan1); len(got) != 0 {
		t.Errorf("Expected source empty, got %v", got)
	}
	if _, ok := s.Snapshot()[jan1]; ok {
		t.Error("Expected source key to be removed")
	}
	got := s.List(jan2)
	if len(got) != 1 || got[0].Text != "call mom" {
		t.Errorf("Expected moved task on target, got %v", got)
	}
}

func TestMoveConservesCount(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustAdd(t, s, jan1, "a")
	mustAdd(t, s, jan1, "b")
	mustAdd(t, s, jan2, "c")
	if _, err := s.Move(jan1, jan2, 0); err != nil {
		t.Fatal(err)
	}
	from, to := s.List(jan1), s.List(jan2)
	if len(from)+len(to) != 3 || len(from) != 1 {
		t.Fatalf("Unexpected counts: %d + %d", len(from), len(to))
	}
	if to[len(to)-1].Text != "a" {
		t.Errorf("Expected moved task last on target, got %v", to)
	}
}

func TestMoveSameDayReordersToEnd(t *testing.T) {
	s, _, _ := newTestStore(t)
	for _, text := range []string{"a", "b", "c"} {
		mustAdd(t, s, jan1, text)
	}
	if moved, err := s.Move(jan1, jan1, 0); err != nil || !moved {
		t.Fatalf("Move failed: %v", err)
	}
	want := []Task{stamped(jan1, 1, "b"), stamped(jan1, 2, "c"), stamped(jan1, 0, "a")}
	if got := s.List(jan1); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestMoveInvalidIndexIsNoop(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustAdd(t, s, jan1, "a")
	if moved, err := s.Move(jan1, jan2, 3); err != nil || moved {
		t.Errorf("Expected no-op, got moved=%v err=%v", moved, err)
	}
	if len(s.List(jan1)) != 1 || len(s.List(jan2)) != 0 {
		t.Error("Expected lists unchanged")
	}
}

func TestLegacyStringsNormalizedOnRead(t *testing.T) {
	s, mem, _ := newTestStore(t)
	payload := `{"2024-0-1":["buy milk",{"text":"gym","advice":"go light"}],"2024-0-2":["legacy"]}`
	if err := mem.Set(StorageKey, payload); err != nil {
		t.Fatal(err)
	}
	want := []Task{{Text: "buy milk"}, {Text: "gym", Advice: "go light"}}
	if got := s.List(jan1); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if raw, _, _ := mem.Get(StorageKey); raw != payload {
		t.Error("List must not rewrite storage")
	}

	mustAdd(t, s, jan1, "new")
	raw, _, _ := mem.Get(StorageKey)
	var dump map[string][]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &dump); err != nil {
		t.Fatal(err)
	}
	if string(dump["2024-0-2"][0]) != `"legacy"` {
		t.Errorf("Untouched key should keep its legacy form, got %s", dump["2024-0-2"][0])
	}
	if want := `{"id":"` + DerivedID(jan1, 0, "buy milk") + `","text":"buy milk","advice":""}`; string(dump["2024-0-1"][0]) != want {
		t.Errorf("Touched key should be normalized, got %s", dump["2024-0-1"][0])
	}
}

func TestDerivedIDsSurviveIndexShifts(t *testing.T) {
	s, mem, _ := newTestStore(t)
	payload := `{"2024-0-1":["gym","dentist"],"2024-0-2":["call mom"]}`
	if err := mem.Set(StorageKey, payload); err != nil {
		t.Fatal(err)
	}
	s.List(jan1)
	if raw, _, _ := mem.Get(StorageKey); raw != payload {
		t.Error("List must not persist derived ids")
	}

	dentist := DerivedID(jan1, 1, "dentist")
	if removed, err := s.DeleteAt(jan1, 0); err != nil || !removed {
		t.Fatalf("DeleteAt failed: removed=%v err=%v", removed, err)
	}
	got := s.List(jan1)
	if len(got) != 1 || got[0].ID != dentist {
		t.Errorf("Expected dentist to keep id %s, got %+v", dentist, got)
	}
	if got[0].ID == DerivedID(jan1, 0, "dentist") {
		t.Error("Expected the id from the position before the delete")
	}

	if moved, err := s.Move(jan1, jan2, 0); err != nil || !moved {
		t.Fatalf("Move failed: moved=%v err=%v", moved, err)
	}
	want := []Task{stamped(jan2, 0, "call mom"), {ID: dentist, Text: "dentist"}}
	if got := s.List(jan2); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestStoredIDsAreKept(t *testing.T) {
	s, _, _ := newTestStore(t)
	if err := s.Add(jan1, Task{ID: "a1", Text: "a"}); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, s, jan1, "b")
	if _, err := s.DeleteAt(jan1, 1); err != nil {
		t.Fatal(err)
	}
	if got := s.List(jan1); len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("Expected the stored id untouched, got %+v", got)
	}
}

func TestCorruptPayloadDegradesAndIsPreserved(t *testing.T) {
	s, mem, reported := newTestStore(t)
	if err := mem.Set(StorageKey, "{oops"); err != nil {
		t.Fatal(err)
	}
	if got := s.List(jan1); len(got) != 0 {
		t.Errorf("Expected empty list for corrupt store, got %v", got)
	}
	if len(*reported) != 1 || !errors.Is((*reported)[0], ErrCorrupt) {
		t.Fatalf("Expected one ErrCorrupt report, got %v", *reported)
	}
	var ce *CorruptError
	if !errors.As((*reported)[0], &ce) || ce.Size != len("{oops") {
		t.Errorf("Expected *CorruptError with payload size, got %v", (*reported)[0])
	}

	mustAdd(t, s, jan1, "fresh")
	if backup, ok, _ := mem.Get(CorruptKey); !ok || backup != "{oops" {
		t.Errorf("Expected corrupt payload preserved, got %q", backup)
	}
	if got := s.List(jan1); len(got) != 1 {
		t.Errorf("Expected store usable after corruption, got %v", got)
	}
}

func TestCorruptElementIsReported(t *testing.T) {
	s, mem, reported := newTestStore(t)
	mem.Set(StorageKey, `{"2024-0-1":[42]}`)
	if got := s.List(jan1); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
	if len(*reported) == 0 || !errors.Is((*reported)[0], ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got %v", *reported)
	}
}

type failingStorage struct {
	*storage.Memory
}

func (failingStorage) Set(string, string) error { return errors.New("disk full") }

func TestWriteFailurePropagates(t *testing.T) {
	s := NewStore(failingStorage{storage.NewMemory()})
	if err := s.Add(jan1, Task{Text: "x"}); err == nil {
		t.Error("Expected storage write failure to propagate")
	}
}

func TestMarshalDecodeRoundTrip(t *testing.T) {
	s, mem, _ := newTestStore(t)
	mustAdd(t, s, jan1, "a")
	mustAdd(t, s, jan1, "b")
	mustAdd(t, s, jan2, "c")
	s.Move(jan1, jan2, 1)
	s.DeleteAt(jan2, 0)

	store := s.Snapshot()
	b, err := Marshal(store)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	back, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(back, store) {
		t.Errorf("Expected %v, got %v", store, back)
	}
	raw, _, _ := mem.Get(StorageKey)
	if string(b) != raw {
		t.Errorf("Expected Marshal to match the persisted form:\n%s\n%s", b, raw)
	}
}

func TestDecodeRejectsBadKeys(t *testing.T) {
	if _, err := Decode([]byte(`{"tomorrow":["x"]}`)); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got %v", err)
	}
}
