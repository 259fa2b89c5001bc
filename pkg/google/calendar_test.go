package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/index"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
	"github.com/harrisonrobin/cyclecal/pkg/util"
)

// fakeCalendar serves the subset of the Calendar API the client uses.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	nextID  int
	patches int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]*calendar.Event)}
}

func (f *fakeCalendar) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "other", Summary: "Work"},
			{Id: "cal", Summary: "Cycle"},
		}})
	})
	mux.HandleFunc("POST /calendars/cal/events", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Event
		json.NewDecoder(r.Body).Decode(&e)
		f.mu.Lock()
		f.nextID++
		e.Id = fmt.Sprintf("evt%d", f.nextID)
		f.events[e.Id] = &e
		f.mu.Unlock()
		writeJSON(w, &e)
	})
	mux.HandleFunc("GET /calendars/cal/events", func(w http.ResponseWriter, r *http.Request) {
		prop := r.URL.Query().Get("privateExtendedProperty")
		want := strings.TrimPrefix(prop, util.TaskIDProperty+"=")
		f.mu.Lock()
		defer f.mu.Unlock()
		var items []*calendar.Event
		for _, e := range f.events {
			if id, ok := util.TaskIDFromEvent(e); ok && id == want {
				items = append(items, e)
			}
		}
		writeJSON(w, &calendar.Events{Items: items})
	})
	mux.HandleFunc("GET /calendars/cal/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		e, ok := f.events[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, e)
	})
	mux.HandleFunc("PATCH /calendars/cal/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch calendar.Event
		json.NewDecoder(r.Body).Decode(&patch)
		f.mu.Lock()
		defer f.mu.Unlock()
		e, ok := f.events[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		f.patches++
		if patch.Summary != "" {
			e.Summary = patch.Summary
		}
		if patch.Description != "" {
			e.Description = patch.Description
		}
		if patch.ColorId != "" {
			e.ColorId = patch.ColorId
		}
		if patch.Start != nil {
			e.Start, e.End = patch.Start, patch.End
		}
		writeJSON(w, e)
	})
	mux.HandleFunc("DELETE /calendars/cal/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		delete(f.events, r.PathValue("id"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fake *fakeCalendar) (*CalendarClient, *index.EventIndex) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	ctx := context.Background()
	svc, err := calendar.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	idx, err := index.NewEventIndex(filepath.Join(t.TempDir(), "events.json"))
	if err != nil {
		t.Fatal(err)
	}
	client, err := NewClientForService(ctx, svc, "Cycle", idx)
	if err != nil {
		t.Fatalf("NewClientForService failed: %v", err)
	}
	return client, idx
}

func TestSyncMonth(t *testing.T) {
	fake := newFakeCalendar()
	client, idx := newTestClient(t, fake)
	ctx := context.Background()

	jan12 := datekey.New(2024, time.January, 12)
	feb1 := datekey.New(2024, time.February, 1)
	snapshot := map[datekey.Key][]tasks.Task{
		jan12: {{ID: "a", Text: "review"}, {Text: "legacy"}},
		feb1:  {{ID: "b", Text: "next month"}},
	}
	opts := SyncOptions{Cycle: &phase.CycleConfig{Start: datekey.New(2024, time.January, 1), Period: 28}}

	report, err := client.SyncMonth(ctx, 2024, time.January, snapshot, opts)
	if err != nil {
		t.Fatalf("SyncMonth failed: %v", err)
	}
	if report.Created != 2 || report.Failed != 0 {
		t.Fatalf("Expected 2 created, got %+v", report)
	}
	if len(fake.events) != 2 {
		t.Errorf("Expected 2 events in the calendar, got %d", len(fake.events))
	}
	evt := fake.events[idx.Get("a")]
	if evt == nil || evt.Start.Date != "2024-01-12" || evt.ColorId != "5" {
		t.Errorf("Expected ovulation all-day event for a, got %+v", evt)
	}

	// A second sync with nothing changed patches nothing.
	report, _ = client.SyncMonth(ctx, 2024, time.January, snapshot, opts)
	if report.Unchanged != 2 || fake.patches != 0 {
		t.Errorf("Expected unchanged sync, got %+v with %d patches", report, fake.patches)
	}

	// Edit one task and drop the other.
	snapshot[jan12] = []tasks.Task{{ID: "a", Text: "review v2"}}
	report, _ = client.SyncMonth(ctx, 2024, time.January, snapshot, opts)
	if report.Updated != 1 || report.Deleted != 1 {
		t.Errorf("Expected 1 updated and 1 deleted, got %+v", report)
	}
	if len(fake.events) != 1 || fake.events[idx.Get("a")].Summary != "review v2" {
		t.Errorf("Unexpected calendar state %+v", fake.events)
	}
}

func TestSyncEventFindsByPropertyWithoutIndex(t *testing.T) {
	fake := newFakeCalendar()
	client, _ := newTestClient(t, fake)
	client.index = nil
	ctx := context.Background()

	event, _ := util.ConvertTaskToCalendarEvent("x", datekey.New(2024, 1, 2), tasks.Task{Text: "t"}, phase.Info{}, nil)
	if outcome, err := client.SyncEvent(ctx, "x", event); err != nil || outcome != Created {
		t.Fatalf("Expected create, got %v (%v)", outcome, err)
	}
	if outcome, err := client.SyncEvent(ctx, "x", event); err != nil || outcome != Unchanged {
		t.Errorf("Expected lookup by property to find the event, got %v (%v)", outcome, err)
	}
}

func TestNewClientForServiceUnknownCalendar(t *testing.T) {
	srv := httptest.NewServer(newFakeCalendar().handler())
	defer srv.Close()
	ctx := context.Background()
	svc, _ := calendar.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if _, err := NewClientForService(ctx, svc, "Missing", nil); err == nil {
		t.Error("Expected error for unknown calendar")
	}
}
