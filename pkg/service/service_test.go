package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harrisonrobin/cyclecal/pkg/advice"
	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/storage"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

type mockAdvisor struct {
	resp  advice.Response
	err   error
	calls []advice.Request
	block bool
}

func (m *mockAdvisor) Advise(ctx context.Context, req advice.Request) (advice.Response, error) {
	m.calls = append(m.calls, req)
	if m.block {
		<-ctx.Done()
		return advice.Response{}, &advice.TransportError{Err: ctx.Err()}
	}
	return m.resp, m.err
}

var (
	day    = time.Date(2024, time.January, 12, 9, 30, 0, 0, time.Local)
	cycle  = &phase.CycleConfig{Start: datekey.New(2024, time.January, 1), Period: 28}
	dayKey = datekey.FromTime(day)
)

func newTestService(a advice.Advisor, opts ...Option) (*TaskService, *tasks.Store) {
	store := tasks.NewStore(storage.NewMemory())
	opts = append([]Option{WithAdvisor(a)}, opts...)
	return New(store, opts...), store
}

func TestCreateTaskWithAdvice(t *testing.T) {
	m := &mockAdvisor{resp: advice.Response{Reason: "peak", Suggestion: "book the meeting"}}
	svc, store := newTestService(m, WithLocale("ru"))

	task, err := svc.CreateTask(context.Background(), day, "  team sync ", cycle, nil)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Text != "team sync" || task.Advice != "book the meeting" || task.ID == "" {
		t.Errorf("Unexpected task %+v", task)
	}
	if len(m.calls) != 1 {
		t.Fatalf("Expected exactly one advice call, got %d", len(m.calls))
	}
	if got := m.calls[0]; got.Phase != "ovulation" || got.Locale != "ru" || got.Task != "team sync" {
		t.Errorf("Unexpected advice request %+v", got)
	}
	list := store.List(dayKey)
	if len(list) != 1 || list[0] != task {
		t.Errorf("Expected stored task %+v, got %v", task, list)
	}
}

func TestCreateTaskUsesReasonWhenNoSuggestion(t *testing.T) {
	svc, _ := newTestService(&mockAdvisor{resp: advice.Response{Reason: "low energy"}})
	task, _ := svc.CreateTask(context.Background(), day, "x", cycle, nil)
	if task.Advice != "low energy" {
		t.Errorf("Expected reason as advice, got %q", task.Advice)
	}
}

func TestCreateTaskOverridePhase(t *testing.T) {
	m := &mockAdvisor{}
	svc, _ := newTestService(m)
	p := phase.Luteal
	if _, err := svc.CreateTask(context.Background(), day, "x", nil, &p); err != nil {
		t.Fatal(err)
	}
	if m.calls[0].Phase != "luteal" {
		t.Errorf("Expected override phase, got %s", m.calls[0].Phase)
	}
}

func TestCreateTaskWithoutCycleIsUnknown(t *testing.T) {
	m := &mockAdvisor{}
	svc, _ := newTestService(m)
	svc.CreateTask(context.Background(), day, "x", nil, nil)
	if m.calls[0].Phase != "unknown" {
		t.Errorf("Expected unknown phase, got %s", m.calls[0].Phase)
	}
}

func TestCreateTaskAdviceFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api error", &advice.APIError{StatusCode: 502}, AdviceAPIError},
		{"transport", &advice.TransportError{Err: errors.New("refused")}, AdviceNoConnection},
		{"other", errors.New("weird"), AdviceNoConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(&mockAdvisor{err: tt.err})
			task, err := svc.CreateTask(context.Background(), day, "x", cycle, nil)
			if err != nil {
				t.Fatalf("Advice failure must not fail creation: %v", err)
			}
			if task.Advice != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, task.Advice)
			}
			if len(store.List(dayKey)) != 1 {
				t.Error("Expected task to be stored")
			}
		})
	}
}

func TestCreateTaskTimeout(t *testing.T) {
	m := &mockAdvisor{block: true}
	svc, _ := newTestService(m, WithTimeout(20*time.Millisecond))
	task, err := svc.CreateTask(context.Background(), day, "x", cycle, nil)
	if err != nil {
		t.Fatal(err)
	}
	if task.Advice != AdviceNoConnection {
		t.Errorf("Expected timeout to count as no connection, got %q", task.Advice)
	}
}

func TestCreateTaskWithoutAdvisor(t *testing.T) {
	svc := New(tasks.NewStore(storage.NewMemory()))
	task, err := svc.CreateTask(context.Background(), day, "x", cycle, nil)
	if err != nil || task.Advice != "" {
		t.Errorf("Expected empty advice without advisor, got %+v (%v)", task, err)
	}
}

func TestCreateTaskRejectsEmpty(t *testing.T) {
	m := &mockAdvisor{}
	svc, _ := newTestService(m)
	if _, err := svc.CreateTask(context.Background(), day, "   ", cycle, nil); !errors.Is(err, ErrEmptyTask) {
		t.Errorf("Expected ErrEmptyTask, got %v", err)
	}
	if len(m.calls) != 0 {
		t.Error("Expected no advice call for an empty task")
	}
}

type failingAppender struct{}

func (failingAppender) Add(datekey.Key, tasks.Task) error { return errors.New("quota exceeded") }

func TestCreateTaskStoreFailure(t *testing.T) {
	svc := New(failingAppender{})
	if _, err := svc.CreateTask(context.Background(), day, "x", cycle, nil); err == nil {
		t.Error("Expected store failure to propagate")
	}
}
