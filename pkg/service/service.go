// Package service orchestrates task creation: phase lookup, one advice call,
// then the write to the task store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/cyclecal/pkg/advice"
	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

// ErrEmptyTask is returned for blank task text.
var ErrEmptyTask = errors.New("task text is empty")

const (
	AdviceAPIError     = "advice unavailable: api error"
	AdviceNoConnection = "advice unavailable: no connection"
)

// Appender is the write side of the task store.
type Appender interface {
	Add(key datekey.Key, task tasks.Task) error
}

// TaskService creates tasks. Creations are serialized: while one waits on
// the advice service no other creation runs in this process.
type TaskService struct {
	store      Appender
	advisor    advice.Advisor
	classifier phase.Classifier
	locale     string
	timeout    time.Duration
	newID      func() string

	mu sync.Mutex
}

// Option customizes a TaskService.
type Option func(*TaskService)

// WithAdvisor enables advice lookups. Without one, tasks get empty advice.
func WithAdvisor(a advice.Advisor) Option {
	return func(s *TaskService) { s.advisor = a }
}

func WithLocale(locale string) Option {
	return func(s *TaskService) {
		if locale != "" {
			s.locale = locale
		}
	}
}

// WithTimeout bounds the advice call; expiry counts as no connection.
func WithTimeout(d time.Duration) Option {
	return func(s *TaskService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClassifier(c phase.Classifier) Option {
	return func(s *TaskService) { s.classifier = c }
}

func New(store Appender, opts ...Option) *TaskService {
	s := &TaskService{
		store:   store,
		locale:  "en",
		timeout: advice.DefaultTimeout,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTask stores a task on date's day. override, when non-nil, replaces
// the phase derived from cycle. Advice failures never fail the call; only
// a store write failure does.
func (s *TaskService) CreateTask(ctx context.Context, date time.Time, text string, cycle *phase.CycleConfig, override *phase.Phase) (tasks.Task, error) {
	return s.CreateTaskOn(ctx, datekey.FromTime(date), text, cycle, override)
}

func (s *TaskService) CreateTaskOn(ctx context.Context, day datekey.Key, text string, cycle *phase.CycleConfig, override *phase.Phase) (tasks.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tasks.Task{}, ErrEmptyTask
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.classifier.ClassifyKey(day, cycle).Phase
	if override != nil {
		p = *override
	}

	task := tasks.Task{ID: s.newID(), Text: text}
	if s.advisor != nil {
		task.Advice = s.fetchAdvice(ctx, text, p)
	}

	if err := s.store.Add(day, task); err != nil {
		return tasks.Task{}, fmt.Errorf("failed to save task: %w", err)
	}
	return task, nil
}

func (s *TaskService) fetchAdvice(ctx context.Context, text string, p phase.Phase) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.advisor.Advise(ctx, advice.Request{Task: text, Phase: string(p), Locale: s.locale})
	if err != nil {
		log.Printf("Warning: %v", err)
		var apiErr *advice.APIError
		if errors.As(err, &apiErr) {
			return AdviceAPIError
		}
		return AdviceNoConnection
	}
	return resp.Text()
}
