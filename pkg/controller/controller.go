// Package controller owns the calendar view state and turns typed commands
// into calls on the task store, the task service and the cycle settings.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/harrisonrobin/cyclecal/pkg/cycle"
	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/grid"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/storage"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

// CalendarViewState is the month on screen and the open day, if any.
type CalendarViewState struct {
	Year     int
	Month    time.Month
	Selected *datekey.Key
}

// Creator creates tasks on a day; implemented by service.TaskService.
type Creator interface {
	CreateTaskOn(ctx context.Context, day datekey.Key, text string, cycle *phase.CycleConfig, override *phase.Phase) (tasks.Task, error)
}

// TaskStore is the part of tasks.Store the controller mutates.
type TaskStore interface {
	grid.Lister
	DeleteAt(key datekey.Key, index int) (bool, error)
	Move(from, to datekey.Key, index int) (bool, error)
}

// Command is one of the types below.
type Command interface {
	command()
}

type OpenDay struct {
	Date datekey.Key
}

// CloseDay clears the selection.
type CloseDay struct{}

type AddTask struct {
	Date     datekey.Key
	Text     string
	Override *phase.Phase
}

type MoveTask struct {
	From, To datekey.Key
	Index    int
}

type DeleteTask struct {
	Date  datekey.Key
	Index int
}

// ChangeMonth shifts the view by Delta months.
type ChangeMonth struct {
	Delta int
}

type SetCycle struct {
	Config phase.CycleConfig
}

type ClearCycle struct{}

func (OpenDay) command()     {}
func (CloseDay) command()    {}
func (AddTask) command()     {}
func (MoveTask) command()    {}
func (DeleteTask) command()  {}
func (ChangeMonth) command() {}
func (SetCycle) command()    {}
func (ClearCycle) command()  {}

// DayDetail is what the day panel shows.
type DayDetail struct {
	Date       datekey.Key
	Info       phase.Info
	Tasks      []tasks.Task
	Candidates []grid.Candidate
}

// View is everything a renderer needs after a command.
type View struct {
	State  CalendarViewState
	Days   []grid.Day
	Cycle  *phase.CycleConfig
	Detail *DayDetail
}

// Controller is not safe for concurrent use; a UI owns exactly one.
type Controller struct {
	state    CalendarViewState
	store    TaskStore
	creator  Creator
	settings storage.Storage
	builder  *grid.Builder
	cycle    *phase.CycleConfig
	now      func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New starts on the current month with the cycle loaded from settings.
func New(store TaskStore, creator Creator, settings storage.Storage, classifier phase.Classifier, opts ...Option) (*Controller, error) {
	c := &Controller{
		store:    store,
		creator:  creator,
		settings: settings,
		builder:  grid.NewBuilder(store, classifier),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg, err := cycle.Load(settings)
	if err != nil {
		return nil, err
	}
	c.cycle = cfg

	today := c.now()
	c.state = CalendarViewState{Year: today.Year(), Month: today.Month()}
	return c, nil
}

func (c *Controller) State() CalendarViewState {
	return c.state
}

func (c *Controller) Cycle() *phase.CycleConfig {
	return c.cycle
}

// Dispatch applies cmd and returns the refreshed view. On error the state
// is unchanged and the returned view reflects it.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) (View, error) {
	if err := c.apply(ctx, cmd); err != nil {
		return c.View(), err
	}
	return c.View(), nil
}

func (c *Controller) apply(ctx context.Context, cmd Command) error {
	switch cmd := cmd.(type) {
	case OpenDay:
		if !cmd.Date.Valid() {
			return fmt.Errorf("%w: %s", datekey.ErrInvalid, cmd.Date)
		}
		day := cmd.Date
		c.state = CalendarViewState{Year: day.Year, Month: day.Month, Selected: &day}
	case CloseDay:
		c.state.Selected = nil
	case AddTask:
		if _, err := c.creator.CreateTaskOn(ctx, cmd.Date, cmd.Text, c.cycle, cmd.Override); err != nil {
			return err
		}
	case MoveTask:
		if _, err := c.store.Move(cmd.From, cmd.To, cmd.Index); err != nil {
			return err
		}
	case DeleteTask:
		if _, err := c.store.DeleteAt(cmd.Date, cmd.Index); err != nil {
			return err
		}
	case ChangeMonth:
		first := datekey.New(c.state.Year, c.state.Month+time.Month(cmd.Delta), 1)
		c.state = CalendarViewState{Year: first.Year, Month: first.Month}
	case SetCycle:
		cfg := cmd.Config
		if err := cycle.Save(c.settings, cfg); err != nil {
			return err
		}
		c.cycle = &cfg
	case ClearCycle:
		if err := cycle.Reset(c.settings); err != nil {
			return err
		}
		c.cycle = nil
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

// View renders the current state without changing it.
func (c *Controller) View() View {
	v := View{
		State: c.state,
		Days:  c.builder.Build(c.state.Year, c.state.Month, c.now(), c.cycle),
		Cycle: c.cycle,
	}
	if sel := c.state.Selected; sel != nil {
		v.Detail = &DayDetail{
			Date:       *sel,
			Info:       c.builder.Classifier.ClassifyKey(*sel, c.cycle),
			Tasks:      c.store.List(*sel),
			Candidates: c.builder.MoveCandidates(*sel, grid.DefaultMoveDays, c.cycle),
		}
	}
	return v
}
