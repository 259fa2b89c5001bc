package google

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/cyclecal/pkg/colors"
	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/index"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
	"github.com/harrisonrobin/cyclecal/pkg/util"
)

// CalendarClient is a Google Calendar API client.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx}
}

// SyncOptions carries what event conversion needs besides the task.
type SyncOptions struct {
	Classifier phase.Classifier
	Cycle      *phase.CycleConfig
	Palette    *colors.Palette
}

// Report counts what a sync did.
type Report struct {
	Created   int
	Updated   int
	Unchanged int
	Deleted   int
	Failed    int
}

// SyncMonth mirrors every task of the month into the calendar, then
// deletes events of indexed tasks that no longer exist anywhere in
// snapshot. Per-event failures are logged and counted, not returned.
func (c *CalendarClient) SyncMonth(ctx context.Context, year int, month time.Month, snapshot map[datekey.Key][]tasks.Task, opts SyncOptions) (Report, error) {
	var report Report
	live := make(map[string]bool)

	for key, list := range snapshot {
		for i, task := range list {
			live[util.TaskID(key, i, task)] = true
		}
	}

	for _, key := range monthKeys(snapshot, year, month) {
		info := opts.Classifier.ClassifyKey(key, opts.Cycle)
		for i, task := range snapshot[key] {
			id := util.TaskID(key, i, task)
			event, err := util.ConvertTaskToCalendarEvent(id, key, task, info, opts.Palette)
			if err != nil {
				log.Printf("Warning: skipping task on %s: %v", key.ISO(), err)
				report.Failed++
				continue
			}
			outcome, err := c.SyncEvent(ctx, id, event)
			if err != nil {
				log.Printf("Error syncing task %s: %v", id, err)
				report.Failed++
				continue
			}
			switch outcome {
			case Created:
				report.Created++
			case Updated:
				report.Updated++
			default:
				report.Unchanged++
			}
		}
	}

	if c.index != nil {
		for _, id := range c.index.TaskIDs() {
			if live[id] {
				continue
			}
			if err := c.DeleteTaskEvent(ctx, id); err != nil {
				log.Printf("Error deleting event for task %s: %v", id, err)
				report.Failed++
				continue
			}
			report.Deleted++
		}
		if err := c.index.Save(); err != nil {
			return report, fmt.Errorf("failed to save event index: %w", err)
		}
	}
	return report, nil
}

// Outcome is what SyncEvent did.
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

// SyncEvent creates the event for taskID or patches the existing one.
func (c *CalendarClient) SyncEvent(ctx context.Context, taskID string, event *calendar.Event) (Outcome, error) {
	existingEvent, err := c.findEvent(ctx, taskID)
	if err != nil {
		return Unchanged, fmt.Errorf("error searching for event: %w", err)
	}

	if existingEvent != nil {
		patch := util.EventNeedsUpdate(existingEvent, event)
		if patch == nil {
			c.remember(taskID, existingEvent.Id)
			return Unchanged, nil
		}
		updatedEvent, err := c.PatchEvent(ctx, existingEvent.Id, patch)
		if err != nil {
			return Unchanged, err
		}
		c.remember(taskID, updatedEvent.Id)
		return Updated, nil
	}

	createdEvent, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return Unchanged, err
	}
	c.remember(taskID, createdEvent.Id)
	return Created, nil
}

// findEvent tries the local index first and falls back to a search by
// extended property.
func (c *CalendarClient) findEvent(ctx context.Context, taskID string) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			event, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err == nil && event.Status != "cancelled" {
				return event, nil
			}
		}
	}
	return c.GetEventByTaskID(ctx, taskID)
}

func (c *CalendarClient) remember(taskID, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteTaskEvent removes the event linked to taskID, if any, and forgets it.
func (c *CalendarClient) DeleteTaskEvent(ctx context.Context, taskID string) error {
	event, err := c.findEvent(ctx, taskID)
	if err != nil {
		return err
	}
	if event != nil {
		if err := c.srv.Events.Delete(c.calendarID, event.Id).Context(ctx).Do(); err != nil {
			return err
		}
	}
	if c.index != nil {
		c.index.Remove(taskID)
	}
	return nil
}

// GetEventByTaskID searches for an event carrying taskID in its private
// extended properties.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.TaskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func monthKeys(snapshot map[datekey.Key][]tasks.Task, year int, month time.Month) []datekey.Key {
	var keys []datekey.Key
	for key := range snapshot {
		if key.Year == year && key.Month == month {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}
