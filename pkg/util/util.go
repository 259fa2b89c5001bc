package util

import (
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/cyclecal/pkg/colors"
	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

// TaskIDProperty is the private extended property linking an event back
// to its task.
const TaskIDProperty = "cyclecal_id"

// TaskID returns task.ID, or the id derived from day, position and text for
// tasks that predate ids.
func TaskID(day datekey.Key, index int, task tasks.Task) string {
	if task.ID != "" {
		return task.ID
	}
	return tasks.DerivedID(day, index, task.Text)
}

// ConvertTaskToCalendarEvent builds an all-day event for a task on day.
func ConvertTaskToCalendarEvent(id string, day datekey.Key, task tasks.Task, info phase.Info, palette *colors.Palette) (*calendar.Event, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: %s", datekey.ErrInvalid, day)
	}
	if strings.TrimSpace(task.Text) == "" {
		return nil, fmt.Errorf("could not convert task with empty text on %s", day.ISO())
	}
	if palette == nil {
		palette = colors.Default()
	}

	summary := task.Text
	if info.ShowWarning {
		summary = "! " + summary
	}

	var desc strings.Builder
	desc.WriteString(fmt.Sprintf("Phase: %s\n", info.Label))
	if info.Message != "" {
		desc.WriteString(fmt.Sprintf("%s\n", info.Message))
	}
	if task.HasAdvice() {
		desc.WriteString(fmt.Sprintf("\nAdvice:\n%s\n", strings.TrimSpace(task.Advice)))
	}
	desc.WriteString(fmt.Sprintf("\nID: %s\n", id))

	return &calendar.Event{
		Summary:     summary,
		Description: desc.String(),
		ColorId:     palette.ColorID(info.Phase),
		// All-day events end on the following day, exclusive.
		Start: &calendar.EventDateTime{Date: day.ISO()},
		End:   &calendar.EventDateTime{Date: day.AddDays(1).ISO()},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: id},
		},
	}, nil
}

// EventNeedsUpdate returns a patch holding the fields of target that differ
// from existing, or nil when they match.
func EventNeedsUpdate(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if eventDate(existing.Start) != eventDate(target.Start) || eventDate(existing.End) != eventDate(target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

// TaskIDFromEvent reads the linked task id, if any.
func TaskIDFromEvent(event *calendar.Event) (string, bool) {
	if event == nil || event.ExtendedProperties == nil {
		return "", false
	}
	id, ok := event.ExtendedProperties.Private[TaskIDProperty]
	return id, ok && id != ""
}

func eventDate(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.Date != "" {
		return dt.Date
	}
	return dt.DateTime
}
