package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/model"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
)

const source = "taskwarrior"

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, 'Z' indicates UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

func (ct *CustomTime) set() bool {
	return ct != nil && !ct.IsZero()
}

type Task struct {
	UUID        string      `json:"uuid"`
	Description string      `json:"description"`
	Due         *CustomTime `json:"due,omitempty"`
	Scheduled   *CustomTime `json:"scheduled,omitempty"`
	Status      string      `json:"status"`
	Project     string      `json:"project,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// Day is the local calendar day the task belongs on: scheduled if set,
// otherwise due.
func (t Task) Day() (datekey.Key, bool) {
	switch {
	case t.Scheduled.set():
		return datekey.FromTime(t.Scheduled.Local()), true
	case t.Due.set():
		return datekey.FromTime(t.Due.Local()), true
	}
	return datekey.Key{}, false
}

// Entries converts the open, dated tasks.
func Entries(tasks []Task) []model.Entry {
	var out []model.Entry
	for _, t := range tasks {
		if t.Status != PENDING && t.Status != WAITING {
			continue
		}
		day, ok := t.Day()
		if !ok || strings.TrimSpace(t.Description) == "" {
			continue
		}
		tags := t.Tags
		if t.Project != "" {
			tags = append(append([]string(nil), tags...), t.Project)
		}
		out = append(out, model.Entry{
			SourceID: t.UUID,
			Source:   source,
			Day:      day,
			Text:     strings.TrimSpace(t.Description),
			Tags:     tags,
		})
	}
	return out
}
