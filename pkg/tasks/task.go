package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
)

// Task is a single free-text entry attached to a day.
type Task struct {
	ID     string `json:"id,omitempty"`
	Text   string `json:"text"`
	Advice string `json:"advice"`
}

// legacySpace namespaces ids derived for tasks stored before ids existed.
var legacySpace = uuid.MustParse("0b7d6c1e-55a3-4f0e-b3a9-2c9e8f4d1a77")

// DerivedID is the id of a task stored without one at position index of
// day's list. The store persists it the first time it rewrites that list,
// after which the task keeps it wherever it moves.
func DerivedID(day datekey.Key, index int, text string) string {
	name := fmt.Sprintf("%s\x00%d\x00%s", day, index, text)
	return uuid.NewSHA1(legacySpace, []byte(name)).String()
}

// HasAdvice reports whether the task carries non-blank advice.
func (t Task) HasAdvice() bool {
	return strings.TrimSpace(t.Advice) != ""
}

// UnmarshalJSON accepts both the object form and the legacy bare string.
func (t *Task) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*t = Task{Text: text}
		return nil
	}
	if len(b) == 0 || b[0] != '{' {
		return fmt.Errorf("task must be a string or an object, got %s", truncate(b))
	}
	type plain Task
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = Task(p)
	return nil
}

// ErrCorrupt marks a persisted payload that could not be decoded.
var ErrCorrupt = errors.New("task store payload is corrupt")

// CorruptError describes a payload that failed to decode.
type CorruptError struct {
	Size int
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("task store payload is corrupt (%d bytes): %v", e.Size, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

func truncate(b []byte) string {
	const max = 32
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
