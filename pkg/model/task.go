package model

import (
	"github.com/google/uuid"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

// Entry is a dated task read from an external source.
type Entry struct {
	SourceID string // id in the source system, may be empty
	Source   string // "taskwarrior" or "orgmode"
	Day      datekey.Key
	Text     string
	Tags     []string
}

// idSpace namespaces ids derived for imported entries.
var idSpace = uuid.MustParse("6f1c7a5e-2f0b-4a4e-9a52-8d3f1c2b7e10")

// ID is stable across repeated imports of the same entry.
func (e Entry) ID() string {
	name := e.Source + ":" + e.SourceID
	if e.SourceID == "" {
		name = e.Source + ":" + e.Day.String() + ":" + e.Text
	}
	return uuid.NewSHA1(idSpace, []byte(name)).String()
}

// Task converts the entry into a store task. Imported tasks carry no advice.
func (e Entry) Task() tasks.Task {
	return tasks.Task{ID: e.ID(), Text: e.Text}
}

// HasTag reports whether the entry carries tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Filter keeps entries carrying tag; an empty tag keeps everything.
func Filter(entries []Entry, tag string) []Entry {
	if tag == "" {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if e.HasTag(tag) {
			out = append(out, e)
		}
	}
	return out
}
