// Package grid builds the per-day descriptors of a Monday-first month view.
package grid

import (
	"time"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

// Columns is the width of the grid.
const Columns = 7

// DefaultMoveDays is how many following days MoveCandidates offers.
const DefaultMoveDays = 7

// Lister is the read side of the task store.
type Lister interface {
	List(key datekey.Key) []tasks.Task
}

// Day describes one grid cell.
type Day struct {
	Date           datekey.Key
	InCurrentMonth bool
	IsToday        bool
	TaskCount      int
	Phase          phase.Phase
	HasAdvice      bool
}

// Builder composes the task store and the classifier into grid cells.
type Builder struct {
	Tasks      Lister
	Classifier phase.Classifier
}

func NewBuilder(l Lister, c phase.Classifier) *Builder {
	return &Builder{Tasks: l, Classifier: c}
}

// Build returns the leading days of the previous month followed by every
// day of month. Leading days carry no task or phase data.
func (b *Builder) Build(year int, month time.Month, now time.Time, cycle *phase.CycleConfig) []Day {
	first := datekey.New(year, month, 1)
	lead := LeadingDays(first.Weekday())
	total := datekey.DaysIn(first.Year, first.Month)
	today := datekey.FromTime(now)

	days := make([]Day, 0, lead+total)
	for i := lead; i > 0; i-- {
		days = append(days, Day{Date: first.AddDays(-i), Phase: phase.Unknown})
	}
	for d := 1; d <= total; d++ {
		key := datekey.Key{Year: first.Year, Month: first.Month, Day: d}
		list := b.Tasks.List(key)
		days = append(days, Day{
			Date:           key,
			InCurrentMonth: true,
			IsToday:        key == today,
			TaskCount:      len(list),
			Phase:          b.Classifier.ClassifyKey(key, cycle).Phase,
			HasAdvice:      anyAdvice(list),
		})
	}
	return days
}

// LeadingDays is the number of previous-month cells before the 1st when
// weeks start on Monday.
func LeadingDays(firstWeekday time.Weekday) int {
	return (int(firstWeekday) + 6) % 7
}

// Weeks splits days into rows of Columns cells; the last row may be short.
func Weeks(days []Day) [][]Day {
	var rows [][]Day
	for len(days) > Columns {
		rows = append(rows, days[:Columns])
		days = days[Columns:]
	}
	if len(days) > 0 {
		rows = append(rows, days)
	}
	return rows
}

// Candidate is a day a task can be moved to.
type Candidate struct {
	Date datekey.Key
	Info phase.Info
}

// MoveCandidates lists the n days after from with their phase.
func (b *Builder) MoveCandidates(from datekey.Key, n int, cycle *phase.CycleConfig) []Candidate {
	if n <= 0 {
		n = DefaultMoveDays
	}
	out := make([]Candidate, 0, n)
	for i := 1; i <= n; i++ {
		day := from.AddDays(i)
		out = append(out, Candidate{Date: day, Info: b.Classifier.ClassifyKey(day, cycle)})
	}
	return out
}

func anyAdvice(list []tasks.Task) bool {
	for _, t := range list {
		if t.HasAdvice() {
			return true
		}
	}
	return false
}
