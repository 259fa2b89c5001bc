package phase

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
)

// Phase is a stage of the cycle.
type Phase string

const (
	Menstruation Phase = "menstruation"
	Follicular   Phase = "follicular"
	Ovulation    Phase = "ovulation"
	Luteal       Phase = "luteal"
	Unknown      Phase = "unknown"
)

const (
	// DefaultPeriod is used when no period length has been stored.
	DefaultPeriod = 28

	menstruationDays = 5
	ovulationStart   = 17 // days before the end of the cycle
	lutealStart      = 13
)

// Info is the classification of a single day.
type Info struct {
	Phase       Phase  `json:"phase"`
	Label       string `json:"label"`
	Message     string `json:"message"`
	ShowWarning bool   `json:"show_warning"`
}

// All lists the four cycle phases in cycle order.
var All = []Info{
	{Phase: Menstruation, Label: "Menstruation", Message: "Minimize activity. Prioritize rest.", ShowWarning: true},
	{Phase: Follicular, Label: "Follicular Phase", Message: "Good time for learning and planning."},
	{Phase: Ovulation, Label: "Ovulation", Message: "High energy. Ideal for meetings and social tasks."},
	{Phase: Luteal, Label: "Luteal Phase", Message: "Slow down. Delegate tasks and take breaks.", ShowWarning: true},
}

var (
	unset      = Info{Phase: Unknown, Label: "Unknown Phase", Message: "Set cycle info"}
	outOfCycle = Info{Phase: Unknown, Label: "Unknown Phase", Message: "Outside cycle period"}
)

// Lookup returns the fixed metadata for p.
func Lookup(p Phase) Info {
	for _, info := range All {
		if info.Phase == p {
			return info
		}
	}
	return unset
}

// Parse accepts a phase name, case-insensitively.
func Parse(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Menstruation, Follicular, Ovulation, Luteal, Unknown:
		return p, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// CycleConfig anchors the cycle on a start day.
type CycleConfig struct {
	Start  datekey.Key
	Period int
}

// Valid reports whether c can be used for classification.
func (c *CycleConfig) Valid() bool {
	return c != nil && c.Period > 0 && c.Start.Valid()
}

// Policy decides what happens to days outside the first cycle.
type Policy int

const (
	// Cyclic folds any offset into [0, period).
	Cyclic Policy = iota
	// Strict answers Unknown outside [start, start+period).
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "cyclic"
}

// ParsePolicy reads "cyclic" or "strict"; empty means Cyclic.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cyclic":
		return Cyclic, nil
	case "strict":
		return Strict, nil
	}
	return Cyclic, fmt.Errorf("unknown cycle policy %q", s)
}

// Classifier maps days to phases under a fixed policy.
type Classifier struct {
	Policy Policy
}

// Classify never fails: invalid or absent configs classify as Unknown.
func (c Classifier) Classify(date time.Time, cfg *CycleConfig) Info {
	return c.ClassifyKey(datekey.FromTime(date), cfg)
}

func (c Classifier) ClassifyKey(day datekey.Key, cfg *CycleConfig) Info {
	if !cfg.Valid() || !day.Valid() {
		return unset
	}
	diff := day.DaysSince(cfg.Start)
	if c.Policy == Strict {
		if diff < 0 || diff >= cfg.Period {
			return outOfCycle
		}
	} else {
		diff = ((diff % cfg.Period) + cfg.Period) % cfg.Period
	}
	return Lookup(ofOffset(diff, cfg.Period))
}

// ofOffset checks the ranges in cycle order; the first match wins, so short
// periods simply skip empty follicular or ovulation windows.
func ofOffset(d, period int) Phase {
	switch {
	case d < menstruationDays:
		return Menstruation
	case d < period-ovulationStart:
		return Follicular
	case d < period-lutealStart:
		return Ovulation
	default:
		return Luteal
	}
}

// Classify uses the Cyclic policy.
func Classify(date time.Time, cfg *CycleConfig) Info {
	return Classifier{}.Classify(date, cfg)
}
