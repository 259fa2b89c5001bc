package datekey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned when a key or date string cannot be parsed.
var ErrInvalid = errors.New("invalid date key")

const (
	isoLayout     = "2006-01-02"
	secondsPerDay = 86400
)

// Key identifies a calendar day independently of time-of-day and location.
type Key struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime truncates t to its calendar day in t's own location.
func FromTime(t time.Time) Key {
	y, m, d := t.Date()
	return Key{Year: y, Month: m, Day: d}
}

// New normalizes overflowing values (e.g. day 32) the same way time.Date does.
func New(year int, month time.Month, day int) Key {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// String renders the persisted form "<year>-<month0to11>-<day>".
func (k Key) String() string {
	return fmt.Sprintf("%d-%d-%d", k.Year, int(k.Month)-1, k.Day)
}

// ISO renders yyyy-mm-dd.
func (k Key) ISO() string {
	return k.civil().Format(isoLayout)
}

// Parse reads the persisted "<year>-<month0to11>-<day>" form.
func Parse(s string) (Key, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Key{}, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		nums[i] = n
	}
	k := Key{Year: nums[0], Month: time.Month(nums[1] + 1), Day: nums[2]}
	if !k.Valid() {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return k, nil
}

// ParseISO reads a yyyy-mm-dd date.
func ParseISO(s string) (Key, error) {
	t, err := time.Parse(isoLayout, strings.TrimSpace(s))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return FromTime(t), nil
}

// Valid reports whether k names a real calendar day.
func (k Key) Valid() bool {
	if k.Month < time.January || k.Month > time.December || k.Day < 1 {
		return false
	}
	return FromTime(k.civil()) == k
}

// Time returns midnight of k in loc.
func (k Key) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the key n calendar days after k.
func (k Key) AddDays(n int) Key {
	return FromTime(k.civil().AddDate(0, 0, n))
}

// DaysSince returns the whole number of calendar days from other to k.
func (k Key) DaysSince(other Key) int {
	return int((k.civil().Unix() - other.civil().Unix()) / secondsPerDay)
}

// Compare orders keys lexicographically on (year, month, day).
func (k Key) Compare(other Key) int {
	switch {
	case k.Year != other.Year:
		return cmpInt(k.Year, other.Year)
	case k.Month != other.Month:
		return cmpInt(int(k.Month), int(other.Month))
	default:
		return cmpInt(k.Day, other.Day)
	}
}

func (k Key) Before(other Key) bool { return k.Compare(other) < 0 }

func (k Key) Weekday() time.Weekday { return k.civil().Weekday() }

// civil pins the day to UTC so day arithmetic never crosses a DST shift.
func (k Key) civil() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
