// Package cycle persists the user's cycle settings through the storage port.
package cycle

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/storage"
)

const (
	StartKey  = "start_date"
	PeriodKey = "period"
)

// Load returns the stored cycle, or nil when none is set or the stored
// values do not form a valid cycle. Only storage read failures are errors.
func Load(st storage.Storage) (*phase.CycleConfig, error) {
	start, ok, err := st.Get(StartKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", StartKey, err)
	}
	if !ok || strings.TrimSpace(start) == "" {
		return nil, nil
	}
	period, ok, err := st.Get(PeriodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", PeriodKey, err)
	}
	if !ok || strings.TrimSpace(period) == "" {
		period = strconv.Itoa(phase.DefaultPeriod)
	}

	cfg, err := Parse(start, period)
	if err != nil {
		log.Printf("Warning: ignoring stored cycle settings: %v", err)
		return nil, nil
	}
	return cfg, nil
}

// Parse builds a cycle from an ISO start date and a period string.
func Parse(start, period string) (*phase.CycleConfig, error) {
	key, err := datekey.ParseISO(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(period))
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("invalid period %q: must be a positive integer", period)
	}
	return &phase.CycleConfig{Start: key, Period: n}, nil
}

// Save overwrites the stored cycle. If the period cannot be written the
// previous start date is put back, so a failed Save leaves the stored cycle
// as it was.
func Save(st storage.Storage, cfg phase.CycleConfig) error {
	if !cfg.Valid() {
		return fmt.Errorf("invalid cycle: start %s, period %d", cfg.Start.ISO(), cfg.Period)
	}
	prev, hadPrev, err := st.Get(StartKey)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", StartKey, err)
	}
	if err := st.Set(StartKey, cfg.Start.ISO()); err != nil {
		return fmt.Errorf("failed to save %s: %w", StartKey, err)
	}
	if err := st.Set(PeriodKey, strconv.Itoa(cfg.Period)); err != nil {
		err = fmt.Errorf("failed to save %s: %w", PeriodKey, err)
		return errors.Join(err, restoreStart(st, prev, hadPrev))
	}
	return nil
}

// Reset clears the stored cycle. Removing the start date alone already
// clears it; if the period cannot be removed the start date is put back.
func Reset(st storage.Storage) error {
	prev, hadPrev, err := st.Get(StartKey)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", StartKey, err)
	}
	if err := st.Remove(StartKey); err != nil {
		return fmt.Errorf("failed to clear %s: %w", StartKey, err)
	}
	if err := st.Remove(PeriodKey); err != nil {
		err = fmt.Errorf("failed to clear %s: %w", PeriodKey, err)
		return errors.Join(err, restoreStart(st, prev, hadPrev))
	}
	return nil
}

func restoreStart(st storage.Storage, prev string, hadPrev bool) error {
	var err error
	if hadPrev {
		err = st.Set(StartKey, prev)
	} else {
		err = st.Remove(StartKey)
	}
	if err != nil {
		log.Printf("Warning: could not restore %s: %v", StartKey, err)
		return fmt.Errorf("failed to restore %s: %w", StartKey, err)
	}
	return nil
}
