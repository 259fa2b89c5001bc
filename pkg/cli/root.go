package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
)

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cyclecal",
		Short: "Cycle-aware task calendar",
		Long: `cyclecal keeps per-day task lists, colours each day by menstrual cycle
phase and asks an advice service how well a task fits the day.

Run without arguments to open the terminal calendar.`,
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.AddCommand(newMonthCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newPhaseCmd())
	rootCmd.AddCommand(newCycleCmd())
	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// parseDay accepts yyyy-mm-dd, "today", "tomorrow" and "yesterday".
func parseDay(s string, now time.Time) (datekey.Key, error) {
	today := datekey.FromTime(now)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	return datekey.ParseISO(s)
}

// parseMonth accepts yyyy-mm; empty means the month of now.
func parseMonth(s string, now time.Time) (int, time.Month, error) {
	if strings.TrimSpace(s) == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, want yyyy-mm", s)
	}
	return t.Year(), t.Month(), nil
}
