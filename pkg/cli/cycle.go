package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cyclecal/pkg/controller"
	"github.com/harrisonrobin/cyclecal/pkg/cycle"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
)

func newCycleCmd() *cobra.Command {
	cycleCmd := &cobra.Command{
		Use:   "cycle",
		Short: "Manage the cycle start date and period",
	}

	cycleCmd.AddCommand(&cobra.Command{
		Use:   "set <yyyy-mm-dd> [period]",
		Short: "Set the first day of the last period and the cycle length",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := strconv.Itoa(phase.DefaultPeriod)
			if len(args) == 2 {
				period = args[1]
			}
			cfg, err := cycle.Parse(args[0], period)
			if err != nil {
				return err
			}
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.ctrl.Dispatch(cmd.Context(), controller.SetCycle{Config: *cfg}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cycle set: start %s, period %d days\n", cfg.Start.ISO(), cfg.Period)
			return nil
		},
	})

	cycleCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.ctrl.Cycle()
			if cfg == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No cycle set")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Start: %s\nPeriod: %d days\nPolicy: %s\n", cfg.Start.ISO(), cfg.Period, a.classifier.Policy)
			return nil
		},
	})

	cycleCmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the stored cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.ctrl.Dispatch(cmd.Context(), controller.ClearCycle{}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cycle cleared")
			return nil
		},
	})
	return cycleCmd
}
