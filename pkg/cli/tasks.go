package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cyclecal/pkg/controller"
	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/grid"
	"github.com/harrisonrobin/cyclecal/pkg/phase"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
)

func newMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month [yyyy-mm]",
		Short: "Print a month grid with phases and task counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseMonth(firstArg(args), time.Now())
			if err != nil {
				return err
			}
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.ctrl.State()
			delta := (year-st.Year)*12 + int(month-st.Month)
			view, err := a.ctrl.Dispatch(cmd.Context(), controller.ChangeMonth{Delta: delta})
			if err != nil {
				return err
			}
			printMonth(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

var phaseLetters = map[phase.Phase]string{
	phase.Menstruation: "M",
	phase.Follicular:   "F",
	phase.Ovulation:    "O",
	phase.Luteal:       "L",
	phase.Unknown:      " ",
}

func printMonth(w io.Writer, v controller.View) {
	fmt.Fprintf(w, "%s %d\n", v.State.Month, v.State.Year)
	fmt.Fprintln(w, " Mo    Tu    We    Th    Fr    Sa    Su")
	for _, week := range grid.Weeks(v.Days) {
		var cells []string
		for _, d := range week {
			if !d.InCurrentMonth {
				cells = append(cells, "     ")
				continue
			}
			count := " "
			if d.TaskCount > 0 {
				count = strconv.Itoa(min(d.TaskCount, 9))
			}
			today := " "
			if d.IsToday {
				today = "*"
			}
			cells = append(cells, fmt.Sprintf("%s%2d%s%s", today, d.Date.Day, phaseLetters[d.Phase], count))
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
	if v.Cycle == nil {
		fmt.Fprintln(w, "\nNo cycle set. Run: cyclecal cycle set <yyyy-mm-dd> [period]")
	} else {
		fmt.Fprintln(w, "\nM menstruation  F follicular  O ovulation  L luteal  * today")
	}
}

func newAddCmd() *cobra.Command {
	var phaseName string
	var noAdvice bool

	cmd := &cobra.Command{
		Use:   "add <yyyy-mm-dd|today|tomorrow> <text...>",
		Short: "Add a task to a day, asking the advice service about it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0], time.Now())
			if err != nil {
				return err
			}
			addCmd := controller.AddTask{Date: day, Text: strings.Join(args[1:], " ")}
			if phaseName != "" {
				p, err := phase.Parse(phaseName)
				if err != nil {
					return err
				}
				addCmd.Override = &p
			}

			a, err := openApp(appOptions{noAdvice: noAdvice})
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.ctrl.Dispatch(cmd.Context(), controller.OpenDay{Date: day}); err != nil {
				return err
			}
			view, err := a.ctrl.Dispatch(cmd.Context(), addCmd)
			if err != nil {
				return err
			}
			list := view.Detail.Tasks
			fmt.Fprintf(cmd.OutOrStdout(), "Added to %s (%s)\n", day.ISO(), view.Detail.Info.Label)
			if n := len(list); n > 0 && list[n-1].HasAdvice() {
				fmt.Fprintf(cmd.OutOrStdout(), "Advice: %s\n", list[n-1].Advice)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&phaseName, "phase", "", "Ask for advice as if the day were in this phase")
	cmd.Flags().BoolVar(&noAdvice, "no-advice", false, "Do not contact the advice service")
	return cmd
}

func newListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list [yyyy-mm-dd|today]",
		Short: "List the tasks of a day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			if all {
				for _, key := range a.store.Keys() {
					printDay(w, key, a.store.List(key))
				}
				return nil
			}

			day, err := parseDay(firstArg(args), time.Now())
			if err != nil {
				return err
			}
			list := a.store.List(day)
			if len(list) == 0 {
				fmt.Fprintf(w, "No tasks on %s\n", day.ISO())
				return nil
			}
			printDay(w, day, list)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every day that has tasks")
	return cmd
}

func printDay(w io.Writer, day datekey.Key, list []tasks.Task) {
	fmt.Fprintf(w, "%s\n", day.ISO())
	for i, t := range list {
		fmt.Fprintf(w, "  %d. %s\n", i+1, t.Text)
		if t.HasAdvice() {
			fmt.Fprintf(w, "     ↳ %s\n", t.Advice)
		}
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <yyyy-mm-dd|today> <n>",
		Short: "Delete the n-th task of a day (1-based)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(args[0], time.Now())
			if err != nil {
				return err
			}
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			before := len(a.store.List(day))
			if _, err := a.ctrl.Dispatch(cmd.Context(), controller.DeleteTask{Date: day, Index: index}); err != nil {
				return err
			}
			if len(a.store.List(day)) == before {
				return fmt.Errorf("no task %s on %s", args[1], day.ISO())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s from %s\n", args[1], day.ISO())
			return nil
		},
	}
}

func newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <from> <n> <to>",
		Short: "Move the n-th task of a day (1-based) to the end of another day",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			from, err := parseDay(args[0], now)
			if err != nil {
				return err
			}
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			to, err := parseDay(args[2], now)
			if err != nil {
				return err
			}
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if index >= len(a.store.List(from)) {
				return fmt.Errorf("no task %s on %s", args[1], from.ISO())
			}
			if _, err := a.ctrl.Dispatch(cmd.Context(), controller.MoveTask{From: from, To: to, Index: index}); err != nil {
				return err
			}
			info := a.classifier.ClassifyKey(to, a.ctrl.Cycle())
			fmt.Fprintf(cmd.OutOrStdout(), "Moved to %s (%s)\n", to.ISO(), info.Label)
			return nil
		},
	}
}

func newPhaseCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "phase [yyyy-mm-dd|today]",
		Short: "Show the cycle phase of a day and the days after it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(firstArg(args), time.Now())
			if err != nil {
				return err
			}
			a, err := openApp(appOptions{noAdvice: true})
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.ctrl.Dispatch(cmd.Context(), controller.OpenDay{Date: day})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			info := view.Detail.Info
			fmt.Fprintf(w, "%s: %s\n", day.ISO(), info.Label)
			if info.ShowWarning {
				fmt.Fprintf(w, "⚠ %s\n", info.Message)
			} else {
				fmt.Fprintln(w, info.Message)
			}
			if days > 0 {
				b := grid.NewBuilder(a.store, a.classifier)
				for _, c := range b.MoveCandidates(day, days, view.Cycle) {
					fmt.Fprintf(w, "  %s  %s\n", c.Date.ISO(), c.Info.Label)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "next", 0, "Also show the phases of the next N days")
	return cmd
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid task number %q", s)
	}
	return n - 1, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
