package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cyclecal/pkg/auth"
	"github.com/harrisonrobin/cyclecal/pkg/colors"
	"github.com/harrisonrobin/cyclecal/pkg/google"
	"github.com/harrisonrobin/cyclecal/pkg/index"
)

func newSyncCmd() *cobra.Command {
	var calendarName string

	cmd := &cobra.Command{
		Use:   "sync [yyyy-mm]",
		Short: "Mirror a month's tasks into Google Calendar as all-day events",
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

			// Priority: flag > config.
			if calendarName == "" {
				calendarName = a.cfg.Google.Calendar
			}

			idxPath, err := index.DefaultPath()
			if err != nil {
				return err
			}
			evtIndex, err := index.NewEventIndex(idxPath)
			if err != nil {
				log.Printf("Warning: failed to load event index, falling back to search: %v", err)
				evtIndex = nil
			}
			palette, err := colors.NewPalette()
			if err != nil {
				log.Printf("Warning: could not load phase colors: %v", err)
				palette = colors.Default()
			}

			gClient, err := google.NewClient(cmd.Context(), calendarName, evtIndex)
			if err != nil {
				return fmt.Errorf("error creating Google Calendar client: %w", err)
			}

			report, err := gClient.SyncMonth(cmd.Context(), year, month, a.store.Snapshot(), google.SyncOptions{
				Classifier: a.classifier,
				Cycle:      a.ctrl.Cycle(),
				Palette:    palette,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d: %d created, %d updated, %d unchanged, %d deleted, %d failed\n",
				month, year, report.Created, report.Updated, report.Unchanged, report.Deleted, report.Failed)
			return err
		},
	}
	cmd.Flags().StringVar(&calendarName, "calendar", "", "Google Calendar name to sync with (overrides config)")
	return cmd
}

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Calendar, replacing any stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ResetToken(); err != nil {
				return err
			}
			if _, err := auth.GetCalendarService(cmd.Context()); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			path, _ := auth.TokenPath()
			log.Printf("Authentication successful! Token saved to %s", path)
			return nil
		},
	}
}
