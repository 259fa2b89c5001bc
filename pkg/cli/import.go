package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cyclecal/pkg/model"
	"github.com/harrisonrobin/cyclecal/pkg/orgmode"
	"github.com/harrisonrobin/cyclecal/pkg/tasks"
	"github.com/harrisonrobin/cyclecal/pkg/taskwarrior"
)

func newImportCmd() *cobra.Command {
	var tag string

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import dated tasks from other tools",
	}
	importCmd.PersistentFlags().StringVar(&tag, "tag", "", "Only import entries carrying this tag")

	importCmd.AddCommand(&cobra.Command{
		Use:   "org <file.org...>",
		Short: "Import TODO headlines with a DEADLINE",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := orgmode.ParseFiles(args)
			if err != nil {
				return err
			}
			return importEntries(cmd.OutOrStdout(), model.Filter(entries, tag))
		},
	})

	var useExport bool
	twCmd := &cobra.Command{
		Use:   "taskwarrior [file|-] [-- filter...]",
		Short: "Import pending tasks that have a due or scheduled date",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := taskwarrior.NewClient()
			var twTasks []taskwarrior.Task
			var err error
			switch {
			case useExport:
				twTasks, err = client.GetTasks(args)
			case len(args) == 0 || args[0] == "-":
				twTasks, err = client.ParseTasks(cmd.InOrStdin())
			default:
				var f *os.File
				if f, err = os.Open(args[0]); err != nil {
					return err
				}
				defer f.Close()
				twTasks, err = client.ParseTasks(f)
			}
			if err != nil {
				return err
			}
			return importEntries(cmd.OutOrStdout(), model.Filter(taskwarrior.Entries(twTasks), tag))
		},
	}
	twCmd.Flags().BoolVar(&useExport, "export", false, "Run task export with the remaining arguments as filter")
	importCmd.AddCommand(twCmd)

	return importCmd
}

// importEntries adds entries that are not already stored. Imports skip the
// advice service.
func importEntries(w io.Writer, entries []model.Entry) error {
	a, err := openApp(appOptions{noAdvice: true})
	if err != nil {
		return err
	}
	defer a.Close()

	added, skipped := 0, 0
	for _, e := range entries {
		task := e.Task()
		if containsID(a.store.List(e.Day), task.ID) {
			skipped++
			continue
		}
		if err := a.store.Add(e.Day, task); err != nil {
			return fmt.Errorf("failed to import %q: %w", e.Text, err)
		}
		added++
	}
	fmt.Fprintf(w, "Imported %d %s, %d already present\n", added, plural(added, "task"), skipped)
	return nil
}

func containsID(list []tasks.Task, id string) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
