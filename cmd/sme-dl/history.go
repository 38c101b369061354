package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/iamfaazi/savemyexam-downloader/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past download runs, or the details of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.settings.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer st.Close()

			if len(args) == 1 {
				run, err := st.Run(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(run)
				return nil
			}

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No downloads recorded yet.")
				return nil
			}

			t := plainTable("RUN", "STARTED", "DURATION", "FILES", "FOLDER")
			for _, r := range runs {
				t.Row(r.ID, humanize.Time(r.StartedAt), r.Duration().Round(time.Second).String(),
					fmt.Sprintf("%d/%d", r.Downloaded, r.Total), r.Root)
			}
			fmt.Println(t)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show (0 for all)")
	return cmd
}

func printRun(run *store.RunRecord) {
	fmt.Printf("Run %s\n", run.ID)
	fmt.Printf("  Started  %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	fmt.Printf("  Took     %s\n", run.Duration().Round(time.Second))
	fmt.Printf("  Files    %d/%d\n", run.Downloaded, run.Total)
	fmt.Println()

	t := plainTable("SUBJECT", "LEVEL", "FILES", "STATUS", "SAVED TO")
	for _, s := range run.Subjects {
		status := "incomplete"
		if s.Completed {
			status = "done"
		}
		t.Row(s.Title, s.Level, fmt.Sprintf("%d/%d", s.Downloaded, s.Total), status, s.SavedLocation)
	}
	fmt.Println(t)

	if len(run.Failures) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("Failed (%d):\n", len(run.Failures))
	for _, f := range run.Failures {
		fmt.Printf("  %s\n    %s (after %d retry passes)\n", f.Path, f.Error, f.Passes)
	}
}

// plainTable returns a borderless table with two spaces between columns.
func plainTable(headers ...string) *table.Table {
	cell := lipgloss.NewStyle().PaddingRight(2)
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Headers(headers...)
}
