package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSubjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List the subjects on your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			session, err := a.login(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			jobs, err := session.Locator().ListSubjects(ctx)
			if err != nil {
				return err
			}

			fmt.Println(session.Greeting())
			fmt.Println()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tSUBJECT\tLEVEL\tRESOURCES")
			for i, job := range jobs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, job.Title, job.Level, job.ResourceURL)
			}
			return tw.Flush()
		},
	}
}
