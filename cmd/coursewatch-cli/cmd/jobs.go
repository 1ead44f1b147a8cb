package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(pollCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rescrapes every subject of every term into the cache.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := components.Refresh.Run(cmd.Context())

		t := newTable()
		t.AppendHeader(table.Row{"Terms", "Subjects", "Courses", "Failed terms", "Failed subjects"})
		t.AppendRow(table.Row{report.Terms, report.Subjects, report.Courses, report.FailedTerms, report.FailedSubjects})
		t.Render()
		return nil
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Checks every watched section once.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := components.Watchlist.Poll(cmd.Context())

		t := newTable()
		t.AppendHeader(table.Row{"Checked", "Changed", "Unchanged", "Failed"})
		t.AppendRow(table.Row{report.Checked, report.Changed, report.Unchanged, report.Failed})
		t.Render()
		return nil
	},
}
