package cmd

import (
	"coursewatch-backend/internal/watchlist"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manages the sections whose seats and schedule are polled.",
}

func init() {
	watchCmd.AddCommand(watchAddCmd)
	watchCmd.AddCommand(watchRmCmd)
	watchCmd.AddCommand(watchListCmd)
	rootCmd.AddCommand(watchCmd)
}

func countOf(n *int64) string {
	if n == nil {
		return "n/a"
	}
	return fmt.Sprint(*n)
}

func printWatched(watched ...watchlist.Watched) {
	t := newTable()
	t.AppendHeader(table.Row{"Term", "CRN", "Seats remaining", "Waitlist remaining"})
	for _, w := range watched {
		t.AppendRow(table.Row{w.Term, w.CRN, countOf(w.SeatsRemaining), countOf(w.WaitlistRemaining)})
	}
	t.Render()
}

var watchAddCmd = &cobra.Command{
	Use:   "add <term> <crn>",
	Short: "Starts watching a section.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		watched, err := components.Watchlist.Subscribe(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printWatched(watched)
		return nil
	},
}

var watchRmCmd = &cobra.Command{
	Use:   "rm <term> <crn>",
	Short: "Stops watching a section.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return components.Watchlist.Unsubscribe(cmd.Context(), args[0], args[1])
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the watched sections with their last snapshot.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		watched, err := components.Watchlist.List(cmd.Context())
		if err != nil {
			return err
		}
		printWatched(watched...)
		return nil
	},
}
