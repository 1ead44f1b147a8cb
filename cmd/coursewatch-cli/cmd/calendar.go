package cmd

import (
	"coursewatch-backend/internal/schedule"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var calendarOutput string

func init() {
	calendarCmd.Flags().StringVarP(&calendarOutput, "output", "o", "", "Write the calendar to this file instead of stdout.")
	rootCmd.AddCommand(calendarCmd)
}

var calendarCmd = &cobra.Command{
	Use:   "calendar <term> <crn>...",
	Short: "Exports the meetings of some sections as an iCalendar file and reports time conflicts.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := args[0]
		listings, err := components.Registrar.FindCourses(cmd.Context(), term, args[1:])
		if err != nil {
			return err
		}

		for _, conflict := range schedule.Conflicts(listings) {
			fmt.Fprintf(os.Stderr, "conflict on %s: %s and %s\n", conflict.Day, conflict.First, conflict.Second)
		}

		ics := schedule.ExportICS(listings, schedule.CalendarOptions{
			Name:     "Courses " + term,
			Location: components.Clock.Location(),
			Now:      components.Clock.Now(),
		})
		if calendarOutput == "" {
			fmt.Print(ics)
			return nil
		}
		return os.WriteFile(calendarOutput, []byte(ics), 0644)
	},
}
