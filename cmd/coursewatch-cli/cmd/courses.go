package cmd

import (
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	coursesQuery   string
	coursesCatalog bool
)

func init() {
	coursesCmd.Flags().StringVarP(&coursesQuery, "query", "q", "", "Only show sections matching this text.")
	coursesCmd.Flags().BoolVar(&coursesCatalog, "catalog", false, "Show the catalog title of each course.")
	rootCmd.AddCommand(coursesCmd)
	rootCmd.AddCommand(detailCmd)
	rootCmd.AddCommand(catalogCmd)
}

func meetingsOf(meetings []banner.MeetingPattern) string {
	lines := make([]string, len(meetings))
	for i, m := range meetings {
		lines[i] = fmt.Sprintf("%s %s %s", m.Days, m.Time, m.Where)
	}
	return strings.Join(lines, "\n")
}

var coursesCmd = &cobra.Command{
	Use:   "courses <term> [subject]",
	Short: "Lists the sections of a subject, or of every subject when none is given.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result registrar.CourseResult
		var err error
		if len(args) == 2 {
			result, err = components.Registrar.SubjectCourses(cmd.Context(), args[0], args[1])
		} else {
			result, err = components.Registrar.TermCourses(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		courses := result.Courses
		if coursesQuery != "" {
			courses = registrar.FilterCourses(courses, coursesQuery)
		}
		if coursesCatalog {
			courses = components.Registrar.AttachCatalog(cmd.Context(), args[0], courses)
		}

		t := newTable()
		header := table.Row{"CRN", "Course", "Section", "Name", "Instructor", "Meetings"}
		if coursesCatalog {
			header = append(header, "Catalog title")
		}
		t.AppendHeader(header)
		for _, c := range courses {
			row := table.Row{
				c.CRN,
				fmt.Sprintf("%s %s", c.SubjectCode, c.CourseNumber),
				c.Section,
				c.CourseName,
				c.Instructor,
				meetingsOf(c.Schedule),
			}
			if coursesCatalog {
				title := ""
				if c.Catalog != nil {
					title = c.Catalog.Title
				}
				row = append(row, title)
			}
			t.AppendRow(row)
		}
		t.SetCaption("%d sections, source: %s", len(courses), result.Source)
		t.Render()
		return nil
	},
}

func availability(a *banner.Availability) string {
	if a == nil {
		return "n/a"
	}
	return fmt.Sprintf("%s of %s remaining", a.Remaining, a.Capacity)
}

var detailCmd = &cobra.Command{
	Use:   "detail <term> <crn>",
	Short: "Shows the live detail page of a section.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		detail, err := components.Registrar.CourseDetail(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendRows([]table.Row{
			{"Title", detail.Title},
			{"Term", detail.AssociatedTerm},
			{"Levels", detail.Levels},
			{"Credits", detail.Credits},
			{"Instructor", detail.Instructor},
			{"Seats", availability(detail.Seats)},
			{"Waitlist", availability(detail.Waitlist)},
			{"Meetings", meetingsOf(detail.Schedule)},
		})
		t.Render()
		return nil
	},
}

func creditsOf(c *banner.Credits) string {
	if c == nil || c.CreditHours == nil {
		return ""
	}
	return fmt.Sprintf("%g", *c.CreditHours)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog <term> <subject> <number>",
	Short: "Shows the catalog entry of a course.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := components.Registrar.Catalog(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Title", "Credits", "Prerequisites", "Description"})
		for _, e := range result.Entries {
			description := e.Description
			if e.Fallback {
				description = e.RawText
			}
			t.AppendRow(table.Row{e.Title, creditsOf(e.Credits), e.Prerequisites, description})
		}
		t.SetCaption("source: %s", result.Source)
		t.Render()
		return nil
	},
}
