package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(termsCmd)
	rootCmd.AddCommand(subjectsCmd)
}

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Lists every term with its subjects.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		terms, source, err := components.Registrar.Terms(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Code", "Name", "Subjects"})
		for _, term := range terms {
			t.AppendRow(table.Row{term.TermCode, term.TermName, term.SubjectCount})
		}
		t.SetCaption("source: %s", source)
		t.Render()
		return nil
	},
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects <term>",
	Short: "Lists the subject codes offered in a term, always read live.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subjects, err := components.Registrar.Subjects(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(subjects, " "))
		return nil
	},
}
