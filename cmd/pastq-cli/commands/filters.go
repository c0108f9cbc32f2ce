package commands

import (
	"fmt"
	"strings"

	"pastquestions-backend/cmd/pastq-cli/globals"
	"pastquestions-backend/cmd/pastq-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var filtersFlags struct {
	subject  string
	examType string
}

func init() {
	filtersCmd.Flags().StringVar(&filtersFlags.subject, "subject", "", "Narrow years, topics and types to a subject.")
	filtersCmd.Flags().StringVar(&filtersFlags.examType, "exam", "", "Narrow years, topics and types to an exam type.")
	rootCmd.AddCommand(filtersCmd)
}

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "Show the filter values the server offers.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		filters, err := ctx.Client.Filters(cmd.Context(), filtersFlags.subject, filtersFlags.examType)
		if err != nil {
			return err
		}

		years := make([]string, len(filters.Years))
		for i, year := range filters.Years {
			years[i] = fmt.Sprint(year)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"filter", "values"})
		t.AppendRow(table.Row{"subjects", strings.Join(filters.Subjects, ", ")})
		t.AppendRow(table.Row{"years", strings.Join(years, ", ")})
		t.AppendRow(table.Row{"topics", strings.Join(filters.Topics, ", ")})
		t.AppendRow(table.Row{"question types", strings.Join(filters.QuestionTypes, ", ")})
		t.Render()
		return nil
	},
}
