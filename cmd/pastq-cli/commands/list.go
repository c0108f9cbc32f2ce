package commands

import (
	"fmt"
	"strings"

	"pastquestions-backend/cmd/pastq-cli/globals"
	"pastquestions-backend/cmd/pastq-cli/utils"
	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/questions"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listFlags struct {
	subject      string
	year         int
	examType     string
	questionType string
	topic        string
}

func init() {
	flags := listCmd.Flags()
	flags.StringVar(&listFlags.subject, "subject", "", "Filter by subject.")
	flags.IntVar(&listFlags.year, "year", 0, "Filter by year.")
	flags.StringVar(&listFlags.examType, "exam", "", "Filter by exam type.")
	flags.StringVar(&listFlags.questionType, "type", "", "Filter by question type.")
	flags.StringVar(&listFlags.topic, "topic", "", "Filter by topic.")
	rootCmd.AddCommand(listCmd)
}

func yearString(year *int) string {
	if year == nil {
		return "-"
	}
	return fmt.Sprint(*year)
}

func questionRow(q questions.Question) table.Row {
	return table.Row{
		yearString(q.Year),
		utils.OrDash(q.ExamType),
		q.QuestionType,
		utils.Truncate(q.Body, 60),
		len(q.Options),
		utils.OrDash(q.Answer),
	}
}

func renderQuestions(qs []questions.Question) {
	t := utils.NewTable()
	t.AppendHeader(table.Row{"#", "year", "exam", "type", "question", "options", "answer"})
	for i, q := range qs {
		t.AppendRow(append(table.Row{i + 1}, questionRow(q)...))
	}
	t.Render()
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the questions stored on the server.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		params := api.ListQuestionsParams{
			Subject:      strings.ToLower(listFlags.subject),
			ExamType:     listFlags.examType,
			QuestionType: listFlags.questionType,
			Topic:        listFlags.topic,
		}
		if listFlags.year != 0 {
			params.Year = &listFlags.year
		}
		stored, err := ctx.Client.ListQuestions(cmd.Context(), params)
		if err != nil {
			return err
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"id", "subject", "year", "exam", "type", "question", "options", "answer"})
		for _, q := range stored {
			t.AppendRow(append(table.Row{q.ID, q.Subject}, questionRow(q.Question)...))
		}
		t.Render()
		fmt.Printf("%d questions\n", len(stored))
		return nil
	},
}
