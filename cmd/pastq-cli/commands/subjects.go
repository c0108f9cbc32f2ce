package commands

import (
	"context"
	"fmt"
	"strings"

	"pastquestions-backend/cmd/pastq-cli/globals"
	"pastquestions-backend/cmd/pastq-cli/utils"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/scrapers/myschool"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const report_cli_subjects = "cli.subjects"

func init() {
	rootCmd.AddCommand(subjectsCmd)
}

type subjectLister interface {
	ScrapeSubjects(ctx context.Context) ([]myschool.Subject, error)
	SubjectURL(subject string) string
}

// resolveSubject maps user input onto a myschool subject. When the subject
// index cannot be fetched the input is trusted and its slug is used.
func resolveSubject(ctx context.Context, lister subjectLister, tel telemetry.API, query string) (myschool.Subject, error) {
	query = strings.TrimSpace(query)
	subjects, err := lister.ScrapeSubjects(ctx)
	if err != nil || len(subjects) == 0 {
		if err != nil {
			tel.ReportWarning(report_cli_subjects, err)
		}
		return myschool.Subject{Name: query, URL: lister.SubjectURL(query)}, nil
	}

	match, ok, suggestions := myschool.FindSubject(subjects, query)
	if ok {
		return match, nil
	}
	if len(suggestions) == 0 {
		return myschool.Subject{}, fmt.Errorf("%w: '%s'", myschool.ErrSubjectNotFound, query)
	}
	names := make([]string, len(suggestions))
	for i, s := range suggestions {
		names[i] = s.Name
	}
	return myschool.Subject{}, fmt.Errorf(
		"%w: '%s', did you mean %s?",
		myschool.ErrSubjectNotFound, query, strings.Join(names, ", "),
	)
}

var subjectsCmd = &cobra.Command{
	Use:   "subjects [query]",
	Short: "List the subjects on myschool, or look one up by name.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		if len(args) == 1 {
			subject, err := resolveSubject(cmd.Context(), ctx.Scraper, ctx.Tel, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", subject.Name, subject.URL)
			return nil
		}

		subjects, err := ctx.Scraper.ScrapeSubjects(cmd.Context())
		if err != nil {
			return err
		}
		t := utils.NewTable()
		t.AppendHeader(table.Row{"#", "subject", "url"})
		for i, s := range subjects {
			t.AppendRow(table.Row{i + 1, s.Name, s.URL})
		}
		t.Render()
		return nil
	},
}
