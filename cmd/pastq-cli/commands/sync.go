package commands

import (
	"errors"
	"fmt"
	"os"

	"pastquestions-backend/cmd/pastq-cli/globals"
	"pastquestions-backend/cmd/pastq-cli/utils"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/ingest"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var syncFlags struct {
	examType     string
	questionType string
	from         int
	to           int
	limit        int
	yes          bool
}

func init() {
	flags := syncCmd.Flags()
	flags.StringVar(&syncFlags.examType, "exam", "", "Exam type (jamb, waec, neco).")
	flags.StringVar(&syncFlags.questionType, "type", "objective", "Question type (objective, theory, practical).")
	flags.IntVar(&syncFlags.from, "from", 0, "Newest year to sync, defaults to the current year.")
	flags.IntVar(&syncFlags.to, "to", ingest.DefaultToYear, "Oldest year to sync.")
	flags.IntVar(&syncFlags.limit, "limit", ingest.DefaultLimit, "Maximum number of new questions to upload.")
	flags.BoolVarP(&syncFlags.yes, "yes", "y", false, "Upload without asking for confirmation.")
	syncCmd.MarkFlagRequired("exam")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync <subject>",
	Short: "Scrape a subject year by year through the local cache and upload what the server is missing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		subject, err := resolveSubject(cmd.Context(), ctx.Scraper, ctx.Tel, args[0])
		if err != nil {
			return err
		}

		warnings := telemetry.NewRecorder()
		tel := telemetry.MultiAPI{ctx.Tel, warnings}

		syncer := ingest.NewSyncer(ctx.Scraper, ctx.Client, ctx.Cache, chrono.StandardTime{}, tel)
		plan, err := syncer.Collect(cmd.Context(), ingest.SyncParams{
			Subject:      subject.Name,
			SubjectURL:   subject.URL,
			ExamType:     syncFlags.examType,
			QuestionType: syncFlags.questionType,
			Limit:        syncFlags.limit,
			FromYear:     syncFlags.from,
			ToYear:       syncFlags.to,
		})

		t := utils.NewTable()
		t.AppendHeader(table.Row{"year", "source", "found", "new"})
		for _, year := range plan.Years {
			t.AppendRow(table.Row{year.Year, string(year.Source), year.Found, year.New})
		}
		t.Render()
		if err != nil {
			return err
		}

		fmt.Printf("%d new questions for %s, the server already has %d\n", len(plan.Pending), subject.Name, plan.RemoteKnown)
		if plan.Blocked {
			fmt.Fprintln(os.Stderr, "warning: myschool blocked the scrape, run sync again later to continue from the cache")
		}
		if reports := warnings.Reports("sync.cache"); len(reports) > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d partition cache operations failed, those years will be scraped again\n", len(reports))
		}

		msg, err := syncer.Upload(cmd.Context(), plan, func(count int) bool {
			if syncFlags.yes {
				return true
			}
			return utils.Confirm(
				cmd.InOrStdin(),
				cmd.OutOrStdout(),
				fmt.Sprintf("Upload %d questions to %s?", count, ctx.Client.BaseURL),
			)
		})
		if errors.Is(err, ingest.ErrUploadDeclined) {
			fmt.Println("upload cancelled")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(msg.Message)
		return nil
	},
}
