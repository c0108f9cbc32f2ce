package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"pastquestions-backend/cmd/pastq-cli/globals"
	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/scrapers/myschool"

	"github.com/spf13/cobra"
)

var scrapeFlags struct {
	examType     string
	questionType string
	year         int
	from         int
	to           int
	limit        int
	out          string
	upload       bool
}

func init() {
	flags := scrapeCmd.Flags()
	flags.StringVar(&scrapeFlags.examType, "exam", "", "Exam type (jamb, waec, neco), empty walks all of them.")
	flags.StringVar(&scrapeFlags.questionType, "type", "", "Question type (objective, theory, practical), empty walks all of them.")
	flags.IntVar(&scrapeFlags.year, "year", 0, "Only scrape this year.")
	flags.IntVar(&scrapeFlags.from, "from", 0, "Oldest year to scrape, defaults to 2000.")
	flags.IntVar(&scrapeFlags.to, "to", 0, "Newest year to scrape, defaults to the current year.")
	flags.IntVar(&scrapeFlags.limit, "limit", myschool.DefaultLimit, "Maximum number of questions.")
	flags.StringVarP(&scrapeFlags.out, "out", "o", "", "Write the scraped questions to this json file.")
	flags.BoolVar(&scrapeFlags.upload, "upload", false, "Upload the scraped questions to the server, skipping those it has.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <subject>",
	Short: "Scrape a subject's past questions from myschool.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := globals.Get(cmd.Context())

		subject, err := resolveSubject(cmd.Context(), ctx.Scraper, ctx.Tel, args[0])
		if err != nil {
			return err
		}

		params := myschool.ScrapeParams{
			SubjectURL:   subject.URL,
			Subject:      subject.Name,
			Limit:        scrapeFlags.limit,
			MinYear:      scrapeFlags.from,
			MaxYear:      scrapeFlags.to,
			ExamType:     scrapeFlags.examType,
			QuestionType: scrapeFlags.questionType,
		}
		if scrapeFlags.year != 0 {
			params.MinYear = scrapeFlags.year
			params.MaxYear = scrapeFlags.year
		}
		if scrapeFlags.upload {
			stored, err := ctx.Client.ListQuestions(cmd.Context(), api.ListQuestionsParams{
				Subject: strings.ToLower(subject.Name),
			})
			if err != nil {
				return fmt.Errorf("list stored questions: %w", err)
			}
			for _, q := range stored {
				if q.SourceURL != "" {
					params.ExistingURLs = append(params.ExistingURLs, q.SourceURL)
				}
			}
		}

		result, err := ctx.Scraper.ScrapeQuestions(cmd.Context(), params)
		if err != nil {
			return err
		}

		renderQuestions(result.Questions)
		fmt.Printf("%d questions from %d listing pages, %d fetches (session %s)\n", len(result.Questions), result.Pages, result.Fetched, result.SessionID)
		if result.Blocked {
			fmt.Fprintln(os.Stderr, "warning: myschool blocked some requests, results may be incomplete")
		}

		if scrapeFlags.out != "" {
			encoded, err := json.MarshalIndent(result.Questions, "", "  ")
			if err != nil {
				return err
			}
			err = os.WriteFile(scrapeFlags.out, encoded, 0644)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", scrapeFlags.out)
		}

		if scrapeFlags.upload && len(result.Questions) > 0 {
			msg, err := ctx.Client.BulkUpload(cmd.Context(), result.Questions)
			if err != nil {
				return err
			}
			fmt.Println(msg.Message)
		}
		return nil
	},
}
