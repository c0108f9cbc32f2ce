// Package ingest scrapes myschool year by year through the partition cache and
// uploads what the remote server does not have yet.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/partitions"
	"pastquestions-backend/internal/questions"
	"pastquestions-backend/internal/scrapers/myschool"
)

const (
	report_sync_remote  = "sync.remote"
	report_sync_cache   = "sync.cache"
	report_sync_blocked = "sync.blocked"
)

const (
	DefaultLimit   = 50
	DefaultToYear  = 2000
	yearScrapeSize = 100
	// cached empty partitions before this year are trusted, later ones are retried
	emptyTrustedBefore = 2010
)

var ErrUploadDeclined = errors.New("upload declined")

type Scraper interface {
	ScrapeQuestions(ctx context.Context, params myschool.ScrapeParams) (myschool.ScrapeResult, error)
	SubjectURL(subject string) string
}

type Remote interface {
	ListQuestions(ctx context.Context, params api.ListQuestionsParams) ([]questions.Stored, error)
	BulkUpload(ctx context.Context, qs []questions.Question) (api.Message, error)
}

type Syncer struct {
	scraper Scraper
	remote  Remote
	cache   partitions.Cache
	time    chrono.TimeAPI
	tel     telemetry.API
}

func NewSyncer(scraper Scraper, remote Remote, cache partitions.Cache, time chrono.TimeAPI, tel telemetry.API) Syncer {
	assert.NotNil(scraper, "scraper")
	assert.NotNil(remote, "remote")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "telemetry")
	return Syncer{
		scraper: scraper,
		remote:  remote,
		cache:   cache,
		time:    time,
		tel:     telemetry.NewScopedAPI("ingest", tel),
	}
}

type SyncParams struct {
	// Subject is the display name stamped on uploaded records.
	Subject string
	// SubjectURL defaults to the listing url derived from Subject.
	SubjectURL   string
	ExamType     string
	QuestionType string
	Limit        int
	// FromYear defaults to the current year and ToYear to 2000, years are walked downward.
	FromYear int
	ToYear   int
}

type YearSource string

const (
	SourceCache   YearSource = "cache"
	SourceScraped YearSource = "scraped"
	SourceSkipped YearSource = "skipped"
	SourceBlocked YearSource = "blocked"
)

type YearReport struct {
	Year   int
	Source YearSource
	Found  int
	New    int
}

type Plan struct {
	Params SyncParams
	Years  []YearReport
	// Pending are the records the remote does not have, in year order.
	Pending []questions.Question
	// RemoteKnown is how many source urls the remote already had.
	RemoteKnown int
	Blocked     bool
}

func (s Syncer) resolve(params SyncParams) (SyncParams, error) {
	if strings.TrimSpace(params.Subject) == "" {
		return params, fmt.Errorf("%w: subject is required", myschool.ErrInvalidParams)
	}
	params.ExamType = strings.ToLower(strings.TrimSpace(params.ExamType))
	if params.ExamType == "" {
		return params, fmt.Errorf("%w: exam type is required", myschool.ErrInvalidParams)
	}
	params.QuestionType = strings.ToLower(strings.TrimSpace(params.QuestionType))
	if params.QuestionType == "" {
		params.QuestionType = questions.TypeObjective
	}
	if params.Limit == 0 {
		params.Limit = DefaultLimit
	}
	if params.Limit < 0 {
		return params, fmt.Errorf("%w: limit %d is negative", myschool.ErrInvalidParams, params.Limit)
	}
	if params.FromYear == 0 {
		params.FromYear = chrono.CurrentYear(s.time)
	}
	if params.ToYear == 0 {
		params.ToYear = DefaultToYear
	}
	if params.ToYear > params.FromYear {
		return params, fmt.Errorf("%w: year range %d..%d is empty", myschool.ErrInvalidParams, params.FromYear, params.ToYear)
	}
	if params.SubjectURL == "" {
		params.SubjectURL = s.scraper.SubjectURL(params.Subject)
	}
	return params, nil
}

func (s Syncer) remoteURLs(ctx context.Context, params SyncParams) map[string]bool {
	known := map[string]bool{}
	stored, err := s.remote.ListQuestions(ctx, api.ListQuestionsParams{
		Subject:      strings.ToLower(params.Subject),
		QuestionType: questions.NormalizeQuestionType(params.QuestionType),
	})
	if err != nil {
		// proceed as if the remote were empty
		s.tel.ReportWarning(report_sync_remote, err)
		return known
	}
	for _, q := range stored {
		if q.SourceURL != "" {
			known[q.SourceURL] = true
		}
	}
	return known
}

// scrapeYear scrapes a single year and keeps the records that belong to it.
func (s Syncer) scrapeYear(ctx context.Context, params SyncParams, year int) ([]questions.Question, bool, error) {
	result, err := s.scraper.ScrapeQuestions(ctx, myschool.ScrapeParams{
		SubjectURL:   params.SubjectURL,
		Subject:      params.Subject,
		Limit:        yearScrapeSize,
		MinYear:      year,
		MaxYear:      year,
		ExamType:     params.ExamType,
		QuestionType: params.QuestionType,
	})
	if err != nil {
		return nil, false, err
	}

	storedType := questions.NormalizeQuestionType(params.QuestionType)
	kept := []questions.Question{}
	for _, q := range result.Questions {
		if q.Year != nil && *q.Year != year {
			continue
		}
		q.Year = questions.YearPtr(year)
		q.QuestionType = storedType
		kept = append(kept, q)
	}
	return kept, result.Blocked, nil
}

// Collect walks the years from FromYear down to ToYear and gathers the records
// the remote is missing, stopping at Limit or at the first block.
func (s Syncer) Collect(ctx context.Context, params SyncParams) (Plan, error) {
	params, err := s.resolve(params)
	if err != nil {
		return Plan{}, err
	}

	known := s.remoteURLs(ctx, params)
	plan := Plan{
		Params:      params,
		Pending:     []questions.Question{},
		RemoteKnown: len(known),
	}
	queued := map[string]bool{}

	for year := params.FromYear; year >= params.ToYear; year-- {
		if len(plan.Pending) >= params.Limit {
			break
		}
		if ctx.Err() != nil {
			return plan, ctx.Err()
		}

		key := partitions.Key{
			Subject:      params.Subject,
			ExamType:     params.ExamType,
			Year:         year,
			QuestionType: params.QuestionType,
		}
		report := YearReport{Year: year}

		cached, found, err := s.cache.Load(key)
		if err != nil {
			s.tel.ReportWarning(report_sync_cache, err)
			found = false
		}

		var yearQuestions []questions.Question
		switch {
		case found && len(cached) > 0:
			report.Source = SourceCache
			yearQuestions = cached
		case found && year < emptyTrustedBefore:
			report.Source = SourceSkipped
			plan.Years = append(plan.Years, report)
			continue
		default:
			scraped, blocked, err := s.scrapeYear(ctx, params, year)
			if err != nil {
				return plan, fmt.Errorf("scrape %d: %w", year, err)
			}
			yearQuestions = scraped
			report.Source = SourceScraped

			if len(scraped) > 0 || !blocked {
				err := s.cache.Save(key, scraped)
				if err != nil {
					s.tel.ReportWarning(report_sync_cache, err)
				}
			}
			if blocked && len(scraped) == 0 {
				report.Source = SourceBlocked
				plan.Blocked = true
				plan.Years = append(plan.Years, report)
				s.tel.ReportWarning(report_sync_blocked, fmt.Errorf("blocked while scraping %d", year), key.String())
				return plan, nil
			}
			if blocked {
				plan.Blocked = true
			}
		}

		report.Found = len(yearQuestions)
		for _, q := range yearQuestions {
			if len(plan.Pending) >= params.Limit {
				break
			}
			if q.SourceURL != "" && (known[q.SourceURL] || queued[q.SourceURL]) {
				continue
			}
			q.Subject = params.Subject
			q.QuestionType = questions.NormalizeQuestionType(params.QuestionType)
			if q.SourceURL != "" {
				queued[q.SourceURL] = true
			}
			plan.Pending = append(plan.Pending, q)
			report.New++
		}
		plan.Years = append(plan.Years, report)

		if plan.Blocked {
			break
		}
	}

	return plan, nil
}

// Upload sends the pending records in a single bulk request once `confirm`
// agrees, a nil confirm always agrees.
func (s Syncer) Upload(ctx context.Context, plan Plan, confirm func(count int) bool) (api.Message, error) {
	if len(plan.Pending) == 0 {
		return api.Message{Message: "nothing to upload"}, nil
	}
	if confirm != nil && !confirm(len(plan.Pending)) {
		return api.Message{}, ErrUploadDeclined
	}
	msg, err := s.remote.BulkUpload(ctx, plan.Pending)
	if err != nil {
		return api.Message{}, fmt.Errorf("upload %d questions: %w", len(plan.Pending), err)
	}
	return msg, nil
}
