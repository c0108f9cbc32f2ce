package myschool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questions"
	"pastquestions-backend/pkg/htmlutil"
	"pastquestions-backend/pkg/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_walker_page     = "walker.page"
	report_walker_blocked  = "walker.blocked"
	report_walker_accepted = "walker.accepted"
)

const (
	DefaultBaseURL = "https://myschool.ng"
	DefaultMinYear = 2000
	DefaultLimit   = 50

	// listing pages that only hold already known questions are skipped past, up to this many
	maxKnownOnlyPages = 5
)

var (
	ErrBlocked         = errors.New("blocked by myschool")
	ErrSubjectNotFound = errors.New("subject not found")
)

var detailCallToAction = []string{
	"View Answer",
	"Discuss",
	"Question Detail",
}

var detailPathRegex = regexp.MustCompile(`^/classroom/(questions/.+|[^/]+/\d+/?.*)$`)

type Options struct {
	BaseURL string
	Fetcher FetcherOptions
	// SubjectsCache is the file the subject index is cached in, empty disables the cache.
	SubjectsCache string
}

// Scraper walks myschool's past question listings.
type Scraper struct {
	BaseURL *url.URL

	fetcher       *Fetcher
	extractor     Extractor
	subjectsCache string
	time          chrono.TimeAPI
	tel           telemetry.API
}

func NewScraper(opts Options, time chrono.TimeAPI, tel telemetry.API) (*Scraper, error) {
	assert.NotNil(time, "time")
	assert.NotNil(tel, "telemetry")

	tel = telemetry.NewScopedAPI("myschool", tel)

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	opts.Fetcher.BaseURL = base.String()
	fetcher, err := NewFetcher(opts.Fetcher, tel)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		BaseURL:       base,
		fetcher:       fetcher,
		extractor:     NewExtractor(NewNormalizer(base), time, tel),
		subjectsCache: opts.SubjectsCache,
		time:          time,
		tel:           tel,
	}, nil
}

// SubjectURL is the listing url of a subject given its display name or slug.
func (s *Scraper) SubjectURL(subject string) string {
	return s.BaseURL.JoinPath("classroom", textutil.Slug(subject, "-")).String()
}

type ScrapeParams struct {
	SubjectURL string
	// Subject is stamped on every record, it defaults to the slug of SubjectURL.
	Subject string
	Limit   int
	// MinYear defaults to 2000 and MaxYear to the current year.
	MinYear int
	MaxYear int
	// ExistingURLs are detail pages that should not be fetched again.
	ExistingURLs []string
	// ExamType "" walks jamb, waec and neco.
	ExamType string
	// QuestionType "" walks every listing type, "theory" also walks practical.
	QuestionType string
}

type ScrapeResult struct {
	Questions []questions.Question
	// Blocked is true when any fetch during the walk hit a 403 or a bot challenge.
	Blocked bool
	// Pages is the number of listing pages requested.
	Pages int
	// Fetched is the number of fetches made, listings and details.
	Fetched   int
	SessionID string
}

func (s *Scraper) resolveParams(params ScrapeParams) (ScrapeParams, error) {
	if params.Limit < 0 {
		return params, fmt.Errorf("%w: limit %d is negative", ErrInvalidParams, params.Limit)
	}
	if params.SubjectURL == "" {
		if params.Subject == "" {
			return params, fmt.Errorf("%w: a subject url or subject is required", ErrInvalidParams)
		}
		params.SubjectURL = s.SubjectURL(params.Subject)
	}
	if params.Subject == "" {
		params.Subject = SubjectFromURL(params.SubjectURL)
	}
	if params.MinYear == 0 {
		params.MinYear = DefaultMinYear
	}
	if params.MaxYear == 0 {
		params.MaxYear = chrono.CurrentYear(s.time)
	}
	return params, nil
}

// walk is the state of a single ScrapeQuestions call.
type walk struct {
	params   ScrapeParams
	session  *Session
	known    map[string]bool
	accepted map[string]bool
	result   ScrapeResult
	span     trace.Span
}

func (w *walk) full() bool {
	return len(w.result.Questions) >= w.params.Limit
}

// ScrapeQuestions walks the subject's listings bucket by bucket and returns
// the questions it accepted, in acceptance order. Finding nothing is not an
// error, only invalid params are.
func (s *Scraper) ScrapeQuestions(ctx context.Context, params ScrapeParams) (ScrapeResult, error) {
	params, err := s.resolveParams(params)
	if err != nil {
		return ScrapeResult{}, err
	}
	plan, err := PlanBuckets(params.ExamType, params.QuestionType, params.MinYear, params.MaxYear)
	if err != nil {
		return ScrapeResult{}, err
	}

	ctx, span := tracer.Start(ctx, "ScrapeQuestions")
	defer span.End()
	span.SetAttributes(
		attribute.String("subject_url", params.SubjectURL),
		attribute.Int("limit", params.Limit),
		attribute.Int("buckets", len(plan)),
	)

	w := &walk{
		params:   params,
		session:  NewSession(),
		known:    make(map[string]bool, len(params.ExistingURLs)),
		accepted: map[string]bool{},
		result:   ScrapeResult{Questions: []questions.Question{}},
		span:     span,
	}
	for _, u := range params.ExistingURLs {
		w.known[u] = true
	}

	for _, bucket := range plan {
		if w.full() || ctx.Err() != nil {
			break
		}
		blocked := s.walkBucket(ctx, w, bucket)
		if blocked {
			s.tel.ReportWarning(report_walker_blocked, "listing blocked, ending walk", bucket.At(1).String())
			break
		}
	}

	w.result.Blocked = w.session.Blocked()
	w.result.Fetched = w.session.Fetched()
	w.result.SessionID = w.session.ID
	s.tel.ReportCount(report_walker_accepted, int64(len(w.result.Questions)))
	span.SetAttributes(
		attribute.Int("accepted", len(w.result.Questions)),
		attribute.Bool("blocked", w.result.Blocked),
	)
	return w.result, nil
}

// walkBucket walks the pages of one bucket, it returns true when a listing was
// blocked and the whole walk should end.
func (s *Scraper) walkBucket(ctx context.Context, w *walk, bucket Bucket) bool {
	knownOnlyPages := 0

	for page := 1; !w.full(); page++ {
		coord := bucket.At(page)
		listingUrl := coord.URL(w.params.SubjectURL)

		doc, outcome := s.fetcher.Fetch(ctx, listingUrl)
		w.session.Record(outcome)
		w.result.Pages++
		if doc == nil {
			if outcome.Blocked {
				return true
			}
			if outcome.Err != nil && ctx.Err() == nil {
				s.tel.ReportWarning(report_walker_page, outcome.Err, coord.String())
			}
			return false
		}

		links := s.detailLinks(ctx, doc)
		if len(links) == 0 {
			s.tel.ReportDebug("walker: no detail links", coord.String())
			// a challenge page in place of the listing
			return outcome.Blocked
		}
		hasNext := hasNextPage(doc, page)

		fresh := []string{}
		for _, link := range links {
			if w.known[link] || w.accepted[link] {
				continue
			}
			fresh = append(fresh, link)
		}
		if len(fresh) == 0 {
			knownOnlyPages++
			if knownOnlyPages >= maxKnownOnlyPages || !hasNext {
				return false
			}
			continue
		}
		knownOnlyPages = 0

		w.span.AddEvent("page", trace.WithAttributes(
			attribute.String("coordinate", coord.String()),
			attribute.Int("links", len(fresh)),
		))

		forceType := bucket.StoredType()
		results, err := Batch(ctx, BatchWorkers, fresh, func(ctx context.Context, detailUrl string) *questions.Question {
			detail, outcome := s.fetcher.Fetch(ctx, detailUrl)
			w.session.Record(outcome)
			return s.extractor.Extract(detail, detailUrl, ExtractOptions{
				Subject:   w.params.Subject,
				ForceType: forceType,
			})
		})
		if err != nil {
			s.tel.ReportDebug("walker: batch cancelled", coord.String(), err)
		}

		matches := 0
		for _, q := range results {
			if q == nil || !matchesBucket(*q, bucket) {
				continue
			}
			matches++
			if w.accepted[q.SourceURL] || w.full() {
				continue
			}
			w.accepted[q.SourceURL] = true
			w.result.Questions = append(w.result.Questions, *q)
		}
		if err != nil {
			return false
		}
		if matches == 0 {
			s.tel.ReportDebug("walker: no matching questions, skipping bucket", coord.String())
			return false
		}
		if !hasNext {
			return false
		}
	}
	return false
}

// matchesBucket guards against pages the site files under the wrong year or exam.
func matchesBucket(q questions.Question, bucket Bucket) bool {
	yearMatch := q.Year == nil || *q.Year == bucket.Year
	typeMatch := q.ExamType == "" || strings.EqualFold(q.ExamType, bucket.ExamType)
	return yearMatch && typeMatch
}

func isDetailCallToAction(text string) bool {
	for _, cta := range detailCallToAction {
		if strings.Contains(text, cta) {
			return true
		}
	}
	return false
}

// detailLinks returns the absolute, deduplicated detail page urls of a listing page.
func (s *Scraper) detailLinks(ctx context.Context, doc *goquery.Document) []string {
	seen := map[string]bool{}
	var links []string
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find(`a[href*="/classroom/"]`), s.BaseURL) {
		if !isDetailCallToAction(anchor.Name) {
			continue
		}
		link, err := url.Parse(anchor.Href)
		if err != nil || !detailPathRegex.MatchString(link.Path) {
			continue
		}
		link.Fragment = ""
		href := link.String()
		if seen[href] {
			continue
		}
		seen[href] = true
		links = append(links, href)
	}
	return links
}

func hasNextPage(doc *goquery.Document, page int) bool {
	next := strconv.Itoa(page + 1)
	found := false
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		link, err := url.Parse(href)
		if err == nil && link.Query().Get("page") == next {
			found = true
			return false
		}
		return true
	})
	return found
}
