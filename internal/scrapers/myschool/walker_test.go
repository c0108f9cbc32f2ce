package myschool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questions"

	"github.com/stretchr/testify/require"
)

// fakeSite serves fixed pages keyed by request uri, everything else is a 404.
type fakeSite struct {
	routes map[string]string
	hits   atomic.Int32
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	page, ok := s.routes[r.URL.RequestURI()]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("content-type", "text/html")
	w.Write([]byte(page))
}

func listingURI(subject, examType string, year int, qtype string, page int) string {
	return Bucket{ExamType: examType, QuestionType: qtype, Year: year}.At(page).URL("/classroom/" + subject)
}

func listingPage(subject string, ids []int, nextPage int) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, id := range ids {
		fmt.Fprintf(&sb, `<div class="question-item"><p>Question %d</p><a href="/classroom/%s/%d">View Answer</a></div>`, id, subject, id)
	}
	// navigation and unrelated classroom links are ignored
	fmt.Fprintf(&sb, `<a href="/classroom/%s">Back to %s</a>`, subject, subject)
	if nextPage > 0 {
		fmt.Fprintf(&sb, `<a href="/classroom/%s?page=%d&amp;exam_type=waec">Next</a>`, subject, nextPage)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func detailPage(id int, examType string, year int) string {
	return fmt.Sprintf(`<html><body>
		<div class="question-desc"><p>Question number %d</p></div>
		<ul class="list-unstyled">
			<li>A. First</li>
			<li>B. Second</li>
			<li>C. Third</li>
			<li>D. Fourth</li>
		</ul>
		<p>Correct Answer: Option B</p>
		<a href="/classroom/chemistry?exam_type=%s&amp;exam_year=%d">%s %d</a>
	</body></html>`, id, examType, year, strings.ToUpper(examType), year)
}

func testScraper(t *testing.T, handler http.Handler) (*Scraper, *httptest.Server, *telemetry.Recorder) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tel := telemetry.NewRecorder()
	s, err := NewScraper(Options{
		BaseURL: srv.URL,
		Fetcher: FetcherOptions{Seed: 1},
	}, testNow, tel)
	require.NoError(t, err)
	return withoutPauses(s), srv, tel
}

func detailURLs(result ScrapeResult) []string {
	var urls []string
	for _, q := range result.Questions {
		urls = append(urls, q.SourceURL)
	}
	return urls
}

func waecObjective2020(subjectUrl string) ScrapeParams {
	return ScrapeParams{
		SubjectURL:   subjectUrl,
		Limit:        10,
		MinYear:      2020,
		MaxYear:      2020,
		ExamType:     "waec",
		QuestionType: "objective",
	}
}

func TestScrapeQuestionsSkipsKnown(t *testing.T) {
	site := &fakeSite{routes: map[string]string{
		listingURI("chemistry", "waec", 2020, "objective", 1): listingPage("chemistry", []int{1, 2, 3}, 0),
		"/classroom/chemistry/1":                              detailPage(1, "waec", 2020),
		"/classroom/chemistry/2":                              detailPage(2, "waec", 2020),
		"/classroom/chemistry/3":                              detailPage(3, "waec", 2020),
	}}
	s, srv, _ := testScraper(t, site)

	params := waecObjective2020(srv.URL + "/classroom/chemistry")
	params.ExistingURLs = []string{srv.URL + "/classroom/chemistry/2"}

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.False(t, result.Blocked)
	require.Equal(t, 1, result.Pages)
	require.Equal(t, 3, result.Fetched)
	require.NotEmpty(t, result.SessionID)
	require.Equal(t, []string{
		srv.URL + "/classroom/chemistry/1",
		srv.URL + "/classroom/chemistry/3",
	}, detailURLs(result))

	q := result.Questions[0]
	require.Equal(t, "Question number 1", q.Body)
	require.Equal(t, []string{"First", "Second", "Third", "Fourth"}, q.Options)
	require.Equal(t, "B", q.Answer)
	require.Equal(t, "chemistry", q.Subject)
	require.Equal(t, "waec", q.ExamType)
	require.Equal(t, questions.YearPtr(2020), q.Year)
	require.Equal(t, questions.TypeObjective, q.QuestionType)
}

func TestScrapeQuestionsFiltersMisfiled(t *testing.T) {
	site := &fakeSite{routes: map[string]string{
		listingURI("chemistry", "waec", 2020, "objective", 1): listingPage("chemistry", []int{1, 2, 3}, 0),
		"/classroom/chemistry/1":                              detailPage(1, "waec", 2020),
		"/classroom/chemistry/2":                              detailPage(2, "waec", 2019),
		"/classroom/chemistry/3":                              detailPage(3, "jamb", 2020),
	}}
	s, srv, _ := testScraper(t, site)

	result, err := s.ScrapeQuestions(context.Background(), waecObjective2020(srv.URL+"/classroom/chemistry"))
	require.NoError(t, err)
	require.Equal(t, []string{srv.URL + "/classroom/chemistry/1"}, detailURLs(result))
	for _, q := range result.Questions {
		require.Equal(t, "waec", q.ExamType)
		require.Equal(t, 2020, *q.Year)
	}
}

func TestScrapeQuestionsLimit(t *testing.T) {
	routes := map[string]string{
		listingURI("chemistry", "waec", 2020, "objective", 1): listingPage("chemistry", []int{1, 2, 3, 4, 5}, 2),
	}
	for id := 1; id <= 5; id++ {
		routes[fmt.Sprintf("/classroom/chemistry/%d", id)] = detailPage(id, "waec", 2020)
	}
	site := &fakeSite{routes: routes}
	s, srv, _ := testScraper(t, site)

	params := waecObjective2020(srv.URL + "/classroom/chemistry")
	params.Limit = 2

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, []string{
		srv.URL + "/classroom/chemistry/1",
		srv.URL + "/classroom/chemistry/2",
	}, detailURLs(result))
	// the walk stops once full, page 2 is never requested
	require.Equal(t, 1, result.Pages)
}

func TestScrapeQuestionsZeroLimit(t *testing.T) {
	site := &fakeSite{routes: map[string]string{}}
	s, srv, _ := testScraper(t, site)

	params := waecObjective2020(srv.URL + "/classroom/chemistry")
	params.Limit = 0

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.Empty(t, result.Questions)
	require.Zero(t, site.hits.Load())
}

func TestScrapeQuestionsPagination(t *testing.T) {
	site := &fakeSite{routes: map[string]string{
		listingURI("chemistry", "waec", 2020, "objective", 1): listingPage("chemistry", []int{1, 2}, 2),
		listingURI("chemistry", "waec", 2020, "objective", 2): listingPage("chemistry", []int{2, 3}, 0),
		"/classroom/chemistry/1":                              detailPage(1, "waec", 2020),
		"/classroom/chemistry/2":                              detailPage(2, "waec", 2020),
		"/classroom/chemistry/3":                              detailPage(3, "waec", 2020),
	}}
	s, srv, _ := testScraper(t, site)

	result, err := s.ScrapeQuestions(context.Background(), waecObjective2020(srv.URL+"/classroom/chemistry"))
	require.NoError(t, err)
	require.Equal(t, 2, result.Pages)
	require.Equal(t, []string{
		srv.URL + "/classroom/chemistry/1",
		srv.URL + "/classroom/chemistry/2",
		srv.URL + "/classroom/chemistry/3",
	}, detailURLs(result))
}

func TestScrapeQuestionsAdvancesPastKnownPages(t *testing.T) {
	site := &fakeSite{routes: map[string]string{
		listingURI("chemistry", "waec", 2020, "objective", 1): listingPage("chemistry", []int{1, 2}, 2),
		listingURI("chemistry", "waec", 2020, "objective", 2): listingPage("chemistry", []int{3}, 0),
		"/classroom/chemistry/3":                              detailPage(3, "waec", 2020),
	}}
	s, srv, _ := testScraper(t, site)

	params := waecObjective2020(srv.URL + "/classroom/chemistry")
	params.ExistingURLs = []string{
		srv.URL + "/classroom/chemistry/1",
		srv.URL + "/classroom/chemistry/2",
	}

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, []string{srv.URL + "/classroom/chemistry/3"}, detailURLs(result))
}

func TestScrapeQuestionsTheoryBuckets(t *testing.T) {
	site := &fakeSite{routes: map[string]string{
		listingURI("physics", "waec", 2020, "theory", 1):    listingPage("physics", []int{1}, 0),
		listingURI("physics", "waec", 2020, "practical", 1): listingPage("physics", []int{2}, 0),
		"/classroom/physics/1":                              detailPage(1, "waec", 2020),
		"/classroom/physics/2":                              detailPage(2, "waec", 2020),
	}}
	s, srv, _ := testScraper(t, site)

	params := waecObjective2020(srv.URL + "/classroom/physics")
	params.QuestionType = "theory"

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Questions, 2)
	for _, q := range result.Questions {
		require.Equal(t, questions.TypeTheory, q.QuestionType)
		require.Equal(t, []string{}, q.Options)
		require.Equal(t, "physics", q.Subject)
	}
}

func TestScrapeQuestionsBlocked(t *testing.T) {
	var hits atomic.Int32
	s, srv, tel := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))

	params := waecObjective2020(srv.URL + "/classroom/chemistry")
	params.ExamType = ""

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.True(t, result.Blocked)
	require.Empty(t, result.Questions)
	// a blocked listing ends the walk instead of moving to the next bucket
	require.Equal(t, 1, result.Pages)
	require.Equal(t, int32(maxAttempts), hits.Load())
	require.NotEmpty(t, tel.Reports(report_walker_blocked))
}

func TestScrapeQuestionsChallenge(t *testing.T) {
	s, srv, tel := testScraper(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div id="challenge-platform">Checking your browser</div></body></html>`))
	}))

	params := waecObjective2020(srv.URL + "/classroom/chemistry")
	params.ExamType = ""

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.True(t, result.Blocked)
	require.Empty(t, result.Questions)
	// a challenge in place of the listing ends the walk like a 403 would
	require.Equal(t, 1, result.Pages)
	require.NotEmpty(t, tel.Reports(report_walker_blocked))
}

func TestScrapeQuestionsStrayChallengeKeyword(t *testing.T) {
	listing := strings.Replace(
		listingPage("chemistry", []int{1, 2}, 0),
		"</body>",
		`<script src="https://www.google.com/recaptcha/api.js"></script></body>`,
		1,
	)
	site := &fakeSite{routes: map[string]string{
		listingURI("chemistry", "waec", 2020, "objective", 1): listing,
		"/classroom/chemistry/1":                              detailPage(1, "waec", 2020),
		"/classroom/chemistry/2":                              detailPage(2, "waec", 2020),
	}}
	s, srv, tel := testScraper(t, site)

	result, err := s.ScrapeQuestions(context.Background(), waecObjective2020(srv.URL+"/classroom/chemistry"))
	require.NoError(t, err)
	require.Equal(t, []string{
		srv.URL + "/classroom/chemistry/1",
		srv.URL + "/classroom/chemistry/2",
	}, detailURLs(result))
	// the keyword is still surfaced on the result
	require.True(t, result.Blocked)
	require.Empty(t, tel.Reports(report_walker_blocked))
}

func TestHasNextPage(t *testing.T) {
	doc := parseDocument(t, `
		<a href="/classroom/chemistry?exam_type=waec&amp;page=3">3</a>
		<a href="/classroom/chemistry?page=12">12</a>
		<a href="#page=2">top</a>
	`)
	require.True(t, hasNextPage(doc, 2))
	require.True(t, hasNextPage(doc, 11))
	require.False(t, hasNextPage(doc, 1))
	require.False(t, hasNextPage(doc, 0))
}

func TestScrapeQuestionsDefaultsSubjectURL(t *testing.T) {
	site := &fakeSite{routes: map[string]string{
		listingURI("further-mathematics", "waec", 2020, "objective", 1): listingPage("further-mathematics", []int{7}, 0),
		"/classroom/further-mathematics/7":                              detailPage(7, "waec", 2020),
	}}
	s, _, _ := testScraper(t, site)

	params := waecObjective2020("")
	params.Subject = "Further Mathematics"

	result, err := s.ScrapeQuestions(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Questions, 1)
	require.Equal(t, "Further Mathematics", result.Questions[0].Subject)
}

func TestScrapeQuestionsInvalidParams(t *testing.T) {
	s, srv, _ := testScraper(t, http.NotFoundHandler())
	subjectUrl := srv.URL + "/classroom/chemistry"

	testCases := []struct {
		name   string
		params ScrapeParams
	}{
		{
			name:   "unknown question type",
			params: ScrapeParams{SubjectURL: subjectUrl, Limit: 1, QuestionType: "essay"},
		},
		{
			name:   "inverted years",
			params: ScrapeParams{SubjectURL: subjectUrl, Limit: 1, MinYear: 2020, MaxYear: 2010},
		},
		{
			name:   "negative limit",
			params: ScrapeParams{SubjectURL: subjectUrl, Limit: -1},
		},
		{
			name:   "no subject",
			params: ScrapeParams{Limit: 1},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := s.ScrapeQuestions(context.Background(), test.params)
			require.True(t, errors.Is(err, ErrInvalidParams), err)
		})
	}
}

func TestDetailLinks(t *testing.T) {
	s, _, _ := testScraper(t, http.NotFoundHandler())
	doc := parseDocument(t, `
		<a href="/classroom/chemistry/12#comments">View Answer</a>
		<a href="/classroom/chemistry/12">View Answer &amp; Discuss</a>
		<a href="/classroom/questions/abc-def">Question Detail</a>
		<a href="/classroom/chemistry/13">Read more</a>
		<a href="/classroom/chemistry">View Answer</a>
		<a href="/news/1">View Answer</a>
	`)

	links := s.detailLinks(context.Background(), doc)
	require.Equal(t, []string{
		s.BaseURL.String() + "/classroom/chemistry/12",
		s.BaseURL.String() + "/classroom/questions/abc-def",
	}, links)
}
