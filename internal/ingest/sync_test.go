package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/partitions"
	"pastquestions-backend/internal/questions"
	"pastquestions-backend/internal/scrapers/myschool"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	// byYear is what a scrape of that year returns
	byYear  map[int][]questions.Question
	blocked map[int]bool
	calls   []myschool.ScrapeParams
}

func (f *fakeScraper) ScrapeQuestions(ctx context.Context, params myschool.ScrapeParams) (myschool.ScrapeResult, error) {
	f.calls = append(f.calls, params)
	return myschool.ScrapeResult{
		Questions: f.byYear[params.MinYear],
		Blocked:   f.blocked[params.MinYear],
	}, nil
}

func (f *fakeScraper) SubjectURL(subject string) string {
	return "https://myschool.ng/classroom/" + subject
}

func (f *fakeScraper) scrapedYears() []int {
	years := []int{}
	for _, c := range f.calls {
		years = append(years, c.MinYear)
	}
	return years
}

type fakeRemote struct {
	stored   []questions.Stored
	listErr  error
	uploaded [][]questions.Question
}

func (f *fakeRemote) ListQuestions(ctx context.Context, params api.ListQuestionsParams) ([]questions.Stored, error) {
	return f.stored, f.listErr
}

func (f *fakeRemote) BulkUpload(ctx context.Context, qs []questions.Question) (api.Message, error) {
	f.uploaded = append(f.uploaded, qs)
	return api.Message{Message: "ok", Added: len(qs)}, nil
}

var testNow = chrono.FixedTime{At: time.Date(2025, 3, 1, 0, 0, 0, 0, chrono.Lagos())}

func question(id int, year *int) questions.Question {
	return questions.Question{
		Body:         fmt.Sprintf("question %d", id),
		Options:      []string{"a", "b", "c", "d"},
		Subject:      "chemistry",
		Year:         year,
		ExamType:     "waec",
		QuestionType: questions.TypeObjective,
		SourceURL:    fmt.Sprintf("https://myschool.ng/classroom/chemistry/%d", id),
	}
}

func setup(t *testing.T, scraper *fakeScraper, remote *fakeRemote) (Syncer, partitions.Cache, *telemetry.Recorder) {
	tel := telemetry.NewRecorder()
	cache := partitions.NewCache(t.TempDir(), tel)
	return NewSyncer(scraper, remote, cache, testNow, tel), cache, tel
}

func TestCollectScrapesAndCaches(t *testing.T) {
	scraper := &fakeScraper{byYear: map[int][]questions.Question{
		2025: {question(1, questions.YearPtr(2025)), question(2, nil)},
		// misfiled record from another year is dropped
		2024: {question(3, questions.YearPtr(2019)), question(4, questions.YearPtr(2024))},
	}}
	remote := &fakeRemote{stored: []questions.Stored{
		{ID: 1, Question: question(1, questions.YearPtr(2025))},
	}}
	syncer, cache, _ := setup(t, scraper, remote)

	plan, err := syncer.Collect(context.Background(), SyncParams{
		Subject:  "Chemistry",
		ExamType: "WAEC",
		Limit:    10,
		ToYear:   2023,
	})
	require.NoError(t, err)
	require.Equal(t, 1, plan.RemoteKnown)
	require.Equal(t, []int{2025, 2024, 2023}, scraper.scrapedYears())
	require.Equal(t, "https://myschool.ng/classroom/Chemistry", scraper.calls[0].SubjectURL)

	var urls []string
	for _, q := range plan.Pending {
		urls = append(urls, q.SourceURL)
		require.Equal(t, "Chemistry", q.Subject)
		require.NotNil(t, q.Year)
	}
	require.Equal(t, []string{
		"https://myschool.ng/classroom/chemistry/2",
		"https://myschool.ng/classroom/chemistry/4",
	}, urls)
	require.Equal(t, 2025, *plan.Pending[0].Year)

	cached, found, err := cache.Load(partitions.Key{Subject: "Chemistry", ExamType: "waec", Year: 2024, QuestionType: "objective"})
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, cached, 1)

	// an empty year is cached as empty
	cached, found, err = cache.Load(partitions.Key{Subject: "Chemistry", ExamType: "waec", Year: 2023, QuestionType: "objective"})
	require.NoError(t, err)
	require.True(t, found)
	require.Empty(t, cached)
}

func TestCollectUsesCache(t *testing.T) {
	scraper := &fakeScraper{byYear: map[int][]questions.Question{}}
	syncer, cache, _ := setup(t, scraper, &fakeRemote{})

	key := func(year int) partitions.Key {
		return partitions.Key{Subject: "chemistry", ExamType: "waec", Year: year, QuestionType: "objective"}
	}
	require.NoError(t, cache.Save(key(2012), []questions.Question{question(7, questions.YearPtr(2012))}))
	// empty and old: trusted
	require.NoError(t, cache.Save(key(2009), nil))
	// empty and recent: scraped again
	require.NoError(t, cache.Save(key(2011), nil))

	plan, err := syncer.Collect(context.Background(), SyncParams{
		Subject:  "chemistry",
		ExamType: "waec",
		FromYear: 2012,
		ToYear:   2009,
	})
	require.NoError(t, err)
	require.Equal(t, []int{2011, 2010}, scraper.scrapedYears())
	require.Len(t, plan.Pending, 1)

	sources := map[int]YearSource{}
	for _, y := range plan.Years {
		sources[y.Year] = y.Source
	}
	require.Equal(t, map[int]YearSource{
		2012: SourceCache,
		2011: SourceScraped,
		2010: SourceScraped,
		2009: SourceSkipped,
	}, sources)
}

func TestCollectLimit(t *testing.T) {
	scraper := &fakeScraper{byYear: map[int][]questions.Question{
		2025: {question(1, nil), question(2, nil), question(3, nil)},
		2024: {question(4, nil)},
	}}
	syncer, _, _ := setup(t, scraper, &fakeRemote{})

	plan, err := syncer.Collect(context.Background(), SyncParams{
		Subject:  "chemistry",
		ExamType: "waec",
		Limit:    2,
	})
	require.NoError(t, err)
	require.Len(t, plan.Pending, 2)
	require.Equal(t, []int{2025}, scraper.scrapedYears())
}

func TestCollectStopsWhenBlocked(t *testing.T) {
	scraper := &fakeScraper{
		byYear:  map[int][]questions.Question{2025: {question(1, nil)}},
		blocked: map[int]bool{2024: true},
	}
	syncer, cache, tel := setup(t, scraper, &fakeRemote{})

	plan, err := syncer.Collect(context.Background(), SyncParams{
		Subject:  "chemistry",
		ExamType: "waec",
	})
	require.NoError(t, err)
	require.True(t, plan.Blocked)
	require.Len(t, plan.Pending, 1)
	require.Equal(t, []int{2025, 2024}, scraper.scrapedYears())
	require.NotEmpty(t, tel.Reports(report_sync_blocked))

	// a blocked empty year is not cached, so it is retried next time
	_, found, err := cache.Load(partitions.Key{Subject: "chemistry", ExamType: "waec", Year: 2024, QuestionType: "objective"})
	require.NoError(t, err)
	require.False(t, found)
}

func TestCollectRemoteUnavailable(t *testing.T) {
	scraper := &fakeScraper{byYear: map[int][]questions.Question{2025: {question(1, nil)}}}
	syncer, _, tel := setup(t, scraper, &fakeRemote{listErr: errors.New("connection refused")})

	plan, err := syncer.Collect(context.Background(), SyncParams{
		Subject:  "chemistry",
		ExamType: "waec",
		FromYear: 2025,
		ToYear:   2025,
	})
	require.NoError(t, err)
	require.Len(t, plan.Pending, 1)
	require.Len(t, tel.Reports(report_sync_remote), 1)
}

func TestCollectTheory(t *testing.T) {
	theory := question(1, nil)
	theory.QuestionType = questions.TypeTheory
	theory.Options = []string{}
	scraper := &fakeScraper{byYear: map[int][]questions.Question{2025: {theory}}}
	syncer, _, _ := setup(t, scraper, &fakeRemote{})

	plan, err := syncer.Collect(context.Background(), SyncParams{
		Subject:      "chemistry",
		ExamType:     "waec",
		QuestionType: "practical",
		FromYear:     2025,
		ToYear:       2025,
	})
	require.NoError(t, err)
	require.Equal(t, "practical", scraper.calls[0].QuestionType)
	require.Len(t, plan.Pending, 1)
	require.Equal(t, questions.TypeTheory, plan.Pending[0].QuestionType)
}

func TestCollectInvalid(t *testing.T) {
	syncer, _, _ := setup(t, &fakeScraper{}, &fakeRemote{})

	_, err := syncer.Collect(context.Background(), SyncParams{ExamType: "waec"})
	require.ErrorIs(t, err, myschool.ErrInvalidParams)

	_, err = syncer.Collect(context.Background(), SyncParams{Subject: "chemistry"})
	require.ErrorIs(t, err, myschool.ErrInvalidParams)

	_, err = syncer.Collect(context.Background(), SyncParams{Subject: "chemistry", ExamType: "waec", FromYear: 2001, ToYear: 2005})
	require.ErrorIs(t, err, myschool.ErrInvalidParams)
}

func TestUpload(t *testing.T) {
	remote := &fakeRemote{}
	syncer, _, _ := setup(t, &fakeScraper{}, remote)

	plan := Plan{Pending: []questions.Question{question(1, nil), question(2, nil)}}

	_, err := syncer.Upload(context.Background(), plan, func(count int) bool {
		require.Equal(t, 2, count)
		return false
	})
	require.ErrorIs(t, err, ErrUploadDeclined)
	require.Empty(t, remote.uploaded)

	msg, err := syncer.Upload(context.Background(), plan, func(int) bool { return true })
	require.NoError(t, err)
	require.Equal(t, 2, msg.Added)
	require.Len(t, remote.uploaded, 1)

	msg, err = syncer.Upload(context.Background(), Plan{}, nil)
	require.NoError(t, err)
	require.Zero(t, msg.Added)
	require.Len(t, remote.uploaded, 1)
}
