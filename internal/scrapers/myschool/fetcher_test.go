package myschool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pastquestions-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type sleepLog struct {
	mutex sync.Mutex
	waits []time.Duration
}

func (l *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	l.mutex.Lock()
	l.waits = append(l.waits, d)
	l.mutex.Unlock()
	return ctx.Err()
}

func (l *sleepLog) recorded() []time.Duration {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]time.Duration(nil), l.waits...)
}

func testFetcher(t *testing.T, baseUrl string, pacing Pacing) (*Fetcher, *sleepLog, *telemetry.Recorder) {
	tel := telemetry.NewRecorder()
	f, err := NewFetcher(FetcherOptions{
		BaseURL: baseUrl,
		Pacing:  pacing,
		Seed:    1,
	}, tel)
	require.NoError(t, err)
	log := &sleepLog{}
	f.sleep = log.sleep
	return f, log, tel
}

// withoutPauses keeps a scraper's fetcher from sleeping between requests.
func withoutPauses(s *Scraper) *Scraper {
	s.fetcher.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
	return s
}

func TestFetchRetriesAfterForbidden(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`<html><body><h3>ok</h3></body></html>`))
	}))
	defer srv.Close()

	pacing := Pacing{MinDelay: time.Second, MaxDelay: time.Second, BlockedDelay: 10 * time.Second}
	f, log, tel := testFetcher(t, srv.URL, pacing)

	doc, outcome := f.Fetch(context.Background(), srv.URL+"/classroom/chemistry")
	require.NotNil(t, doc)
	require.Equal(t, "ok", doc.Find("h3").Text())
	require.Equal(t, 2, outcome.Attempts)
	require.Equal(t, http.StatusOK, outcome.Status)
	require.False(t, outcome.Blocked)
	require.Equal(t, []time.Duration{time.Second, 10 * time.Second, time.Second}, log.recorded())
	require.Len(t, tel.Reports(report_fetcher_blocked), 1)
}

func TestFetchBlockedTwice(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f, _, _ := testFetcher(t, srv.URL, Pacing{})
	doc, outcome := f.Fetch(context.Background(), srv.URL+"/classroom")
	require.Nil(t, doc)
	require.True(t, outcome.Blocked)
	require.Equal(t, http.StatusForbidden, outcome.Status)
	require.Equal(t, int32(maxAttempts), hits.Load())
}

func TestFetchServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f, _, _ := testFetcher(t, srv.URL, Pacing{})
	doc, outcome := f.Fetch(context.Background(), srv.URL+"/classroom")
	require.Nil(t, doc)
	require.False(t, outcome.Blocked)
	require.Error(t, outcome.Err)
	require.Equal(t, int32(2), hits.Load())
}

func TestFetchChallengePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>One more step</h1><p>Please verify you are a human</p></body></html>`))
	}))
	defer srv.Close()

	f, _, tel := testFetcher(t, srv.URL, Pacing{})
	doc, outcome := f.Fetch(context.Background(), srv.URL+"/classroom")
	require.NotNil(t, doc)
	require.Equal(t, "One more step", doc.Find("h1").Text())
	require.True(t, outcome.Blocked)
	require.Equal(t, http.StatusOK, outcome.Status)
	require.Equal(t, 1, outcome.Attempts)
	require.Len(t, tel.Reports(report_fetcher_challenge), 1)
}

func TestFetchChallengeKeywordOnErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<html><body><script src="https://www.google.com/recaptcha/api.js"></script></body></html>`))
	}))
	defer srv.Close()

	f, _, tel := testFetcher(t, srv.URL, Pacing{})
	doc, outcome := f.Fetch(context.Background(), srv.URL+"/classroom/missing/1")
	require.Nil(t, doc)
	require.True(t, outcome.Blocked)
	require.Equal(t, http.StatusNotFound, outcome.Status)
	require.Len(t, tel.Reports(report_fetcher_challenge), 1)
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f, _, _ := testFetcher(t, srv.URL, Pacing{})
	doc, outcome := f.Fetch(context.Background(), srv.URL+"/classroom/missing/1")
	require.Nil(t, doc)
	require.False(t, outcome.Blocked)
	require.NoError(t, outcome.Err)
	require.Equal(t, http.StatusNotFound, outcome.Status)
	require.Equal(t, 1, outcome.Attempts)
}

func TestFetchBrowserHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	f, _, _ := testFetcher(t, srv.URL, Pacing{})
	_, outcome := f.Fetch(context.Background(), srv.URL+"/classroom/chemistry")
	require.Equal(t, http.StatusOK, outcome.Status)

	got := <-headers
	require.Contains(t, userAgents, got.Get("User-Agent"))
	require.True(t, strings.HasSuffix(got.Get("Referer"), "/classroom"))
	require.Equal(t, "en-US,en;q=0.9", got.Get("Accept-Language"))
	require.Equal(t, "navigate", got.Get("Sec-Fetch-Mode"))
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	}))
	defer srv.Close()

	f, _, _ := testFetcher(t, srv.URL, Pacing{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, outcome := f.Fetch(ctx, srv.URL+"/classroom")
	require.Nil(t, doc)
	require.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestNewFetcherDefaultPacing(t *testing.T) {
	f, err := NewFetcher(FetcherOptions{BaseURL: "https://myschool.ng"}, telemetry.NewRecorder())
	require.NoError(t, err)
	require.Equal(t, DefaultPacing(), f.pacing)

	custom := Pacing{MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	f, err = NewFetcher(FetcherOptions{BaseURL: "https://myschool.ng", Pacing: custom}, telemetry.NewRecorder())
	require.NoError(t, err)
	require.Equal(t, custom, f.pacing)
}

func TestNewFetcherRejectsPacing(t *testing.T) {
	_, err := NewFetcher(FetcherOptions{
		BaseURL: "https://myschool.ng",
		Pacing:  Pacing{MinDelay: 5 * time.Second, MaxDelay: time.Second},
	}, telemetry.NewRecorder())
	require.Error(t, err)
}
