package myschool

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("pastquestions.scrapers.myschool")

const (
	report_fetcher_fetch     = "fetcher.fetch"
	report_fetcher_blocked   = "fetcher.blocked"
	report_fetcher_challenge = "fetcher.challenge"
)

const maxAttempts = 2

// challengeKeywords appear in bot mitigation pages, which may come back with a 200.
var challengeKeywords = [][]byte{
	[]byte("captcha"),
	[]byte("bot detection"),
	[]byte("challenge-platform"),
	[]byte("one more step"),
	[]byte("please verify you are a human"),
}

// Pacing controls how long the fetcher waits before requests.
type Pacing struct {
	// every attempt waits a uniformly random duration in [MinDelay, MaxDelay]
	MinDelay time.Duration
	MaxDelay time.Duration
	// extra wait after a 403 when another attempt remains
	BlockedDelay time.Duration
}

func DefaultPacing() Pacing {
	return Pacing{
		MinDelay:     2 * time.Second,
		MaxDelay:     5 * time.Second,
		BlockedDelay: 10 * time.Second,
	}
}

// PacingConfig is the config file form of Pacing, delays are in milliseconds
// and zero fields keep the default.
type PacingConfig struct {
	MinDelay     int `json:"min_delay"`
	MaxDelay     int `json:"max_delay"`
	BlockedDelay int `json:"blocked_delay"`
}

func (c PacingConfig) Pacing() Pacing {
	pacing := DefaultPacing()
	if c.MinDelay > 0 {
		pacing.MinDelay = time.Duration(c.MinDelay) * time.Millisecond
	}
	if c.MaxDelay > 0 {
		pacing.MaxDelay = time.Duration(c.MaxDelay) * time.Millisecond
	}
	if c.BlockedDelay > 0 {
		pacing.BlockedDelay = time.Duration(c.BlockedDelay) * time.Millisecond
	}
	return pacing
}

// FetchOutcome describes what happened during a single Fetch call.
type FetchOutcome struct {
	URL string
	// Status is the status code of the last response, 0 if the last attempt never got one.
	Status   int
	Blocked  bool
	Attempts int
	// Err is the last transport error, if the last attempt failed with one.
	Err error
}

type FetcherOptions struct {
	BaseURL string
	// Pacing defaults to DefaultPacing when zero.
	Pacing  Pacing
	Timeout time.Duration
	// Dump receives every http exchange, it may be nil.
	Dump telemetry.HttpDump
	// Seed seeds identity and delay selection, 0 uses the current time.
	Seed int64
}

// Fetcher issues GET requests that look like a browser navigating the site.
type Fetcher struct {
	http    *resty.Client
	pacing  Pacing
	referer string
	rand    *lockedRand
	sleep   func(ctx context.Context, d time.Duration) error
	tel     telemetry.API
}

func NewFetcher(opts FetcherOptions, tel telemetry.API) (*Fetcher, error) {
	assert.NotNil(tel, "telemetry")
	assert.NotEmptyStr(opts.BaseURL, "base url")

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if opts.Pacing == (Pacing{}) {
		opts.Pacing = DefaultPacing()
	}
	if opts.Pacing.MaxDelay < opts.Pacing.MinDelay {
		return nil, fmt.Errorf("pacing max delay %s is less than min delay %s", opts.Pacing.MaxDelay, opts.Pacing.MinDelay)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(opts.Timeout)
	telemetry.InstrumentResty(client, tel, opts.Dump)

	return &Fetcher{
		http:    client,
		pacing:  opts.Pacing,
		referer: base.JoinPath("classroom").String(),
		rand:    newLockedRand(seed),
		sleep:   sleepContext,
		tel:     tel,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) delay() time.Duration {
	spread := f.pacing.MaxDelay - f.pacing.MinDelay
	if spread <= 0 {
		return f.pacing.MinDelay
	}
	return f.pacing.MinDelay + time.Duration(f.rand.Int63n(int64(spread)+1))
}

func (f *Fetcher) identity() identity {
	return identity{
		userAgent: userAgents[f.rand.Intn(len(userAgents))],
		referer:   f.referer,
	}
}

func isChallenge(body []byte) bool {
	lowered := bytes.ToLower(body)
	for _, keyword := range challengeKeywords {
		if bytes.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// Fetch GETs `target` and parses it. A nil document means there is nothing to
// read, the outcome tells a block (403) apart from a transport failure or a
// missing page. A page mentioning a bot challenge is still returned with
// outcome.Blocked set.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*goquery.Document, FetchOutcome) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("url", target))

	outcome := FetchOutcome{URL: target}
	defer func() {
		span.SetAttributes(
			attribute.Int("status", outcome.Status),
			attribute.Int("attempts", outcome.Attempts),
			attribute.Bool("blocked", outcome.Blocked),
		)
	}()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt

		err := f.sleep(ctx, f.delay())
		if err != nil {
			outcome.Err = err
			return nil, outcome
		}

		res, err := f.http.R().
			SetContext(ctx).
			SetHeaders(f.identity().headers()).
			Get(target)
		if err != nil {
			outcome.Status = 0
			outcome.Blocked = false
			outcome.Err = err
			span.RecordError(err)
			f.tel.ReportWarning(report_fetcher_fetch, fmt.Errorf("attempt %d/%d: %w", attempt, maxAttempts, err), target)
			if ctx.Err() != nil {
				return nil, outcome
			}
			continue
		}

		outcome.Status = res.StatusCode()
		outcome.Err = nil

		if res.StatusCode() == http.StatusForbidden {
			outcome.Blocked = true
			f.tel.ReportWarning(report_fetcher_blocked, fmt.Errorf("403 forbidden, attempt %d/%d", attempt, maxAttempts), target)
			if attempt < maxAttempts {
				err := f.sleep(ctx, f.pacing.BlockedDelay)
				if err != nil {
					outcome.Err = err
					return nil, outcome
				}
				continue
			}
			span.SetStatus(codes.Error, "blocked")
			return nil, outcome
		}

		if res.StatusCode() >= 500 {
			outcome.Blocked = false
			outcome.Err = fmt.Errorf("server responded with %s", res.Status())
			f.tel.ReportWarning(report_fetcher_fetch, fmt.Errorf("attempt %d/%d: %w", attempt, maxAttempts, outcome.Err), target)
			continue
		}

		body := res.Body()
		outcome.Blocked = false
		if isChallenge(body) {
			// the page is still parsed, callers decide if it has anything usable
			outcome.Blocked = true
			f.tel.ReportWarning(report_fetcher_challenge, target, res.StatusCode())
			span.AddEvent("bot challenge keyword")
		}

		if res.StatusCode() >= 400 {
			f.tel.ReportDebug("fetcher: no document", target, res.StatusCode())
			return nil, outcome
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			outcome.Err = fmt.Errorf("parse html: %w", err)
			f.tel.ReportBroken(report_fetcher_fetch, outcome.Err, target)
			return nil, outcome
		}
		return doc, outcome
	}

	span.SetStatus(codes.Error, "attempts exhausted")
	if outcome.Err != nil {
		f.tel.ReportWarning(report_fetcher_fetch, fmt.Errorf("giving up: %w", outcome.Err), target)
	}
	return nil, outcome
}
