package service

import (
	"context"

	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questionstore"
	"pastquestions-backend/internal/scrapers/aloc"
	"pastquestions-backend/internal/scrapers/myschool"
)

// MySchoolAPI is everything the service needs from the myschool scraper.
//
// note: fault injection point
type MySchoolAPI interface {
	ScrapeSubjects(ctx context.Context) ([]myschool.Subject, error)
	ScrapeQuestions(ctx context.Context, params myschool.ScrapeParams) (myschool.ScrapeResult, error)
	SubjectURL(subject string) string
}

// AlocAPI fetches questions from ALOC.
//
// note: fault injection point
type AlocAPI interface {
	GetMultiple(ctx context.Context, subject string, count int) ([]aloc.Record, error)
}

const (
	report_questions_list    = "questions.list"
	report_questions_bulk    = "questions.bulk"
	report_questions_clear   = "questions.clear"
	report_filters           = "filters"
	report_aloc_fetch        = "aloc.fetch"
	report_aloc_added        = "aloc.added"
	report_myschool_subjects = "myschool.subjects"
	report_myschool_scrape   = "myschool.scrape"
	report_myschool_added    = "myschool.added"
	report_http_panic        = "http.panic"
)

type coreAPIs struct {
	store questionstore.Store
	time  chrono.TimeAPI
	tel   telemetry.API
}

// NewCoreAPIs initializes the APIs every handler needs.
func NewCoreAPIs(store questionstore.Store, options ...CoreAPIsOption) coreAPIs {
	cfg := coreAPIsConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	apis := coreAPIs{
		store: store,
		time:  chrono.StandardTime{},
		tel:   telemetry.SlogAPI{},
	}
	if cfg.time != nil {
		apis.time = cfg.time
	}
	if cfg.tel != nil {
		apis.tel = cfg.tel
	}

	apis.tel = telemetry.NewScopedAPI("service", apis.tel)

	return apis
}

type coreAPIsConfig struct {
	time chrono.TimeAPI
	tel  telemetry.API
}

type CoreAPIsOption func(cfg *coreAPIsConfig)

func WithCustomTimeAPI(time chrono.TimeAPI) CoreAPIsOption {
	return func(cfg *coreAPIsConfig) {
		cfg.time = time
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) CoreAPIsOption {
	return func(cfg *coreAPIsConfig) {
		cfg.tel = tel
	}
}

// Service serves the past questions REST API.
type Service struct {
	coreAPIs

	myschool MySchoolAPI
	// aloc is nil when no ALOC token is configured
	aloc AlocAPI
}

// NewService creates a Service, `aloc` may be nil.
func NewService(coreAPIs coreAPIs, myschool MySchoolAPI, aloc AlocAPI) Service {
	assert.NotNil(myschool, "myschool scraping API implementation")

	return Service{
		coreAPIs: coreAPIs,
		myschool: myschool,
		aloc:     aloc,
	}
}
