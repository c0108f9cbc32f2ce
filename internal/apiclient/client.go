// Package apiclient talks to a running past questions server, it is what the
// CLI syncs local scrapes into.
package apiclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questions"

	"github.com/go-resty/resty/v2"
)

const (
	report_client_health = "client.health"
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	Dump    telemetry.HttpDump
}

type Client struct {
	BaseURL string

	http *resty.Client
	tel  telemetry.API
}

func New(opts Options, tel telemetry.API) *Client {
	assert.NotEmptyStr(opts.BaseURL, "server url")
	assert.NotNil(tel, "telemetry")

	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	tel = telemetry.NewScopedAPI("apiclient", tel)
	baseUrl := strings.TrimRight(opts.BaseURL, "/")

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("Accept", "application/json")
	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		BaseURL: baseUrl,
		http:    httpClient,
		tel:     tel,
	}
}

func responseError(res *resty.Response) error {
	if body, ok := res.Error().(*api.Error); ok && body != nil && body.Detail != "" {
		return fmt.Errorf("server responded with %s: %s", res.Status(), body.Detail)
	}
	return fmt.Errorf("server responded with %s", res.Status())
}

func (c *Client) do(req *resty.Request, method, path string) error {
	res, err := req.SetError(&api.Error{}).Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if res.IsError() {
		return fmt.Errorf("%s %s: %w", method, path, responseError(res))
	}
	return nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (api.Health, error) {
	var out api.Health
	err := c.do(c.http.R().SetContext(ctx).SetResult(&out), resty.MethodGet, "/api/health")
	if err != nil {
		c.tel.ReportWarning(report_client_health, err)
		return api.Health{}, err
	}
	return out, nil
}

func (c *Client) ListQuestions(ctx context.Context, params api.ListQuestionsParams) ([]questions.Stored, error) {
	req := c.http.R().SetContext(ctx)
	if params.Subject != "" {
		req.SetQueryParam("subject", params.Subject)
	}
	if params.Year != nil {
		req.SetQueryParam("year", strconv.Itoa(*params.Year))
	}
	if params.ExamType != "" {
		req.SetQueryParam("exam_type", params.ExamType)
	}
	if params.QuestionType != "" {
		req.SetQueryParam("question_type", params.QuestionType)
	}
	if params.Topic != "" {
		req.SetQueryParam("topic", params.Topic)
	}

	out := []questions.Stored{}
	err := c.do(req.SetResult(&out), resty.MethodGet, "/questions")
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BulkUpload stores `qs` on the server, duplicates are skipped server side.
func (c *Client) BulkUpload(ctx context.Context, qs []questions.Question) (api.Message, error) {
	if qs == nil {
		qs = []questions.Question{}
	}
	var out api.Message
	err := c.do(
		c.http.R().SetContext(ctx).SetBody(qs).SetResult(&out),
		resty.MethodPost,
		"/questions/bulk",
	)
	if err != nil {
		return api.Message{}, err
	}
	return out, nil
}

func (c *Client) Filters(ctx context.Context, subject, examType string) (api.Filters, error) {
	req := c.http.R().SetContext(ctx)
	if subject != "" {
		req.SetQueryParam("subject", subject)
	}
	if examType != "" {
		req.SetQueryParam("exam_type", examType)
	}
	var out api.Filters
	err := c.do(req.SetResult(&out), resty.MethodGet, "/filters")
	if err != nil {
		return api.Filters{}, err
	}
	return out, nil
}

// FetchAloc asks the server to import questions from ALOC with its own token.
func (c *Client) FetchAloc(ctx context.Context, subject string, count int) (api.Message, error) {
	var out api.Message
	err := c.do(
		c.http.R().
			SetContext(ctx).
			SetQueryParam("subject", subject).
			SetQueryParam("count", strconv.Itoa(count)).
			SetResult(&out),
		resty.MethodGet,
		"/fetch-aloc",
	)
	if err != nil {
		return api.Message{}, err
	}
	return out, nil
}

func (c *Client) Subjects(ctx context.Context) ([]api.Subject, error) {
	out := []api.Subject{}
	err := c.do(c.http.R().SetContext(ctx).SetResult(&out), resty.MethodGet, "/myschool-subjects")
	if err != nil {
		return nil, err
	}
	return out, nil
}
