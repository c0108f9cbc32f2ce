// Package aloc is a client for the ALOC past questions api, its records are
// converted into the same question record myschool pages are extracted into.
package aloc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_get_multiple = "client.get-multiple"
	report_client_get_question = "client.get-question"
)

const DefaultBaseURL = "https://questions.aloc.com.ng/api/v2"

var ErrMissingToken = errors.New("aloc access token is missing")

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Dump    telemetry.HttpDump
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "telemetry")

	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	tel = telemetry.NewScopedAPI("aloc", tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseURL)
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("Accept", "application/json")
	httpClient.SetHeader("AccessToken", opts.Token)

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(2, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		http: httpClient,
		tel:  tel,
	}, nil
}

type multipleResponse struct {
	Subject string   `json:"subject"`
	Status  int      `json:"status"`
	Data    []Record `json:"data"`
}

type singleResponse struct {
	Subject string `json:"subject"`
	Status  int    `json:"status"`
	Data    Record `json:"data"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e errorResponse) String() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func upstreamError(res *resty.Response) error {
	detail := ""
	if body, ok := res.Error().(*errorResponse); ok && body != nil {
		detail = body.String()
	}
	if detail == "" {
		return fmt.Errorf("aloc responded with %s", res.Status())
	}
	return fmt.Errorf("aloc responded with %s: %s", res.Status(), detail)
}

// GetMultiple fetches up to `count` questions of a subject.
func (c *Client) GetMultiple(ctx context.Context, subject string, count int) ([]Record, error) {
	var body multipleResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("subject", subject).
		SetQueryParam("count", strconv.Itoa(count)).
		SetResult(&body).
		SetError(&errorResponse{}).
		Get("/m")
	if err != nil {
		c.tel.ReportWarning(report_client_get_multiple, err, subject)
		return nil, fmt.Errorf("get multiple questions: %w", err)
	}
	if res.IsError() {
		err := upstreamError(res)
		c.tel.ReportWarning(report_client_get_multiple, err, subject)
		return nil, fmt.Errorf("get multiple questions: %w", err)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("get multiple questions: response has no data")
	}
	return body.Data, nil
}

// GetQuestion fetches a single random question, `year` and `qtype` are
// omitted when zero.
func (c *Client) GetQuestion(ctx context.Context, subject string, year int, qtype string) (Record, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("subject", subject)
	if year != 0 {
		req.SetQueryParam("year", strconv.Itoa(year))
	}
	if qtype != "" {
		req.SetQueryParam("type", qtype)
	}

	var body singleResponse
	res, err := req.
		SetResult(&body).
		SetError(&errorResponse{}).
		Get("/q")
	if err != nil {
		c.tel.ReportWarning(report_client_get_question, err, subject)
		return Record{}, fmt.Errorf("get question: %w", err)
	}
	if res.IsError() {
		err := upstreamError(res)
		c.tel.ReportWarning(report_client_get_question, err, subject)
		return Record{}, fmt.Errorf("get question: %w", err)
	}
	return body.Data, nil
}
