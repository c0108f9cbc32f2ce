package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
	report_resty_dump     = "resty.dump"
)

// HttpDump receives a full rendering of every request/response pair a client makes.
type HttpDump interface {
	Write(id string, contents string)
}

// DirDump writes every exchange into its own file under Dir.
type DirDump struct {
	Dir string
	tel API
}

func NewDirDump(dir string, tel API) DirDump {
	return DirDump{Dir: dir, tel: tel}
}

func (d DirDump) Write(id string, contents string) {
	err := os.MkdirAll(d.Dir, 0755)
	if err != nil {
		d.tel.ReportBroken(report_resty_dump, err)
		return
	}
	err = os.WriteFile(filepath.Join(d.Dir, id+".txt"), []byte(contents), 0644)
	if err != nil {
		d.tel.ReportBroken(report_resty_dump, err, id)
	}
}

type instrumentResty struct {
	tel       API
	tracer    trace.Tracer
	dump      HttpDump
	idcounter *uint64
}

// InstrumentResty hooks request/response reporting and tracing into a resty client.
// `dump` may be nil.
func InstrumentResty(client *resty.Client, tel API, dump HttpDump) {
	var idcounter uint64
	i := instrumentResty{
		tel:       tel,
		tracer:    otel.Tracer("resty"),
		dump:      dump,
		idcounter: &idcounter,
	}

	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

type reqCtxKeyType int

var reqCtxKey reqCtxKeyType

type reqCtx struct {
	id uint64
	// startTime does not need to rely on chrono because it does not depend on the
	// absolute time, just the difference in time, which can be guaranteed to work.
	startTime time.Time
	span      trace.Span
}

func (i instrumentResty) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	start := time.Now()
	ctx, span := i.tracer.Start(req.Context(), req.Method)
	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
	)

	id := atomic.AddUint64(i.idcounter, 1)
	ctx = context.WithValue(ctx, reqCtxKey, reqCtx{
		id:        id,
		startTime: start,
		span:      span,
	})
	i.tel.ReportDebug(report_resty_request, id, req.Method, req.URL)

	req.SetContext(ctx)
	return nil
}

func (i instrumentResty) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	end := time.Now()
	ctx := res.Request.Context()

	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		return nil
	}

	duration := end.Sub(reqCtx.startTime)
	reqCtx.span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode()))
	if res.StatusCode() >= 500 {
		reqCtx.span.SetStatus(codes.Error, res.Status())
	}
	reqCtx.span.End()

	i.tel.ReportDebug(
		report_resty_response,
		reqCtx.id,
		duration.String(),
		res.Status(),
	)
	if i.dump != nil {
		i.dump.Write(strconv.FormatUint(reqCtx.id, 10), formatHttpMessage(res))
	}

	return nil
}

func (i instrumentResty) onError(req *resty.Request, err error) {
	end := time.Now()
	ctx := req.Context()

	reqCtx, ok := ctx.Value(reqCtxKey).(reqCtx)
	if !ok {
		return
	}

	duration := end.Sub(reqCtx.startTime)
	reqCtx.span.RecordError(err)
	reqCtx.span.SetStatus(codes.Error, err.Error())
	reqCtx.span.End()

	// response errors are surfaced to the caller, which decides whether it is worth reporting
	i.tel.ReportDebug(
		report_resty_response,
		reqCtx.id,
		err,
		req.Method,
		req.URL,
		duration.String(),
	)
}

func formatHeaders(headers http.Header) string {
	var out strings.Builder
	for k, vals := range headers {
		for _, v := range vals {
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatRequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return "<NO BODY AVAILABLE>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	if body == nil {
		return "<NO BODY AVAILABLE>"
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(readBody)
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response url
// 7: response headers in ("Key: Value" format)
// 8: response body
const messageInfoTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

func formatHttpMessage(res *resty.Response) string {
	requestHeaders := ""
	if res.Request.RawRequest != nil {
		requestHeaders = formatHeaders(res.Request.RawRequest.Header)
	}
	responseHeaders := formatHeaders(res.Header())

	responseUrl := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			responseUrl = redirected.String()
		}
	}

	return fmt.Sprintf(
		messageInfoTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,
		formatRequestBody(res.Request.RawRequest),

		strconv.Itoa(res.StatusCode()), responseUrl,
		responseHeaders,
		res.String(),
	)
}
