package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request builds and executes one HTTP call.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response is a received response with its body already read.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the raw response body.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type requestBuilder struct {
	client       *InstrumentedClient
	headers      map[string]string
	query        url.Values
	body         any
	result       any
	errorHandler ResponseErrorHandler
	labels       []Label
	redact       []string
	logHeaders   bool
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

func (r *requestBuilder) Post(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, path)
}

// SetBody sets the body. Anything but []byte, string or io.Reader is JSON encoded.
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, value)
	return r
}

// SetResult sets the value a 2xx JSON body is decoded into.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) url(path string) string {
	full := path
	if base := r.client.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + r.query.Encode()
	}
	return full
}

func (r *requestBuilder) encodeBody() (io.Reader, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	}

	data, err := json.Marshal(r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	if _, ok := r.headers["Content-Type"]; !ok {
		r.headers["Content-Type"] = "application/json"
	}
	return bytes.NewReader(data), nil
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	ctx, span := r.client.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
			attribute.String("provider", r.client.providerName),
		),
	)
	defer span.End()

	start := time.Now()

	bodyReader, err := r.encodeBody()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode body")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, r.url(path), bodyReader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if r.logHeaders {
		r.recordHeaders(span, req.Header)
	}

	resp, err := r.client.client.Do(req)
	if err != nil {
		r.recordTransportError(span, err)
		r.record(ctx, start, false)
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read body")
		r.record(ctx, start, false)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	response := &Response{Response: resp, body: body}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if r.errorHandler != nil {
		if herr := r.errorHandler(resp.StatusCode, body); herr != nil {
			span.SetStatus(codes.Error, herr.Error())
			r.record(ctx, start, false)
			return response, herr
		}
	}

	if r.result != nil && response.IsSuccess() && len(body) > 0 {
		if err := json.Unmarshal(body, r.result); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode body")
			r.record(ctx, start, false)
			return response, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	r.record(ctx, start, response.IsSuccess())
	return response, nil
}

func (r *requestBuilder) recordTransportError(span trace.Span, err error) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}
	span.SetStatus(codes.Error, err.Error())
}

func (r *requestBuilder) record(ctx context.Context, start time.Time, success bool) {
	attrs := make([]attribute.KeyValue, 0, len(r.labels)+2)
	attrs = append(attrs,
		attribute.String("provider", r.client.providerName),
		attribute.Bool("success", success),
	)
	for _, l := range r.labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}

	set := metric.WithAttributes(attrs...)
	r.client.requests.Add(ctx, 1, set)
	r.client.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, set)
}

func (r *requestBuilder) recordHeaders(span trace.Span, headers http.Header) {
	redacted := make(map[string]bool, len(r.redact))
	for _, h := range r.redact {
		redacted[strings.ToLower(h)] = true
	}

	attrs := make([]attribute.KeyValue, 0, len(headers))
	for k, values := range headers {
		key := strings.ToLower(k)
		val := ""
		if len(values) > 0 {
			val = values[0]
		}
		if redacted[key] {
			val = "*****"
		}
		attrs = append(attrs, attribute.String("http.request.header."+key, val))
	}

	if len(attrs) > 0 {
		span.AddEvent("request.headers", trace.WithAttributes(attrs...))
	}
}
