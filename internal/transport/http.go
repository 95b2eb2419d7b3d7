package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	eventbus "github.com/hanpama/opgen/internal/eventbus"
	events "github.com/hanpama/opgen/internal/events"
	reqid "github.com/hanpama/opgen/internal/reqid"
)

// HTTP posts requests to a GraphQL endpoint.
type HTTP struct {
	url    string
	header http.Header
	client *http.Client
}

// HTTPOption configures HTTP.
type HTTPOption func(*HTTP)

// WithHeader adds a header to every request.
func WithHeader(key, value string) HTTPOption {
	return func(t *HTTP) { t.header.Add(key, value) }
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTP) { t.client = c }
}

// WithTimeout bounds each request, on top of any context deadline.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTP) {
		c := *t.client
		c.Timeout = d
		t.client = &c
	}
}

func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	t := &HTTP{url: url, header: make(http.Header), client: http.DefaultClient}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Do sends req and decodes the response. GraphQL errors in a 2xx response
// are returned in Response.Errors, not as an error.
func (t *HTTP) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range t.header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	ctx, _ = reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.RequestStart{Request: httpReq})
	res, status, err := t.roundTrip(httpReq)
	eventbus.Publish(ctx, events.RequestFinish{
		Request:  httpReq,
		Status:   status,
		Err:      err,
		Duration: time.Since(start),
	})
	return res, err
}

func (t *HTTP) roundTrip(req *http.Request) (*Response, int, error) {
	httpRes, err := t.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer httpRes.Body.Close()

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(httpRes.Body, maxErrorBody))
		return nil, httpRes.StatusCode, &StatusError{StatusCode: httpRes.StatusCode, Body: bytes.TrimSpace(data)}
	}
	var res Response
	if err := json.NewDecoder(httpRes.Body).Decode(&res); err != nil {
		return nil, httpRes.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return &res, httpRes.StatusCode, nil
}
