// Package backend talks to the salon business backend's client-portal API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/httpx"
	"github.com/md-rashed-zaman/salonportal/libs/metrics"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// APIError is a non-2xx answer from the backend. Message comes from the JSON "error" field
// when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// ErrUnavailable marks failures to reach the backend at all.
var ErrUnavailable = errors.New("backend unavailable")

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Collector
}

type Options struct {
	Timeout time.Duration
	Metrics *metrics.Collector
	// Transport defaults to an otelhttp-wrapped http.DefaultTransport.
	Transport http.RoundTripper
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Transport == nil {
		opts.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		metrics: opts.Metrics,
	}
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	t, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-tenant-id", t.ID)
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(httpx.RequestIDHeader, id)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(operation, 0, started)
		return fmt.Errorf("%s: %w: %w", operation, ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveBackend(operation, resp.StatusCode, started)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w: %w", operation, ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode: %w", operation, err)
	}
	return nil
}

func dateQuery(date string) url.Values {
	return url.Values{"date": []string{date}}
}

func monthQuery(year, month int) url.Values {
	return url.Values{
		"year":  []string{strconv.Itoa(year)},
		"month": []string{fmt.Sprintf("%02d", month)},
	}
}
