// Package remote is the HTTP client for the backend config endpoints (brand
// config, pricing, partner plans). Callers convert every error it returns
// into a default value; nothing here is surfaced to visitors.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mbd888/careerhub/internal/circuitbreaker"
	"github.com/mbd888/careerhub/internal/traces"
)

const maxBodyBytes = 1 << 20

var (
	ErrNotFound  = errors.New("remote: not found")
	ErrMalformed = errors.New("remote: malformed response body")
)

// StatusError is a non-2xx response other than 404.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: unexpected status %d", e.Code)
}

// Client issues JSON GETs against one base URL.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	breaker *circuitbreaker.Breaker
}

// New creates a client. timeout bounds each request; breaker may be nil.
func New(baseURL string, timeout time.Duration, breaker *circuitbreaker.Breaker) *Client {
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
		breaker: breaker,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.base }

// GetJSON fetches base+path and decodes the body into out. It never retries.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	ctx, span := traces.StartSpan(ctx, "remote.get", traces.Endpoint(path))
	var err error
	defer func() { traces.End(span, err) }()

	call := func() error { return c.get(ctx, path, query, out) }
	if c.breaker == nil {
		err = call()
		return err
	}
	err = c.breaker.Execute(path, countsAsFailure, call)
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// countsAsFailure reports whether err says the backend is unhealthy. A 404,
// a 4xx or a body that fails to decode is an answer, not an outage.
func countsAsFailure(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

// Reason classifies err for logs and metrics.
func Reason(err error) string {
	var se *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.Code)
	default:
		return "network"
	}
}

// HealthDetail reports whether any endpoint's circuit is open.
func (c *Client) HealthDetail(paths ...string) (healthy bool, detail string) {
	if c.breaker == nil {
		return true, ""
	}
	for _, p := range paths {
		if s := c.breaker.State(p); s != circuitbreaker.StateClosed {
			return false, p + " circuit " + s.String()
		}
	}
	return true, ""
}
