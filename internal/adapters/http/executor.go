package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/ports"
)

// Required request headers.
const (
	ContentTypeJSON = "application/json"
	PlatformLabel   = "app"

	headerLabel = "label"
	headerToken = "jwt"
)

// maxDrain bounds how much of an error response body is read before closing.
const maxDrain = 4 << 10

// Executor sends Resources to an ingestion host with the required headers.
type Executor struct {
	client ports.HTTPClient
	token  string
	now    func() time.Time
}

// NewExecutor creates an executor that authenticates with token.
func NewExecutor(client ports.HTTPClient, token string) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Executor{
		client: client,
		token:  token,
		now:    time.Now,
	}
}

// Execute sends r to base and returns the parsed body.
// Every failure is a *domain.Failure:
//   - URL, transport and body read errors are FailureTransport
//   - a status other than 200 is FailureStatus, with any Retry-After hint
//   - an empty body is FailureNoData
//   - a body rejected by r.Parse is FailureParse
func Execute[T any](ctx context.Context, e *Executor, base string, r Resource[T]) (T, error) {
	var zero T

	req, err := newRequest(ctx, e, base, r)
	if err != nil {
		return zero, &domain.Failure{Kind: domain.FailureTransport, Err: err}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return zero, &domain.Failure{Kind: domain.FailureTransport, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		return zero, &domain.Failure{
			Kind:       domain.FailureStatus,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), e.now()),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, &domain.Failure{
			Kind:       domain.FailureTransport,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read response: %w", err),
		}
	}
	if len(body) == 0 {
		return zero, &domain.Failure{Kind: domain.FailureNoData, StatusCode: resp.StatusCode}
	}

	if r.Parse == nil {
		return zero, &domain.Failure{Kind: domain.FailureParse, StatusCode: resp.StatusCode}
	}
	v, ok := r.Parse(body)
	if !ok {
		return zero, &domain.Failure{Kind: domain.FailureParse, StatusCode: resp.StatusCode}
	}
	return v, nil
}

func newRequest[T any](ctx context.Context, e *Executor, base string, r Resource[T]) (*http.Request, error) {
	target, err := BuildURL(base, r.Path, r.Query)
	if err != nil {
		return nil, err
	}

	method := string(r.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Resource headers first; the required ones below always win.
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", ContentTypeJSON)
	req.Header.Set(headerLabel, PlatformLabel)
	req.Header.Set(headerToken, e.token)

	return req, nil
}

// parseRetryAfter reads a Retry-After value in seconds or as an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
