package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/codex-mohan/autonix/log"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// RetryTransport retries requests that fail with a network error, 429 or a 5xx
// status. The first attempt is not counted, so MaxRetries=2 sends at most three
// requests. Requests whose body cannot be replayed are sent once.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int

	// BaseDelay doubles after every attempt up to MaxDelay. A Retry-After
	// header in seconds takes precedence.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	Logger log.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req
		if attempt > 0 {
			r, err := rewind(req)
			if err != nil {
				return nil, err
			}
			attemptReq = r
		}

		resp, err := base.RoundTrip(attemptReq)
		if attempt >= t.MaxRetries || !retryable(resp, err) || !replayable(req) {
			return resp, err
		}

		delay := t.backoff(attempt, resp)
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		if t.Logger != nil {
			t.Logger.Warn("%s %s failed (%s), retry %d/%d in %s", req.Method, req.URL.Redacted(), describe(resp, err), attempt+1, t.MaxRetries, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		}
	}
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func (t *RetryTransport) backoff(attempt int, resp *http.Response) time.Duration {
	maxDelay := t.MaxDelay
	if maxDelay <= 0 {
		maxDelay = retryMaxDelay
	}
	if resp != nil {
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s >= 0 {
			return min(time.Duration(s)*time.Second, maxDelay)
		}
	}

	delay := t.BaseDelay
	if delay <= 0 {
		delay = retryBaseDelay
	}
	delay *= time.Duration(1 << attempt)
	return min(delay, maxDelay)
}

func describe(resp *http.Response, err error) string {
	if err != nil {
		return err.Error()
	}
	return resp.Status
}

// retryingClient returns a copy of base whose transport retries up to maxRetries times.
func retryingClient(base *http.Client, maxRetries int, logger log.Logger) *http.Client {
	c := &http.Client{}
	if base != nil {
		*c = *base
	}
	c.Transport = &RetryTransport{
		Base:       c.Transport,
		MaxRetries: maxRetries,
		Logger:     logger,
	}
	return c
}
