// Package retry decides whether storage requests are retried, how long to wait
// between attempts and which endpoint each attempt targets.
//
// A Policy drives one logical request through a sequential loop: the attempt is
// sent, its outcome handed to a Decider, and on a retry decision the policy waits
// for the backoff delay and reissues the request, switching between the primary
// and secondary endpoint when the request's Location allows failover. Policies
// are immutable and safe for concurrent use; each call to Do owns its retry count.
package retry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

const maxDrainBytes = 4 * 1024

// Sender performs a single attempt of a request.
type Sender func(req *http.Request) (*http.Response, error)

// Policy retries requests according to a Decider and a Backoff.
type Policy struct {
	logger  log.Logger
	decider Decider
	backoff Backoff
}

// New creates a Policy from a validated configuration.
func New(c Config, opts ...Option) (*Policy, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger:  log.NewNopLogger(),
		decider: NewDecider(c.Type, c.MaxRetries, c.RetryConnect),
		backoff: backoffFor(c),
	}

	for _, opt := range opts {
		opt.apply(&o)
	}

	return &Policy{logger: o.logger, decider: o.decider, backoff: o.backoff}, nil
}

// Do sends req through send until the decider stops retrying.
//
// On success the response carries ContinuationLocationHeader. When retrying
// stops on a transport error, that error is returned unchanged. If the request
// context ends while waiting for the next attempt, the context error is returned
// and no further attempt is made.
func (p *Policy) Do(req *http.Request, send Sender) (*http.Response, error) {
	ctx := req.Context()
	loc, hasLoc := LocationFrom(ctx)

	if hasLoc {
		if u := loc.Initial(req.URL); u != req.URL {
			req = rebind(ctx, req, u)
		}
	}

	retries := 0

	for {
		resp, err := send(req)
		isSecondary := hasLoc && loc.IsSecondary(req.URL)

		if !p.decider.ShouldRetry(retries, req, resp, err, isSecondary) {
			if err != nil {
				if retries > 0 {
					level.Warn(p.logger).Log("msg", "request failed, not retrying", "method", req.Method, "url", redact(req.URL), "retries", retries, "err", err)
				}

				return resp, err
			}

			annotate(resp, isSecondary)

			return resp, nil
		}

		retries++
		delay := p.backoff(retries)

		level.Debug(p.logger).Log(
			"msg", "retrying request",
			"method", req.Method,
			"url", redact(req.URL),
			"status", statusOf(resp),
			"err", err,
			"retries", retries,
			"delay", delay,
		)

		drain(resp)

		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}

		next := req.URL
		if hasLoc {
			next = loc.Swap(req.URL)
		}

		req = rebind(ctx, req, next)
	}
}

func rebind(ctx context.Context, req *http.Request, u *url.URL) *http.Request {
	r := req.Clone(ctx)
	r.URL = u
	r.Host = u.Host

	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}

func statusOf(resp *http.Response) string {
	if resp == nil {
		return "none"
	}

	return fmt.Sprint(resp.StatusCode)
}

// redact drops the query, which may carry a shared access signature.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}

	return u.Scheme + "://" + u.Host + u.EscapedPath()
}
