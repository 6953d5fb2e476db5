package retry

import (
	"net/http"
)

var _ http.RoundTripper = (*Transport)(nil)

// Transport is an http.RoundTripper that retries requests with a Policy.
type Transport struct {
	// Base performs single attempts. http.DefaultTransport is used when nil.
	Base   http.RoundTripper
	Policy *Policy
}

// NewTransport wraps base with p.
func NewTransport(base http.RoundTripper, p *Policy) *Transport {
	return &Transport{Base: base, Policy: p}
}

// RoundTrip implements http.RoundTripper.
//
// Requests whose body cannot be replayed, i.e. with a body but no GetBody, are sent once.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if !replayable(req) {
		return base.RoundTrip(req)
	}

	attempt := 0

	return t.Policy.Do(req, func(r *http.Request) (*http.Response, error) {
		attempt++

		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}

		return base.RoundTrip(r)
	})
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
