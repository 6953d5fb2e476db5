package retry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ContinuationLocationHeader is added to successful responses to name the location
// mode follow-up requests (e.g. the next page of a listing) should use.
const ContinuationLocationHeader = "x-ms-continuation-location-mode"

// LocationMode governs which endpoint a request targets and whether retries may fail over.
type LocationMode int

const (
	// PrimaryOnly sends every attempt to the primary endpoint.
	PrimaryOnly LocationMode = iota
	// PrimaryThenSecondary starts on the primary and alternates on retry.
	PrimaryThenSecondary
	// SecondaryOnly sends every attempt to the secondary endpoint.
	SecondaryOnly
	// SecondaryThenPrimary starts on the secondary and alternates on retry.
	SecondaryThenPrimary
)

var locationModeNames = map[LocationMode]string{
	PrimaryOnly:          "PrimaryOnly",
	PrimaryThenSecondary: "PrimaryThenSecondary",
	SecondaryOnly:        "SecondaryOnly",
	SecondaryThenPrimary: "SecondaryThenPrimary",
}

func (m LocationMode) String() string {
	if s, ok := locationModeNames[m]; ok {
		return s
	}

	return fmt.Sprintf("LocationMode(%d)", int(m))
}

// ParseLocationMode parses the name of a location mode, ignoring case.
func ParseLocationMode(s string) (LocationMode, error) {
	for m, name := range locationModeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return m, nil
		}
	}

	return PrimaryOnly, fmt.Errorf("%w, location mode %q is invalid", ErrInvalidConfig, s)
}

// Failover reports whether retries may switch between endpoints.
func (m LocationMode) Failover() bool {
	return m == PrimaryThenSecondary || m == SecondaryThenPrimary
}

// NeedsSecondary reports whether the mode can target the secondary endpoint.
func (m LocationMode) NeedsSecondary() bool {
	return m != PrimaryOnly
}

// Location carries the location mode and the base URIs of a request.
// Base URIs are prefixes of the request URL, e.g. "https://acct.blob.core.windows.net/".
type Location struct {
	Mode      LocationMode
	Primary   string
	Secondary string
}

type locationKey struct{}

// WithLocation attaches a location to the context of a request.
func WithLocation(ctx context.Context, l Location) context.Context {
	return context.WithValue(ctx, locationKey{}, l)
}

// LocationFrom returns the location attached to ctx.
func LocationFrom(ctx context.Context) (Location, bool) {
	l, ok := ctx.Value(locationKey{}).(Location)
	return l, ok
}

// IsSecondary reports whether u targets the secondary endpoint.
func (l Location) IsSecondary(u *url.URL) bool {
	return l.Secondary != "" && within(u, l.Secondary)
}

// Swap returns u rebased onto the opposite endpoint when the mode allows failover.
// Path and query relative to the base URI are kept. It returns u unchanged otherwise.
func (l Location) Swap(u *url.URL) *url.URL {
	if !l.Mode.Failover() || l.Primary == "" || l.Secondary == "" {
		return u
	}

	switch {
	case within(u, l.Secondary):
		return rebase(u, l.Secondary, l.Primary)
	case within(u, l.Primary):
		return rebase(u, l.Primary, l.Secondary)
	default:
		return u
	}
}

// Initial returns the URL of the first attempt: secondary first modes move a
// primary URL onto the secondary endpoint.
func (l Location) Initial(u *url.URL) *url.URL {
	if l.Mode != SecondaryOnly && l.Mode != SecondaryThenPrimary {
		return u
	}

	if l.Secondary == "" || l.Primary == "" || l.IsSecondary(u) || !within(u, l.Primary) {
		return u
	}

	return rebase(u, l.Primary, l.Secondary)
}

// within reports whether u lies under base: same scheme and host, and a path
// equal to or below the base path on a segment boundary.
func within(u *url.URL, base string) bool {
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return false
	}

	if !strings.EqualFold(u.Scheme, b.Scheme) || !strings.EqualFold(u.Host, b.Host) {
		return false
	}

	prefix := basePath(b)
	p := u.EscapedPath()

	return prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/")
}

func basePath(u *url.URL) string {
	return strings.TrimSuffix(u.EscapedPath(), "/")
}

// rebase moves u from the base URI from onto to, keeping the path below the base and the query.
func rebase(u *url.URL, from, to string) *url.URL {
	f, err := url.Parse(from)
	if err != nil {
		return u
	}

	t, err := url.Parse(to)
	if err != nil {
		return u
	}

	rest := strings.TrimPrefix(u.EscapedPath(), basePath(f))

	next, err := url.Parse(t.Scheme + "://" + t.Host + basePath(t) + rest)
	if err != nil {
		return u
	}

	next.RawQuery = u.RawQuery
	next.Fragment = u.Fragment

	return next
}

// annotate records on resp which endpoint served it.
func annotate(resp *http.Response, isSecondary bool) {
	if resp == nil {
		return
	}

	if resp.Header == nil {
		resp.Header = http.Header{}
	}

	mode := PrimaryOnly
	if isSecondary {
		mode = SecondaryOnly
	}

	resp.Header.Set(ContinuationLocationHeader, mode.String())
}

// ContinuationMode reads the location mode recorded on a response by the policy.
func ContinuationMode(resp *http.Response) (LocationMode, bool) {
	if resp == nil {
		return PrimaryOnly, false
	}

	v := resp.Header.Get(ContinuationLocationHeader)
	if v == "" {
		return PrimaryOnly, false
	}

	m, err := ParseLocationMode(v)
	if err != nil {
		return PrimaryOnly, false
	}

	return m, true
}
