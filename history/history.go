// Package history records every attempt sent to the storage service.
//
// A Recorder keeps entries in memory, or appends them to a file when created
// with WithPath. Install Policy as a per-retry azcore policy to record each
// attempt made by the retry loop, including the endpoint it targeted.
package history

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// TitleLength is the width of the delimiter line written around file entries.
const TitleLength = 120

// Entry is a single recorded attempt. Either StatusCode or Err is set.
type Entry struct {
	Seq        int
	Time       time.Time
	Method     string
	URL        string
	StatusCode int
	Err        error
}

// Recorder records attempts. It is safe for concurrent use.
type Recorder struct {
	logger log.Logger
	path   string
	now    func() time.Time

	mu      sync.Mutex
	count   int
	entries []Entry
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	o := options{
		logger: log.NewNopLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt.apply(&o)
	}

	return &Recorder{logger: o.logger, path: o.path, now: o.now}
}

// Record adds the outcome of an attempt.
func (r *Recorder) Record(req *http.Request, resp *http.Response, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := Entry{
		Seq:    r.count,
		Time:   r.now().UTC(),
		Method: req.Method,
		URL:    redact(req.URL),
		Err:    err,
	}

	if resp != nil {
		e.StatusCode = resp.StatusCode
	}

	r.count++

	if r.path == "" {
		r.entries = append(r.entries, e)
		return nil
	}

	if err := appendToFile(r.path, format(e)); err != nil {
		return fmt.Errorf("append history entry, %w", err)
	}

	return nil
}

// Entries returns a copy of the entries kept in memory.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Entry(nil), r.entries...)
}

// Clear drops the entries kept in memory and restarts numbering.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	r.count = 0
}

// Policy returns an azcore policy recording every request that passes through it.
func (r *Recorder) Policy() policy.Policy {
	return recordPolicy{r: r}
}

type recordPolicy struct {
	r *Recorder
}

func (p recordPolicy) Do(req *policy.Request) (*http.Response, error) {
	resp, err := req.Next()

	if rerr := p.r.Record(req.Raw(), resp, err); rerr != nil {
		level.Warn(p.r.logger).Log("msg", "failed to record attempt", "err", rerr)
	}

	return resp, err
}

// Delimiter returns the title line of entry n, centred in dashes.
func Delimiter(n int) string {
	title := fmt.Sprintf("Entry %d", n)
	if len(title) >= TitleLength {
		return title
	}

	pad := TitleLength - len(title)
	left := pad / 2

	return strings.Repeat("-", left) + title + strings.Repeat("-", pad-left)
}

func format(e Entry) string {
	var b strings.Builder

	delimiter := Delimiter(e.Seq)

	b.WriteString(delimiter + "\n")
	fmt.Fprintf(&b, "Time: %s\n", e.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Request: %s %s\n", e.Method, e.URL)

	if e.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", e.Err)
	} else {
		fmt.Fprintf(&b, "Response: %d %s\n", e.StatusCode, http.StatusText(e.StatusCode))
	}

	b.WriteString(delimiter + "\n")

	return b.String()
}

func appendToFile(path, s string) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = f.WriteString(s)

	return err
}

// redact masks the signature of a shared access signature.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}

	q := u.Query()
	if q.Get("sig") == "" {
		return u.String()
	}

	q.Set("sig", "REDACTED")

	c := *u
	c.RawQuery = q.Encode()

	return c.String()
}
