package history

import (
	"time"

	"github.com/go-kit/kit/log"
)

type options struct {
	logger log.Logger
	path   string
	now    func() time.Time
}

// Option overrides behavior of Recorder.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

// WithLogger sets logger option.
func WithLogger(l log.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithPath appends entries to the file at path instead of keeping them in memory.
func WithPath(path string) Option {
	return optionFunc(func(o *options) {
		o.path = path
	})
}

// WithClock sets the time source of entry timestamps.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.now = now
	})
}
