package retry

import "github.com/go-kit/kit/log"

type options struct {
	logger  log.Logger
	decider Decider
	backoff Backoff
}

// Option overrides behavior of Policy.
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

// WithDecider replaces the decider derived from the configuration.
func WithDecider(d Decider) Option {
	return optionFunc(func(o *options) {
		o.decider = d
	})
}

// WithBackoff replaces the backoff derived from the configuration.
func WithBackoff(b Backoff) Option {
	return optionFunc(func(o *options) {
		o.backoff = b
	})
}
