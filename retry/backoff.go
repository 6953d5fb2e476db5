package retry

import (
	"math"
	"time"
)

// MaxBackoff is the longest delay a Backoff returns. Longer delays saturate.
const MaxBackoff = time.Duration(math.MaxInt64)

// Backoff computes the delay before a retry from the already incremented retry count.
type Backoff func(retries int) time.Duration

// LinearBackoff waits retries * interval.
func LinearBackoff(interval time.Duration) Backoff {
	return func(retries int) time.Duration {
		if retries <= 0 {
			return 0
		}

		if interval > MaxBackoff/time.Duration(retries) {
			return MaxBackoff
		}

		return time.Duration(retries) * interval
	}
}

// ExponentialBackoff waits interval * 2^retries.
func ExponentialBackoff(interval time.Duration) Backoff {
	return func(retries int) time.Duration {
		if retries < 0 {
			retries = 0
		}

		if retries >= 63 || interval > MaxBackoff>>uint(retries) {
			return MaxBackoff
		}

		return interval << uint(retries)
	}
}

func backoffFor(c Config) Backoff {
	if c.Accumulation == Exponential {
		return ExponentialBackoff(c.Interval)
	}

	return LinearBackoff(c.Interval)
}
