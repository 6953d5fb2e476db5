package retry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidConfig is returned when a retry configuration is rejected.
var ErrInvalidConfig = errors.New("invalid retry configuration")

const (
	// DefaultMaxRetries is the number of retries performed when none is configured.
	DefaultMaxRetries = 3
	// DefaultInterval is the base backoff interval when none is configured.
	DefaultInterval = time.Second
)

// Type selects the retry decider.
type Type string

const (
	// General retries timeouts, retryable server errors and stale secondary reads.
	General Type = "General"
	// AppendBlob is reserved for append blob writes.
	AppendBlob Type = "AppendBlobRetry"
)

// Accumulation selects how the backoff grows with the retry count.
type Accumulation string

const (
	// Linear waits retries * interval.
	Linear Accumulation = "Linear"
	// Exponential waits interval * 2^retries.
	Exponential Accumulation = "Exponential"
)

// Config describes a retry policy.
type Config struct {
	Type         Type
	MaxRetries   int
	Interval     time.Duration
	Accumulation Accumulation
	// RetryConnect allows retrying attempts that failed to establish a connection.
	RetryConnect bool
}

// DefaultConfig returns a General, linear policy with the default retry count and interval.
func DefaultConfig() Config {
	return Config{
		Type:         General,
		MaxRetries:   DefaultMaxRetries,
		Interval:     DefaultInterval,
		Accumulation: Linear,
	}
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.Type != General && c.Type != AppendBlob {
		return fmt.Errorf("%w, type %q is invalid", ErrInvalidConfig, c.Type)
	}

	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w, max retries should be positive number, got %d", ErrInvalidConfig, c.MaxRetries)
	}

	if c.Interval <= 0 {
		return fmt.Errorf("%w, interval should be positive number, got %s", ErrInvalidConfig, c.Interval)
	}

	if c.Accumulation != Linear && c.Accumulation != Exponential {
		return fmt.Errorf("%w, accumulation method %q is invalid", ErrInvalidConfig, c.Accumulation)
	}

	return nil
}

// ParseType parses a retry type, ignoring case and spaces.
func ParseType(s string) (Type, error) {
	switch normalize(s) {
	case "general":
		return General, nil
	case "appendblob", "appendblobretry":
		return AppendBlob, nil
	default:
		return "", fmt.Errorf("%w, type %q is invalid", ErrInvalidConfig, s)
	}
}

// ParseAccumulation parses an accumulation method, ignoring case.
func ParseAccumulation(s string) (Accumulation, error) {
	switch normalize(s) {
	case "linear":
		return Linear, nil
	case "exponential":
		return Exponential, nil
	default:
		return "", fmt.Errorf("%w, accumulation method %q is invalid", ErrInvalidConfig, s)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
