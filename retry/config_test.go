package retry

import (
	"math"
	"testing"
	"time"

	"github.com/meltwater/azstorage/test"
)

func TestConfigValidate(t *testing.T) {
	test.Ok(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"negative retries":     func(c *Config) { c.MaxRetries = -1 },
		"zero retries":         func(c *Config) { c.MaxRetries = 0 },
		"negative interval":    func(c *Config) { c.Interval = -time.Millisecond },
		"invalid type":         func(c *Config) { c.Type = "string that does not make sense" },
		"invalid accumulation": func(c *Config) { c.Accumulation = "string that does not make sense" },
	} {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(&c)

			test.ErrorIs(t, c.Validate(), ErrInvalidConfig)

			_, err := New(c)
			test.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse(t *testing.T) {
	for in, want := range map[string]Type{
		"General":           General,
		"general":           General,
		"AppendBlobRetry":   AppendBlob,
		"Append Blob Retry": AppendBlob,
		"appendblob":        AppendBlob,
	} {
		got, err := ParseType(in)
		test.Ok(t, err)
		test.Equals(t, want, got)
	}

	_, err := ParseType("sometimes")
	test.ErrorIs(t, err, ErrInvalidConfig)

	for in, want := range map[string]Accumulation{
		"Linear":      Linear,
		"exponential": Exponential,
	} {
		got, err := ParseAccumulation(in)
		test.Ok(t, err)
		test.Equals(t, want, got)
	}

	_, err = ParseAccumulation("quadratic")
	test.ErrorIs(t, err, ErrInvalidConfig)

	for _, m := range []LocationMode{PrimaryOnly, PrimaryThenSecondary, SecondaryOnly, SecondaryThenPrimary} {
		got, err := ParseLocationMode(m.String())
		test.Ok(t, err)
		test.Equals(t, m, got)
	}

	_, err = ParseLocationMode("Anywhere")
	test.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBackoff(t *testing.T) {
	linear := LinearBackoff(1000 * time.Millisecond)
	for i := 0; i < 10; i++ {
		test.Equals(t, time.Duration(i)*time.Second, linear(i))
	}

	exponential := ExponentialBackoff(1000 * time.Millisecond)
	for i, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second} {
		test.Equals(t, want, exponential(i))
	}

	test.Equals(t, 3000*time.Millisecond, linear(3))
	test.Equals(t, 8000*time.Millisecond, exponential(3))

	test.Equals(t, time.Second, backoffFor(Config{Accumulation: Linear, Interval: time.Second})(1))
	test.Equals(t, 2*time.Second, backoffFor(Config{Accumulation: Exponential, Interval: time.Second})(1))
}

func TestBackoffSaturates(t *testing.T) {
	c := Config{Type: General, MaxRetries: 100, Interval: time.Second, Accumulation: Exponential}
	test.Ok(t, c.Validate())

	for _, b := range []Backoff{backoffFor(c), LinearBackoff(time.Duration(math.MaxInt64 / 2))} {
		prev := time.Duration(0)

		for i := 1; i <= c.MaxRetries; i++ {
			d := b(i)
			test.Assert(t, d >= prev, "delay of retry %d decreased: %s < %s", i, d, prev)
			prev = d
		}

		test.Equals(t, MaxBackoff, prev)
	}

	exponential := ExponentialBackoff(time.Second)
	test.Equals(t, time.Second<<33, exponential(33))
	test.Equals(t, MaxBackoff, exponential(34))
	test.Equals(t, MaxBackoff, exponential(63))
	test.Equals(t, MaxBackoff, exponential(64))
}
