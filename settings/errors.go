package settings

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedConnectionString is returned when the input cannot be tokenized into key/value pairs.
	ErrMalformedConnectionString = errors.New("malformed connection string")
	// ErrUnrecognizedSettingKey is returned when a key is outside of the recognized set.
	ErrUnrecognizedSettingKey = errors.New("unrecognized setting key")
	// ErrNoMatchingConnectionStringFormat is returned when no connection string shape matches.
	ErrNoMatchingConnectionStringFormat = errors.New("no matching connection string format")
	// ErrInvalidSettingValue is returned when a recognized key carries an invalid value.
	ErrInvalidSettingValue = errors.New("invalid setting value")
)

// UnrecognizedKeyError names the offending key and the keys that would have been accepted.
type UnrecognizedKeyError struct {
	Key   string
	Valid []string
}

func (e *UnrecognizedKeyError) Error() string {
	return fmt.Sprintf("%s %q, valid keys are: %s", ErrUnrecognizedSettingKey, e.Key, strings.Join(e.Valid, ", "))
}

func (e *UnrecognizedKeyError) Unwrap() error { return ErrUnrecognizedSettingKey }

// InvalidValueError names the key whose value failed validation.
type InvalidValueError struct {
	Key    string
	Value  string
	Reason string
}

func (e *InvalidValueError) Error() string {
	value := e.Value
	if isSecretKey(e.Key) {
		value = redacted
	}

	return fmt.Sprintf("%s %q for %s, %s", ErrInvalidSettingValue, value, e.Key, e.Reason)
}

func (e *InvalidValueError) Unwrap() error { return ErrInvalidSettingValue }

// Mismatch describes why a single shape did not match.
type Mismatch struct {
	Shape      string
	Missing    []string
	Unconsumed []string
}

func (m Mismatch) String() string {
	var parts []string
	if len(m.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(m.Missing, ", "))
	}

	if len(m.Unconsumed) > 0 {
		parts = append(parts, "unexpected "+strings.Join(m.Unconsumed, ", "))
	}

	return m.Shape + " (" + strings.Join(parts, "; ") + ")"
}

// NoMatchError lists every attempted shape with the reason it was rejected.
type NoMatchError struct {
	Mismatches []Mismatch
}

func (e *NoMatchError) Error() string {
	reasons := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		reasons = append(reasons, m.String())
	}

	return fmt.Sprintf("%s, tried: %s", ErrNoMatchingConnectionStringFormat, strings.Join(reasons, "; "))
}

func (e *NoMatchError) Unwrap() error { return ErrNoMatchingConnectionStringFormat }

func malformed(format string, a ...interface{}) error {
	return fmt.Errorf("%w, "+format, append([]interface{}{ErrMalformedConnectionString}, a...)...)
}
