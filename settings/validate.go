package settings

import (
	"encoding/base64"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	hostnamePattern    = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)
	accountNamePattern = regexp.MustCompile(`^[a-z0-9]{3,24}$`)
)

// Check reports whether a value satisfies a requirement. A false result
// leaves the key unconsumed; an error aborts resolution.
type Check func(value string) (bool, error)

// Any accepts every value.
func Any() Check {
	return func(string) (bool, error) { return true, nil }
}

// OneOf accepts values equal, ignoring case, to one of the given literals.
func OneOf(key string, literals ...string) Check {
	return func(value string) (bool, error) {
		for _, l := range literals {
			if strings.EqualFold(value, l) {
				return true, nil
			}
		}

		return false, &InvalidValueError{Key: key, Value: value, Reason: "expected one of " + strings.Join(literals, ", ")}
	}
}

// ValidURI accepts absolute http or https URIs with a valid host.
func ValidURI(key string) Check {
	return func(value string) (bool, error) {
		if err := validateURI(value); err != "" {
			return false, &InvalidValueError{Key: key, Value: value, Reason: err}
		}

		return true, nil
	}
}

// ValidHostname accepts DNS host names.
func ValidHostname(key string) Check {
	return func(value string) (bool, error) {
		if !isHostname(value) {
			return false, &InvalidValueError{Key: key, Value: value, Reason: "not a valid host name"}
		}

		return true, nil
	}
}

// ValidAccountName accepts storage account names: 3 to 24 lowercase letters and digits.
func ValidAccountName(key string) Check {
	return func(value string) (bool, error) {
		if !accountNamePattern.MatchString(value) {
			return false, &InvalidValueError{Key: key, Value: value, Reason: "account name must be 3 to 24 lowercase letters and digits"}
		}

		return true, nil
	}
}

// ValidAccountKey accepts base64 encoded keys.
func ValidAccountKey(key string) Check {
	return func(value string) (bool, error) {
		if !isBase64(value) {
			return false, &InvalidValueError{Key: key, Value: value, Reason: "account key is not base64 encoded"}
		}

		return true, nil
	}
}

func validateURI(value string) string {
	u, err := url.Parse(value)
	if err != nil {
		return "not a valid URI"
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "URI scheme must be http or https"
	}

	host := u.Hostname()
	if host == "" {
		return "URI has no host"
	}

	if net.ParseIP(host) == nil && !isHostname(host) {
		return "URI host is not a valid host name"
	}

	return ""
}

func isHostname(s string) bool {
	return len(s) <= 253 && hostnamePattern.MatchString(s)
}

func isBase64(s string) bool {
	trimmed := strings.TrimRight(s, "=")
	if trimmed == "" || len(s)-len(trimmed) > 2 {
		return false
	}

	_, err := base64.RawStdEncoding.DecodeString(trimmed)

	return err == nil
}
