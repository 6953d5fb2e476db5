package settings

import (
	"strings"
)

// Recognized connection string keys.
const (
	KeyUseDevelopmentStorage      = "UseDevelopmentStorage"
	KeyDevelopmentStorageProxyURI = "DevelopmentStorageProxyUri"
	KeyDefaultEndpointsProtocol   = "DefaultEndpointsProtocol"
	KeyAccountName                = "AccountName"
	KeyAccountKey                 = "AccountKey"
	KeySharedAccessSignature      = "SharedAccessSignature"
	KeyBlobEndpoint               = "BlobEndpoint"
	KeyQueueEndpoint              = "QueueEndpoint"
	KeyTableEndpoint              = "TableEndpoint"
	KeyFileEndpoint               = "FileEndpoint"
	KeyEndpointSuffix             = "EndpointSuffix"
)

const redacted = "[REDACTED]"

// RecognizedKeys returns the accepted keys in their canonical spelling.
func RecognizedKeys() []string {
	return []string{
		KeyUseDevelopmentStorage,
		KeyDevelopmentStorageProxyURI,
		KeyDefaultEndpointsProtocol,
		KeyAccountName,
		KeyAccountKey,
		KeySharedAccessSignature,
		KeyBlobEndpoint,
		KeyQueueEndpoint,
		KeyTableEndpoint,
		KeyFileEndpoint,
		KeyEndpointSuffix,
	}
}

func isSecretKey(key string) bool {
	return strings.EqualFold(key, KeyAccountKey) || strings.EqualFold(key, KeySharedAccessSignature)
}

// Parse tokenizes a connection string into a map keyed by lower-cased setting name.
//
// Pairs are separated by ';' and split at the first '='. Values may be wrapped in
// single or double quotes to carry ';'. Keys are not checked against the
// recognized set here.
func Parse(connectionString string) (map[string]string, error) {
	if strings.TrimSpace(connectionString) == "" {
		return nil, malformed("connection string is empty")
	}

	var (
		settings = map[string]string{}
		s        = connectionString
		pos      = 0
	)

	for pos < len(s) {
		// Key runs until '='.
		eq := strings.IndexByte(s[pos:], '=')
		semi := strings.IndexByte(s[pos:], ';')

		// Empty segment, e.g. trailing or doubled separator.
		if semi < 0 && strings.TrimSpace(s[pos:]) == "" {
			break
		}

		if semi >= 0 && strings.TrimSpace(s[pos:pos+semi]) == "" {
			pos += semi + 1

			continue
		}

		if eq < 0 || (semi >= 0 && semi < eq) {
			return nil, malformed("missing '=' at position %d", pos)
		}

		key := strings.TrimSpace(s[pos : pos+eq])
		if key == "" {
			return nil, malformed("empty key at position %d", pos)
		}

		pos += eq + 1

		value, next, err := scanValue(s, pos)
		if err != nil {
			return nil, err
		}

		pos = next

		lower := strings.ToLower(key)
		if _, ok := settings[lower]; ok {
			return nil, malformed("duplicate key %q", key)
		}

		settings[lower] = value
	}

	if len(settings) == 0 {
		return nil, malformed("no key/value pairs found")
	}

	return settings, nil
}

// scanValue reads a value starting at pos and returns it along with the position after its separator.
func scanValue(s string, pos int) (string, int, error) {
	// Skip leading whitespace to find a possible quote.
	start := pos
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}

	if start < len(s) && (s[start] == '"' || s[start] == '\'') {
		quote := s[start]

		end := strings.IndexByte(s[start+1:], quote)
		if end < 0 {
			return "", 0, malformed("unterminated quoted value at position %d", start)
		}

		value := s[start+1 : start+1+end]
		rest := start + 1 + end + 1

		// Only whitespace may follow the closing quote before the separator.
		for rest < len(s) && s[rest] != ';' {
			if s[rest] != ' ' && s[rest] != '\t' {
				return "", 0, malformed("unexpected character after quoted value at position %d", rest)
			}
			rest++
		}

		if rest < len(s) {
			rest++
		}

		return value, rest, nil
	}

	semi := strings.IndexByte(s[pos:], ';')
	if semi < 0 {
		return strings.TrimSpace(s[pos:]), len(s), nil
	}

	return strings.TrimSpace(s[pos : pos+semi]), pos + semi + 1, nil
}
