// Package settings resolves storage account connection strings into endpoint configurations.
//
// A connection string is a list of Key=Value pairs separated by ';'. Resolution
// tokenizes the string, rejects unknown keys, then tries a fixed list of shapes
// in priority order. The first shape whose requirement groups all succeed and
// that consumes every key produces the Settings.
package settings

import (
	"fmt"
	"strings"
)

// Service identifies one of the storage services exposed by an account.
type Service string

// Storage services.
const (
	Blob  Service = "blob"
	Queue Service = "queue"
	Table Service = "table"
	File  Service = "file"
)

// Services lists all services in a stable order.
func Services() []Service { return []Service{Blob, Queue, Table, File} }

// Endpoint holds the primary and geo-redundant secondary base URIs of a service.
// Either may be empty.
type Endpoint struct {
	Primary   string
	Secondary string
}

// Settings is the result of resolving a connection string. It is a value type
// and is never mutated after resolution.
type Settings struct {
	// Format is the name of the shape the connection string matched.
	Format string

	AccountName string
	AccountKey  string
	SASToken    string

	Blob  Endpoint
	Queue Endpoint
	Table Endpoint
	File  Endpoint
}

// Endpoint returns the endpoint of the given service.
func (s Settings) Endpoint(svc Service) Endpoint {
	switch svc {
	case Blob:
		return s.Blob
	case Queue:
		return s.Queue
	case Table:
		return s.Table
	case File:
		return s.File
	default:
		return Endpoint{}
	}
}

// UsesSAS reports whether requests should be authorized with the shared access signature.
func (s Settings) UsesSAS() bool {
	return s.AccountKey == "" && s.SASToken != ""
}

// String renders the settings with credentials redacted.
func (s Settings) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "format=%s account=%s", s.Format, s.AccountName)

	if s.AccountKey != "" {
		b.WriteString(" key=" + redacted)
	}

	if s.SASToken != "" {
		b.WriteString(" sas=" + redacted)
	}

	for _, svc := range Services() {
		e := s.Endpoint(svc)
		if e.Primary == "" {
			continue
		}

		fmt.Fprintf(&b, " %s=%s", svc, e.Primary)

		if e.Secondary != "" {
			fmt.Fprintf(&b, " %s-secondary=%s", svc, e.Secondary)
		}
	}

	return b.String()
}

// Resolver holds the immutable shape table used to resolve connection strings.
type Resolver struct {
	valid  map[string]string
	shapes []Shape
}

// NewResolver builds a Resolver with the default shape table.
func NewResolver() *Resolver {
	valid := map[string]string{}
	for _, k := range RecognizedKeys() {
		valid[strings.ToLower(k)] = k
	}

	return &Resolver{valid: valid, shapes: defaultShapes()}
}

// Shapes returns the shapes in the order they are tried.
func (r *Resolver) Shapes() []Shape {
	out := make([]Shape, len(r.shapes))
	copy(out, r.shapes)

	return out
}

// Resolve parses and validates the connection string.
func (r *Resolver) Resolve(connectionString string) (Settings, error) {
	tokens, err := Parse(connectionString)
	if err != nil {
		return Settings{}, err
	}

	for k := range tokens {
		if _, ok := r.valid[k]; !ok {
			return Settings{}, &UnrecognizedKeyError{Key: k, Valid: RecognizedKeys()}
		}
	}

	var mismatches []Mismatch

	for _, shape := range r.shapes {
		values, mismatch, err := shape.Match(tokens)
		if err != nil {
			return Settings{}, err
		}

		if mismatch != nil {
			mismatches = append(mismatches, *mismatch)
			continue
		}

		s := shape.build(values)
		s.Format = shape.Name

		return s, nil
	}

	return Settings{}, &NoMatchError{Mismatches: mismatches}
}

var defaultResolver = NewResolver()

// Resolve resolves the connection string with the default shape table.
func Resolve(connectionString string) (Settings, error) {
	return defaultResolver.Resolve(connectionString)
}
