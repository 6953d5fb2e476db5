package settings

import (
	"sort"
	"strings"
)

// GroupKind selects how the requirements of a group are combined.
type GroupKind int

const (
	// AllRequired fails unless every requirement's key is present.
	AllRequired GroupKind = iota
	// Optional tolerates absent keys.
	Optional
	// AtLeastOne fails unless at least one requirement is satisfied.
	AtLeastOne
)

func (k GroupKind) String() string {
	switch k {
	case AllRequired:
		return "all-required"
	case Optional:
		return "optional"
	case AtLeastOne:
		return "at-least-one"
	default:
		return "unknown"
	}
}

// Requirement binds a setting name to the check its value must pass.
type Requirement struct {
	Name  string
	Check Check
}

// Group is a set of requirements evaluated together.
type Group struct {
	Kind         GroupKind
	Requirements []Requirement
}

// Require builds an AllRequired group.
func Require(rs ...Requirement) Group { return Group{Kind: AllRequired, Requirements: rs} }

// Allow builds an Optional group.
func Allow(rs ...Requirement) Group { return Group{Kind: Optional, Requirements: rs} }

// OneOrMore builds an AtLeastOne group.
func OneOrMore(rs ...Requirement) Group { return Group{Kind: AtLeastOne, Requirements: rs} }

// Shape is a named combination of requirement groups a connection string may satisfy.
type Shape struct {
	Name   string
	Groups []Group

	build func(values map[string]string) Settings
}

// Match evaluates the shape against tokenized settings (lower-cased keys).
//
// It returns the consumed values on success, a Mismatch when the shape does not
// apply, or an error when a check rejected a value. The input map is not modified.
func (s Shape) Match(tokens map[string]string) (map[string]string, *Mismatch, error) {
	var (
		remaining = make(map[string]string, len(tokens))
		consumed  = make(map[string]string, len(tokens))
		missing   []string
	)

	for k, v := range tokens {
		remaining[k] = v
	}

	for _, g := range s.Groups {
		var (
			found        bool
			groupMissing []string
		)

		for _, r := range g.Requirements {
			name := strings.ToLower(r.Name)

			value, ok := remaining[name]
			if !ok {
				groupMissing = append(groupMissing, r.Name)
				continue
			}

			valid, err := r.Check(value)
			if err != nil {
				return nil, nil, err
			}

			if valid {
				delete(remaining, name)
				consumed[name] = value
				found = true
			}
		}

		switch g.Kind {
		case AllRequired:
			missing = append(missing, groupMissing...)
		case AtLeastOne:
			if !found {
				missing = append(missing, strings.Join(names(g.Requirements), "|"))
			}
		}

		if len(missing) > 0 {
			return nil, &Mismatch{Shape: s.Name, Missing: missing}, nil
		}
	}

	if len(remaining) > 0 {
		return nil, &Mismatch{Shape: s.Name, Unconsumed: canonical(remaining)}, nil
	}

	return consumed, nil, nil
}

func names(rs []Requirement) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}

	return out
}

func canonical(m map[string]string) []string {
	lookup := map[string]string{}
	for _, k := range RecognizedKeys() {
		lookup[strings.ToLower(k)] = k
	}

	out := make([]string, 0, len(m))
	for k := range m {
		if c, ok := lookup[k]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
