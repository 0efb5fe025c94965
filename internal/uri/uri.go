// Package uri parses and formats the scheme://namespace/path addresses
// used throughout the protocol.
//
// The (scheme, namespace) pair is the program key: the unit of dispatch
// for validation rules. The path is an opaque hierarchical string used
// only for exact lookup and prefix listing.
package uri

import (
	"fmt"
	"strings"
)

// URI is a parsed scheme://namespace/path address.
//
// Scheme and Namespace are always non-empty for a parsed URI.
// Path may be empty and may contain further slashes; the core never
// interprets its segments beyond directory-style listing.
type URI struct {
	Scheme    string
	Namespace string
	Path      string
}

// ParseError describes why a raw string failed to parse as a URI.
type ParseError struct {
	Raw     string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed uri %q: %s", e.Raw, e.Message)
}

// Parse splits a raw string into (scheme, namespace, path).
//
// Accepted shape: scheme://namespace[/path]. The scheme must be
// lowercase alphanumeric (plus '+', '-', '.') and the namespace must be
// a single non-empty segment. Everything after the namespace's slash is
// the path, kept verbatim (trailing slashes are trimmed).
func Parse(raw string) (URI, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return URI{}, &ParseError{Raw: raw, Message: "missing '://' separator"}
	}
	if scheme == "" {
		return URI{}, &ParseError{Raw: raw, Message: "empty scheme"}
	}
	for _, r := range scheme {
		if !isSchemeRune(r) {
			return URI{}, &ParseError{Raw: raw, Message: fmt.Sprintf("invalid scheme character %q", r)}
		}
	}

	namespace, path, _ := strings.Cut(rest, "/")
	if namespace == "" {
		return URI{}, &ParseError{Raw: raw, Message: "empty namespace"}
	}
	path = strings.TrimSuffix(path, "/")

	return URI{Scheme: scheme, Namespace: namespace, Path: path}, nil
}

// MustParse is like Parse but panics on error. Use only in tests or
// with compile-time-constant URIs.
func MustParse(raw string) URI {
	u, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// IsValid reports whether raw parses as a URI.
func IsValid(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}

// ProgramKey returns the scheme://namespace dispatch key.
func (u URI) ProgramKey() string {
	return u.Scheme + "://" + u.Namespace
}

// String renders the full URI. Also the storage key: backends persist
// records keyed by this exact string.
func (u URI) String() string {
	if u.Path == "" {
		return u.ProgramKey()
	}
	return u.ProgramKey() + "/" + u.Path
}

// Child returns the URI of a direct child path segment.
func (u URI) Child(segment string) URI {
	child := u
	if child.Path == "" {
		child.Path = segment
	} else {
		child.Path = child.Path + "/" + segment
	}
	return child
}

func isSchemeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '+' || r == '-' || r == '.':
		return true
	}
	return false
}
