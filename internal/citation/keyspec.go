// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation addresses, selects, and merges fields across partial
// citation records (fragments) produced by many metadata sources.
//
// Fields are addressed with keyspecs. The canonical form descends with "/"
// and may end in a provenance filter introduced by ":". The following are
// equivalent and all normalise to the first:
//
//	a/b/c:d
//	a/b/c#d
//	a.b.c:d
//	a[b][c]#d
//	a/b.c:d
package citation

import (
	"fmt"
	"strconv"
	"strings"
)

// Citation is one partial citation record: a mapping from field name to a
// scalar, a nested mapping, or a list.
type Citation map[string]any

// Reserved field names.
const (
	KeyField        = "key"
	ProvenanceField = "provenance"
	ErrorField      = "error"
)

// Keys inside a citation's provenance mapping.
const (
	WhenceKey  = "whence"
	WhenKey    = "when"
	PluginKey  = "plugin"
	SourcesKey = "sources"
	RefsKey    = "refs"
	InputKey   = "input"
	WeightKey  = "weight"
)

// Keyspecs for provenance fields.
const (
	WhenceKeyspec  = ProvenanceField + "/" + WhenceKey
	WhenKeyspec    = ProvenanceField + "/" + WhenKey
	PluginKeyspec  = ProvenanceField + "/" + PluginKey
	SourcesKeyspec = ProvenanceField + "/" + SourcesKey
	RefsKeyspec    = ProvenanceField + "/" + RefsKey
	InputKeyspec   = ProvenanceField + "/" + InputKey
)

const (
	pathDelimiter       = "/"
	provenanceDelimiter = ":"
	allSources          = "*"
)

var keyspecNormaliser = strings.NewReplacer("[", "/", ".", "/", "#", ":", "]", "")

// Normalise rewrites a keyspec into slash/colon notation. It accepts any
// string and is idempotent.
func Normalise(keyspec string) string {
	return keyspecNormaliser.Replace(keyspec)
}

// Split normalises keyspec and splits it into its path segments.
func Split(keyspec string) []string {
	return strings.Split(Normalise(keyspec), pathDelimiter)
}

// Segment is one step of a keyspec path. Every segment can address a map
// key; segments that parse as non-negative integers can also index a list.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func newSegment(key string) Segment {
	seg := Segment{Key: key}
	if n, err := strconv.Atoi(key); err == nil && n >= 0 {
		seg.Index = n
		seg.IsIndex = true
	}
	return seg
}

// FilterMode selects which fragments may supply a value.
type FilterMode int

const (
	// FilterNone places no restriction on the source.
	FilterNone FilterMode = iota
	// FilterAny ("a:") requires the fragment to carry a provenance source.
	FilterAny
	// FilterExact ("a:crossref") requires an exact source match.
	FilterExact
	// FilterFrom ("a:crossref*") collects values from the source and every
	// lower-ranked named source.
	FilterFrom
	// FilterAll ("a:*") collects every fragment's value.
	FilterAll
)

// Filter is the provenance restriction parsed from a keyspec suffix.
type Filter struct {
	Mode   FilterMode
	Whence string
}

// Collects reports whether the filter gathers values from every qualifying
// fragment rather than choosing one.
func (f Filter) Collects() bool {
	return f.Mode == FilterAll || f.Mode == FilterFrom
}

func (f Filter) String() string {
	switch f.Mode {
	case FilterAny:
		return provenanceDelimiter
	case FilterExact:
		return provenanceDelimiter + f.Whence
	case FilterFrom:
		return provenanceDelimiter + f.Whence + allSources
	case FilterAll:
		return provenanceDelimiter + allSources
	default:
		return ""
	}
}

func parseFilter(whence string) Filter {
	switch {
	case whence == "":
		return Filter{Mode: FilterAny}
	case whence == allSources:
		return Filter{Mode: FilterAll}
	case strings.HasSuffix(whence, allSources):
		return Filter{Mode: FilterFrom, Whence: strings.TrimSuffix(whence, allSources)}
	default:
		return Filter{Mode: FilterExact, Whence: whence}
	}
}

// Keyspec is a parsed keyspec: a path plus an optional provenance filter.
type Keyspec struct {
	Path   []Segment
	Filter Filter
}

// Parse normalises and parses a keyspec string. Empty keyspecs and empty
// path segments are rejected.
func Parse(keyspec string) (Keyspec, error) {
	path, whence, hasFilter := strings.Cut(Normalise(keyspec), provenanceDelimiter)
	if path == "" {
		return Keyspec{}, &SyntaxError{Kind: "keyspec", Input: keyspec, Reason: "empty path"}
	}

	parts := strings.Split(path, pathDelimiter)
	ks := Keyspec{Path: make([]Segment, 0, len(parts))}
	for _, p := range parts {
		if p == "" {
			return Keyspec{}, &SyntaxError{Kind: "keyspec", Input: keyspec, Reason: "empty path segment"}
		}
		ks.Path = append(ks.Path, newSegment(p))
	}
	if hasFilter {
		ks.Filter = parseFilter(whence)
	}
	return ks, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// keyspec literals.
func MustParse(keyspec string) Keyspec {
	ks, err := Parse(keyspec)
	if err != nil {
		panic(err)
	}
	return ks
}

// PathString returns the canonical path without the provenance filter.
func (k Keyspec) PathString() string {
	keys := make([]string, len(k.Path))
	for i, seg := range k.Path {
		keys[i] = seg.Key
	}
	return strings.Join(keys, pathDelimiter)
}

// String returns the canonical keyspec including any provenance filter.
func (k Keyspec) String() string {
	return k.PathString() + k.Filter.String()
}

// Child returns the keyspec extended by one path segment.
func (k Keyspec) Child(key string) Keyspec {
	path := make([]Segment, len(k.Path), len(k.Path)+1)
	copy(path, k.Path)
	return Keyspec{Path: append(path, newSegment(key)), Filter: k.Filter}
}

// SyntaxError reports a malformed keyspec or refspec.
type SyntaxError struct {
	Kind   string
	Input  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Input, e.Reason)
}

// KeyError reports a path that could not be resolved. Path names the
// deepest segment reached, or the full keyspec (with provenance filter)
// when selecting across fragments.
type KeyError struct {
	Path string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("missing key: %s", e.Path)
}
