// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve runs citation resolvers in priority order and fuses their
// fragments into one best-value citation.
//
// Resolvers run in three purposes, always in the order identify, expand,
// dereference. Within a purpose they run in ascending weight; resolvers of
// equal weight may run concurrently and all see the working set as it stood
// before any of them ran. Failures become error fragments and never stop
// the run.
package resolve

import (
	"context"
	"fmt"
	"path"
	"reflect"

	"github.com/pdiddy/citeflow/internal/citation"
)

// Purpose names a resolution phase.
type Purpose string

const (
	// Identify establishes which document a citation refers to.
	Identify Purpose = "identify"
	// Expand enriches a citation using the identifiers found so far.
	Expand Purpose = "expand"
	// Dereference produces derived artifacts such as links.
	Dereference Purpose = "dereference"
)

// Purposes lists every purpose in execution order.
var Purposes = []Purpose{Identify, Expand, Dereference}

// ParsePurpose validates a purpose name.
func ParsePurpose(s string) (Purpose, error) {
	for _, p := range Purposes {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown purpose %q (want identify, expand, or dereference)", s)
}

// Resolver produces citation fragments from the fragments gathered so far.
//
// Resolve returns nil when it has nothing to add, or one or more fragments.
// It must treat its input as read-only; fragments it returns become part
// of the working set. Provenance returns static tags merged under every
// fragment the resolver returns, or nil.
//
// The context passed to Resolve carries the pipeline's Selector; resolvers
// choose values with citation.SelectorFrom(ctx) so they act on the same
// best value the flattened result will hold.
type Resolver interface {
	Purpose() Purpose
	Weight() int
	Provenance() map[string]any
	Resolve(ctx context.Context, fragments []citation.Citation, doc Document) ([]citation.Citation, error)
}

// Named is implemented by resolvers that choose their own plugin name.
type Named interface {
	Name() string
}

// PluginName identifies a resolver in fragment provenance. It is the
// resolver's Name if it has one, else "<package>.<Type>".
func PluginName(r Resolver) string {
	if n, ok := r.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(r)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return path.Base(t.PkgPath()) + "." + t.Name()
}

// Match is one hit of a document text search.
type Match struct {
	// Text is the matched text.
	Text string
	// Page is the 1-based page the match starts on, or 0 if unknown.
	Page int
	// Offset is the byte offset of the match in the document text.
	Offset int
}

// Document is the read-only text capability resolvers may consult.
// Implementations used with concurrent resolvers must allow concurrent
// reads.
type Document interface {
	// Search returns the matches of a regular expression, in order.
	Search(pattern string) ([]Match, error)
	// FindInContext returns occurrences of label preceded by before and
	// followed by after, tolerating whitespace differences.
	FindInContext(before, label, after string) ([]Match, error)
}
