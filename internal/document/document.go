// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document provides the text search capability resolvers use to
// find identifiers and re-anchor titles in the document being cited.
package document

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/citeflow/internal/resolve"
)

// Text is a searchable document held in memory, optionally split into
// pages. It is safe for concurrent use.
type Text struct {
	text       string
	pageStarts []int

	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

// NewText returns a single-page document.
func NewText(text string) *Text {
	return NewPages([]string{text})
}

// NewPages returns a document whose pages are joined by newlines.
func NewPages(pages []string) *Text {
	t := &Text{compiled: map[string]*regexp.Regexp{}}
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteByte('\n')
		}
		t.pageStarts = append(t.pageStarts, b.Len())
		b.WriteString(p)
	}
	t.text = b.String()
	return t
}

// String returns the full document text.
func (t *Text) String() string { return t.text }

// Pages returns the number of pages.
func (t *Text) Pages() int { return len(t.pageStarts) }

// Search returns every match of the regular expression pattern in
// document order.
func (t *Text) Search(pattern string) ([]resolve.Match, error) {
	re, err := t.compile(pattern)
	if err != nil {
		return nil, err
	}
	return t.collect(re, 0), nil
}

// FindInContext finds label where it is preceded by before and followed by
// after. Matching ignores case and treats any run of whitespace, including
// line breaks from text extraction, as a single space. The returned
// matches cover only the label.
func (t *Text) FindInContext(before, label, after string) ([]resolve.Match, error) {
	if strings.TrimSpace(label) == "" {
		return nil, nil
	}
	pattern := "(?i)"
	if b := fuzzy(before); b != "" {
		pattern += b + `\s*`
	}
	pattern += "(" + fuzzy(label) + ")"
	if a := fuzzy(after); a != "" {
		pattern += `\s*` + a
	}
	re, err := t.compile(pattern)
	if err != nil {
		return nil, err
	}
	return t.collect(re, 1), nil
}

// fuzzy quotes the words of s and joins them with flexible whitespace.
func fuzzy(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

func (t *Text) compile(pattern string) (*regexp.Regexp, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if re, ok := t.compiled[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling search pattern %q: %w", pattern, err)
	}
	t.compiled[pattern] = re
	return re, nil
}

// collect returns the matches of re, reporting submatch group instead of
// the whole match when group is positive.
func (t *Text) collect(re *regexp.Regexp, group int) []resolve.Match {
	var out []resolve.Match
	for _, loc := range re.FindAllStringSubmatchIndex(t.text, -1) {
		start, end := loc[2*group], loc[2*group+1]
		if start < 0 {
			continue
		}
		out = append(out, resolve.Match{
			Text:   t.text[start:end],
			Page:   t.pageOf(start),
			Offset: start,
		})
	}
	return out
}

func (t *Text) pageOf(offset int) int {
	return sort.Search(len(t.pageStarts), func(i int) bool { return t.pageStarts[i] > offset })
}
