// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

// normalizeTitle lowercases, strips punctuation, and collapses whitespace
// for title comparison.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitlesMatch reports whether two titles are equal after normalisation.
func TitlesMatch(a, b string) bool {
	na := normalizeTitle(a)
	return na != "" && na == normalizeTitle(b)
}

// TitleHit is a candidate work found by title search.
type TitleHit struct {
	Title string
	DOI   string
	Year  string
}

// TitleMatcher memoises the most recent title lookup. A resolver owns one
// per pipeline; the same title looked up again, as happens when a
// citation is resolved purpose by purpose, reuses the earlier answer.
type TitleMatcher struct {
	mu    sync.Mutex
	query string
	hit   *TitleHit
	valid bool
}

// Lookup returns the cached hit for title, calling search on a miss.
// Errors are not cached.
func (m *TitleMatcher) Lookup(ctx context.Context, title string, search func(context.Context, string) (*TitleHit, error)) (*TitleHit, error) {
	key := normalizeTitle(title)

	m.mu.Lock()
	if m.valid && m.query == key {
		hit := m.hit
		m.mu.Unlock()
		return hit, nil
	}
	m.mu.Unlock()

	hit, err := search(ctx, title)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.query, m.hit, m.valid = key, hit, true
	m.mu.Unlock()
	return hit, nil
}
