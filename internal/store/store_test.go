// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "citeflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func flattened(doi, title string) citation.Citation {
	frag := citation.Citation{
		"title":       title,
		"year":        "2024",
		"identifiers": map[string]any{"doi": doi},
		"provenance":  map[string]any{"whence": "crossref"},
	}
	return citation.Flatten([]citation.Citation{frag})
}

func TestPutGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	errs := []resolve.ResolverError{
		{Plugin: "resolvers.Arxiv", Whence: "arxiv", Category: resolve.CategoryTimeout, Message: "The request timed out"},
	}
	rec, err := s.Put(ctx, flattened("10.1234/abc", "A Study of Things"), errs)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, "10.1234/abc", rec.DOI)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "A Study of Things", got.Title)
	assert.Equal(t, "2024", got.Year)
	assert.Equal(t, "A Study of Things", got.Citation["title"])
	assert.Len(t, citation.Sources(got.Citation), 1)
	assert.Equal(t, errs, got.Errors)
}

func TestPut_SameDOIReplaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, flattened("10.1234/abc", "Draft Title"), nil)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	second, err := s.Put(ctx, flattened("10.1234/abc", "Final Title"), nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Final Title", list[0].Title)
}

func TestPut_NoDOI(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := citation.Flatten([]citation.Citation{{"title": "Untitled Preprint"}})
	a, err := s.Put(ctx, c, nil)
	require.NoError(t, err)
	b, err := s.Put(ctx, c, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGet_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_Query(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, flattened("10.1/a", "Graph Neural Networks"), nil)
	require.NoError(t, err)
	_, err = s.Put(ctx, flattened("10.1/b", "Protein Folding"), nil)
	require.NoError(t, err)
	_, err = s.Put(ctx, flattened("10.1/c", "100% Coverage"), nil)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"neural", []string{"Graph Neural Networks"}},
		{"PROTEIN", []string{"Protein Folding"}},
		{"100%", []string{"100% Coverage"}},
		{"_", nil},
		{"quantum", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			list, err := s.List(ctx, ListOptions{Query: tt.query})
			require.NoError(t, err)
			var titles []string
			for _, sum := range list {
				titles = append(titles, sum.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}

	all, err := s.List(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Put(ctx, flattened("10.1/a", "Gone Soon"), []resolve.ResolverError{
		{Plugin: "resolvers.CrossRef", Category: resolve.CategoryServer},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, rec.ID))
	_, err = s.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rec.ID), ErrNotFound)
}
