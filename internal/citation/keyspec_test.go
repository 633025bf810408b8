// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseEquivalentSyntaxes(t *testing.T) {
	equivalent := []string{
		"a/b/c:d",
		"a/b/c#d",
		"a.b.c:d",
		"a.b.c#d",
		"a[b][c]:d",
		"a[b][c]#d",
		"a/b.c:d",
		"a[b]/c#d",
	}
	for _, ks := range equivalent {
		t.Run(ks, func(t *testing.T) {
			assert.Equal(t, "a/b/c:d", Normalise(ks))
		})
	}
}

func TestNormaliseIdempotent(t *testing.T) {
	inputs := []string{"", "a", "a[0].b#c*", "links[2]", "x.y.z", "weird]]][[", "provenance/whence"}
	for _, in := range inputs {
		once := Normalise(in)
		assert.Equal(t, once, Normalise(once), "Normalise(%q)", in)
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"i", "1", "m", "1"}, Split("i/1[m].1"))
	assert.Equal(t, []string{"a"}, Split("a"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPath   string
		wantFilter Filter
	}{
		{"plain path", "identifiers.doi", "identifiers/doi", Filter{}},
		{"must have provenance", "title:", "title", Filter{Mode: FilterAny}},
		{"collect all", "title#*", "title", Filter{Mode: FilterAll}},
		{"exact source", "title:crossref", "title", Filter{Mode: FilterExact, Whence: "crossref"}},
		{"source and lower", "a[b]:pubmed*", "a/b", Filter{Mode: FilterFrom, Whence: "pubmed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, ks.PathString())
			assert.Equal(t, tt.wantFilter, ks.Filter)
			assert.Equal(t, Normalise(tt.input), ks.String())
		})
	}
}

func TestParseIndexSegments(t *testing.T) {
	ks := MustParse("i[1].m")
	require.Len(t, ks.Path, 3)
	assert.False(t, ks.Path[0].IsIndex)
	assert.True(t, ks.Path[1].IsIndex)
	assert.Equal(t, 1, ks.Path[1].Index)
	assert.Equal(t, "i/1/m/0", ks.Child("0").PathString())
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", ":crossref", "a//b", "a/"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			var syn *SyntaxError
			require.True(t, errors.As(err, &syn), "Parse(%q) err = %v", in, err)
			assert.Equal(t, in, syn.Input)
		})
	}
}
