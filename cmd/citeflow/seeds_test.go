// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeflow/internal/citation"
)

func TestBuildSeeds(t *testing.T) {
	tests := []struct {
		name  string
		flags seedFlags
		args  []string
		want  []citation.Citation
	}{
		{
			name:  "flags",
			flags: seedFlags{DOI: "10.1234/abc", Title: " A Study of Things "},
			want: []citation.Citation{{
				"identifiers": map[string]any{"doi": "10.1234/abc"},
				"title":       "A Study of Things",
			}},
		},
		{
			name: "positional identifiers are classified",
			args: []string{"https://doi.org/10.1234/abc", "arXiv:2301.07041", "PMC3531190"},
			want: []citation.Citation{{
				"identifiers": map[string]any{"doi": "10.1234/abc", "arxiv": "2301.07041", "pmc": "PMC3531190"},
			}},
		},
		{
			name: "urls become links",
			args: []string{"https://publisher.example/article/1"},
			want: []citation.Citation{{
				"links": []any{map[string]any{"url": "https://publisher.example/article/1", "type": "article"}},
			}},
		},
		{
			name: "nothing given",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildSeeds(tt.flags, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildSeeds_Unrecognised(t *testing.T) {
	_, err := buildSeeds(seedFlags{}, []string{"not an identifier"})
	assert.ErrorContains(t, err, "unrecognised identifier")
}

func TestReadSeedFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "seeds.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- title: A Study of Things
  identifiers:
    doi: 10.1234/abc
- title: Another Paper
`), 0o644))

	seeds, err := readSeedFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	doi, err := citation.Pick(seeds[0], "identifiers/doi")
	require.NoError(t, err)
	assert.Equal(t, "10.1234/abc", doi.Value)

	jsonPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"title": "One"}`), 0o644))
	seeds, err = readSeedFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []citation.Citation{{"title": "One"}}, seeds)

	badPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("just a string"), 0o644))
	_, err = readSeedFile(badPath)
	assert.ErrorContains(t, err, "want a mapping")
}
