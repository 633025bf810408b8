// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolvers"
)

// seedFlags holds what the user supplied about the paper on the command line.
type seedFlags struct {
	DOI    string
	Title  string
	Arxiv  string
	PubMed string
	PMC    string
	Seed   string
}

// buildSeeds turns flags, positional identifiers, and an optional seed file
// into the fragments the pipeline starts from.
func buildSeeds(f seedFlags, args []string) ([]citation.Citation, error) {
	var seeds []citation.Citation
	if f.Seed != "" {
		fromFile, err := readSeedFile(f.Seed)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, fromFile...)
	}

	ids := map[string]any{}
	set := func(scheme, value string) {
		if value = strings.TrimSpace(value); value != "" {
			ids[scheme] = value
		}
	}
	set(resolvers.SchemeDOI, f.DOI)
	set(resolvers.SchemeArxiv, f.Arxiv)
	set(resolvers.SchemePubMed, f.PubMed)
	set(resolvers.SchemePMC, f.PMC)

	var links []any
	for _, arg := range args {
		typ, value := resolvers.Classify(arg)
		switch typ {
		case resolvers.TypeDOI, resolvers.TypeArxiv, resolvers.TypePubMed, resolvers.TypePMC:
			set(typ.String(), value)
		case resolvers.TypeURL:
			links = append(links, map[string]any{"url": value, "type": resolvers.LinkArticle})
		default:
			return nil, fmt.Errorf("unrecognised identifier %q (want a DOI, arXiv ID, PubMed ID, PMC ID, or URL)", arg)
		}
	}

	manual := citation.Citation{}
	if len(ids) > 0 {
		manual[resolvers.IdentifiersField] = ids
	}
	if title := strings.TrimSpace(f.Title); title != "" {
		manual[resolvers.TitleField] = title
	}
	if len(links) > 0 {
		manual[citation.LinksField] = links
	}
	if len(manual) > 0 {
		seeds = append(seeds, manual)
	}
	return seeds, nil
}

// readSeedFile loads one fragment or a list of fragments from a JSON or
// YAML file.
func readSeedFile(path string) ([]citation.Citation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return []citation.Citation{v}, nil
	case []any:
		out := make([]citation.Citation, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("seed file %s: entry %d is not a mapping", path, i)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("seed file %s: want a mapping or a list of mappings", path)
	}
}
