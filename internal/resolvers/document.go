// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// Patterns searched for in document text.
const (
	documentDOIPattern   = `\b10\.\d{4,9}/[^\s"<>]+`
	documentArxivPattern = `arXiv:(?:\d{4}\.\d{4,5}|[a-z-]+(?:\.[A-Z]{2})?/\d{7})(?:v\d+)?`
)

var arxivPrefix = regexp.MustCompile(`^arXiv:`)

// DocumentDOI scans the document text for a DOI, or failing that an arXiv
// ID, when no fragment has one yet.
type DocumentDOI struct{}

func (DocumentDOI) Purpose() resolve.Purpose { return resolve.Identify }
func (DocumentDOI) Weight() int              { return 0 }

func (DocumentDOI) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "document"}
}

func (DocumentDOI) Resolve(ctx context.Context, fragments []citation.Citation, doc resolve.Document) ([]citation.Citation, error) {
	if doc == nil || has(ctx, fragments, DOIKeyspec) {
		return nil, nil
	}

	matches, err := doc.Search(documentDOIPattern)
	if err != nil {
		return nil, fmt.Errorf("searching document for DOI: %w", err)
	}
	for _, m := range matches {
		if doi, ok := CanonicalDOI(m.Text); ok {
			return []citation.Citation{{
				IdentifiersField: map[string]any{SchemeDOI: doi},
			}}, nil
		}
	}

	if has(ctx, fragments, ArxivKeyspec) {
		return nil, nil
	}
	matches, err = doc.Search(documentArxivPattern)
	if err != nil {
		return nil, fmt.Errorf("searching document for arXiv ID: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return []citation.Citation{{
		IdentifiersField: map[string]any{SchemeArxiv: arxivPrefix.ReplaceAllString(matches[0].Text, "")},
	}}, nil
}
