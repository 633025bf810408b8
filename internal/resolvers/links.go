// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// doiLinkBase prefixes DOIs in generated article links.
const doiLinkBase = "http://dx.doi.org/"

// DOILink adds the publisher article link for a DOI.
type DOILink struct{}

func (DOILink) Purpose() resolve.Purpose { return resolve.Dereference }
func (DOILink) Weight() int              { return 0 }

func (DOILink) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "crossref"}
}

func (DOILink) Resolve(ctx context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	out := citation.Citation{}
	doi, ok := lookup(ctx, fragments, DOIKeyspec, out)
	if !ok {
		return nil, nil
	}
	url := doiLinkBase + doi
	if citation.SelectorFrom(ctx).HasLink(fragments, map[string]any{"url": url}, nil) {
		return nil, nil
	}
	out[citation.LinksField] = []any{link(url, MimeHTML, LinkArticle, "Show on publisher's website")}
	return []citation.Citation{out}, nil
}
