// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

// openAlexResponse captures the fields we need from an OpenAlex work record.
type openAlexResponse struct {
	ID             string            `json:"id"`
	BestOALocation *openAlexLocation `json:"best_oa_location"`
	OpenAccess     struct {
		IsOA  bool   `json:"is_oa"`
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
}

// openAlexLocation represents an open-access location in the OpenAlex response.
type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

// OpenAlex adds the best open-access PDF link OpenAlex knows for a DOI.
type OpenAlex struct {
	cfg Config
}

func (OpenAlex) Purpose() resolve.Purpose { return resolve.Dereference }
func (OpenAlex) Weight() int              { return 20 }

func (OpenAlex) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "openalex"}
}

func (r *OpenAlex) Resolve(ctx context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	out := citation.Citation{}
	doi, ok := lookup(ctx, fragments, DOIKeyspec, out)
	if !ok {
		return nil, nil
	}

	apiURL := openAlexAPIBase + "https://doi.org/" + escapeDOI(doi)
	if r.cfg.Email != "" {
		apiURL += "?mailto=" + url.QueryEscape(r.cfg.Email)
	}
	var oa openAlexResponse
	if err := r.cfg.client().GetJSON(ctx, apiURL, &oa); err != nil {
		return nil, fmt.Errorf("OpenAlex lookup of %s: %w", doi, err)
	}

	if id := strings.TrimPrefix(oa.ID, "https://openalex.org/"); id != "" {
		out[IdentifiersField] = map[string]any{SchemeOpenAlex: id}
	}
	if loc := oa.BestOALocation; loc != nil && loc.PDFURL != "" &&
		!citation.SelectorFrom(ctx).HasLink(fragments, map[string]any{"url": loc.PDFURL}, nil) {
		out[citation.LinksField] = []any{link(loc.PDFURL, MimePDF, LinkArticle, "Download open access article")}
	}

	if !hasContent(out) {
		return nil, nil
	}
	return []citation.Citation{out}, nil
}
