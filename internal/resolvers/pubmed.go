// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// Base URLs for NCBI. Declared as vars so tests can substitute httptest
// servers.
var (
	pmcIDConvBase  = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
	pubmedLinkBase = "https://pubmed.ncbi.nlm.nih.gov/"
	pmcLinkBase    = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
)

type idconvResponse struct {
	Status  string         `json:"status"`
	Records []idconvRecord `json:"records"`
}

type idconvRecord struct {
	DOI    string `json:"doi"`
	PMID   string `json:"pmid"`
	PMCID  string `json:"pmcid"`
	Status string `json:"status"`
}

// PubMedIDs finds the PubMed and PubMed Central IDs of a DOI with the NCBI
// ID converter.
type PubMedIDs struct {
	cfg Config
}

func (PubMedIDs) Purpose() resolve.Purpose { return resolve.Expand }
func (PubMedIDs) Weight() int              { return 20 }

func (PubMedIDs) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "pubmed"}
}

func (r *PubMedIDs) Resolve(ctx context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	if has(ctx, fragments, PubMedKeyspec) && has(ctx, fragments, PMCKeyspec) {
		return nil, nil
	}
	out := citation.Citation{}
	doi, ok := lookup(ctx, fragments, DOIKeyspec, out)
	if !ok {
		return nil, nil
	}

	q := url.Values{}
	q.Set("ids", doi)
	q.Set("format", "json")
	q.Set("tool", "citeflow")
	if r.cfg.Email != "" {
		q.Set("email", r.cfg.Email)
	}
	if r.cfg.NCBIAPIKey != "" {
		q.Set("api_key", r.cfg.NCBIAPIKey)
	}

	var resp idconvResponse
	if err := r.cfg.client().GetJSON(ctx, pmcIDConvBase+"?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("NCBI ID conversion of %s: %w", doi, err)
	}

	ids := map[string]any{}
	for _, rec := range resp.Records {
		if rec.Status == "error" {
			continue
		}
		setIfNotEmpty(ids, SchemePubMed, rec.PMID)
		setIfNotEmpty(ids, SchemePMC, rec.PMCID)
		break
	}
	if len(ids) == 0 {
		return nil, nil
	}
	out[IdentifiersField] = ids
	return []citation.Citation{out}, nil
}

// PubMedLinks adds PubMed abstract and PubMed Central article links for
// known PMIDs and PMCIDs.
type PubMedLinks struct{}

func (PubMedLinks) Purpose() resolve.Purpose { return resolve.Dereference }
func (PubMedLinks) Weight() int              { return 30 }

func (PubMedLinks) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "pubmed"}
}

func (PubMedLinks) Resolve(ctx context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	out := citation.Citation{}
	var links []any

	pubmedOnly := map[string]any{citation.WhenceKey: "pubmed"}
	if pmid, ok := lookup(ctx, fragments, PubMedKeyspec, out); ok &&
		!citation.SelectorFrom(ctx).HasLink(fragments, map[string]any{"type": LinkAbstract}, pubmedOnly) {
		links = append(links, link(pubmedLinkBase+pmid+"/", MimeHTML, LinkAbstract, "Show in PubMed"))
	}
	if pmcid, ok := lookup(ctx, fragments, PMCKeyspec, out); ok &&
		!citation.SelectorFrom(ctx).HasLink(fragments, map[string]any{"type": LinkArticle}, pubmedOnly) {
		links = append(links, link(pmcLinkBase+pmcid+"/", MimeHTML, LinkArticle, "Show in PubMed Central"))
	}

	if len(links) == 0 {
		return nil, nil
	}
	out[citation.LinksField] = links
	return []citation.Citation{out}, nil
}
