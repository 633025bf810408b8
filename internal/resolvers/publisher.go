// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// doiResolverBase resolves DOIs to publisher landing pages. Declared as a
// var so tests can substitute an httptest server.
var doiResolverBase = "https://doi.org/"

// Publisher reads the Highwire "citation_*" meta tags most publishers put
// on a DOI's landing page.
type Publisher struct {
	cfg Config
}

func (Publisher) Purpose() resolve.Purpose { return resolve.Expand }
func (Publisher) Weight() int              { return 50 }

func (Publisher) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "publisher"}
}

func (r *Publisher) Resolve(ctx context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	out := citation.Citation{}
	doi, ok := lookup(ctx, fragments, DOIKeyspec, out)
	if !ok {
		return nil, nil
	}

	body, err := r.cfg.client().GetBytes(ctx, doiResolverBase+escapeDOI(doi), "text/html")
	if err != nil {
		return nil, fmt.Errorf("fetching landing page of %s: %w", doi, err)
	}
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing landing page of %s: %w", doi, err)
	}

	meta := func(name string) []string {
		var values []string
		page.Find(`meta[name="` + name + `"]`).Each(func(_ int, s *goquery.Selection) {
			if v := strings.TrimSpace(s.AttrOr("content", "")); v != "" {
				values = append(values, v)
			}
		})
		return values
	}
	first := func(names ...string) string {
		for _, name := range names {
			if vs := meta(name); len(vs) > 0 {
				return vs[0]
			}
		}
		return ""
	}

	setIfNotEmpty(out, TitleField, collapseSpace(first("citation_title", "dc.title", "DC.title")))
	setIfNotEmpty(out, PublicationTitleField, first("citation_journal_title"))
	setIfNotEmpty(out, PublisherField, first("citation_publisher", "dc.publisher", "DC.publisher"))
	setIfNotEmpty(out, VolumeField, first("citation_volume"))
	setIfNotEmpty(out, IssueField, first("citation_issue"))
	if date := first("citation_publication_date", "citation_date", "citation_online_date"); len(date) >= 4 {
		out[YearField] = date[:4]
	}
	if fp := first("citation_firstpage"); fp != "" {
		pages := fp
		if lp := first("citation_lastpage"); lp != "" {
			pages += "-" + lp
		}
		out[PagesField] = pages
	}

	var authors []string
	for _, name := range meta("citation_author") {
		if a := formatAuthor("", "", name); a != "" {
			authors = append(authors, a)
		}
	}
	if len(authors) > 0 {
		out[AuthorsField] = stringsToAny(authors)
	}

	var keywords []string
	for _, kw := range meta("citation_keywords") {
		for _, k := range strings.Split(kw, ";") {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
	}
	if len(keywords) > 0 {
		out[KeywordsField] = stringsToAny(keywords)
	}

	if pdf := first("citation_pdf_url"); pdf != "" {
		out[citation.LinksField] = []any{link(pdf, MimePDF, LinkArticle, "Download article from publisher")}
	}

	if !hasContent(out) {
		return nil, nil
	}
	return []citation.Citation{out}, nil
}

// hasContent reports whether c holds fields beyond its provenance.
func hasContent(c citation.Citation) bool {
	for k := range c {
		if k != citation.ProvenanceField {
			return true
		}
	}
	return false
}
