// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	DOI       string        `xml:"http://arxiv.org/schemas/atom doi"`
	Journal   string        `xml:"http://arxiv.org/schemas/atom journal_ref"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

// Arxiv expands a citation with the arXiv record of its arXiv ID.
type Arxiv struct {
	cfg Config
}

func (Arxiv) Purpose() resolve.Purpose { return resolve.Expand }
func (Arxiv) Weight() int              { return 30 }

func (Arxiv) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "arxiv"}
}

func (r *Arxiv) Resolve(ctx context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	out := citation.Citation{}
	id, ok := lookup(ctx, fragments, ArxivKeyspec, out)
	if !ok {
		return nil, nil
	}

	q := url.Values{}
	q.Set("id_list", id)
	q.Set("start", "0")
	q.Set("max_results", "1")
	body, err := r.cfg.client().GetBytes(ctx, arxivAPIBase+"?"+q.Encode(), "application/atom+xml")
	if err != nil {
		return nil, fmt.Errorf("arXiv lookup of %s: %w", id, err)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}
	// arXiv answers unknown IDs with an entry whose title is "Error".
	if len(feed.Entries) == 0 || strings.TrimSpace(feed.Entries[0].Title) == "Error" {
		return nil, nil
	}
	entry := feed.Entries[0]

	setIfNotEmpty(out, TitleField, collapseSpace(entry.Title))
	setIfNotEmpty(out, AbstractField, strings.TrimSpace(entry.Summary))
	if len(entry.Published) >= 4 {
		out[YearField] = entry.Published[:4]
	}

	var authors []string
	for _, a := range entry.Authors {
		if name := formatAuthor("", "", a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) > 0 {
		out[AuthorsField] = stringsToAny(authors)
	}

	if doi, ok := CanonicalDOI(entry.DOI); ok {
		out[IdentifiersField] = map[string]any{SchemeDOI: doi}
	}

	var links []any
	for _, l := range entry.Links {
		switch {
		case l.Type == MimeHTML:
			links = append(links, link(l.Href, MimeHTML, LinkArticle, "Show on arXiv"))
		case l.Type == MimePDF || l.Title == "pdf":
			links = append(links, link(l.Href, MimePDF, LinkArticle, "Download article from arXiv"))
		}
	}
	if len(links) > 0 {
		out[citation.LinksField] = links
	}
	return []citation.Citation{out}, nil
}
