// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// crossrefAPIBase is the CrossRef works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// CrossRef API JSON structures.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefSearchResponse struct {
	Message struct {
		Items []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefWork struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	Abstract       string           `json:"abstract"`
	Author         []crossrefAuthor `json:"author"`
	Issued         crossrefDate     `json:"issued"`
	Created        crossrefDate     `json:"created"`
	ContainerTitle []string         `json:"container-title"`
	Volume         string           `json:"volume"`
	Issue          string           `json:"issue"`
	Page           string           `json:"page"`
	Publisher      string           `json:"publisher"`
	Subject        []string         `json:"subject"`
	ISSN           []string         `json:"ISSN"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] <= 0 {
		return ""
	}
	return strconv.Itoa(d.DateParts[0][0])
}

func (w crossrefWork) year() string {
	if y := w.Issued.year(); y != "" {
		return y
	}
	return w.Created.year()
}

func (w crossrefWork) title() string {
	if len(w.Title) == 0 {
		return ""
	}
	return collapseSpace(w.Title[0])
}

// jatsTag matches the JATS markup CrossRef embeds in abstracts.
var jatsTag = regexp.MustCompile(`<[^>]+>`)

var spaceRun = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

func crossrefQuery(email string) string {
	if email == "" {
		return ""
	}
	return "mailto=" + url.QueryEscape(email)
}

// CrossRef expands a citation with the CrossRef record of its DOI.
type CrossRef struct {
	cfg Config
}

func (CrossRef) Purpose() resolve.Purpose { return resolve.Expand }
func (CrossRef) Weight() int              { return 10 }

func (CrossRef) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "crossref"}
}

func (r *CrossRef) Resolve(ctx context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	out := citation.Citation{}
	doi, ok := lookup(ctx, fragments, DOIKeyspec, out)
	if !ok {
		return nil, nil
	}

	apiURL := crossrefAPIBase + "/" + escapeDOI(doi)
	if q := crossrefQuery(r.cfg.Email); q != "" {
		apiURL += "?" + q
	}
	var cr crossrefResponse
	if err := r.cfg.client().GetJSON(ctx, apiURL, &cr); err != nil {
		return nil, fmt.Errorf("CrossRef lookup of %s: %w", doi, err)
	}

	w := cr.Message
	setIfNotEmpty(out, TitleField, w.title())
	setIfNotEmpty(out, YearField, w.year())
	setIfNotEmpty(out, VolumeField, w.Volume)
	setIfNotEmpty(out, IssueField, w.Issue)
	setIfNotEmpty(out, PagesField, strings.ReplaceAll(w.Page, "--", "-"))
	setIfNotEmpty(out, PublisherField, w.Publisher)
	setIfNotEmpty(out, AbstractField, collapseSpace(jatsTag.ReplaceAllString(w.Abstract, " ")))
	if len(w.ContainerTitle) > 0 {
		setIfNotEmpty(out, PublicationTitleField, collapseSpace(w.ContainerTitle[0]))
	}

	var authors []string
	for _, a := range w.Author {
		if name := formatAuthor(a.Family, a.Given, a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) > 0 {
		out[AuthorsField] = stringsToAny(authors)
	}
	if len(w.Subject) > 0 {
		out[KeywordsField] = stringsToAny(w.Subject)
	}

	ids := map[string]any{}
	setIfNotEmpty(ids, SchemeDOI, w.DOI)
	if len(w.ISSN) > 0 {
		ids["issn"] = w.ISSN[0]
	}
	if len(ids) > 0 {
		out[IdentifiersField] = ids
	}
	return []citation.Citation{out}, nil
}

// CrossRefTitle identifies a citation by searching CrossRef for its title.
// The top hit is accepted only if its title matches the known one, or if
// the hit's title can be found in the document.
type CrossRefTitle struct {
	cfg     Config
	matcher *TitleMatcher
}

// NewCrossRefTitle returns a CrossRefTitle with its own lookup memo.
func NewCrossRefTitle(cfg Config) *CrossRefTitle {
	return &CrossRefTitle{cfg: cfg, matcher: &TitleMatcher{}}
}

func (CrossRefTitle) Purpose() resolve.Purpose { return resolve.Identify }
func (CrossRefTitle) Weight() int              { return 10 }

func (CrossRefTitle) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "crossref"}
}

func (r *CrossRefTitle) Resolve(ctx context.Context, fragments []citation.Citation, doc resolve.Document) ([]citation.Citation, error) {
	if has(ctx, fragments, DOIKeyspec) {
		return nil, nil
	}
	out := citation.Citation{}
	title, ok := lookup(ctx, fragments, TitleField, out)
	if !ok {
		title, ok = lookup(ctx, fragments, IdentifiersField+"/"+TitleField, out)
	}
	if !ok {
		return nil, nil
	}
	title = strings.Trim(title, " .")

	if r.matcher == nil {
		r.matcher = &TitleMatcher{}
	}
	hit, err := r.matcher.Lookup(ctx, title, r.search)
	if err != nil {
		return nil, err
	}
	if hit == nil || hit.DOI == "" {
		return nil, nil
	}

	matchedTitle := hit.Title
	if !TitlesMatch(title, hit.Title) {
		if doc == nil {
			return nil, nil
		}
		matches, err := doc.FindInContext("", hit.Title, "")
		if err != nil || len(matches) == 0 {
			return nil, nil
		}
		matchedTitle = matches[0].Text
	}

	out[TitleField] = matchedTitle
	out[IdentifiersField] = map[string]any{SchemeDOI: hit.DOI}
	setIfNotEmpty(out, YearField, hit.Year)
	return []citation.Citation{out}, nil
}

func (r *CrossRefTitle) search(ctx context.Context, title string) (*TitleHit, error) {
	q := url.Values{}
	q.Set("query.bibliographic", title)
	q.Set("rows", "1")
	q.Set("select", "DOI,title,issued")
	if r.cfg.Email != "" {
		q.Set("mailto", r.cfg.Email)
	}

	var sr crossrefSearchResponse
	if err := r.cfg.client().GetJSON(ctx, crossrefAPIBase+"?"+q.Encode(), &sr); err != nil {
		return nil, fmt.Errorf("CrossRef title search: %w", err)
	}
	if len(sr.Message.Items) == 0 {
		return nil, nil
	}
	w := sr.Message.Items[0]
	return &TitleHit{Title: w.title(), DOI: w.DOI, Year: w.year()}, nil
}
