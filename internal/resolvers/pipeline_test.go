// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// metadataServer answers for every remote source under one test server.
func metadataServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch p := r.URL.Path; {
		case strings.HasPrefix(p, "/works/"):
			w.Write([]byte(crossrefWorkJSON))
		case strings.HasPrefix(p, "/idconv/"):
			w.Write([]byte(`{"records":[{"doi":"10.1234/abc","pmid":"23193287","pmcid":"PMC3531190"}]}`))
		case strings.HasPrefix(p, "/doi/"):
			w.Write([]byte(landingPage))
		case strings.HasPrefix(p, "/openalex/"):
			w.Write([]byte(`{"id":"https://openalex.org/W123","best_oa_location":{"pdf_url":"https://repo.example/abc.pdf"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	override(t, &crossrefAPIBase, ts.URL+"/works")
	override(t, &pmcIDConvBase, ts.URL+"/idconv/")
	override(t, &doiResolverBase, ts.URL+"/doi/")
	override(t, &openAlexAPIBase, ts.URL+"/openalex/")
	override(t, &arxivAPIBase, ts.URL+"/arxiv")
	return ts
}

func TestAll_ResolveFromDOI(t *testing.T) {
	ts := metadataServer(t)
	defer ts.Close()

	p := resolve.New(resolve.NewRegistry(All(testConfig(ts))...))
	seed := citation.Citation{"identifiers": map[string]any{"doi": "doi:10.1234/abc"}}

	res, err := p.Resolve(context.Background(), []citation.Citation{seed}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Errors())

	c := res.Citation
	doi, err := citation.Pick(c, DOIKeyspec)
	require.NoError(t, err)
	assert.Equal(t, "10.1234/abc", doi.Value)

	pmid, err := citation.Pick(c, PubMedKeyspec)
	require.NoError(t, err)
	assert.Equal(t, "23193287", pmid.Value)

	assert.Equal(t, "A Study of Things", c["title"])
	assert.Equal(t, "Example Press", c["publisher"])

	// CrossRef outranks the publisher, so its author list wins whole.
	assert.Equal(t, []any{"Lovelace, Ada", "Consortium, The"}, c["authors"])

	// Keywords merge across sources.
	assert.Equal(t, []any{"Testing", "engines", "computing"}, c["keywords"])

	var urls []string
	links, err := citation.Pick(c, citation.LinksField)
	require.NoError(t, err)
	for _, l := range links.Items() {
		m, ok := l.Map()
		require.True(t, ok)
		urls = append(urls, m["url"].(string))
	}
	assert.ElementsMatch(t, []string{
		"http://dx.doi.org/10.1234/abc",
		"https://pubmed.ncbi.nlm.nih.gov/23193287/",
		"https://www.ncbi.nlm.nih.gov/pmc/articles/PMC3531190/",
		"https://repo.example/abc.pdf",
		"https://publisher.example/pdf/abc.pdf",
	}, urls)

	assert.Len(t, citation.Sources(c), len(res.Fragments))
}

func TestAll_SourceFailureIsIsolated(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	override(t, &crossrefAPIBase, ts.URL)
	override(t, &pmcIDConvBase, ts.URL+"/")
	override(t, &doiResolverBase, ts.URL+"/")
	override(t, &openAlexAPIBase, ts.URL+"/")

	p := resolve.New(resolve.NewRegistry(All(testConfig(ts))...))
	seed := citation.Citation{"identifiers": map[string]any{"doi": "10.1234/abc"}, "title": "Seed Title"}

	res, err := p.Resolve(context.Background(), []citation.Citation{seed}, nil)
	require.NoError(t, err)

	errs := res.Errors()
	require.Len(t, errs, 4)
	for _, e := range errs {
		assert.Equal(t, resolve.CategoryServer, e.Category)
	}
	assert.Equal(t, "Seed Title", res.Citation["title"])

	links, err := citation.Pick(res.Citation, citation.LinksField)
	require.NoError(t, err)
	require.Len(t, links.Items(), 1)
}

func TestDOILink_FollowsPipelineSourceOrder(t *testing.T) {
	frags := []citation.Citation{
		{"identifiers": map[string]any{"doi": "10.1/A"}, "provenance": map[string]any{"whence": "crossref"}},
		{"identifiers": map[string]any{"doi": "10.1/B"}, "provenance": map[string]any{"whence": "pubmed"}},
	}
	sel := citation.NewSelector(citation.SourceOrder{"pubmed", "crossref"}, citation.DefaultMergeable...)
	p := resolve.New(resolve.NewRegistry(&DOILink{}), resolve.WithSelector(sel))

	res, err := p.Resolve(context.Background(), frags, nil)
	require.NoError(t, err)

	doi, err := citation.Pick(res.Citation, DOIKeyspec)
	require.NoError(t, err)
	assert.Equal(t, "10.1/B", doi.Value)

	links, err := citation.Pick(res.Citation, citation.LinksField)
	require.NoError(t, err)
	require.Len(t, links.Items(), 1)
	m, ok := links.Items()[0].Map()
	require.True(t, ok)
	assert.Equal(t, "http://dx.doi.org/10.1/B", m["url"])
}
