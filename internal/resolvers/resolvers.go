// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolvers holds the metadata sources plugged into the resolution
// pipeline: CrossRef, the NCBI ID converter, arXiv, OpenAlex, publisher
// landing pages, and resolvers working from the document text itself.
//
// Every resolver returns nil when its preconditions are not met, and
// declares the values it consulted in provenance/input.
package resolvers

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/httputil"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// Citation fields written by resolvers.
const (
	TitleField            = "title"
	AuthorsField          = "authors"
	YearField             = "year"
	AbstractField         = "abstract"
	PublicationTitleField = "publication-title"
	PublisherField        = "publisher"
	VolumeField           = "volume"
	IssueField            = "issue"
	PagesField            = "pages"
	KeywordsField         = "keywords"
	IdentifiersField      = "identifiers"
)

// Identifier schemes under the identifiers field.
const (
	SchemeDOI      = "doi"
	SchemeArxiv    = "arxiv"
	SchemePubMed   = "pubmed"
	SchemePMC      = "pmc"
	SchemeOpenAlex = "openalex"
)

// Keyspecs of the identifiers resolvers consult.
const (
	DOIKeyspec    = IdentifiersField + "/" + SchemeDOI
	ArxivKeyspec  = IdentifiersField + "/" + SchemeArxiv
	PubMedKeyspec = IdentifiersField + "/" + SchemePubMed
	PMCKeyspec    = IdentifiersField + "/" + SchemePMC
)

// Link types and mime types.
const (
	LinkArticle  = "article"
	LinkAbstract = "abstract"
	MimeHTML     = "text/html"
	MimePDF      = "application/pdf"
)

// Config carries what the network resolvers need.
type Config struct {
	// Client performs every HTTP request. A default client is used if nil.
	Client *httputil.Client
	// Email is sent to CrossRef, OpenAlex, and NCBI to join their polite pools.
	Email string
	// NCBIAPIKey raises the NCBI rate limit when set.
	NCBIAPIKey string
	// Logger receives the Logger resolver's output.
	Logger *zap.Logger
}

func (c Config) client() *httputil.Client {
	if c.Client != nil {
		return c.Client
	}
	return httputil.NewClient()
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// All returns every resolver in this package, configured with cfg.
func All(cfg Config) []resolve.Resolver {
	client := cfg.client()
	cfg.Client = client
	return []resolve.Resolver{
		&Normaliser{},
		&DocumentDOI{},
		NewCrossRefTitle(cfg),
		&CrossRef{cfg: cfg},
		&PubMedIDs{cfg: cfg},
		&Arxiv{cfg: cfg},
		&Publisher{cfg: cfg},
		&DOILink{},
		&OpenAlex{cfg: cfg},
		&PubMedLinks{},
		&Logger{log: cfg.logger()},
	}
}

// lookup selects a string value from fragments with the selector carried
// by ctx, recording it as an input of out when found.
func lookup(ctx context.Context, fragments []citation.Citation, keyspec string, out citation.Citation) (string, bool) {
	v, ok := citation.SelectorFrom(ctx).LookupFrom(fragments, keyspec, citation.WithRecordIn(out))
	if !ok {
		return "", false
	}
	s, ok := v.Str()
	return s, ok && s != ""
}

// has reports whether any fragment carries a value at keyspec.
func has(ctx context.Context, fragments []citation.Citation, keyspec string) bool {
	_, ok := citation.SelectorFrom(ctx).LookupFrom(fragments, keyspec)
	return ok
}

func link(url, mime, typ, title string) map[string]any {
	return map[string]any{
		"url":   url,
		"mime":  mime,
		"type":  typ,
		"title": title,
	}
}

// setIfNotEmpty stores s under key unless it is blank.
func setIfNotEmpty(m map[string]any, key, s string) {
	if s != "" {
		m[key] = s
	}
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
