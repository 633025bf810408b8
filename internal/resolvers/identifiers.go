// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// IdentifierType classifies a free-form identifier.
type IdentifierType int

const (
	TypeUnknown IdentifierType = iota
	TypeArxiv
	TypeDOI
	TypePubMed
	TypePMC
	TypeURL
)

func (t IdentifierType) String() string {
	switch t {
	case TypeArxiv:
		return SchemeArxiv
	case TypeDOI:
		return SchemeDOI
	case TypePubMed:
		return SchemePubMed
	case TypePMC:
		return SchemePMC
	case TypeURL:
		return "url"
	default:
		return "unknown"
	}
}

// arxivPattern matches new-style arXiv IDs ("2301.07041", "arXiv:2301.07041v2")
// and old-style ones ("hep-th/9901001", "math.GT/0309136").
var arxivPattern = regexp.MustCompile(`(?i)^(?:arxiv:)?(\d{4}\.\d{4,5}(?:v\d+)?|[a-z-]+(?:\.[a-z]{2})?/\d{7}(?:v\d+)?)$`)

// doiPattern matches DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// doiPrefix matches the ways a DOI is commonly written before the "10." part.
var doiPrefix = regexp.MustCompile(`(?i)^(?:doi:\s*|https?://(?:dx\.)?doi\.org/)`)

var (
	pmidPattern  = regexp.MustCompile(`(?i)^(?:pmid:?\s*)?(\d{1,9})$`)
	pmcidPattern = regexp.MustCompile(`(?i)^pmc(?:id)?:?\s*(\d+)$`)
)

// Classify determines the identifier type and returns its canonical form.
// Bare numbers are taken to be PubMed IDs.
func Classify(identifier string) (IdentifierType, string) {
	identifier = strings.TrimSpace(identifier)

	if doi, ok := CanonicalDOI(identifier); ok {
		return TypeDOI, doi
	}
	if m := arxivPattern.FindStringSubmatch(identifier); m != nil {
		return TypeArxiv, m[1]
	}
	if m := pmcidPattern.FindStringSubmatch(identifier); m != nil {
		return TypePMC, "PMC" + m[1]
	}
	if m := pmidPattern.FindStringSubmatch(identifier); m != nil {
		return TypePubMed, m[1]
	}
	if u, err := url.Parse(identifier); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return TypeURL, identifier
	}
	return TypeUnknown, identifier
}

// CanonicalDOI strips "doi:" and resolver URL prefixes from s and reports
// whether what remains is a DOI.
func CanonicalDOI(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = doiPrefix.ReplaceAllString(s, "")
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	s = strings.TrimRight(s, ".,;")
	return s, doiPattern.MatchString(s)
}

// escapeDOI escapes each segment of doi for use in a URL path, keeping the
// slashes that separate prefix and suffix.
func escapeDOI(doi string) string {
	segments := strings.Split(doi, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// canonical rewrites an identifier of the given scheme, reporting whether
// the input was recognised.
func canonical(scheme, value string) (string, bool) {
	value = strings.TrimSpace(value)
	switch scheme {
	case SchemeDOI:
		return CanonicalDOI(value)
	case SchemeArxiv:
		if m := arxivPattern.FindStringSubmatch(value); m != nil {
			return m[1], true
		}
	case SchemePubMed:
		if m := pmidPattern.FindStringSubmatch(value); m != nil {
			return m[1], true
		}
	case SchemePMC:
		if m := pmcidPattern.FindStringSubmatch(value); m != nil {
			return "PMC" + m[1], true
		}
		if m := pmidPattern.FindStringSubmatch(value); m != nil {
			return "PMC" + m[1], true
		}
	}
	return value, false
}

// Normaliser rewrites identifiers supplied by the caller into canonical
// form ("doi:10.1/X" becomes "10.1/X", "PMC 123" becomes "PMC123"). It
// runs before every other resolver and only looks at fragments without a
// source, which are the caller's seeds.
type Normaliser struct{}

func (Normaliser) Purpose() resolve.Purpose { return resolve.Identify }
func (Normaliser) Weight() int              { return -9200 }

// Provenance marks canonicalised identifiers as the caller's own values.
func (Normaliser) Provenance() map[string]any {
	return map[string]any{citation.WhenceKey: "manual"}
}

func (Normaliser) Resolve(_ context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	out := citation.Citation{}
	ids := map[string]any{}
	for _, frag := range fragments {
		if citation.Whence(frag) != "" || citation.IsError(frag) {
			continue
		}
		for _, scheme := range []string{SchemeDOI, SchemeArxiv, SchemePubMed, SchemePMC} {
			keyspec := IdentifiersField + "/" + scheme
			v, err := citation.Pick(frag, keyspec)
			if err != nil {
				continue
			}
			raw, ok := v.Str()
			if !ok {
				continue
			}
			if _, done := ids[scheme]; done {
				continue
			}
			fixed, ok := canonical(scheme, raw)
			if !ok || fixed == raw {
				continue
			}
			ids[scheme] = fixed
			citation.LookupFrom([]citation.Citation{frag}, keyspec, citation.WithRecordIn(out))
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	out[IdentifiersField] = ids
	return []citation.Citation{out}, nil
}
