// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package format renders flattened citations for output: JSON, CSL-YAML,
// and a plain-text summary.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// Format names an output renderer.
type Format string

const (
	JSON    Format = "json"
	CSLYAML Format = "csl"
	Summary Format = "summary"
)

// Parse returns the Format named by s.
func Parse(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSLYAML, Summary:
		return f, nil
	case "":
		return JSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json, csl, or summary)", s)
	}
}

// Write renders c in format f.
func Write(w io.Writer, f Format, c citation.Citation) error {
	switch f {
	case JSON, "":
		return WriteJSON(w, c, false)
	case CSLYAML:
		return CSL(w, c)
	case Summary:
		return WriteSummary(w, c)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// WriteJSON writes c as indented JSON. Unless withProvenance is set the
// provenance field (sources and refs) is left out.
func WriteJSON(w io.Writer, c citation.Citation, withProvenance bool) error {
	out := c
	if !withProvenance {
		out = make(citation.Citation, len(c))
		for k, v := range c {
			if k != citation.ProvenanceField {
				out[k] = v
			}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding citation: %w", err)
	}
	return nil
}

// WriteSummary writes a short human-readable description of c.
func WriteSummary(w io.Writer, c citation.Citation) error {
	var b strings.Builder
	title := str(c, "title")
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "%s\n", title)

	if authors := strs(c, "authors"); len(authors) > 0 {
		fmt.Fprintf(&b, "  %s\n", strings.Join(authors, "; "))
	}

	var venue []string
	for _, field := range []string{"publication-title", "year"} {
		if v := str(c, field); v != "" {
			venue = append(venue, v)
		}
	}
	if len(venue) > 0 {
		fmt.Fprintf(&b, "  %s\n", strings.Join(venue, ", "))
	}

	for _, scheme := range []string{"doi", "arxiv", "pubmed", "pmc", "openalex"} {
		if v := str(c, "identifiers/"+scheme); v != "" {
			fmt.Fprintf(&b, "  %-9s %s\n", scheme+":", v)
		}
	}

	links, _ := citation.Lookup(c, citation.LinksField)
	for _, l := range links.Items() {
		m, ok := l.Map()
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "  link:     %v", m["url"])
		if mime, _ := m["mime"].(string); mime != "" {
			fmt.Fprintf(&b, " (%s)", mime)
		}
		b.WriteString("\n")
	}

	if n := len(citation.Sources(c)); n > 0 {
		fmt.Fprintf(&b, "  sources:  %d fragments\n", n)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteErrors lists resolver failures, one per line.
func WriteErrors(w io.Writer, errs []resolve.ResolverError) error {
	for _, e := range errs {
		if _, err := fmt.Fprintf(w, "warning: %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

func str(c citation.Citation, keyspec string) string {
	v, ok := citation.Lookup(c, keyspec)
	if !ok || v.Value == nil {
		return ""
	}
	return strings.TrimSpace(v.String())
}

func strs(c citation.Citation, keyspec string) []string {
	v, ok := citation.Lookup(c, keyspec)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range v.Items() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}
