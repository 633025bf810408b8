// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package format

import (
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeflow/internal/citation"
)

// CSLItem represents a bibliographic entry in CSL (Citation Style Language)
// format. The field names and structure follow the CSL-JSON/CSL-YAML schema
// so that output is consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id" json:"id"`
	Type           string    `yaml:"type" json:"type"`
	Title          string    `yaml:"title" json:"title"`
	Author         []CSLName `yaml:"author,omitempty" json:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty" json:"container-title,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty" json:"publisher,omitempty"`
	Volume         string    `yaml:"volume,omitempty" json:"volume,omitempty"`
	Issue          string    `yaml:"issue,omitempty" json:"issue,omitempty"`
	Page           string    `yaml:"page,omitempty" json:"page,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Keyword        string    `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty" json:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty" json:"DOI,omitempty"`
	PMID           string    `yaml:"PMID,omitempty" json:"PMID,omitempty"`
	PMCID          string    `yaml:"PMCID,omitempty" json:"PMCID,omitempty"`
	URL            string    `yaml:"URL,omitempty" json:"URL,omitempty"`
}

// CSLName represents a person's name in CSL format.
type CSLName struct {
	Family  string `yaml:"family,omitempty" json:"family,omitempty"`
	Given   string `yaml:"given,omitempty" json:"given,omitempty"`
	Literal string `yaml:"literal,omitempty" json:"literal,omitempty"`
}

// CSLDate represents a date in CSL format using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts" json:"date-parts"`
}

// CSL writes flattened citations as a CSL-YAML list to w.
func CSL(w io.Writer, citations ...citation.Citation) error {
	items := make([]CSLItem, len(citations))
	for i, c := range citations {
		items[i] = ToCSLItem(c)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// ToCSLItem converts a flattened citation to a CSLItem.
func ToCSLItem(c citation.Citation) CSLItem {
	item := CSLItem{
		Type:           "article-journal",
		Title:          str(c, "title"),
		ContainerTitle: str(c, "publication-title"),
		Publisher:      str(c, "publisher"),
		Volume:         str(c, "volume"),
		Issue:          str(c, "issue"),
		Page:           str(c, "pages"),
		Abstract:       str(c, "abstract"),
		Keyword:        strings.Join(strs(c, "keywords"), ", "),
		DOI:            str(c, "identifiers/doi"),
		PMID:           str(c, "identifiers/pubmed"),
		PMCID:          str(c, "identifiers/pmc"),
	}

	for _, a := range strs(c, "authors") {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	if y, err := strconv.Atoi(str(c, "year")); err == nil && y > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{y}}}
	}

	if links := citation.FilterLinks([]citation.Citation{c}, map[string]any{"type": "article"}, nil); len(links) > 0 {
		if m, ok := links[0].Map(); ok {
			item.URL, _ = m["url"].(string)
		}
	}

	switch {
	case item.DOI != "":
		item.ID = item.DOI
	case str(c, "identifiers/arxiv") != "":
		item.ID = "arXiv:" + str(c, "identifiers/arxiv")
		item.Type = "article"
	default:
		item.ID = citeKey(item)
	}
	return item
}

// parseAuthorName splits an author string into CSL family/given parts.
// "Family, Given" is split on the comma; otherwise everything before the
// last space is given and the last token is family. Single-token names use
// the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		given = strings.TrimSpace(given)
		if given == "" {
			return CSLName{Literal: strings.TrimSpace(family)}
		}
		return CSLName{Family: strings.TrimSpace(family), Given: given}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}

// citeKey builds a fallback identifier from the first author and year.
func citeKey(item CSLItem) string {
	var b strings.Builder
	if len(item.Author) > 0 {
		name := item.Author[0].Family
		if name == "" {
			name = item.Author[0].Literal
		}
		b.WriteString(strings.ToLower(strings.Join(strings.Fields(name), "")))
	}
	if item.Issued != nil {
		b.WriteString(strconv.Itoa(item.Issued.DateParts[0][0]))
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
