// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import "github.com/google/go-cmp/cmp"

// LinksField holds a citation's external links.
const LinksField = "links"

// FilterLinks returns the links across fragments matching criteria whose
// originating fragment's provenance matches provenance. Links are gathered
// with the mergeable-field rule, so identical links appear once. A
// criterion with a nil value only requires the key to be present.
func FilterLinks(fragments []Citation, criteria, provenance map[string]any) []Sourced {
	return DefaultSelector.FilterLinks(fragments, criteria, provenance)
}

// HasLink reports whether any link matches the criteria.
func HasLink(fragments []Citation, criteria, provenance map[string]any) bool {
	return len(FilterLinks(fragments, criteria, provenance)) > 0
}

// HasLink is the Selector form of the package-level HasLink.
func (s *Selector) HasLink(fragments []Citation, criteria, provenance map[string]any) bool {
	return len(s.FilterLinks(fragments, criteria, provenance)) > 0
}

// FilterLinks is the Selector form of the package-level FilterLinks.
func (s *Selector) FilterLinks(fragments []Citation, criteria, provenance map[string]any) []Sourced {
	links, err := s.PickFrom(fragments, LinksField)
	if err != nil {
		return nil
	}
	items := links.Items()
	if items == nil {
		items = []Sourced{links}
	}

	var filtered []Sourced
	for _, link := range items {
		fields, ok := link.Map()
		if !ok || !matches(fields, criteria) {
			continue
		}
		if !matches(ProvenanceOf(link.Citation), provenance) {
			continue
		}
		filtered = append(filtered, link)
	}
	return filtered
}

func matches(fields, criteria map[string]any) bool {
	for key, want := range criteria {
		got, ok := fields[key]
		if !ok {
			return false
		}
		if want != nil && !cmp.Equal(Unwrap(got), Unwrap(want)) {
			return false
		}
	}
	return true
}
