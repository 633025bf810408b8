// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"sort"
	"strings"
)

// Flatten merges fragments into one citation using DefaultSelector.
func Flatten(fragments []Citation) Citation {
	return DefaultSelector.Flatten(fragments)
}

// Flatten merges fragments into one best-value citation.
//
// Every leaf keyspec present in any data fragment is selected with
// PickFrom and stored in the result. The result's provenance/sources holds
// fragments unmodified and provenance/refs one refspec per selected value
// (one per item for mergeable lists). Error fragments and the key field
// contribute no values. Flattening the same fragments again yields the
// same result.
//
// When one fragment holds a scalar where another holds a mapping (say
// identifiers: "10.1/x" next to identifiers: {doi: ...}), the mapping's
// leaves are kept and the scalar is not selected, since it has no path
// under which it could sit beside them.
func (s *Selector) Flatten(fragments []Citation) Citation {
	sources := make([]Citation, len(fragments))
	copy(sources, fragments)
	refs := []string{}

	candidates := make([]Citation, 0, len(fragments))
	seen := map[string]bool{}
	var keyspecs []string
	for _, frag := range fragments {
		if IsError(frag) {
			continue
		}
		candidates = append(candidates, frag)
		for _, spec := range InspectKeyspecs(frag, false) {
			if spec == KeyField || seen[spec] {
				continue
			}
			seen[spec] = true
			keyspecs = append(keyspecs, spec)
		}
	}
	sort.Strings(keyspecs)
	keyspecs = dropShadowed(keyspecs)

	result := Citation{}
	for _, spec := range keyspecs {
		v, err := s.PickFrom(candidates, spec)
		if err != nil || v.Value == nil {
			continue
		}
		if err := SetByKeyspec(result, spec, clone(v.Value)); err != nil {
			// The path crosses a value that is not a mapping.
			continue
		}
		switch {
		case v.HasProvenance():
			refs = append(refs, v.Refspec())
		case s.IsMergeable(spec):
			for _, item := range v.Items() {
				if item.HasProvenance() {
					refs = append(refs, item.Refspec())
				}
			}
		}
	}

	result[ProvenanceField] = map[string]any{
		SourcesKey: sources,
		RefsKey:    refs,
	}
	return result
}

// dropShadowed removes keyspecs that are a strict path prefix of another
// keyspec. keyspecs must be sorted.
func dropShadowed(keyspecs []string) []string {
	out := make([]string, 0, len(keyspecs))
	for _, spec := range keyspecs {
		prefix := spec + pathDelimiter
		if i := sort.SearchStrings(keyspecs, prefix); i < len(keyspecs) && strings.HasPrefix(keyspecs[i], prefix) {
			continue
		}
		out = append(out, spec)
	}
	return out
}

// Sources returns the fragments a flattened citation was built from.
func Sources(flattened Citation) []Citation {
	v, ok := Lookup(flattened, SourcesKeyspec)
	if !ok {
		return nil
	}
	if sources, ok := v.Value.([]Citation); ok {
		return sources
	}
	list, _ := asList(v.Value)
	out := make([]Citation, 0, len(list))
	for _, item := range list {
		if m, ok := asMap(item); ok {
			out = append(out, Citation(m))
		}
	}
	return out
}

// Refs returns the refspecs recorded by Flatten.
func Refs(flattened Citation) []string {
	v, ok := Lookup(flattened, RefsKeyspec)
	if !ok {
		return nil
	}
	if refs, ok := v.Value.([]string); ok {
		return refs
	}
	list, _ := asList(v.Value)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
