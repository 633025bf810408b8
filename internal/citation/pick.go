// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Pick walks c along keyspec and returns the value found there. Map
// segments look up keys; list segments must be in-range integer indices.
// Any provenance filter on keyspec is ignored. A *KeyError naming the
// deepest segment reached is returned when the path cannot be walked.
func Pick(c Citation, keyspec string) (Sourced, error) {
	ks, err := Parse(keyspec)
	if err != nil {
		return Sourced{}, err
	}
	return ks.Pick(c)
}

// Lookup is Pick with a found flag in place of an error.
func Lookup(c Citation, keyspec string) (Sourced, bool) {
	v, err := Pick(c, keyspec)
	return v, err == nil
}

// Pick walks c along the keyspec's path.
func (k Keyspec) Pick(c Citation) (Sourced, error) {
	var cur any = map[string]any(c)
	seen := make([]string, 0, len(k.Path))
	for _, seg := range k.Path {
		next, ok := step(cur, seg)
		if !ok {
			return Sourced{}, &KeyError{Path: strings.Join(append(seen, seg.Key), pathDelimiter)}
		}
		seen = append(seen, seg.Key)
		cur = next
	}
	return Sourced{Value: cur, Citation: c, Keyspec: k.PathString()}, nil
}

func step(cur any, seg Segment) (any, bool) {
	if m, ok := asMap(cur); ok {
		v, ok := m[seg.Key]
		return v, ok
	}
	if l, ok := asList(cur); ok {
		if !seg.IsIndex || seg.Index >= len(l) {
			return nil, false
		}
		return l[seg.Index], true
	}
	return nil, false
}

// SetByKeyspec sets value at keyspec inside c, creating intermediate
// mappings as needed. It fails if an intermediate value is not a mapping.
func SetByKeyspec(c Citation, keyspec string, value any) error {
	ks, err := Parse(keyspec)
	if err != nil {
		return err
	}
	cur := map[string]any(c)
	for i, seg := range ks.Path[:len(ks.Path)-1] {
		next, ok := cur[seg.Key]
		if !ok || next == nil {
			m := map[string]any{}
			cur[seg.Key] = m
			cur = m
			continue
		}
		m, ok := asMap(next)
		if !ok {
			return fmt.Errorf("setting %s: %s is a %T, not a mapping",
				ks.PathString(), joinKeys(ks.Path[:i+1]), next)
		}
		if _, direct := next.(map[string]any); !direct {
			if _, direct = next.(Citation); !direct {
				// asMap copied a foreign map type; store the copy so writes stick.
				cur[seg.Key] = m
			}
		}
		cur = m
	}
	cur[ks.Path[len(ks.Path)-1].Key] = value
	return nil
}

func joinKeys(path []Segment) string {
	keys := make([]string, len(path))
	for i, seg := range path {
		keys[i] = seg.Key
	}
	return strings.Join(keys, pathDelimiter)
}

// InspectKeyspecs lists the leaf keyspecs of c in sorted order, descending
// into nested mappings but not lists. The provenance field is skipped
// unless includeProvenance is set.
func InspectKeyspecs(c Citation, includeProvenance bool) []string {
	var specs []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for key, value := range m {
			if prefix == "" && !includeProvenance && key == ProvenanceField {
				continue
			}
			spec := key
			if prefix != "" {
				spec = prefix + pathDelimiter + key
			}
			if nested, ok := asMap(value); ok && len(nested) > 0 {
				walk(spec, nested)
				continue
			}
			specs = append(specs, spec)
		}
	}
	walk("", c)
	sort.Strings(specs)
	return specs
}

// Merge copies every leaf of update, provenance included, into dst.
func Merge(dst, update Citation) error {
	for _, spec := range InspectKeyspecs(update, true) {
		v, err := Pick(update, spec)
		if err != nil {
			return err
		}
		if err := SetByKeyspec(dst, spec, clone(v.Value)); err != nil {
			return err
		}
	}
	return nil
}

// ProvenanceOf returns c's provenance mapping, or nil if it has none.
func ProvenanceOf(c Citation) map[string]any {
	m, _ := asMap(c[ProvenanceField])
	return m
}

// Whence returns the provenance source of c, or "" if it has none.
func Whence(c Citation) string {
	return stringAt(c, WhenceKeyspec)
}

// Plugin returns the name of the resolver that produced c, or "".
func Plugin(c Citation) string {
	return stringAt(c, PluginKeyspec)
}

// IsError reports whether c is an error fragment.
func IsError(c Citation) bool {
	_, ok := c[ErrorField]
	return ok
}

func stringAt(c Citation, keyspec string) string {
	v, ok := Lookup(c, keyspec)
	if !ok {
		return ""
	}
	s, _ := v.Str()
	return s
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Citation:
		return m, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case string, []byte, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	l := make([]any, rv.Len())
	for i := range l {
		l[i] = rv.Index(i).Interface()
	}
	return l, true
}

// Clone returns a deep copy of c.
func Clone(c Citation) Citation {
	if c == nil {
		return nil
	}
	return Citation(cloneMap(c))
}

// clone deep-copies mappings and lists so that stored values never alias
// a source fragment.
func clone(v any) any {
	switch t := v.(type) {
	case Citation:
		return cloneMap(t)
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}
