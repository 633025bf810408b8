// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/go-cmp/cmp"
)

// Sourced is a value together with the citation and keyspec it was read
// from. Formatting, JSON encoding, and Equal all behave as for the bare
// value; Refspec names its origin.
//
// A Sourced produced by merging or collecting across fragments has no
// single origin. Its Value is a []any of the bare values and Items returns
// the individually sourced entries.
type Sourced struct {
	Value    any
	Citation Citation
	Keyspec  string

	items []Sourced
}

// Wrap attaches provenance to value.
func Wrap(value any, c Citation, keyspec string) Sourced {
	if s, ok := value.(Sourced); ok {
		value = s.Value
	}
	return Sourced{Value: value, Citation: c, Keyspec: Normalise(keyspec)}
}

// HasProvenance reports whether s knows which citation it came from.
func (s Sourced) HasProvenance() bool {
	return s.Citation != nil && s.Keyspec != ""
}

// HasProvenance reports whether v is a Sourced value with a known origin.
func HasProvenance(v any) bool {
	switch s := v.(type) {
	case Sourced:
		return s.HasProvenance()
	case *Sourced:
		return s != nil && s.HasProvenance()
	default:
		return false
	}
}

// Refspec returns the refspec naming this value, assigning the origin
// citation a key if it has none. It returns "" when there is no origin.
func (s Sourced) Refspec() string {
	if !s.HasProvenance() {
		return ""
	}
	return Refspec(s.Citation, s.Keyspec)
}

// Items returns the list entries of s, each sourced at "<keyspec>/<i>".
// It returns nil when s does not hold a list.
func (s Sourced) Items() []Sourced {
	if s.items != nil {
		return s.items
	}
	list, ok := asList(s.Value)
	if !ok {
		return nil
	}
	items := make([]Sourced, len(list))
	for i, v := range list {
		items[i] = Sourced{Value: v, Citation: s.Citation, Keyspec: s.Keyspec + pathDelimiter + strconv.Itoa(i)}
	}
	return items
}

// Str returns the value as a string if it is one.
func (s Sourced) Str() (string, bool) {
	str, ok := s.Value.(string)
	return str, ok
}

// Map returns the value as a mapping if it is one.
func (s Sourced) Map() (map[string]any, bool) {
	return asMap(s.Value)
}

// Equal compares the bare values of s and other, unwrapping other if it
// is itself Sourced.
func (s Sourced) Equal(other any) bool {
	return cmp.Equal(s.Value, Unwrap(other))
}

func (s Sourced) String() string {
	return fmt.Sprint(s.Value)
}

// Format passes every verb through to the bare value.
func (s Sourced) Format(f fmt.State, verb rune) {
	fmt.Fprintf(f, fmt.FormatString(f, verb), s.Value)
}

// MarshalJSON encodes the bare value.
func (s Sourced) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value)
}

// Unwrap strips provenance from v.
func Unwrap(v any) any {
	switch s := v.(type) {
	case Sourced:
		return s.Value
	case *Sourced:
		if s == nil {
			return nil
		}
		return s.Value
	default:
		return v
	}
}

func aggregate(keyspec string, items []Sourced) Sourced {
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = item.Value
	}
	return Sourced{Value: values, Keyspec: keyspec, items: items}
}
