// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"sort"

	"github.com/google/go-cmp/cmp"
)

// Ranking scores provenance sources. Higher ranks are preferred; sources a
// ranking does not recognise, and fragments without provenance, rank -1.
type Ranking interface {
	Rank(whence string) int
}

// SourceOrder ranks sources by position, most preferred first.
type SourceOrder []string

// Rank implements Ranking.
func (o SourceOrder) Rank(whence string) int {
	for i, s := range o {
		if s == whence {
			return len(o) - i
		}
	}
	return -1
}

// RankFunc adapts a function to Ranking.
type RankFunc func(whence string) int

// Rank implements Ranking.
func (f RankFunc) Rank(whence string) int { return f(whence) }

// DefaultOrder is the source precedence used when none is configured.
var DefaultOrder = SourceOrder{
	"manual",
	"document",
	"crossref",
	"pubmed",
	"pmc",
	"arxiv",
	"openalex",
	"publisher",
}

// DefaultMergeable lists the fields whose list values are unioned across
// fragments instead of replaced.
var DefaultMergeable = []string{"keywords", "links"}

// Selector chooses field values across fragments by source precedence.
type Selector struct {
	order     Ranking
	mergeable map[string]bool
}

// NewSelector returns a Selector ranking sources with order and merging
// the named list fields. A nil order ranks every source equally.
func NewSelector(order Ranking, mergeable ...string) *Selector {
	if order == nil {
		order = SourceOrder(nil)
	}
	s := &Selector{order: order, mergeable: make(map[string]bool, len(mergeable))}
	for _, field := range mergeable {
		s.mergeable[Normalise(field)] = true
	}
	return s
}

// DefaultSelector uses DefaultOrder and DefaultMergeable.
var DefaultSelector = NewSelector(DefaultOrder, DefaultMergeable...)

// IsMergeable reports whether the field at keyspec is merged across
// fragments.
func (s *Selector) IsMergeable(keyspec string) bool {
	return s.mergeable[Normalise(keyspec)]
}

// PickOption configures a single PickFrom call.
type PickOption func(*pickConfig)

type pickConfig struct {
	recordIn Citation
}

// WithRecordIn appends the refspec of every value PickFrom returns to
// c's provenance/input list. Resolvers use it to declare their inputs.
func WithRecordIn(c Citation) PickOption {
	return func(pc *pickConfig) { pc.recordIn = c }
}

// PickFrom selects the value at keyspec from fragments using
// DefaultSelector.
func PickFrom(fragments []Citation, keyspec string, opts ...PickOption) (Sourced, error) {
	return DefaultSelector.PickFrom(fragments, keyspec, opts...)
}

// LookupFrom is PickFrom with a found flag in place of an error.
func LookupFrom(fragments []Citation, keyspec string, opts ...PickOption) (Sourced, bool) {
	v, err := DefaultSelector.PickFrom(fragments, keyspec, opts...)
	return v, err == nil
}

// LookupFrom is PickFrom with a found flag in place of an error.
func (s *Selector) LookupFrom(fragments []Citation, keyspec string, opts ...PickOption) (Sourced, bool) {
	v, err := s.PickFrom(fragments, keyspec, opts...)
	return v, err == nil
}

// PickFrom selects the value at keyspec across fragments.
//
// Fragments are considered in descending source rank, ties keeping input
// order. Without a filter, the first fragment holding the path wins;
// mergeable fields instead accumulate list items from every fragment,
// skipping items equal to one already taken. A ":*" or ":source*" filter
// collects one value per qualifying fragment. The returned value for
// merged or collected results has no single origin; its Items carry one.
//
// When nothing qualifies a *KeyError naming the keyspec is returned.
func (s *Selector) PickFrom(fragments []Citation, keyspec string, opts ...PickOption) (Sourced, error) {
	ks, err := Parse(keyspec)
	if err != nil {
		return Sourced{}, err
	}
	var pc pickConfig
	for _, opt := range opts {
		opt(&pc)
	}

	path := ks.PathString()
	mergeable := s.mergeable[path]
	filterRank := s.order.Rank(ks.Filter.Whence)

	var collected, merged []Sourced
	for _, frag := range s.sorted(fragments) {
		if !s.qualifies(frag, ks.Filter, filterRank) {
			continue
		}
		v, err := ks.Pick(frag)
		if err != nil {
			continue
		}
		switch {
		case ks.Filter.Collects():
			collected = append(collected, v)
		case mergeable:
			items := v.Items()
			if items == nil {
				items = []Sourced{v}
			}
			for _, item := range items {
				if containsEqual(merged, item) {
					continue
				}
				pc.record(item)
				merged = append(merged, item)
			}
		default:
			pc.record(v)
			return v, nil
		}
	}

	if len(collected) > 0 {
		return aggregate(path, collected), nil
	}
	if len(merged) > 0 {
		return aggregate(path, merged), nil
	}
	return Sourced{}, &KeyError{Path: ks.String()}
}

func (s *Selector) qualifies(frag Citation, f Filter, filterRank int) bool {
	switch f.Mode {
	case FilterAny:
		return Whence(frag) != ""
	case FilterExact:
		return Whence(frag) == f.Whence
	case FilterFrom:
		w := Whence(frag)
		return w == f.Whence || s.order.Rank(w) < filterRank
	default:
		return true
	}
}

// sorted returns a copy of fragments in descending rank order.
func (s *Selector) sorted(fragments []Citation) []Citation {
	type ranked struct {
		c    Citation
		rank int
	}
	rs := make([]ranked, len(fragments))
	for i, c := range fragments {
		rs[i] = ranked{c: c, rank: s.order.Rank(Whence(c))}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].rank > rs[j].rank })
	out := make([]Citation, len(rs))
	for i, r := range rs {
		out[i] = r.c
	}
	return out
}

func (pc *pickConfig) record(v Sourced) {
	if pc.recordIn == nil || !v.HasProvenance() {
		return
	}
	spec := v.Refspec()
	var inputs []any
	if existing, ok := Lookup(pc.recordIn, InputKeyspec); ok {
		inputs, _ = asList(existing.Value)
	}
	for _, in := range inputs {
		if in == spec {
			return
		}
	}
	// A provenance field that is not a mapping leaves the input unrecorded.
	_ = SetByKeyspec(pc.recordIn, InputKeyspec, append(inputs, spec))
}

func containsEqual(items []Sourced, v Sourced) bool {
	for _, item := range items {
		if cmp.Equal(item.Value, v.Value) {
			return true
		}
	}
	return false
}
