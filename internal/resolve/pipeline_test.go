// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/citeflow/internal/citation"
)

// fakeResolver is a configurable Resolver for pipeline tests.
type fakeResolver struct {
	name    string
	purpose Purpose
	weight  int
	prov    map[string]any
	fn      func(ctx context.Context, fragments []citation.Citation, doc Document) ([]citation.Citation, error)

	calls atomic.Int32
}

func (f *fakeResolver) Name() string               { return f.name }
func (f *fakeResolver) Purpose() Purpose           { return f.purpose }
func (f *fakeResolver) Weight() int                { return f.weight }
func (f *fakeResolver) Provenance() map[string]any { return f.prov }

func (f *fakeResolver) Resolve(ctx context.Context, fragments []citation.Citation, doc Document) ([]citation.Citation, error) {
	f.calls.Add(1)
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(ctx, fragments, doc)
}

func returns(frags ...citation.Citation) func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
	return func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
		return frags, nil
	}
}

var fixedClock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestPipeline_EndToEnd(t *testing.T) {
	byTitle := &fakeResolver{
		name: "byTitle", purpose: Identify, weight: 0,
		fn: func(_ context.Context, frags []citation.Citation, _ Document) ([]citation.Citation, error) {
			if _, ok := citation.LookupFrom(frags, "identifiers/title"); !ok {
				return nil, nil
			}
			return []citation.Citation{{
				"identifiers": map[string]any{"doi": "10.1/xyz"},
				"provenance":  map[string]any{"whence": "crossref"},
			}}, nil
		},
	}
	doiLink := &fakeResolver{
		name: "doiLink", purpose: Dereference, weight: 100,
		fn: func(_ context.Context, frags []citation.Citation, _ Document) ([]citation.Citation, error) {
			doi, ok := citation.LookupFrom(frags, "identifiers/doi")
			if !ok {
				return nil, nil
			}
			return []citation.Citation{{
				"links": []any{map[string]any{
					"url":  "http://dx.doi.org/" + doi.String(),
					"type": "article",
				}},
				"provenance": map[string]any{"whence": "crossref"},
			}}, nil
		},
	}

	p := New(NewRegistry(doiLink, byTitle))
	seed := citation.Citation{"identifiers": map[string]any{"title": "Example Paper"}}

	res, err := p.Resolve(context.Background(), []citation.Citation{seed}, nil)
	require.NoError(t, err)

	doi, err := citation.Pick(res.Citation, "identifiers/doi")
	require.NoError(t, err)
	assert.Equal(t, "10.1/xyz", doi.Value)

	title, err := citation.Pick(res.Citation, "identifiers/title")
	require.NoError(t, err)
	assert.Equal(t, "Example Paper", title.Value)

	links, err := citation.Pick(res.Citation, "links")
	require.NoError(t, err)
	require.Len(t, links.Items(), 1)
	assert.Equal(t, "http://dx.doi.org/10.1/xyz", links.Items()[0].Value.(map[string]any)["url"])

	assert.Len(t, res.Fragments, 3)
	assert.Empty(t, res.Errors())
	assert.NotContains(t, seed, citation.KeyField, "seed must not be modified")
}

func TestPipeline_SkipsResolverThatAlreadyRan(t *testing.T) {
	r := &fakeResolver{
		name: "X", purpose: Identify,
		fn: returns(citation.Citation{"title": "again"}),
	}
	p := New(NewRegistry(r))
	seed := citation.Citation{
		"title":      "first",
		"provenance": map[string]any{"plugin": "X"},
	}

	res, err := p.Identify(context.Background(), []citation.Citation{seed}, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(0), r.calls.Load())
	assert.Len(t, res.Fragments, 1)
}

func TestPipeline_ResolverRunsOncePerInvocation(t *testing.T) {
	r := &fakeResolver{
		name: "once", purpose: Identify,
		fn: returns(citation.Citation{"title": "t"}),
	}
	p := New(NewRegistry(r))

	first, err := p.Identify(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, first.Fragments, 1)

	_, err = p.Identify(context.Background(), first.Fragments, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestPipeline_ErrorIsolation(t *testing.T) {
	failing := &fakeResolver{
		name: "failing", purpose: Identify, weight: 0,
		prov: map[string]any{"whence": "crossref"},
		fn: func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
			return nil, errors.New("boom")
		},
	}
	panicking := &fakeResolver{
		name: "panicking", purpose: Identify, weight: 5,
		fn: func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
			panic("nil map")
		},
	}
	sameWeight := &fakeResolver{
		name: "sameWeight", purpose: Identify, weight: 0,
		fn: returns(citation.Citation{"title": "From Sibling"}),
	}
	later := &fakeResolver{
		name: "later", purpose: Expand, weight: 0,
		fn: returns(citation.Citation{"year": 2020}),
	}

	p := New(NewRegistry(failing, panicking, sameWeight, later), WithClock(fixedClock))
	res, err := p.Resolve(context.Background(), nil, nil)
	require.NoError(t, err)

	errs := res.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "failing", errs[0].Plugin)
	assert.Equal(t, "crossref", errs[0].Whence)
	assert.Equal(t, CategoryUnknown, errs[0].Category)
	assert.Equal(t, "An unexpected error occurred", errs[0].Message)
	assert.Equal(t, "panicking", errs[1].Plugin)
	assert.Equal(t, CategoryUnknown, errs[1].Category)

	for _, frag := range res.Fragments {
		if citation.IsError(frag) {
			assert.Equal(t, "2026-03-01T12:00:00Z", citation.ProvenanceOf(frag)[citation.WhenKey])
		}
	}

	assert.Equal(t, "From Sibling", res.Citation["title"])
	assert.Equal(t, 2020, res.Citation["year"])
	assert.NotContains(t, res.Citation, citation.ErrorField)
	assert.Equal(t, int32(1), later.calls.Load())
}

func TestPipeline_WeightOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
		return func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil, nil
		}
	}

	reg := NewRegistry(
		&fakeResolver{name: "last", purpose: Identify, weight: 100000, fn: record("last")},
		&fakeResolver{name: "deref", purpose: Dereference, weight: -20000, fn: record("deref")},
		&fakeResolver{name: "middle", purpose: Identify, weight: 0, fn: record("middle")},
		&fakeResolver{name: "expand", purpose: Expand, weight: 10, fn: record("expand")},
		&fakeResolver{name: "first", purpose: Identify, weight: -9200, fn: record("first")},
	)
	_, err := New(reg).Resolve(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "middle", "last", "expand", "deref"}, order)
}

func TestPipeline_LaterWeightSeesEarlierOutput(t *testing.T) {
	var seenBySibling, seenByLater int
	a := &fakeResolver{name: "a", purpose: Identify, weight: 0, fn: returns(citation.Citation{"a": 1})}
	b := &fakeResolver{
		name: "b", purpose: Identify, weight: 0,
		fn: func(_ context.Context, frags []citation.Citation, _ Document) ([]citation.Citation, error) {
			seenBySibling = len(frags)
			return []citation.Citation{{"b": 1}}, nil
		},
	}
	c := &fakeResolver{
		name: "c", purpose: Identify, weight: 1,
		fn: func(_ context.Context, frags []citation.Citation, _ Document) ([]citation.Citation, error) {
			seenByLater = len(frags)
			return nil, nil
		},
	}

	res, err := New(NewRegistry(a, b, c), WithWorkers(1)).Identify(context.Background(), []citation.Citation{{"seed": true}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, seenBySibling)
	assert.Equal(t, 3, seenByLater)
	require.Len(t, res.Fragments, 3)
	assert.Contains(t, res.Fragments[1], "a", "batch results keep registration order")
	assert.Contains(t, res.Fragments[2], "b")
}

func TestPipeline_SameWeightRunsConcurrently(t *testing.T) {
	defer goleak.VerifyNone(t)

	var started atomic.Int32
	allStarted := make(chan struct{})
	barrier := func(ctx context.Context, _ []citation.Citation, _ Document) ([]citation.Citation, error) {
		if started.Add(1) == 2 {
			close(allStarted)
		}
		select {
		case <-allStarted:
			return []citation.Citation{{"ok": true}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	reg := NewRegistry(
		&fakeResolver{name: "one", purpose: Expand, weight: 7, fn: barrier},
		&fakeResolver{name: "two", purpose: Expand, weight: 7, fn: barrier},
	)
	res, err := New(reg, WithWorkers(2), WithTimeout(2*time.Second)).Expand(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Errors())
	assert.Len(t, res.Fragments, 2)
}

func TestPipeline_ProvenanceStamping(t *testing.T) {
	r := &fakeResolver{
		name: "stamper", purpose: Expand,
		prov: map[string]any{"whence": "crossref", "api": "works"},
		fn: returns(
			citation.Citation{"title": "Kept Whence", "provenance": map[string]any{"whence": "manual"}},
			citation.Citation{"title": "Static Whence"},
		),
	}

	res, err := New(NewRegistry(r), WithClock(fixedClock)).Expand(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Fragments, 2)

	first := citation.ProvenanceOf(res.Fragments[0])
	assert.Equal(t, "manual", first["whence"])
	assert.Equal(t, "works", first["api"])
	assert.Equal(t, "stamper", first["plugin"])
	assert.Equal(t, "2026-03-01T12:00:00Z", first["when"])

	second := citation.ProvenanceOf(res.Fragments[1])
	assert.Equal(t, "crossref", second["whence"])
	assert.NotEmpty(t, res.Fragments[1][citation.KeyField])

	// Static provenance must not be shared between fragments.
	second["api"] = "changed"
	assert.Equal(t, "works", r.prov["api"])
	assert.Equal(t, "works", first["api"])
}

func TestPipeline_ProvenanceStampingKeepsZeroValues(t *testing.T) {
	r := &fakeResolver{
		name: "zeroes", purpose: Expand,
		prov: map[string]any{"whence": "crossref", "weight": 5},
		fn: returns(citation.Citation{
			"title":      "Explicit Zeroes",
			"provenance": map[string]any{"whence": "", "weight": 0},
		}),
	}

	res, err := New(NewRegistry(r), WithClock(fixedClock)).Expand(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Fragments, 1)

	prov := citation.ProvenanceOf(res.Fragments[0])
	assert.Equal(t, "", prov["whence"])
	assert.Equal(t, 0, prov["weight"])
	assert.Equal(t, "zeroes", prov["plugin"])
	assert.Equal(t, "2026-03-01T12:00:00Z", prov["when"])
}

func TestPipeline_DiscardsProvenanceOnlyFragments(t *testing.T) {
	r := &fakeResolver{
		name: "sparse", purpose: Identify,
		fn: returns(
			citation.Citation{"provenance": map[string]any{"whence": "crossref"}},
			nil,
			citation.Citation{"title": "T"},
		),
	}
	res, err := New(NewRegistry(r)).Identify(context.Background(), nil, nil)
	require.NoError(t, err)

	require.Len(t, res.Fragments, 1)
	assert.Equal(t, "T", res.Fragments[0]["title"])
}

func TestPipeline_ResolverTimeout(t *testing.T) {
	slow := &fakeResolver{
		name: "slow", purpose: Identify,
		fn: func(ctx context.Context, _ []citation.Citation, _ Document) ([]citation.Citation, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	res, err := New(NewRegistry(slow), WithTimeout(20*time.Millisecond)).Identify(context.Background(), nil, nil)
	require.NoError(t, err)

	errs := res.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, CategoryTimeout, errs[0].Category)
}

func TestPipeline_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeResolver{
		name: "canceller", purpose: Identify,
		fn: func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
			cancel()
			return []citation.Citation{{"title": "late"}}, nil
		},
	}
	after := &fakeResolver{name: "after", purpose: Expand, fn: returns(citation.Citation{"x": 1})}

	res, err := New(NewRegistry(r, after)).Resolve(ctx, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Equal(t, int32(0), after.calls.Load())
}

func TestPipeline_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := &fakeResolver{
		name: "broken", purpose: Identify,
		fn: func(context.Context, []citation.Citation, Document) ([]citation.Citation, error) {
			return nil, errors.New("bad payload")
		},
	}

	_, err := New(NewRegistry(r), WithLogger(zap.New(core))).Identify(context.Background(), nil, nil)
	require.NoError(t, err)

	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warns, 1)
	assert.Equal(t, "resolver failed", warns[0].Message)
	fields := warns[0].ContextMap()
	assert.Equal(t, "broken", fields["plugin"])
	assert.Equal(t, "unknown", fields["category"])
	assert.NotEmpty(t, logs.FilterMessage("invoking resolver").All())
}

func TestPipeline_UnknownPurpose(t *testing.T) {
	_, err := New(nil).Resolve(context.Background(), nil, nil, Purpose("submit"))
	assert.ErrorContains(t, err, `unknown purpose "submit"`)
}

func TestPipeline_RequestedPurposesOnly(t *testing.T) {
	id := &fakeResolver{name: "id", purpose: Identify, fn: returns(citation.Citation{"a": 1})}
	deref := &fakeResolver{name: "deref", purpose: Dereference, fn: returns(citation.Citation{"b": 1})}
	ex := &fakeResolver{name: "ex", purpose: Expand, fn: returns(citation.Citation{"c": 1})}

	res, err := New(NewRegistry(id, deref, ex)).Resolve(context.Background(), nil, nil, Dereference, Identify)
	require.NoError(t, err)

	assert.Equal(t, int32(1), id.calls.Load())
	assert.Equal(t, int32(1), deref.calls.Load())
	assert.Equal(t, int32(0), ex.calls.Load())
	require.Len(t, res.Fragments, 2)
	assert.Contains(t, res.Fragments[0], "a")
}

func TestPipeline_NoResolvers(t *testing.T) {
	seed := citation.Citation{"title": "Only Seed"}
	res, err := New(NewRegistry()).Resolve(context.Background(), []citation.Citation{seed}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Only Seed", res.Citation["title"])
	assert.Len(t, citation.Sources(res.Citation), 1)
}
