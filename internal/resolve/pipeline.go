// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"time"

	"dario.cat/mergo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/citeflow/internal/citation"
)

// Defaults for a Pipeline.
const (
	DefaultTimeout = 15 * time.Second
	DefaultWorkers = 4
)

// Pipeline runs registered resolvers over a working set of fragments.
type Pipeline struct {
	registry *Registry
	log      *zap.Logger
	selector *citation.Selector
	workers  int
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithSelector sets the selection policy used to flatten the result.
func WithSelector(s *citation.Selector) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.selector = s
		}
	}
}

// WithWorkers bounds how many resolvers of equal weight run at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTimeout sets the deadline given to each resolver invocation.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClock replaces time.Now for provenance timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New returns a pipeline over the resolvers in reg.
func New(reg *Registry, opts ...Option) *Pipeline {
	if reg == nil {
		reg = NewRegistry()
	}
	p := &Pipeline{
		registry: reg,
		log:      zap.NewNop(),
		selector: citation.DefaultSelector,
		workers:  DefaultWorkers,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Citation is the flattened best-value citation.
	Citation citation.Citation
	// Fragments is the full working set: seeds, data fragments, and error
	// fragments, in the order they were added.
	Fragments []citation.Citation
}

// Errors lists the error fragments in the working set.
func (r *Result) Errors() []ResolverError {
	return Errors(r.Fragments)
}

// Resolve runs the given purposes (all of them if none are given) over
// seeds and returns the flattened result. Purposes always run in the order
// identify, expand, dereference. Seeds are copied; the caller's maps are
// not modified.
//
// Resolver failures are recorded as error fragments. An error is returned
// only for an unknown purpose or when ctx ends before the run completes.
func (p *Pipeline) Resolve(ctx context.Context, seeds []citation.Citation, doc Document, purposes ...Purpose) (*Result, error) {
	run, err := selectPurposes(purposes)
	if err != nil {
		return nil, err
	}

	fragments := make([]citation.Citation, 0, len(seeds))
	for _, seed := range seeds {
		if seed == nil {
			continue
		}
		seed = citation.Clone(seed)
		// Keys are assigned before resolvers share the working set so that
		// taking a refspec never writes to a shared fragment.
		citation.EnsureKey(seed)
		fragments = append(fragments, seed)
	}

	for _, purpose := range run {
		fragments, err = p.runPurpose(ctx, purpose, fragments, doc)
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		Citation:  p.selector.Flatten(fragments),
		Fragments: fragments,
	}, nil
}

// Identify runs only the identify purpose.
func (p *Pipeline) Identify(ctx context.Context, seeds []citation.Citation, doc Document) (*Result, error) {
	return p.Resolve(ctx, seeds, doc, Identify)
}

// Expand runs only the expand purpose.
func (p *Pipeline) Expand(ctx context.Context, seeds []citation.Citation, doc Document) (*Result, error) {
	return p.Resolve(ctx, seeds, doc, Expand)
}

// Dereference runs only the dereference purpose.
func (p *Pipeline) Dereference(ctx context.Context, seeds []citation.Citation, doc Document) (*Result, error) {
	return p.Resolve(ctx, seeds, doc, Dereference)
}

func selectPurposes(requested []Purpose) ([]Purpose, error) {
	if len(requested) == 0 {
		return Purposes, nil
	}
	want := map[Purpose]bool{}
	for _, r := range requested {
		if _, err := ParsePurpose(string(r)); err != nil {
			return nil, err
		}
		want[r] = true
	}
	var run []Purpose
	for _, p := range Purposes {
		if want[p] {
			run = append(run, p)
		}
	}
	return run, nil
}

// runPurpose runs the resolvers of one purpose in weight batches. Every
// resolver in a batch sees the working set as it stood when the batch
// started; batch results are appended in registration order.
func (p *Pipeline) runPurpose(ctx context.Context, purpose Purpose, fragments []citation.Citation, doc Document) ([]citation.Citation, error) {
	resolvers := p.registry.ForPurpose(purpose)
	p.log.Debug("running purpose",
		zap.String("purpose", string(purpose)),
		zap.Int("resolvers", len(resolvers)),
		zap.Int("fragments", len(fragments)))

	for start := 0; start < len(resolvers); {
		end := start + 1
		for end < len(resolvers) && resolvers[end].Weight() == resolvers[start].Weight() {
			end++
		}
		batch := resolvers[start:end]
		start = end

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolving %s: %w", purpose, err)
		}

		snapshot := fragments[:len(fragments):len(fragments)]
		ran := ranPlugins(snapshot)
		results := make([][]citation.Citation, len(batch))

		var g errgroup.Group
		g.SetLimit(p.workers)
		for i, res := range batch {
			name := PluginName(res)
			if ran[name] {
				p.log.Debug("skipping resolver that already ran",
					zap.String("plugin", name), zap.String("purpose", string(purpose)))
				continue
			}
			g.Go(func() error {
				results[i] = p.invoke(ctx, res, name, snapshot, doc)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolving %s: %w", purpose, err)
		}
		for _, out := range results {
			for _, frag := range out {
				citation.EnsureKey(frag)
				fragments = append(fragments, frag)
			}
		}
	}
	return fragments, nil
}

func ranPlugins(fragments []citation.Citation) map[string]bool {
	ran := map[string]bool{}
	for _, frag := range fragments {
		if name := citation.Plugin(frag); name != "" {
			ran[name] = true
		}
	}
	return ran
}

// invoke calls one resolver under its own deadline and converts its output
// into stamped fragments. Returned errors and panics become a single error
// fragment.
func (p *Pipeline) invoke(ctx context.Context, res Resolver, name string, fragments []citation.Citation, doc Document) (out []citation.Citation) {
	log := p.log.With(zap.String("plugin", name), zap.String("purpose", string(res.Purpose())), zap.Int("weight", res.Weight()))

	ctx, cancel := context.WithTimeout(citation.ContextWithSelector(ctx, p.selector), p.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			out = []citation.Citation{p.errorFragment(log, res, name, &PanicError{Value: r})}
		}
	}()

	log.Debug("invoking resolver")
	produced, err := res.Resolve(ctx, fragments, doc)
	if err != nil {
		return []citation.Citation{p.errorFragment(log, res, name, err)}
	}
	if len(produced) == 0 {
		log.Debug("resolver returned nothing")
		return nil
	}

	when := p.now().UTC().Format(time.RFC3339)
	for _, frag := range produced {
		if !hasContent(frag) {
			continue
		}
		frag = citation.Clone(frag)
		if err := p.stamp(frag, res, name, when); err != nil {
			return []citation.Citation{p.errorFragment(log, res, name, err)}
		}
		out = append(out, frag)
	}
	log.Debug("resolver produced fragments", zap.Int("count", len(out)))
	return out
}

// hasContent reports whether frag holds anything besides its key and
// provenance.
func hasContent(frag citation.Citation) bool {
	for k := range frag {
		if k != citation.ProvenanceField && k != citation.KeyField {
			return true
		}
	}
	return false
}

// stamp fills in frag's provenance from the resolver's static tags, its
// plugin name, and the invocation time. Keys the fragment already carries
// are kept.
func (p *Pipeline) stamp(frag citation.Citation, res Resolver, name, when string) error {
	defaults := citation.Clone(res.Provenance())
	if defaults == nil {
		defaults = citation.Citation{}
	}
	defaults[citation.PluginKey] = name
	defaults[citation.WhenKey] = when

	prov := citation.ProvenanceOf(frag)
	if prov == nil {
		if _, ok := frag[citation.ProvenanceField]; ok {
			return fmt.Errorf("%s returned a fragment whose provenance is a %T", name, frag[citation.ProvenanceField])
		}
		prov = map[string]any{}
	}
	merged := map[string]any(defaults)
	// Every key the resolver set wins, including zero values.
	if err := mergo.Merge(&merged, prov, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
		return fmt.Errorf("merging provenance for %s: %w", name, err)
	}
	frag[citation.ProvenanceField] = merged
	return nil
}

func (p *Pipeline) errorFragment(log *zap.Logger, res Resolver, name string, err error) citation.Citation {
	category, message := Categorize(err)
	log.Warn("resolver failed", zap.String("category", string(category)), zap.Error(err))

	prov := map[string]any(citation.Clone(res.Provenance()))
	if prov == nil {
		prov = map[string]any{}
	}
	prov[citation.PluginKey] = name
	prov[citation.WhenKey] = p.now().UTC().Format(time.RFC3339)

	return citation.Citation{
		citation.ErrorField: map[string]any{
			CategoryKey: string(category),
			MessageKey:  message,
		},
		citation.ProvenanceField: prov,
	}
}
