// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import "context"

type selectorKey struct{}

// ContextWithSelector returns a copy of ctx carrying s. Code handed the
// context selects values the same way the caller will flatten them.
func ContextWithSelector(ctx context.Context, s *Selector) context.Context {
	return context.WithValue(ctx, selectorKey{}, s)
}

// SelectorFrom returns the Selector carried by ctx, or DefaultSelector.
func SelectorFrom(ctx context.Context) *Selector {
	if s, ok := ctx.Value(selectorKey{}).(*Selector); ok && s != nil {
		return s
	}
	return DefaultSelector
}
