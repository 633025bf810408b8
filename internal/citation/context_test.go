// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorFrom(t *testing.T) {
	assert.Same(t, DefaultSelector, SelectorFrom(context.Background()))

	sel := NewSelector(SourceOrder{"pubmed"})
	ctx := ContextWithSelector(context.Background(), sel)
	assert.Same(t, sel, SelectorFrom(ctx))

	assert.Same(t, DefaultSelector, SelectorFrom(ContextWithSelector(context.Background(), nil)))
}
