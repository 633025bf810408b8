// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolvers

import (
	"context"

	"go.uber.org/zap"

	"github.com/pdiddy/citeflow/internal/citation"
	"github.com/pdiddy/citeflow/internal/resolve"
)

// Logger writes the working set to a debug log after every other resolver
// has run. It never contributes fragments.
type Logger struct {
	log *zap.Logger
}

// NewLogger returns a Logger writing to log.
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log}
}

func (Logger) Purpose() resolve.Purpose   { return resolve.Dereference }
func (Logger) Weight() int                { return 100000 }
func (Logger) Provenance() map[string]any { return nil }

func (l *Logger) Resolve(_ context.Context, fragments []citation.Citation, _ resolve.Document) ([]citation.Citation, error) {
	if l.log == nil || !l.log.Core().Enabled(zap.DebugLevel) {
		return nil, nil
	}
	l.log.Debug("working set", zap.Int("fragments", len(fragments)))
	for i, frag := range fragments {
		l.log.Debug("fragment",
			zap.Int("index", i),
			zap.String("plugin", citation.Plugin(frag)),
			zap.String("whence", citation.Whence(frag)),
			zap.Bool("error", citation.IsError(frag)),
			zap.Strings("fields", citation.InspectKeyspecs(frag, false)))
	}
	return nil, nil
}
