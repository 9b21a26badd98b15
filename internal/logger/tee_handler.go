package logger

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler duplicates every record to a set of destination handlers,
// typically local stdout plus a remote shipper. Records are cloned before
// each dispatch since handlers may retain them.
type teeHandler struct {
	dests []slog.Handler
}

// newTeeHandler builds a tee over the non-nil destinations.
func newTeeHandler(dests ...slog.Handler) *teeHandler {
	kept := make([]slog.Handler, 0, len(dests))
	for _, d := range dests {
		if d != nil {
			kept = append(kept, d)
		}
	}
	return &teeHandler{dests: kept}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, d := range t.dests {
		if d.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to every destination enabled for its level.
// One destination failing does not stop the others.
func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, d := range t.dests {
		if !d.Enabled(ctx, r.Level) {
			continue
		}
		err = errors.Join(err, d.Handle(ctx, r.Clone()))
	}
	return err
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	dests := make([]slog.Handler, len(t.dests))
	for i, d := range t.dests {
		dests[i] = d.WithAttrs(attrs)
	}
	return &teeHandler{dests: dests}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	dests := make([]slog.Handler, len(t.dests))
	for i, d := range t.dests {
		dests[i] = d.WithGroup(name)
	}
	return &teeHandler{dests: dests}
}
