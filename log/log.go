// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides contextual structured logging for the whole module.
// Package-level loggers created via WithContext follow the root handler, so
// the process entrypoint can install its handler after packages initialize.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger is the logging handle handed out to packages.
type Logger = *slog.Logger

var root atomic.Pointer[slog.Handler]

func init() {
	var h slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	root.Store(&h)
}

// SetRootHandler replaces the handler every contextual logger writes to.
func SetRootHandler(h slog.Handler) {
	root.Store(&h)
}

// NewTextHandler builds the default text handler at the given level.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// NewJSONHandler builds a JSON handler at the given level.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// WithContext returns a logger that carries the given key/value context and
// always writes through the current root handler.
func WithContext(kv ...any) Logger {
	return slog.New(&dynamicHandler{}).With(kv...)
}

// dynamicHandler defers to the root handler at log time.
type dynamicHandler struct {
	attrs  []slog.Attr
	groups []string
}

func (h *dynamicHandler) current() slog.Handler {
	cur := *root.Load()
	for _, g := range h.groups {
		cur = cur.WithGroup(g)
	}
	if len(h.attrs) > 0 {
		cur = cur.WithAttrs(h.attrs)
	}
	return cur
}

func (h *dynamicHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.current().Enabled(ctx, level)
}

func (h *dynamicHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *dynamicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dynamicHandler{
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
		groups: h.groups,
	}
}

func (h *dynamicHandler) WithGroup(name string) slog.Handler {
	return &dynamicHandler{
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}
