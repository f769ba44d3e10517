package dev

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RebuildFunc performs one hot-replace rebuild cycle's manifest-level work:
// reload the route manifest and swap it into the live reference. Rendering
// each connected subscriber's own route happens afterward, per subscriber,
// through SessionRenderFunc — a rebuild has no single "the" page to render.
type RebuildFunc func(ctx context.Context) error

// InvalidateFunc drops any cached state (compiled patterns, loaded render
// modules, static asset cache entries) that a rebuild must not read
// stale. Invalidations for independent subsystems run concurrently via
// errgroup before the manifest reload.
type InvalidateFunc func(ctx context.Context) error

// Engine drives the watch → debounce → rebuild → broadcast loop.
type Engine struct {
	Watcher     *Watcher
	Broadcaster *Broadcaster
	Rebuild     RebuildFunc
	Render      SessionRenderFunc
	Invalidate  []InvalidateFunc
	Logger      func(msg string, fields ...interface{})

	done chan struct{}
}

// NewEngine wires a Watcher and Broadcaster together with the callbacks
// needed to actually perform a rebuild and, per connected subscriber,
// re-render its own route.
func NewEngine(w *Watcher, b *Broadcaster, rebuild RebuildFunc, render SessionRenderFunc, invalidate []InvalidateFunc, logger func(msg string, fields ...interface{})) *Engine {
	if logger == nil {
		logger = func(string, ...interface{}) {}
	}
	return &Engine{
		Watcher:     w,
		Broadcaster: b,
		Rebuild:     rebuild,
		Render:      render,
		Invalidate:  invalidate,
		Logger:      logger,
		done:        make(chan struct{}),
	}
}

// Run blocks, processing rebuild triggers from e.Watcher until Stop is
// called or ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-e.Watcher.Trigger():
			e.runCycle(ctx)
		}
	}
}

func (e *Engine) runCycle(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, inv := range e.Invalidate {
		inv := inv
		if inv == nil {
			continue
		}
		g.Go(func() error { return inv(gctx) })
	}
	if err := g.Wait(); err != nil {
		e.Logger("dev cache invalidation failed", "error", err)
	}

	if err := e.Rebuild(ctx); err != nil {
		e.Logger("dev rebuild failed", "error", err)
		if broadcastErr := e.Broadcaster.BroadcastError(ErrorPayload{Body: errorOverlayHTML(err)}); broadcastErr != nil {
			e.Logger("dev error broadcast failed", "error", broadcastErr)
		}
		return
	}

	e.Broadcaster.BroadcastReload(ctx, e.Render)
}

// Stop halts Run.
func (e *Engine) Stop() {
	close(e.done)
}

func errorOverlayHTML(err error) string {
	return fmt.Sprintf(`<!doctype html><html><head><title>Build Error</title></head>`+
		`<body><pre style="white-space:pre-wrap;color:#f66;background:#1e1e1e;padding:1em;">%s</pre></body></html>`,
		escapeHTML(err.Error()))
}

// escapeHTML escapes & < > " ' in any error HTML this package generates.
func escapeHTML(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			out = append(out, []byte("&lt;")...)
		case '>':
			out = append(out, []byte("&gt;")...)
		case '&':
			out = append(out, []byte("&amp;")...)
		case '"':
			out = append(out, []byte("&quot;")...)
		case '\'':
			out = append(out, []byte("&#39;")...)
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
