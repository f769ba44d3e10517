package ember

import (
	"fmt"
	"sync"
)

// RenderFunc renders a route's JSX module into HTML given its captured path
// parameters. Producing the function bound to a manifest's "jsx" key is the
// job of the (out of scope) build tool and its runtime component library;
// the core only needs somewhere to look RenderFunc values up by key.
type RenderFunc func(params map[string]string) (string, error)

// ModuleRegistry is the caller-supplied source of render functions, keyed by
// RouteEntry.JSX. An adapter backed by a generated Go package, a plugin
// loader, or an embedded bundle all satisfy this the same way.
type ModuleRegistry interface {
	Lookup(jsxKey string) (RenderFunc, bool)
}

// mapModuleRegistry is the simplest ModuleRegistry: a fixed map. It is what
// generated adapter code typically constructs at startup.
type mapModuleRegistry map[string]RenderFunc

func (m mapModuleRegistry) Lookup(jsxKey string) (RenderFunc, bool) {
	fn, ok := m[jsxKey]
	return fn, ok
}

// NewMapModuleRegistry builds a ModuleRegistry from a plain map.
func NewMapModuleRegistry(m map[string]RenderFunc) ModuleRegistry {
	reg := make(mapModuleRegistry, len(m))
	for k, v := range m {
		reg[k] = v
	}
	return reg
}

// ModuleLoader resolves a RouteEntry to its RenderFunc, caching results so
// repeat lookups of the same jsx key are a single map read. bustCache, set
// in dev mode, forces the loader to skip its cache and hit the registry
// again on every call so a hot-replaced module takes effect immediately.
type ModuleLoader struct {
	registry  ModuleRegistry
	bustCache bool

	// ReturnErrorStub, when true, makes a failed Load return a stub
	// RenderFunc instead of an error: the stub renders an
	// escaped <pre>-formatted error message. Dev mode sets this so a
	// broken route degrades to an in-page error instead of a hard 500
	// that masks which route is broken.
	ReturnErrorStub bool

	mu    sync.RWMutex
	cache map[string]RenderFunc
}

// NewModuleLoader returns a ModuleLoader backed by registry. bustCache
// should be true only in development.
func NewModuleLoader(registry ModuleRegistry, bustCache bool) *ModuleLoader {
	return &ModuleLoader{
		registry:  registry,
		bustCache: bustCache,
		cache:     make(map[string]RenderFunc),
	}
}

// Load resolves jsxKey to its RenderFunc. When the lookup
// fails and ReturnErrorStub is set, the failure is cached and masked behind
// a stub RenderFunc instead of propagated, so the caller always gets a
// RenderFunc back.
func (l *ModuleLoader) Load(jsxKey string) (RenderFunc, error) {
	if !l.bustCache {
		l.mu.RLock()
		fn, ok := l.cache[jsxKey]
		l.mu.RUnlock()
		if ok {
			return fn, nil
		}
	}

	fn, ok := l.registry.Lookup(jsxKey)
	if !ok {
		loadErr := newError(KindInternal, fmt.Sprintf("no render module registered for %q", jsxKey))
		if !l.ReturnErrorStub {
			return nil, loadErr
		}
		fn = errorStubRenderFunc(loadErr)
	}

	if !l.bustCache {
		l.mu.Lock()
		l.cache[jsxKey] = fn
		l.mu.Unlock()
	}

	return fn, nil
}

// errorStubRenderFunc returns a RenderFunc that always renders err as an
// escaped <pre>-formatted full-page HTML document.
func errorStubRenderFunc(err error) RenderFunc {
	return func(map[string]string) (string, error) {
		return "<html><head><title>Module Error</title></head><body><pre>" +
			escapeHTML(err.Error()) + "</pre></body></html>", nil
	}
}

// escapeHTML escapes & < > " ' in any error HTML the core generates.
func escapeHTML(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '"':
			out = append(out, "&quot;"...)
		case '\'':
			out = append(out, "&#39;"...)
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

// Invalidate drops a cached RenderFunc so the next Load call re-resolves it
// against the registry. The dev hot-replace engine calls this after a
// successful rebuild swaps the registry's backing code.
func (l *ModuleLoader) Invalidate(jsxKey string) {
	l.mu.Lock()
	delete(l.cache, jsxKey)
	l.mu.Unlock()
}

// ErrorPages names the jsx keys, if any, whose render functions produce the
// 404 and 500 bodies. Resolution happens per request through the same
// ModuleLoader a route's own jsx key goes through — cacheable,
// invalidatable, and callable-and-fallible — not once at startup. An empty
// key falls back to a minimal built-in HTML body; a configured key that
// fails to resolve or render falls back to a plain-text body.
type ErrorPages struct {
	NotFoundJSX            string
	InternalServerErrorJSX string
}

const defaultNotFoundBody = "<!doctype html><html><head><title>404</title></head>" +
	"<body><h1>404 Not Found</h1></body></html>"

const defaultInternalServerErrorBody = "<!doctype html><html><head><title>500</title></head>" +
	"<body><h1>500 Internal Server Error</h1></body></html>"

// NewErrorPages names the optional jsx keys for the 404/500 render
// functions. Either may be empty, in which case the pipeline always falls
// back to the built-in body for that status.
func NewErrorPages(notFoundJSX, internalServerErrorJSX string) ErrorPages {
	return ErrorPages{NotFoundJSX: notFoundJSX, InternalServerErrorJSX: internalServerErrorJSX}
}
