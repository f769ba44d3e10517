package ember

import (
	"net/http"
	"strings"

	"github.com/aofei/mimesniffer"

	"github.com/emberssr/ember/static"
)

// Pipeline is the production request pipeline: it owns the manifest, the
// static engine, the module loader, and the middleware chain, and answers
// every request end to end.
type Pipeline struct {
	Manifest    *ManifestRef
	Static      *static.Engine
	Modules     *ModuleLoader
	ErrorPages  ErrorPages
	Middlewares []Middleware
	Logger      Logger

	PublicPath      string
	SecurityHeaders map[string]string

	// DevMode, when true, makes every "generated" route always re-render
	// through its render function instead of being served verbatim from
	// the prebuilt HTML file, so an edit is visible without a full rebuild
	// of every generated page.
	DevMode bool
}

// ServeHTTP answers a request in eleven steps:
//  1. reject oversized URLs
//  2. answer OPTIONS without touching downstream state
//  3. run the middleware chain
//  4. decode/normalize the pathname
//  5. try the static engine
//  6. try a generated (pre-rendered) route
//  7. try a dynamic route match
//  8. resolve the route's render module
//  9. render and inject assets
//  10. apply security headers
//  11. shape the response for HEAD
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(r.URL.RequestURI()) > MaxURLBytes {
		applySecurityHeaders(w, p.SecurityHeaders)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusRequestURITooLong)
		if r.Method != http.MethodHead {
			w.Write([]byte("414 URI Too Long"))
		}
		return
	}

	if r.Method == http.MethodOptions {
		applySecurityHeaders(w, p.SecurityHeaders)
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	final := http.HandlerFunc(p.serveInner)
	chain := chainMiddleware(final, append([]Middleware{recoverMiddleware(p.Logger)}, p.Middlewares...)...)
	chain.ServeHTTP(wrapHeadResponseWriter(w, r.Method), r)
}

func (p *Pipeline) serveInner(w http.ResponseWriter, r *http.Request) {
	pathname, ok := normalize(r.URL.RequestURI())
	if !ok {
		p.writeError(w, r, newError(KindBadRequest, "malformed request path"))
		return
	}

	if p.Static != nil && static.Servable(pathname) {
		if absPath, ok := resolveSafePath(p.Static.Root, pathname); ok {
			if res := p.Static.Serve(w, r, absPath); res.Handled {
				applySecurityHeaders(w, p.SecurityHeaders)
				return
			}
		}
	}

	manifest := p.Manifest.Load()
	result := match(manifest, pathname)

	switch result.Status {
	case Invalid:
		p.writeError(w, r, newError(KindBadRequest, "invalid route parameter"))
		return
	case NoMatch:
		p.writeNotFound(w, r)
		return
	}

	route := result.Route

	if route.Generated && !p.DevMode {
		p.serveGenerated(w, r, route)
		return
	}

	p.serveDynamic(w, r, route, result.Params)
}

func (p *Pipeline) serveGenerated(w http.ResponseWriter, r *http.Request, route *RouteEntry) {
	if p.Static == nil {
		p.writeError(w, r, newError(KindInternal, "generated route with no static engine configured"))
		return
	}

	absPath, ok := resolveSafePath(p.Static.Root, route.Filename)
	if !ok {
		p.writeError(w, r, newError(KindInternal, "generated route filename escapes static root"))
		return
	}

	if res := p.Static.Serve(w, r, absPath); res.Handled {
		applySecurityHeaders(w, p.SecurityHeaders)
		return
	}

	p.writeNotFound(w, r)
}

func (p *Pipeline) serveDynamic(w http.ResponseWriter, r *http.Request, route *RouteEntry, params Params) {
	render, err := p.Modules.Load(route.JSX)
	if err != nil {
		p.writeError(w, r, err)
		return
	}

	body, err := render(params.Map())
	if err != nil {
		p.writeError(w, r, wrapError(KindInternal, "render failed", err))
		return
	}

	applySecurityHeaders(w, p.SecurityHeaders)

	// Only output beginning with "<html" gets full-page treatment
	// (asset injection plus a doctype prefix). Anything else (a JSON
	// fragment, plain text, a redirect snippet) is returned as-is with
	// a sniffed content type rather than forced into HTML.
	if isFullPageHTML(body) {
		body = injectAssets(body, route.Assets, p.PublicPath)
		body = "<!doctype html>\n" + body
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", mimesniffer.Sniff([]byte(body)))
	}

	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte(body))
	}
}

// isFullPageHTML reports whether a render function's output should be
// treated as a complete HTML document: it begins with "<html", ignoring
// leading whitespace.
func isFullPageHTML(body string) bool {
	return strings.HasPrefix(strings.TrimLeft(body, " \t\r\n"), "<html")
}

func (p *Pipeline) writeNotFound(w http.ResponseWriter, r *http.Request) {
	applySecurityHeaders(w, p.SecurityHeaders)
	w.Header().Set("Cache-Control", "must-revalidate")

	body, contentType := p.renderErrorPage(p.ErrorPages.NotFoundJSX, defaultNotFoundBody, "404 Not Found")
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		w.Write([]byte(body))
	}
}

// writeError maps err to its HTTP status and renders the registered error
// page, if any, with the cache directive the error kind calls for:
// must-revalidate for a 404 (the route might appear on a future deploy),
// no-store for a 500 (never cache a transient failure).
func (p *Pipeline) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	if p.Logger != nil {
		p.Logger.Errorf("request failed", "path", r.URL.Path, "status", status, "error", err)
	}

	applySecurityHeaders(w, p.SecurityHeaders)

	var body, contentType string
	if status == http.StatusNotFound {
		w.Header().Set("Cache-Control", "must-revalidate")
		body, contentType = p.renderErrorPage(p.ErrorPages.NotFoundJSX, defaultNotFoundBody, "404 Not Found")
	} else {
		w.Header().Set("Cache-Control", "no-store")
		body, contentType = p.renderErrorPage(p.ErrorPages.InternalServerErrorJSX, defaultInternalServerErrorBody, "500 Internal Server Error")
	}
	w.Header().Set("Content-Type", contentType)

	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	w.Write([]byte(body))
}

// renderErrorPage resolves jsxKey through the module loader and calls it
// with no params, the same mechanism serveDynamic uses for a route's own
// jsx key. An unconfigured key serves builtinBody outright; a configured
// key that fails to resolve or render falls back to plainTextBody instead
// of builtinBody, so a broken custom error page can't recurse into another
// render failure.
func (p *Pipeline) renderErrorPage(jsxKey, builtinBody, plainTextBody string) (body, contentType string) {
	if jsxKey == "" {
		return builtinBody, "text/html; charset=utf-8"
	}

	render, err := p.Modules.Load(jsxKey)
	if err == nil {
		var renderErr error
		if body, renderErr = render(nil); renderErr == nil {
			return body, "text/html; charset=utf-8"
		}
		err = renderErr
	}

	if p.Logger != nil {
		p.Logger.Warnf("error-page render failed, falling back to plain text", "jsx", jsxKey, "error", err)
	}
	return plainTextBody, "text/plain; charset=utf-8"
}
