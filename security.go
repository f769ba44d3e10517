package ember

import "net/http"

// defaultSecurityHeaders is the baseline triplet applied to every response
// the core produces: caller-supplied overrides in
// Config.SecurityHeaders take precedence over these, never the reverse.
var defaultSecurityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

// applySecurityHeaders fills in the default security headers on w for
// whichever are not already set, then applies overrides, so a header a
// middleware set earlier in the chain survives, and a caller can still
// disable a default by setting it to the empty string or replace it with a
// different value.
func applySecurityHeaders(w http.ResponseWriter, overrides map[string]string) {
	h := w.Header()
	for k, v := range defaultSecurityHeaders {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
	for k, v := range overrides {
		if v == "" {
			h.Del(k)
			continue
		}
		h.Set(k, v)
	}
}

// headResponseWriter drops the body of a HEAD request while preserving
// every header the GET handling path set, including an explicit
// Content-Length: it wraps w so that Write calls report every byte as
// written but discard it, while WriteHeader/Header pass straight through.
type headResponseWriter struct {
	http.ResponseWriter
}

func (h headResponseWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

// wrapHeadResponseWriter returns a ResponseWriter that discards body bytes
// when method is HEAD, and w unchanged otherwise.
func wrapHeadResponseWriter(w http.ResponseWriter, method string) http.ResponseWriter {
	if method == http.MethodHead {
		return headResponseWriter{ResponseWriter: w}
	}
	return w
}
