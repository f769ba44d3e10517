package ember

import "net/http"

// Middleware is a single link in the request pipeline's middleware chain.
// It receives the next handler in the chain and returns a handler that
// wraps it; a middleware that never calls next short-circuits the chain.
type Middleware func(next http.Handler) http.Handler

// chainMiddleware composes a slice of Middleware into a single http.Handler
// terminating in final, applying them in the order given: mw[0] is the
// outermost wrapper and runs first. A nil entry is skipped rather than
// treated as an error.
func chainMiddleware(final http.Handler, mw ...Middleware) http.Handler {
	h := final
	for i := len(mw) - 1; i >= 0; i-- {
		if mw[i] == nil {
			continue
		}
		h = mw[i](h)
	}
	return h
}

// recoverMiddleware converts a panic anywhere downstream into a 500
// response instead of crashing the server.
func recoverMiddleware(logger Logger) Middleware {
	if logger == nil {
		logger = NopLogger
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("panic recovered", "error", rec, "path", r.URL.Path)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
