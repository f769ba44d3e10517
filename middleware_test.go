package ember

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainMiddlewareOrderAndShortCircuit(t *testing.T) {
	var order []string

	mwA := Middleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "a-before")
			next.ServeHTTP(w, r)
			order = append(order, "a-after")
		})
	})

	mwB := Middleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "b")
			w.WriteHeader(http.StatusForbidden) // short-circuit, never calls next
		})
	})

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "final")
	})

	chain := chainMiddleware(final, mwA, mwB)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	assert.Equal(t, []string{"a-before", "b", "a-after"}, order)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChainMiddlewareSkipsNil(t *testing.T) {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	chain := chainMiddleware(final, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	chain.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecoverMiddlewareConvertsPanicTo500(t *testing.T) {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	chain := chainMiddleware(final, recoverMiddleware(NopLogger))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		chain.ServeHTTP(w, req)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
