package ember

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	root := t.TempDir()
	manifestPath := filepath.Join(root, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(`[{"filename": "index.html", "path": "", "jsx": "home"}]`), 0o644))

	cfg := defaultConfig()
	cfg.ManifestPath = manifestPath
	cfg.StaticRoot = root
	return &cfg
}

func testRegistry() ModuleRegistry {
	return NewMapModuleRegistry(map[string]RenderFunc{
		"home": func(params map[string]string) (string, error) {
			return "<html><head></head><body>home</body></html>", nil
		},
	})
}

func taggingMiddleware(tag string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Tag", tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestNewWiresCallerMiddlewareIntoPipeline(t *testing.T) {
	e, err := New(newTestConfig(t), testRegistry(), NopLogger, taggingMiddleware("one"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	e.handlerRef.ServeHTTP(w, req)

	assert.Equal(t, "one", w.Header().Get("X-Tag"))
}

func TestEmberUseAppendsMiddlewareAfterConstruction(t *testing.T) {
	e, err := New(newTestConfig(t), testRegistry(), NopLogger)
	require.NoError(t, err)

	e.Use(taggingMiddleware("two"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	e.handlerRef.ServeHTTP(w, req)

	assert.Equal(t, "two", w.Header().Get("X-Tag"))
}

func TestEmberUseDoesNotClobberMiddlewarePassedToNew(t *testing.T) {
	e, err := New(newTestConfig(t), testRegistry(), NopLogger, taggingMiddleware("one"))
	require.NoError(t, err)

	e.Use(taggingMiddleware("two"))

	assert.Len(t, e.pipeline.Middlewares, 2)
}
