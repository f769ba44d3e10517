package ember

import (
	"net/http"
	"strings"

	"github.com/emberssr/ember/dev"
)

// devAwareHandler dispatches requests to the dev hot-replace surface when
// the pathname matches it and a dev handler is installed, and to the
// production pipeline otherwise. In production (devHandler nil) it is a
// zero-overhead passthrough.
type devAwareHandler struct {
	pipeline   *Pipeline
	devHandler http.Handler
}

func (h *devAwareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.devHandler != nil && isDevPath(r.URL.Path) {
		h.devHandler.ServeHTTP(w, r)
		return
	}
	h.pipeline.ServeHTTP(w, r)
}

func isDevPath(path string) bool {
	return path == dev.HotReplacePath || path == dev.HotReplaceScriptPath || strings.HasPrefix(path, dev.HotReplacePath+"/")
}
