package dev

import (
	"fmt"
	"net/http"
)

// HotReplacePath is the SSE endpoint the embedded client script connects
// to.
const HotReplacePath = "/hot-replace"

// HotReplaceScriptPath serves the embedded client script.
const HotReplaceScriptPath = "/hot-replace.js"

// Handler returns an http.Handler exposing the dev-mode hot-replace
// surface: the SSE stream at HotReplacePath and the client bootstrap
// script at HotReplaceScriptPath. It is mounted ahead of the production
// pipeline only when Config.DevMode is true. render resolves a
// subscriber's href to the route it should see on connect and on every
// subsequent broadcast.
func Handler(b *Broadcaster, render SessionRenderFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(HotReplacePath, func(w http.ResponseWriter, r *http.Request) {
		serveSSE(w, r, b, render)
	})
	mux.HandleFunc(HotReplaceScriptPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Write([]byte(ClientScript))
	})
	return mux
}

// serveSSE answers GET /hot-replace?href=<current-path>: it opens
// a session pinned to href, sends it an initial payload, then streams one
// more per broadcast for as long as the subscriber's route keeps changing
// under it.
func serveSSE(w http.ResponseWriter, r *http.Request, b *Broadcaster, render SessionRenderFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	href := r.URL.Query().Get("href")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, unsubscribe := b.Subscribe(href)
	defer unsubscribe()

	ctx := r.Context()
	fmt.Fprint(w, b.RenderInitial(ctx, href, render))
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
	}
}
