package dev

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesClientScript(t *testing.T) {
	h := Handler(NewBroadcaster(), nil)

	req := httptest.NewRequest(http.MethodGet, HotReplaceScriptPath, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/javascript; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), HotReplacePath)
}

func readOneFrame(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var sb []byte
	for {
		line, err := r.ReadBytes('\n')
		require.NoError(t, err)
		sb = append(sb, line...)
		if string(line) == "\n" {
			return string(sb)
		}
	}
}

func TestHandlerSSEStreamSendsInitialPayloadForItsOwnHref(t *testing.T) {
	b := NewBroadcaster()
	render := renderFuncFor(map[string]string{
		"/blog/a": "<div>a</div>",
	})
	h := Handler(b, render)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + HotReplacePath + "?href=" + "/blog/a")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frame := readOneFrame(t, bufio.NewReader(resp.Body))
	assert.Contains(t, frame, "id: hot-replace\n")
	assert.Contains(t, frame, `"body":"<div>a</div>"`)
}

func TestHandlerSSEStreamDeliversBroadcastFrameAfterInitial(t *testing.T) {
	b := NewBroadcaster()
	render := renderFuncFor(map[string]string{
		"/blog/a": "<div>a</div>",
	})
	h := Handler(b, render)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + HotReplacePath + "?href=" + "/blog/a")
	require.NoError(t, err)
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	readOneFrame(t, r) // initial payload

	// Give serveSSE time to subscribe before broadcasting.
	time.Sleep(20 * time.Millisecond)
	b.BroadcastReload(context.Background(), render)

	frame := readOneFrame(t, r)
	assert.Contains(t, frame, "id: hot-replace\n")
	assert.Contains(t, frame, "retry: 250\n")
	assert.Contains(t, frame, `"body":"<div>a</div>"`)
}
