package dev

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
)

// ReloadPayload is sent over SSE after a successful rebuild:
// the browser replaces body and re-injects the listed assets rather than
// doing a full page navigation.
type ReloadPayload struct {
	Body   string `json:"body"`
	Assets struct {
		CSS []string `json:"css"`
		JS  []string `json:"js"`
	} `json:"assets"`
	PublicPath string `json:"publicPath"`
}

// ErrorPayload is sent over SSE after a failed rebuild: only a body is
// included (an HTML error overlay), since there is no new set of assets to
// inject.
type ErrorPayload struct {
	Body string `json:"body"`
}

// SessionRenderFunc renders the route resolved from href — the path a
// particular SSE subscriber's browser tab is currently on — into the
// ReloadPayload that subscriber should receive. It is supplied by the
// caller (the core owns manifest matching and module rendering; this
// package only fans frames out) and may return an error, in which case the
// subscriber gets an error overlay instead.
type SessionRenderFunc func(ctx context.Context, href string) (ReloadPayload, error)

// Broadcaster fans a rebuild outcome out to every connected SSE
// subscriber, each rendered for its own href.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan string]string
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan string]string)}
}

// Subscribe registers a new subscriber pinned to href — the current-path
// query parameter of its GET /hot-replace request — and returns its event
// channel along with an unsubscribe function the caller must invoke when
// the connection closes.
func (b *Broadcaster) Subscribe(href string) (events <-chan string, unsubscribe func()) {
	ch := make(chan string, 8)

	b.mu.Lock()
	b.subscribers[ch] = href
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
}

// RenderInitial renders href through render and returns the SSE frame a
// freshly connected subscriber should receive immediately, before any
// rebuild has happened.
func (b *Broadcaster) RenderInitial(ctx context.Context, href string, render SessionRenderFunc) string {
	return sessionFrame(ctx, href, render)
}

// BroadcastReload re-renders every connected subscriber's own route
// through render and sends each one its own payload — never another
// subscriber's body — per the per-session model. Subscribers that are not
// keeping up (a full buffer) are skipped rather than blocking the
// broadcast for everyone else.
func (b *Broadcaster) BroadcastReload(ctx context.Context, render SessionRenderFunc) {
	b.mu.Lock()
	snapshot := make(map[chan string]string, len(b.subscribers))
	for ch, href := range b.subscribers {
		snapshot[ch] = href
	}
	b.mu.Unlock()

	for ch, href := range snapshot {
		b.send(ch, sessionFrame(ctx, href, render))
	}
}

// BroadcastError sends the same failed-rebuild event to every subscriber:
// a manifest that fails to reload at all invalidates every route, not just
// one subscriber's, so there is no per-href body to render.
func (b *Broadcaster) BroadcastError(payload ErrorPayload) error {
	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	frame := sseFrame(data)

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- frame:
		default:
		}
	}
	return nil
}

// send delivers frame to ch if it is still subscribed. Holding mu across
// the membership check and the send keeps this mutually exclusive with
// unsubscribe's close(ch), so a send can never race a close.
func (b *Broadcaster) send(ch chan string, frame string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	select {
	case ch <- frame:
	default:
	}
}

// sessionFrame calls render for href and marshals whichever payload shape
// results into an SSE frame: a ReloadPayload on success, an ErrorPayload if
// render itself fails (an unmatched href, a broken render module) so a
// single subscriber's bad route degrades to its own overlay instead of
// propagating.
func sessionFrame(ctx context.Context, href string, render SessionRenderFunc) string {
	if render == nil {
		return sseFrame(`{}`)
	}

	payload, err := render(ctx, href)
	if err != nil {
		data, merr := marshalPayload(ErrorPayload{Body: errorOverlayHTML(err)})
		if merr != nil {
			return ""
		}
		return sseFrame(data)
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return ""
	}
	return sseFrame(data)
}

// marshalPayload encodes v as single-line JSON without escaping <, > and &,
// so the HTML a payload carries appears verbatim in the frame.
func marshalPayload(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// sseFrame writes the wire record shape the client expects: an "id"
// line (always "hot-replace", so a reconnecting EventSource's
// Last-Event-ID is stable and meaningless, since every record shares it),
// a "data" line carrying the JSON payload, and a "retry" line. There is no
// "event" field — success and error payloads both arrive as the default
// "message" event, and the client tells them apart by payload shape (an
// error payload has only a "body" key).
func sseFrame(data string) string {
	return "id: hot-replace\ndata: " + data + "\nretry: 250\n\n"
}
