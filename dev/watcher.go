// Package dev implements the development hot-replace protocol: a debounced
// filesystem watcher that triggers a manifest/module rebuild, and an SSE
// broadcaster that tells connected browsers what changed.
package dev

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher debounces filesystem change events across a set of watched
// directories into a single trigger channel.
type Watcher struct {
	fsw     *fsnotify.Watcher
	debounce time.Duration
	trigger  chan struct{}
	done     chan struct{}
}

// NewWatcher returns a Watcher over roots, debouncing bursts of events
// within debounce into a single trigger. A debounce of zero defaults to
// 150ms, long enough to coalesce a save-all across several files from most
// editors without feeling laggy.
func NewWatcher(roots []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: debounce,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	go w.loop()

	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Trigger returns the channel a rebuild engine should receive from: one
// value per debounced burst of filesystem activity, except that a burst
// ending while a previous trigger is still unread adds nothing, so at most
// one trigger is ever pending.
func (w *Watcher) Trigger() <-chan struct{} {
	return w.trigger
}

func (w *Watcher) loop() {
	var timer *time.Timer

	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}
		case <-w.timerC(timer):
			timer = nil
			select {
			case w.trigger <- struct{}{}:
			default:
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// timerC returns t.C, or a nil channel (which blocks forever in a select)
// when t is nil, so the loop's select statement can conditionally include
// the debounce timer without a type-unsafe nil check on t.C directly.
func (w *Watcher) timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
