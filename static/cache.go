package static

import (
	"os"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// Asset is a single cached representation of a static file: its content
// bytes (identity and, when available, precompressed br/gzip), MIME type,
// and the metadata needed to build conditional-request responses.
type Asset struct {
	Name     string
	MIMEType string
	ModTime  time.Time
	Size     int64

	identityKey [8]byte
	brKey       [8]byte
	gzipKey     [8]byte
	hasBr       bool
	hasGzip     bool
}

// ETag is the weak validator for this asset's identity representation.
func (a *Asset) ETag() string { return weakETag(a.Size, a.ModTime) }

// Cache is a binary asset manager that keeps recently-served file content
// in process memory to reduce disk I/O pressure: a fastcache.Cache keyed
// by pathname digest, invalidated by an fsnotify watcher on the
// underlying files.
type Cache struct {
	maxBytes int

	mu      sync.Mutex
	once    sync.Once
	fc      *fastcache.Cache
	assets  map[string]*Asset
	watcher *fsnotify.Watcher
	logger  func(msg string, fields ...interface{})
}

// NewCache returns a Cache bounded at maxBytes of content. logger may be
// nil, in which case watcher errors are dropped silently.
func NewCache(maxBytes int, logger func(msg string, fields ...interface{})) *Cache {
	c := &Cache{maxBytes: maxBytes, assets: make(map[string]*Asset), logger: logger}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		// A cache that can't invalidate on change is worse than no
		// cache: fall back to stat-on-every-request behavior by
		// simply never populating assets.
		return c
	}
	c.watcher = w

	go c.watchLoop()

	return c
}

func (c *Cache) watchLoop() {
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.invalidate(ev.Name)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			if c.logger != nil {
				c.logger("static asset watcher error", "error", err.Error())
			}
		}
	}
}

func (c *Cache) invalidate(name string) {
	c.mu.Lock()
	a, ok := c.assets[name]
	if ok {
		delete(c.assets, name)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	fc := c.fastcache()
	fc.Del(a.identityKey[:])
	if a.hasBr {
		fc.Del(a.brKey[:])
	}
	if a.hasGzip {
		fc.Del(a.gzipKey[:])
	}
}

func (c *Cache) fastcache() *fastcache.Cache {
	c.once.Do(func() {
		c.fc = fastcache.New(c.maxBytes)
	})
	return c.fc
}

// Get returns the cached Asset for name, loading and caching it on first
// access. brPath and gzipPath, if non-empty and present on disk, are cached
// alongside the identity content as the precompressed variants.
func (c *Cache) Get(name, brPath, gzipPath string) (*Asset, error) {
	c.mu.Lock()
	if a, ok := c.assets[name]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	fi, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	fc := c.fastcache()
	a := &Asset{
		Name:     name,
		MIMEType: detectMIMEType(name, content),
		ModTime:  fi.ModTime(),
		Size:     fi.Size(),
	}
	a.identityKey = hashKey(name, "")
	fc.Set(a.identityKey[:], content)

	if brPath != "" {
		if b, err := os.ReadFile(brPath); err == nil {
			a.brKey = hashKey(name, "br")
			a.hasBr = true
			fc.Set(a.brKey[:], b)
		}
	}
	if gzipPath != "" {
		if b, err := os.ReadFile(gzipPath); err == nil {
			a.gzipKey = hashKey(name, "gzip")
			a.hasGzip = true
			fc.Set(a.gzipKey[:], b)
		}
	}

	if c.watcher != nil {
		c.mu.Lock()
		c.assets[name] = a
		c.mu.Unlock()

		c.watcher.Add(name)
	}

	return a, nil
}

// Content returns the cached bytes for encoding ("", "br", or "gzip"). It
// returns nil if the requested representation was never cached, or if the
// underlying fastcache entry was evicted under memory pressure — callers
// must treat a nil result as a cache miss and re-read from disk.
func (c *Cache) Content(a *Asset, encoding string) []byte {
	fc := c.fastcache()
	switch encoding {
	case "br":
		if !a.hasBr {
			return nil
		}
		return fc.Get(nil, a.brKey[:])
	case "gzip":
		if !a.hasGzip {
			return nil
		}
		return fc.Get(nil, a.gzipKey[:])
	default:
		return fc.Get(nil, a.identityKey[:])
	}
}

// HasVariant reports whether a precompressed representation was cached for
// encoding ("br" or "gzip").
func (a *Asset) HasVariant(encoding string) bool {
	switch encoding {
	case "br":
		return a.hasBr
	case "gzip":
		return a.hasGzip
	default:
		return true
	}
}

func hashKey(name, suffix string) [8]byte {
	h := xxhash.New()
	h.WriteString(name)
	h.WriteString("\x00")
	h.WriteString(suffix)
	var key [8]byte
	sum := h.Sum64()
	for i := 0; i < 8; i++ {
		key[i] = byte(sum >> (8 * i))
	}
	return key
}
