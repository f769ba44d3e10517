package static

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// isHashedBasename reports whether name looks like a content-hashed build
// artifact: any "."/"-"-delimited segment of its basename is either hex of
// at least 8 characters (e.g. "app.3f2a9c1d.js", "app-3f2a9c1d.css") or
// exactly 8 uppercase base36 characters (e.g. "styles.ABCDEFGH.css").
// Hashed names are those a content change would also rename, so they are
// safe to cache forever.
func isHashedBasename(name string) bool {
	base := filepath.Base(name)
	for _, seg := range strings.FieldsFunc(base, func(r rune) bool {
		return r == '.' || r == '-'
	}) {
		if isHexSegment(seg) || isBase36Segment(seg) {
			return true
		}
	}
	return false
}

func isHexSegment(s string) bool {
	if len(s) < 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func isBase36Segment(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// immutableCacheControl is applied to hashed assets: a year, effectively
// forever for a browser cache, plus immutable since the filename itself
// changes on any content change.
const immutableCacheControl = "public, max-age=31536000, immutable"

// defaultCacheControl is applied to non-hashed assets: a short window, long
// enough to avoid a full refetch on rapid navigation but short enough that
// an edit appears promptly.
const defaultCacheControl = "public, max-age=300"

// CacheControl returns the Cache-Control header value for an asset named
// name.
func CacheControl(name string) string {
	if isHashedBasename(name) {
		return immutableCacheControl
	}
	return defaultCacheControl
}

// weakETag builds the weak ETag the engine uses for conditional requests
// and range validation: W/"<size-hex>-<mtime-ms-hex>". It is
// weak because precompressed-variant negotiation means two representations
// of "the same" resource can have byte-for-byte different content while
// still being considered equivalent for caching purposes.
func weakETag(size int64, modTime time.Time) string {
	return `W/"` + strconv.FormatInt(size, 16) + "-" + strconv.FormatInt(modTime.UnixMilli(), 16) + `"`
}
