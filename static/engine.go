package static

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of Engine.Serve: Handled is true when the engine
// wrote a response (success or error); false means the request did not
// resolve to an existing regular file under root and the caller should
// continue to the next pipeline stage (the static stage is a
// pass-through, not a terminal 404).
type Result struct {
	Handled bool
	Status  int
}

// Engine serves static files from Root with conditional requests, byte
// ranges, precompressed variant negotiation, and cache-control
// classification.
type Engine struct {
	Root  string
	Cache *Cache
}

// New returns an Engine rooted at root, backed by a Cache bounded at
// cacheMaxBytes.
func New(root string, cacheMaxBytes int, logger func(msg string, fields ...interface{})) *Engine {
	return &Engine{Root: root, Cache: NewCache(cacheMaxBytes, logger)}
}

// Serve runs the Stat→Negotiate→Conditional→Range→Send sequence for one
// file. absPath must already be normalized and traversal-checked by the
// caller; Serve itself only stats and reads it.
func (e *Engine) Serve(w http.ResponseWriter, r *http.Request, absPath string) Result {
	fi, err := os.Stat(absPath)
	if err != nil || fi.IsDir() {
		return Result{Handled: false}
	}

	brPath, gzipPath := e.resolveVariants(absPath)
	a, err := e.Cache.Get(absPath, brPath, gzipPath)
	if err != nil {
		return Result{Handled: false}
	}

	encoding := e.negotiateEncoding(r, a)

	etag := a.ETag()
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Cache-Control", CacheControl(a.Name))
	w.Header().Set("Last-Modified", a.ModTime.UTC().Format(http.TimeFormat))
	if encoding != "" {
		w.Header().Set("Content-Encoding", encoding)
	}
	if isCompressible(a.MIMEType) {
		w.Header().Set("Vary", "Accept-Encoding")
	}

	if notModified(r, etag, a.ModTime) {
		w.WriteHeader(http.StatusNotModified)
		return Result{Handled: true, Status: http.StatusNotModified}
	}

	content := e.Cache.Content(a, encoding)
	if content == nil {
		// Evicted from the in-memory cache under pressure; fall back
		// to a direct read so a hot resource is never refused.
		content, err = readVariant(absPath, brPath, gzipPath, encoding)
		if err != nil {
			return Result{Handled: false}
		}
	}

	// Byte ranges are only honored against the identity variant: a
	// compressed variant's byte offsets don't correspond to the decoded
	// content a Range header's offsets describe.
	if encoding == "" {
		w.Header().Set("Accept-Ranges", "bytes")

		rangeHeader := r.Header.Get("Range")
		if rangeHeader != "" && ifRangeSatisfied(r, etag, a.ModTime) {
			if res, handled := e.serveRange(w, r, content, rangeHeader); handled {
				return res
			}
		}
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	status := http.StatusOK
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(content)
	}
	return Result{Handled: true, Status: status}
}

// resolveVariants computes the sibling ".br"/".gz" paths for absPath when
// its MIME type is compressible, and returns empty strings otherwise; the
// actual existence check happens in Cache.Get via os.ReadFile's error.
func (e *Engine) resolveVariants(absPath string) (brPath, gzipPath string) {
	mt := detectMIMEType(absPath, nil)
	if !isCompressible(mt) {
		return "", ""
	}
	return absPath + ".br", absPath + ".gz"
}

func readVariant(absPath, brPath, gzipPath, encoding string) ([]byte, error) {
	switch encoding {
	case "br":
		return os.ReadFile(brPath)
	case "gzip":
		return os.ReadFile(gzipPath)
	default:
		return os.ReadFile(absPath)
	}
}

// negotiateEncoding picks "br", "gzip", or "" (identity) based on the
// request's Accept-Encoding header and which precompressed variants the
// Cache actually found on disk, preferring br over gzip.
func (e *Engine) negotiateEncoding(r *http.Request, a *Asset) string {
	accept := r.Header.Get("Accept-Encoding")
	if accept == "" {
		return ""
	}
	if a.HasVariant("br") && acceptsEncoding(accept, "br") {
		return "br"
	}
	if a.HasVariant("gzip") && acceptsEncoding(accept, "gzip") {
		return "gzip"
	}
	return ""
}

func acceptsEncoding(header, encoding string) bool {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		name := part
		if i := strings.IndexByte(part, ';'); i >= 0 {
			name = strings.TrimSpace(part[:i])
			if strings.HasSuffix(part[i:], "q=0") {
				continue
			}
		}
		if name == encoding {
			return true
		}
	}
	return false
}

// notModified implements the If-None-Match / If-Modified-Since conditional
// GET semantics: an exact ETag match always wins; otherwise a
// modification time at or before If-Modified-Since counts as unchanged.
// If-None-Match takes precedence over If-Modified-Since when both are
// present, per RFC 7232 §3.3.
func notModified(r *http.Request, etag string, modTime time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		for _, candidate := range strings.Split(inm, ",") {
			if strings.TrimSpace(candidate) == etag {
				return true
			}
		}
		return false
	}

	if ims := r.Header.Get("If-Modified-Since"); ims != "" {
		t, err := http.ParseTime(ims)
		if err == nil && !modTime.Truncate(time.Second).After(t) {
			return true
		}
	}

	return false
}

// ifRangeSatisfied reports whether a Range request should be honored given
// an optional If-Range validator: absent If-Range means always honor it;
// present means it must match the current ETag, else the whole resource is
// sent instead of a partial range.
func ifRangeSatisfied(r *http.Request, etag string, modTime time.Time) bool {
	ifRange := r.Header.Get("If-Range")
	if ifRange == "" {
		return true
	}
	return ifRange == etag
}

// errRangeMalformed means the header isn't a single "bytes=start-end"
// range this engine speaks (multi-range included); the Range header is
// ignored and the full body is served. errRangeUnsatisfiable means it
// parsed but names no bytes inside the content, which is a 416.
var (
	errRangeMalformed     = fmt.Errorf("static: malformed range header")
	errRangeUnsatisfiable = fmt.Errorf("static: unsatisfiable range")
)

// serveRange implements single-range byte-range responses: 206 with
// Content-Range on success, 416 when the requested range falls entirely
// outside the content. A header it cannot parse at all (including
// multi-range requests; multipart/byteranges is not implemented) is
// reported unhandled so the caller serves the full body instead.
func (e *Engine) serveRange(w http.ResponseWriter, r *http.Request, content []byte, rangeHeader string) (Result, bool) {
	start, end, err := parseByteRange(rangeHeader, int64(len(content)))
	if err == errRangeMalformed {
		return Result{}, false
	}
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", len(content)))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return Result{Handled: true, Status: http.StatusRequestedRangeNotSatisfiable}, true
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(content)))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		w.Write(content[start : end+1])
	}
	return Result{Handled: true, Status: http.StatusPartialContent}, true
}

// parseByteRange parses a single "bytes=start-end" range header against a
// resource of the given size, per RFC 7233 §2.1's single-range syntax
// (open start or end, e.g. "bytes=-500" or "bytes=500-").
func parseByteRange(header string, size int64) (start, end int64, err error) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, errRangeMalformed
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return 0, 0, errRangeMalformed
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, errRangeMalformed
	}

	if parts[0] == "" {
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, errRangeMalformed
		}
		if n <= 0 {
			return 0, 0, errRangeUnsatisfiable
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	s, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || s < 0 {
		return 0, 0, errRangeMalformed
	}
	if s >= size {
		return 0, 0, errRangeUnsatisfiable
	}

	if parts[1] == "" {
		return s, size - 1, nil
	}

	e, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, errRangeMalformed
	}
	if e < s {
		return 0, 0, errRangeUnsatisfiable
	}
	if e >= size {
		e = size - 1
	}
	return s, e, nil
}
