// Package static implements the static-asset serving engine: MIME
// detection, ETag/conditional/range handling, precompressed variant
// negotiation, and cache-control classification.
package static

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/aofei/mimesniffer"
)

// mimeOverrides covers extensions the standard library's mime package
// leaves unmapped or maps inconsistently across platforms.
var mimeOverrides = map[string]string{
	".js":   "text/javascript; charset=utf-8",
	".mjs":  "text/javascript; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".svg":  "image/svg+xml",
	".wasm": "application/wasm",
	".map":  "application/json; charset=utf-8",
}

// detectMIMEType returns the MIME type for name, first from mimeOverrides,
// then the standard library's extension table, and finally content
// sniffing via mimesniffer for extensionless or unrecognized files.
// It never returns the empty string.
func detectMIMEType(name string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(name))

	if t, ok := mimeOverrides[ext]; ok {
		return t
	}

	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}

	if t := mimesniffer.Sniff(content); t != "" {
		return t
	}

	return "application/octet-stream"
}

// compressibleMIMETypes is the set of MIME types (matched by prefix before
// any "; charset=..." suffix) the engine will negotiate a precompressed
// ".br"/".gz" variant for.
var compressibleMIMETypes = map[string]bool{
	"text/html":              true,
	"text/css":               true,
	"text/plain":             true,
	"text/javascript":        true,
	"application/javascript": true,
	"application/json":       true,
	"image/svg+xml":          true,
	"application/xml":        true,
	"text/xml":               true,
}

// isCompressible reports whether mimeType is a good candidate for
// precompressed variant negotiation.
func isCompressible(mimeType string) bool {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	return compressibleMIMETypes[strings.TrimSpace(base)]
}

// MaxPathBytes is the maximum length, in bytes, of a pathname the static
// engine will consider serving.
const MaxPathBytes = 1024

// Servable reports whether pathname passes the static engine's entry
// gate: within the length limit, free of NUL bytes, and ending in
// an extension the engine recognizes. A pathname with no extension, or one
// outside the known table, is left for the pipeline to route elsewhere —
// the static engine never claims an extensionless path a dynamic route
// might match.
func Servable(pathname string) bool {
	if len(pathname) > MaxPathBytes {
		return false
	}
	if strings.IndexByte(pathname, 0) >= 0 {
		return false
	}

	ext := strings.ToLower(filepath.Ext(pathname))
	if ext == "" {
		return false
	}
	if _, ok := mimeOverrides[ext]; ok {
		return true
	}
	return mime.TypeByExtension(ext) != ""
}
