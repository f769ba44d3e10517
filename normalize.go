package ember

import (
	"net/url"
	"path/filepath"
	"strings"
)

// MaxURLBytes is the maximum length, in bytes, of a request URL the
// normalizer will accept.
const MaxURLBytes = 2048

// normalize decodes the request path, strips query/fragment, rejects
// traversal and control characters, trims slashes, and collapses a result of
// exactly "index.html" to the empty string (the root). A nested
// "<path>/index.html" is returned unchanged; match() resolves it. It returns
// (path, ok); ok is false when the input should be rejected with a
// BadRequest.
func normalize(input string) (string, bool) {
	if len(input) > MaxURLBytes {
		return "", false
	}

	// Strip fragment, then query.
	if i := strings.IndexByte(input, '#'); i >= 0 {
		input = input[:i]
	}
	if i := strings.IndexByte(input, '?'); i >= 0 {
		input = input[:i]
	}

	path := input
	if looksAbsoluteURL(input) {
		u, err := url.Parse(input)
		if err != nil {
			return "", false
		}
		path = u.Path
	}

	decoded, err := url.PathUnescape(path)
	if err != nil {
		return "", false
	}

	for i := 0; i < len(decoded); i++ {
		switch decoded[i] {
		case 0, '\r', '\n':
			return "", false
		}
	}

	segments := strings.Split(decoded, "/")
	for _, seg := range segments {
		if seg == ".." || seg == "." {
			return "", false
		}
	}

	trimmed := strings.Trim(decoded, "/")

	// Collapse repeated slashes left over from trimming only the ends.
	for strings.Contains(trimmed, "//") {
		trimmed = strings.ReplaceAll(trimmed, "//", "/")
	}

	if trimmed == "index.html" {
		trimmed = ""
	}

	return trimmed, true
}

// looksAbsoluteURL reports whether s begins with a URL scheme, e.g.
// "https://example.com/path", as opposed to a bare path.
func looksAbsoluteURL(s string) bool {
	i := strings.Index(s, "://")
	if i <= 0 {
		return false
	}
	for _, r := range s[:i] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return true
}

// resolveSafePath joins root with the relative pathname rel and verifies
// the result stays inside root: a non-empty result always begins with
// root plus a separator, or equals root. rel is expected to already be
// normalized (no "..", no leading "/"); resolveSafePath defends in depth
// regardless.
func resolveSafePath(root, rel string) (string, bool) {
	root = filepath.Clean(root)
	joined := filepath.Join(root, rel)

	if joined == root {
		return joined, true
	}
	if strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return joined, true
	}

	return "", false
}
