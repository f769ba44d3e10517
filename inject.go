package ember

import (
	"strings"
)

// normalizePublicPath preserves the empty string as-is (no prefix is
// applied to injected asset URLs at all), and gives any other non-empty
// public path exactly one trailing slash so it can be concatenated
// directly in front of an asset's relative path.
func normalizePublicPath(p string) string {
	if p == "" {
		return ""
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// injectAssets inserts <link>/<script> tags for assets into html:
// CSS links are inserted immediately before the first case-insensitive
// "</head>", or prepended to the document if absent; JS module scripts are
// inserted immediately before the last case-insensitive "</body>", or
// appended if absent. Both insertions dedup entries in first-seen order
// within their own list; injectAssets does not mutate html, it returns a
// new string.
func injectAssets(html string, assets RouteAssets, publicPath string) string {
	publicPath = normalizePublicPath(publicPath)

	if css := buildCSSTags(assets.CSS, publicPath); css != "" {
		if idx, ok := findTag(html, "</head>", true); ok {
			html = html[:idx] + css + html[idx:]
		} else {
			html = css + html
		}
	}
	if js := buildJSTags(assets.JS, publicPath); js != "" {
		if idx, ok := findTag(html, "</body>", false); ok {
			html = html[:idx] + js + html[idx:]
		} else {
			html = html + js
		}
	}
	return html
}

func buildCSSTags(files []string, publicPath string) string {
	files = dedupStrings(files)
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(`<link rel="stylesheet" href="`)
		sb.WriteString(publicPath)
		sb.WriteString(f)
		sb.WriteString("\">")
	}
	return sb.String()
}

func buildJSTags(files []string, publicPath string) string {
	files = dedupStrings(files)
	var sb strings.Builder
	for _, f := range files {
		sb.WriteString(`<script type="module" src="`)
		sb.WriteString(publicPath)
		sb.WriteString(f)
		sb.WriteString("\"></script>")
	}
	return sb.String()
}

func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// extractBodyContent returns the substring between a case-insensitive
// "<body" tag's closing ">" and the last case-insensitive "</body>" —
// the body-content of a freshly rendered page, which is what the
// hot-replace payload carries. A missing opening tag leaves html returned
// unchanged; a missing (or misplaced) closing tag returns everything after
// the opening tag.
func extractBodyContent(html string) string {
	lower := strings.ToLower(html)

	openIdx := strings.Index(lower, "<body")
	if openIdx < 0 {
		return html
	}
	tagEnd := strings.IndexByte(html[openIdx:], '>')
	if tagEnd < 0 {
		return html
	}
	start := openIdx + tagEnd + 1

	closeIdx := strings.LastIndex(lower, "</body>")
	if closeIdx < 0 || closeIdx < start {
		return html[start:]
	}
	return html[start:closeIdx]
}

// findTag locates the first (or last, per useFirst=false) case-insensitive
// occurrence of marker in html, reporting false when marker is absent.
func findTag(html, marker string, useFirst bool) (int, bool) {
	lower := strings.ToLower(html)
	markerLower := strings.ToLower(marker)

	var idx int
	if useFirst {
		idx = strings.Index(lower, markerLower)
	} else {
		idx = strings.LastIndex(lower, markerLower)
	}
	if idx < 0 {
		return 0, false
	}
	return idx, true
}
