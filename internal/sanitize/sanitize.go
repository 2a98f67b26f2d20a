// Package sanitize strips citation and markdown artifacts from model output.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// "([label](target))" style inline citations.
	citationBlock = regexp.MustCompile(`\(\s*\[[^\]]+\]\([^)]+\)\s*\)`)
	markdownLink  = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	bareDomain    = regexp.MustCompile(`(?i)^[a-z0-9.-]+\.[a-z]{2,}$`)
	multiSpace    = regexp.MustCompile(`[\s\p{Zs}]{2,}`)
)

// trackingParams are query keys removed from URLs. Keys starting with utm_
// are removed as well.
var trackingParams = map[string]bool{
	"ref":    true,
	"fbclid": true,
	"gclid":  true,
}

// Text removes citation blocks and markdown links from s, collapses runs of
// whitespace and trims it. Links whose label is a bare domain are treated as
// source citations and dropped entirely; other links keep their label.
// Empty input returns empty output. Text is idempotent.
func Text(s string) string {
	if s == "" {
		return ""
	}

	out := s
	// A rewrite can expose a new link (e.g. nested brackets), so run the
	// link rules to a fixed point. Every change shortens the string.
	for {
		next := citationBlock.ReplaceAllString(out, "")
		next = markdownLink.ReplaceAllStringFunc(next, rewriteLink)
		if next == out {
			break
		}
		out = next
	}

	out = multiSpace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func rewriteLink(m string) string {
	label := markdownLink.FindStringSubmatch(m)[1]
	if bareDomain.MatchString(label) {
		return ""
	}
	return label
}

// URL normalizes a model-supplied URL. A markdown link is unwrapped to its
// target and tracking query parameters are removed. Anything that is not an
// absolute http(s) URL yields "".
func URL(s string) string {
	s = strings.TrimSpace(s)
	if m := markdownLink.FindStringSubmatch(s); m != nil && m[0] == s {
		s = strings.TrimSpace(m[2])
	}
	s = strings.TrimSpace(strings.Trim(s, "<>"))
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return ""
	}

	if u.RawQuery != "" {
		u.RawQuery = stripTracking(u.RawQuery)
	}
	return u.String()
}

// stripTracking drops tracking parameters from a raw query. The remaining
// parameters keep their order and encoding.
func stripTracking(rawQuery string) string {
	params := strings.Split(rawQuery, "&")
	kept := params[:0]
	for _, p := range params {
		key, _, _ := strings.Cut(p, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		key = strings.ToLower(key)
		if strings.HasPrefix(key, "utm_") || trackingParams[key] {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "&")
}
