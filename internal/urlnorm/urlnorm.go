// Package urlnorm provides URL canonicalization and validity checks for the tester.
package urlnorm

import (
	"net/url"
	"strings"
)

// Options controls which URL components survive normalization.
type Options struct {
	KeepQuery    bool
	KeepFragment bool
}

// Normalizer canonicalizes URLs relative to the site under test so that two
// spellings of the same page always collapse to one key.
type Normalizer struct {
	baseScheme       string
	baseHost         string
	opts             Options
	excludedPatterns []string
}

// New creates a Normalizer anchored at the target origin.
func New(target string, opts Options, excludedPatterns []string) (*Normalizer, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	lowered := make([]string, 0, len(excludedPatterns))
	for _, p := range excludedPatterns {
		if p != "" {
			lowered = append(lowered, strings.ToLower(p))
		}
	}
	return &Normalizer{
		baseScheme:       strings.ToLower(parsed.Scheme),
		baseHost:         strings.ToLower(parsed.Host),
		opts:             opts,
		excludedPatterns: lowered,
	}, nil
}

// Origin returns the scheme://host of the target.
func (n *Normalizer) Origin() string {
	return n.baseScheme + "://" + n.baseHost
}

// Normalize resolves rawURL against the page's current URL and canonicalizes
// it: scheme://host/path, query and fragment kept only when configured, a
// single trailing slash stripped unless the path is root. Idempotent.
func (n *Normalizer) Normalize(baseContext, rawURL string) string {
	absolute := Resolve(baseContext, rawURL)
	parsed, err := url.Parse(absolute)
	if err != nil {
		return absolute
	}

	normalized := parsed.Scheme + "://" + parsed.Host + parsed.Path
	if n.opts.KeepQuery && parsed.RawQuery != "" {
		normalized += "?" + parsed.RawQuery
	}
	if n.opts.KeepFragment && parsed.Fragment != "" {
		normalized += "#" + parsed.Fragment
	}

	root := parsed.Scheme + "://" + parsed.Host + "/"
	if strings.HasSuffix(normalized, "/") && len(normalized) > len(root) {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

// IsValid reports whether rawURL, resolved against baseContext, is a page the
// tester may visit: http(s) only, same origin, and not matching any configured
// exclusion substring (case-insensitive).
func (n *Normalizer) IsValid(baseContext, rawURL string) bool {
	if rawURL == "" {
		return false
	}

	absolute := Resolve(baseContext, rawURL)
	parsed, err := url.Parse(absolute)
	if err != nil {
		return false
	}

	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host != "" && !strings.EqualFold(parsed.Host, n.baseHost) {
		return false
	}
	if parsed.Scheme != "" && !strings.EqualFold(parsed.Scheme, n.baseScheme) {
		return false
	}

	loweredURL := strings.ToLower(absolute)
	for _, pattern := range n.excludedPatterns {
		if strings.Contains(loweredURL, pattern) {
			return false
		}
	}
	return true
}

// Resolve resolves a possibly-relative URL against a base URL. On parse
// failure the raw input is returned so callers can still reject it.
func Resolve(baseURL, rawURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return rawURL
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return base.ResolveReference(ref).String()
}

// Origin extracts scheme://host from a URL, falling back to the trimmed input
// when it carries no scheme or host.
func Origin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return parsed.Scheme + "://" + parsed.Host
	}
	return strings.TrimRight(rawURL, "/")
}

// Path returns the path component of a URL, or "" when unparsable.
func Path(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Path
}
