// Package routeseeds extracts path templates from a client-side route table
// and turns them into crawlable seed URLs.
//
// Extraction is a best-effort text heuristic: it pattern-matches string
// literals assigned to a "path" key and cannot resolve paths built from
// runtime expressions or imported constants. Callers must treat its output as
// a coverage aid, not ground truth.
package routeseeds

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/PentesterFlow/OpenProbe/internal/urlnorm"
)

var (
	pathLiteralRe = regexp.MustCompile(`path\s*[=:]\s*\{?\s*['"]([^'"]+)['"]\s*\}?`)
	paramRe       = regexp.MustCompile(`:(\w+)`)
)

// sentinel values that never count as a usable parameter value.
var sentinelValues = map[string]struct{}{
	"undefined": {},
	"null":      {},
	"none":      {},
	"nan":       {},
}

// Stats describes one extraction/expansion pass.
type Stats struct {
	MissingFile     bool
	TotalPaths      int
	StaticPaths     int
	DynamicPaths    int
	DynamicExpanded int
	CappedPaths     int
}

// Options controls dynamic-path expansion.
type Options struct {
	// IncludeDynamic enables expansion of paths with :param segments.
	IncludeDynamic bool
	// SkipMissing skips a dynamic path when any segment has no known values.
	// A path with a value-less segment is skipped either way; the flag is kept
	// for config compatibility.
	SkipMissing bool
	// MaxPerPath bounds the cartesian product per dynamic path. Zero means
	// the default of 64. Truncation is reported via Stats.CappedPaths.
	MaxPerPath int
}

const defaultMaxPerPath = 64

// ExtractPaths pulls path templates out of route-table text, normalized to a
// leading-slash form, deduplicated in first-seen order, wildcards dropped.
func ExtractPaths(content string) []string {
	matches := pathLiteralRe.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		path := strings.TrimSpace(m[1])
		if path == "" || strings.Contains(path, "*") {
			continue
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	return paths
}

// LoadPaths reads a route-table file and extracts its path templates. A
// missing file is not an error; it is reported through Stats.MissingFile.
func LoadPaths(file string) ([]string, Stats) {
	var stats Stats
	if file == "" {
		stats.MissingFile = true
		return nil, stats
	}
	content, err := os.ReadFile(file)
	if err != nil {
		stats.MissingFile = true
		return nil, stats
	}
	paths := ExtractPaths(string(content))
	stats.TotalPaths = len(paths)
	return paths, stats
}

// Params lists the :name parameters of a path template in order.
func Params(path string) []string {
	matches := paramRe.FindAllStringSubmatch(path, -1)
	params := make([]string, 0, len(matches))
	for _, m := range matches {
		params = append(params, m[1])
	}
	return params
}

// Matcher matches concrete URL paths against one dynamic path template with
// an exact segment count; each :name segment captures one non-slash segment.
type Matcher struct {
	re     *regexp.Regexp
	params []string
}

// BuildMatchers compiles matchers for every dynamic path in the list. Static
// paths and the bare root yield no matcher.
func BuildMatchers(paths []string) []Matcher {
	matchers := make([]Matcher, 0, len(paths))
	for _, path := range paths {
		params := Params(path)
		if len(params) == 0 || path == "/" {
			continue
		}
		segments := strings.Split(strings.Trim(path, "/"), "/")
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			if strings.HasPrefix(seg, ":") {
				parts = append(parts, `([^/]+)`)
			} else {
				parts = append(parts, regexp.QuoteMeta(seg))
			}
		}
		re, err := regexp.Compile("^/" + strings.Join(parts, "/") + "$")
		if err != nil {
			continue
		}
		matchers = append(matchers, Matcher{re: re, params: params})
	}
	return matchers
}

// ExtractParamValues harvests parameter values from every candidate URL whose
// path matches one of the dynamic templates. Values are deduplicated, sorted,
// and sentinel/empty values are dropped.
func ExtractParamValues(matchers []Matcher, urls []string) map[string][]string {
	collected := make(map[string]map[string]struct{})
	for _, raw := range urls {
		path := urlnorm.Path(raw)
		if path == "" {
			continue
		}
		for _, m := range matchers {
			groups := m.re.FindStringSubmatch(path)
			if groups == nil {
				continue
			}
			for i, name := range m.params {
				value := groups[i+1]
				if !usableParamValue(value) {
					continue
				}
				if collected[name] == nil {
					collected[name] = make(map[string]struct{})
				}
				collected[name][value] = struct{}{}
			}
		}
	}

	result := make(map[string][]string, len(collected))
	for name, set := range collected {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		result[name] = values
	}
	return result
}

// NormalizeParamValues cleans a configured or learned value table: trims
// whitespace, drops empties and sentinels, deduplicates preserving order.
func NormalizeParamValues(values map[string][]string) map[string][]string {
	normalized := make(map[string][]string, len(values))
	for name, list := range values {
		seen := make(map[string]struct{}, len(list))
		cleaned := make([]string, 0, len(list))
		for _, v := range list {
			text := strings.TrimSpace(v)
			if !usableParamValue(text) {
				continue
			}
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			cleaned = append(cleaned, text)
		}
		if len(cleaned) > 0 {
			normalized[name] = cleaned
		}
	}
	return normalized
}

func usableParamValue(v string) bool {
	if v == "" {
		return false
	}
	_, sentinel := sentinelValues[strings.ToLower(v)]
	return !sentinel
}

// Expand turns path templates into seed URLs on the given origin. Static
// paths map one-to-one. Dynamic paths expand over the cartesian product of
// known values per segment, bounded by Options.MaxPerPath; a path with any
// value-less segment is skipped whole.
func Expand(paths []string, baseURL string, values map[string][]string, opts Options) ([]string, Stats) {
	stats := Stats{TotalPaths: len(paths)}
	normalized := NormalizeParamValues(values)
	maxPerPath := opts.MaxPerPath
	if maxPerPath <= 0 {
		maxPerPath = defaultMaxPerPath
	}

	origin := urlnorm.Origin(baseURL)
	seen := make(map[string]struct{})
	urls := make([]string, 0, len(paths))
	add := func(path string) {
		u := origin + path
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, path := range paths {
		params := Params(path)
		if len(params) == 0 {
			stats.StaticPaths++
			add(path)
			continue
		}

		stats.DynamicPaths++
		if !opts.IncludeDynamic {
			continue
		}

		valueLists := make([][]string, 0, len(params))
		missing := false
		for _, p := range params {
			list := normalized[p]
			if len(list) == 0 {
				missing = true
				break
			}
			valueLists = append(valueLists, list)
		}
		if missing {
			// Skipped regardless of SkipMissing; see Options.
			continue
		}

		expanded, capped := expandPath(path, params, valueLists, maxPerPath)
		if capped {
			stats.CappedPaths++
		}
		stats.DynamicExpanded += len(expanded)
		for _, p := range expanded {
			add(p)
		}
	}

	return urls, stats
}

// expandPath substitutes every combination of values into the template,
// stopping at the cap. Returns the expansions and whether the cap was hit.
func expandPath(path string, params []string, valueLists [][]string, limit int) ([]string, bool) {
	total := 1
	for _, list := range valueLists {
		total *= len(list)
	}
	capped := total > limit
	if capped {
		total = limit
	}

	expanded := make([]string, 0, total)
	indices := make([]int, len(valueLists))
	for len(expanded) < total {
		result := path
		for i, p := range params {
			result = strings.Replace(result, ":"+p, valueLists[i][indices[i]], 1)
		}
		expanded = append(expanded, result)

		// Odometer increment, last segment fastest.
		for i := len(indices) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(valueLists[i]) {
				break
			}
			indices[i] = 0
		}
	}
	return expanded, capped
}
