// Package modules maps URLs to the named feature areas of the site under test.
package modules

import (
	"net/url"
	"strings"
)

// Uncategorized is returned when no module's seed prefix matches a URL.
const Uncategorized = "Uncategorized"

// Module is a named feature area defined by one or more seed URLs.
type Module struct {
	Name  string
	Seeds []string
}

// Matcher resolves URLs to modules. Modules are checked in declaration order
// and the first match wins, so overlapping seed prefixes are order-dependent.
type Matcher struct {
	modules []Module
	index   map[string][]string
}

// NewMatcher builds a matcher over an ordered module list.
func NewMatcher(mods []Module) *Matcher {
	m := &Matcher{
		modules: mods,
		index:   make(map[string][]string, len(mods)),
	}
	for _, mod := range mods {
		m.index[mod.Name] = mod.Seeds
	}
	return m
}

// Modules returns the configured modules in declaration order.
func (m *Matcher) Modules() []Module {
	return m.modules
}

// Seeds returns the seed URLs of a module, or nil when unknown.
func (m *Matcher) Seeds(name string) []string {
	return m.index[name]
}

// Has reports whether a module with the given name is configured.
func (m *Matcher) Has(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Resolve returns the name of the first module owning the URL, or
// Uncategorized when none matches.
func (m *Matcher) Resolve(rawURL string) string {
	for _, mod := range m.modules {
		if urlMatchesSeeds(rawURL, mod.Seeds) {
			return mod.Name
		}
	}
	return Uncategorized
}

// Contains reports whether the URL belongs to the named module. A module with
// no seeds owns nothing. An empty module name means "no filter" and matches
// everything.
func (m *Matcher) Contains(rawURL, moduleName string) bool {
	if moduleName == "" {
		return true
	}
	seeds := m.index[moduleName]
	if len(seeds) == 0 {
		return false
	}
	return urlMatchesSeeds(rawURL, seeds)
}

// urlMatchesSeeds applies the slash-bounded prefix test against each seed:
// same scheme and host when the seed carries them, and the URL path equal to
// or nested under the seed path. A path-only seed ("/shop") has no origin of
// its own and matches any host; the crawl scope already pins the origin.
func urlMatchesSeeds(rawURL string, seeds []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	urlPath := strings.TrimRight(parsed.Path, "/")

	for _, seed := range seeds {
		seedParsed, err := url.Parse(seed)
		if err != nil {
			continue
		}
		if seedParsed.Host != "" && (parsed.Scheme != seedParsed.Scheme || parsed.Host != seedParsed.Host) {
			continue
		}
		seedPath := strings.TrimRight(seedParsed.Path, "/")
		if urlPath == seedPath || strings.HasPrefix(urlPath, seedPath+"/") {
			return true
		}
	}
	return false
}
