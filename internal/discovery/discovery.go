// Package discovery finds links and interactive elements on the page under
// test. Link discovery feeds the frontier; element discovery feeds the
// interaction tester.
package discovery

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/PentesterFlow/OpenProbe/internal/browser"
	"github.com/PentesterFlow/OpenProbe/internal/modules"
	"github.com/PentesterFlow/OpenProbe/internal/urlnorm"
)

// Element categories, in discovery order.
const (
	TypeButton       = "button"
	TypeClickable    = "clickable"
	TypeInput        = "input"
	TypeNavLink      = "nav_link"
	TypeDropdown     = "dropdown"
	TypeModalTrigger = "modal_trigger"
)

// categorySelectors pairs each element category with its CSS selector.
// Visibility is checked per node; CSS has no :visible.
var categorySelectors = []struct {
	category string
	selector string
}{
	{TypeButton, "button, [role='button'], input[type='button'], input[type='submit']"},
	{TypeClickable, "[onclick], [data-action]"},
	{TypeInput, "input:not([type='hidden']), select, textarea"},
	{TypeNavLink, "nav a, .nav a, .navbar a, .menu a"},
	{TypeDropdown, "[data-toggle], [data-bs-toggle], .dropdown-toggle"},
	{TypeModalTrigger, "[data-modal], [data-bs-target^='#']"},
}

// linkAttributes are the non-href attributes that carry navigation targets.
var linkAttributes = []string{"data-href", "data-route", "data-url"}

// Candidate is one interactive element selected for testing.
type Candidate struct {
	Type     string
	Label    string
	Selector string
	Element  browser.Element
}

// Config tunes discovery behavior.
type Config struct {
	// ExcludedElementSelectors lists CSS selectors whose matches are never
	// tested (logout buttons and similar).
	ExcludedElementSelectors []string
	// ModuleName restricts element targets to one module; empty means no
	// restriction.
	ModuleName string
	// Visited reports whether a URL was already crawled; such links are
	// not reported again. Nil disables the filter.
	Visited func(url string) bool
}

// Discoverer inspects the current page.
type Discoverer struct {
	page       browser.Page
	normalizer *urlnorm.Normalizer
	matcher    *modules.Matcher
	cfg        Config
}

// New builds a discoverer bound to one page.
func New(page browser.Page, normalizer *urlnorm.Normalizer, matcher *modules.Matcher, cfg Config) *Discoverer {
	return &Discoverer{
		page:       page,
		normalizer: normalizer,
		matcher:    matcher,
		cfg:        cfg,
	}
}

// Links returns normalized same-origin link targets found on the page:
// anchor hrefs plus data-href/data-route/data-url carriers, from both the
// live DOM and a static rescan of the serialized HTML. Already-visited URLs
// are excluded. Results are deduplicated; order follows first discovery.
func (d *Discoverer) Links() []string {
	pageURL := d.page.URL()
	seen := make(map[string]struct{})
	var links []string

	add := func(raw string) {
		if raw == "" || !d.normalizer.IsValid(pageURL, raw) {
			return
		}
		normalized := d.normalizer.Normalize(pageURL, raw)
		if normalized == "" || !d.inModule(normalized) {
			return
		}
		if d.cfg.Visited != nil && d.cfg.Visited(normalized) {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	}

	if els, err := d.page.Elements("a[href]"); err == nil {
		for _, el := range els {
			if href, ok, err := el.Attribute("href"); err == nil && ok {
				add(href)
			}
		}
	}
	for _, attr := range linkAttributes {
		els, err := d.page.Elements("[" + attr + "]")
		if err != nil {
			continue
		}
		for _, el := range els {
			if v, ok, err := el.Attribute(attr); err == nil && ok {
				add(v)
			}
		}
	}

	// Static rescan catches carriers the live queries missed (e.g. nodes
	// detached after nav expansion).
	if html, err := d.page.HTML(); err == nil {
		for _, raw := range staticLinkTargets(html) {
			add(raw)
		}
	}

	return links
}

// staticLinkTargets parses serialized HTML and pulls every link-carrying
// attribute value out of it.
func staticLinkTargets(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var targets []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			targets = append(targets, href)
		}
	})
	for _, attr := range linkAttributes {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				targets = append(targets, v)
			}
		})
	}
	return targets
}

// Elements returns the interactive elements worth testing on the page, in
// category order. Only visible elements that pass the exclusion and module
// filters are returned.
func (d *Discoverer) Elements() []Candidate {
	var out []Candidate
	for _, cat := range categorySelectors {
		els, err := d.page.Elements(cat.selector)
		if err != nil {
			continue
		}
		for _, el := range els {
			visible, err := el.Visible()
			if err != nil || !visible {
				continue
			}
			if !d.shouldInclude(el) {
				continue
			}
			out = append(out, Candidate{
				Type:     cat.category,
				Label:    Label(el),
				Selector: SelectorFor(el),
				Element:  el,
			})
		}
	}
	return out
}

// shouldInclude applies the exclusion selectors and, when a module is
// selected, the module boundary to the element's navigation target.
func (d *Discoverer) shouldInclude(el browser.Element) bool {
	if d.matchesExcluded(el) {
		return false
	}
	if d.cfg.ModuleName == "" {
		return true
	}

	target := targetURL(el)
	if target == "" {
		return true
	}
	lower := strings.ToLower(target)
	if strings.HasPrefix(target, "#") || strings.HasPrefix(lower, "javascript:") {
		return true
	}

	abs := urlnorm.Resolve(d.page.URL(), target)
	if abs == "" {
		return false
	}
	if !strings.HasPrefix(abs, "http://") && !strings.HasPrefix(abs, "https://") {
		return false
	}
	if urlnorm.Origin(abs) != urlnorm.Origin(d.page.URL()) {
		return false
	}
	return d.matcher.Contains(abs, d.cfg.ModuleName)
}

func (d *Discoverer) matchesExcluded(el browser.Element) bool {
	for _, selector := range d.cfg.ExcludedElementSelectors {
		res, err := el.EvalString(fmt.Sprintf("() => this.matches(%q)", selector))
		if err != nil {
			continue
		}
		if res == "true" {
			return true
		}
	}
	return false
}

func (d *Discoverer) inModule(url string) bool {
	if d.cfg.ModuleName == "" {
		return true
	}
	return d.matcher.Contains(url, d.cfg.ModuleName)
}

// targetURL extracts the element's navigation target, if any. Placeholder
// hrefs ("#", javascript:, void(0)) do not count.
func targetURL(el browser.Element) string {
	for _, attr := range []string{"href", "data-href", "data-route", "data-url"} {
		value, ok, err := el.Attribute(attr)
		if err != nil || !ok || value == "" {
			continue
		}
		if attr == "href" {
			lower := strings.ToLower(value)
			if value == "#" || strings.HasPrefix(lower, "javascript:") || strings.Contains(lower, "void(0)") {
				continue
			}
		}
		return value
	}
	return ""
}

const maxLabelLen = 100

// Label derives a human-readable identifier for an element, probing in
// priority order: inner text, aria-label, aria-labelledby, textContent,
// value, placeholder, title, name, alt, data-testid.
func Label(el browser.Element) string {
	if text, err := el.Text(); err == nil {
		if t := strings.TrimSpace(text); t != "" {
			return truncate(t, maxLabelLen)
		}
	} else {
		return "[Unknown]"
	}

	if v, ok, err := el.Attribute("aria-label"); err == nil && ok {
		if t := strings.TrimSpace(v); t != "" {
			return truncate(t, maxLabelLen)
		}
	}

	if v, ok, err := el.Attribute("aria-labelledby"); err == nil && ok && v != "" {
		labelled, err := el.EvalString(`() => {
			const ids = (this.getAttribute('aria-labelledby') || '').split(/\s+/).filter(Boolean);
			const parts = ids.map(id => {
				const target = document.getElementById(id);
				return target ? (target.innerText || target.textContent || '').trim() : '';
			}).filter(Boolean);
			return parts.join(' ');
		}`)
		if err == nil && labelled != "" {
			return truncate(labelled, maxLabelLen)
		}
	}

	if content, err := el.EvalString(`() => (this.textContent || '').trim()`); err == nil && content != "" {
		return truncate(content, maxLabelLen)
	}

	for _, attr := range []string{"value", "placeholder", "title", "name", "alt", "data-testid"} {
		if v, ok, err := el.Attribute(attr); err == nil && ok && v != "" {
			return truncate(v, maxLabelLen)
		}
	}

	return "[No text]"
}

// SelectorFor derives a descriptive selector for reporting and dedup keys:
// id, then data-testid, then first class + label, then tag name.
func SelectorFor(el browser.Element) string {
	if id, ok, err := el.Attribute("id"); err == nil && ok && id != "" {
		return "#" + id
	}
	if testid, ok, err := el.Attribute("data-testid"); err == nil && ok && testid != "" {
		return fmt.Sprintf("[data-testid='%s']", testid)
	}
	classes, ok, err := el.Attribute("class")
	if err == nil && ok && classes != "" {
		if label := Label(el); label != "[No text]" && label != "[Unknown]" {
			mainClass := strings.Fields(classes)[0]
			return fmt.Sprintf(".%s:has-text('%s')", mainClass, truncate(label, 30))
		}
	}
	if tag, err := el.Tag(); err == nil && tag != "" {
		return tag
	}
	return "[unknown]"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
