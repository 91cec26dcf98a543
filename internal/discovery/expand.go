package discovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/browser"
)

// ExpandConfig tunes the pre-discovery expansion pass.
type ExpandConfig struct {
	// ExpandNav enables clicking toggles to reveal hidden links.
	ExpandNav bool
	// MaxExpandClicks bounds how many toggles are clicked per page.
	MaxExpandClicks int
	// ClickSelectors lists the toggle selectors tried in order.
	ClickSelectors []string
	// ExcludedText skips toggles whose label contains any of these tokens.
	ExcludedText []string
	// ClickDelay is the pause after each expansion click.
	ClickDelay time.Duration

	// Scroll enables stepped scrolling to trigger lazy-loaded content.
	Scroll bool
	// ScrollSteps is the number of scroll positions visited.
	ScrollSteps int
	// ScrollPause is the pause after each scroll step.
	ScrollPause time.Duration
	// ScrollToTop returns to the top after scrolling.
	ScrollToTop bool
}

// DefaultExpandConfig mirrors the defaults the tool ships with.
func DefaultExpandConfig() ExpandConfig {
	return ExpandConfig{
		ExpandNav:       true,
		MaxExpandClicks: 5,
		ClickSelectors: []string{
			".dropdown-toggle",
			"[data-toggle]",
			"[data-bs-toggle]",
			"[aria-haspopup='true']",
			"[aria-expanded='false']",
		},
		ExcludedText: []string{"logout", "sign out", "delete"},
		ClickDelay:   500 * time.Millisecond,
		Scroll:       true,
		ScrollSteps:  4,
		ScrollPause:  250 * time.Millisecond,
		ScrollToTop:  true,
	}
}

// ExpandNav clicks low-risk toggles (dropdowns, hamburger menus) to reveal
// links hidden behind them. Returns the number of clicks performed. Every
// failure is skipped; expansion is best-effort by nature.
func (d *Discoverer) ExpandNav(cfg ExpandConfig) int {
	if !cfg.ExpandNav || cfg.MaxExpandClicks <= 0 {
		return 0
	}

	clicked := 0
	seen := make(map[string]struct{})
	for _, selector := range cfg.ClickSelectors {
		if clicked >= cfg.MaxExpandClicks {
			break
		}
		els, err := d.page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range els {
			if clicked >= cfg.MaxExpandClicks {
				break
			}
			if !d.safeExpandTarget(el, cfg) {
				continue
			}
			key := SelectorFor(el) + "|" + Label(el)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if err := el.Click(); err != nil {
				continue
			}
			clicked++
			d.page.Settle(cfg.ClickDelay)
		}
	}
	return clicked
}

// safeExpandTarget limits expansion clicks to low-risk toggles: included by
// the module filter, no excluded label text, visible, enabled, and without a
// real navigation href.
func (d *Discoverer) safeExpandTarget(el browser.Element, cfg ExpandConfig) bool {
	if !d.shouldInclude(el) {
		return false
	}
	if excludedLabel(Label(el), cfg.ExcludedText) {
		return false
	}
	visible, err := el.Visible()
	if err != nil || !visible {
		return false
	}
	// Enabled probe is best-effort; an undeterminable state does not block.
	if enabled, err := el.Enabled(); err == nil && !enabled {
		return false
	}
	if href, ok, err := el.Attribute("href"); err == nil && ok && href != "" {
		lower := strings.ToLower(href)
		// Placeholder hrefs are safe toggles; anything else navigates away.
		return href == "#" || strings.HasPrefix(lower, "javascript:") || strings.Contains(lower, "void(0)")
	}
	return true
}

func excludedLabel(label string, tokens []string) bool {
	lower := strings.ToLower(label)
	if lower == "" || lower == "[no text]" || lower == "[unknown]" {
		return false
	}
	for _, token := range tokens {
		if token != "" && strings.Contains(lower, strings.ToLower(token)) {
			return true
		}
	}
	return false
}

// ScrollPage scrolls through the page in steps to trigger lazy-loaded
// content, optionally returning to the top. Returns whether any scrolling
// happened.
func (d *Discoverer) ScrollPage(cfg ExpandConfig) bool {
	if !cfg.Scroll {
		return false
	}
	heightStr, err := d.page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return false
	}
	height := parseInt(heightStr)
	if height <= 0 {
		return false
	}

	steps := cfg.ScrollSteps
	if steps < 1 {
		steps = 1
	}
	stepSize := height / steps
	if stepSize < 1 {
		stepSize = 1
	}
	for step := 1; step <= steps; step++ {
		position := step * stepSize
		if position > height {
			position = height
		}
		if _, err := d.page.Eval(fmt.Sprintf(`() => window.scrollTo(0, %d)`, position)); err != nil {
			return step > 1
		}
		d.page.Settle(cfg.ScrollPause)
	}
	if cfg.ScrollToTop {
		_, _ = d.page.Eval(`() => window.scrollTo(0, 0)`)
		d.page.Settle(cfg.ScrollPause)
	}
	return true
}

func parseInt(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			// Eval may stringify as float ("1200.0"); stop at the dot.
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
