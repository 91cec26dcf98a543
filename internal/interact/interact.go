// Package interact exercises discovered elements one at a time and grades
// each interaction. Interactions are non-destructive: buttons and toggles are
// clicked, links are clicked and navigated back from, inputs are only
// focused, never filled.
package interact

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/browser"
	"github.com/PentesterFlow/OpenProbe/internal/discovery"
)

// Status grades one element interaction.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

const maxErrorLen = 500

// Result is the outcome of testing one element. NavigatedTo is set when the
// interaction navigated away from the page under test.
type Result struct {
	Type        string `json:"element_type"`
	Label       string `json:"element_text"`
	Selector    string `json:"element_selector"`
	Action      string `json:"action"`
	Status      Status `json:"status"`
	Error       string `json:"error_message,omitempty"`
	Screenshot  string `json:"screenshot_path,omitempty"`
	NavigatedTo string `json:"navigated_to,omitempty"`
}

// errorDialogSelectors mark a failed interaction when any becomes visible.
var errorDialogSelectors = []string{
	".error-modal",
	".error-dialog",
	"[role='alertdialog']",
	".alert-danger",
	".toast-error",
	".notification-error",
}

// closeDialogSelectors are probed to dismiss whatever opened.
var closeDialogSelectors = []string{
	".modal .close",
	".modal .btn-close",
	"[aria-label='Close']",
	".dialog-close",
	".modal-close",
}

// Config tunes interaction behavior.
type Config struct {
	// InteractionDelay is the settle pause after each action.
	InteractionDelay time.Duration
	// PopupWindow is how long to wait for a popup after a click.
	PopupWindow time.Duration
	// ScreenshotOnError captures the page when an interaction fails.
	ScreenshotOnError bool
	// ScreenshotDir receives failure screenshots.
	ScreenshotDir string
}

// Tester runs the per-element interaction protocol on one page.
type Tester struct {
	page browser.Page
	cfg  Config
	now  func() time.Time
}

// New builds a tester bound to one page.
func New(page browser.Page, cfg Config) *Tester {
	return &Tester{page: page, cfg: cfg, now: time.Now}
}

// Test dispatches on the element's category. Unknown categories get the
// button treatment: a plain click is the safest generic probe.
func (t *Tester) Test(c discovery.Candidate) Result {
	switch c.Type {
	case discovery.TypeButton:
		return t.testButton(c)
	case discovery.TypeNavLink, discovery.TypeClickable:
		return t.testLink(c)
	case discovery.TypeInput:
		return t.testInput(c)
	case discovery.TypeDropdown, discovery.TypeModalTrigger:
		return t.testDropdown(c)
	default:
		return t.testButton(c)
	}
}

func (t *Tester) testButton(c discovery.Candidate) Result {
	result := Result{
		Type:     "button",
		Label:    c.Label,
		Selector: c.Selector,
		Action:   "click",
		Status:   StatusPassed,
	}

	initialURL := t.page.URL()

	if skip, reason := t.preflight(c.Element, true); skip {
		result.Status = StatusSkipped
		result.Error = reason
		return result
	}

	if err := t.clickWithPopupWatch(c.Element); err != nil {
		t.fail(&result, "button", c.Label, err.Error())
		return result
	}
	t.page.Settle(t.cfg.InteractionDelay)

	result.NavigatedTo = t.maybeGoBack(initialURL)

	if t.errorDialogVisible() {
		t.fail(&result, "button", c.Label, "Error dialog appeared after click")
		t.closeDialogs()
	}
	return result
}

func (t *Tester) testLink(c discovery.Candidate) Result {
	result := Result{
		Type:     "link",
		Label:    c.Label,
		Selector: c.Selector,
		Action:   "click",
		Status:   StatusPassed,
	}

	if visible, err := c.Element.Visible(); err != nil || !visible {
		result.Status = StatusSkipped
		result.Error = "Element not visible"
		return result
	}
	if ok, err := c.Element.Interactable(); err != nil || !ok {
		result.Status = StatusSkipped
		result.Error = "Element not interactable"
		return result
	}

	initialURL := t.page.URL()

	if err := t.clickWithPopupWatch(c.Element); err != nil {
		t.fail(&result, "link", c.Label, err.Error())
		return result
	}
	t.page.Settle(t.cfg.InteractionDelay)

	result.NavigatedTo = t.maybeGoBack(initialURL)
	return result
}

func (t *Tester) testInput(c discovery.Candidate) Result {
	result := Result{
		Type:     "input",
		Label:    c.Label,
		Selector: c.Selector,
		Action:   "focus",
		Status:   StatusPassed,
	}

	if visible, err := c.Element.Visible(); err != nil || !visible {
		result.Status = StatusSkipped
		result.Error = "Element not visible"
		return result
	}

	if err := c.Element.Focus(); err != nil {
		t.fail(&result, "input", c.Label, err.Error())
		return result
	}
	t.page.Settle(200 * time.Millisecond)

	// The field is never filled; editability is only recorded.
	if editable, err := c.Element.Editable(); err == nil && editable {
		result.Action = "focus (editable)"
	} else {
		result.Action = "focus (read-only)"
	}
	return result
}

func (t *Tester) testDropdown(c discovery.Candidate) Result {
	result := Result{
		Type:     "dropdown",
		Label:    c.Label,
		Selector: c.Selector,
		Action:   "click",
		Status:   StatusPassed,
	}

	if visible, err := c.Element.Visible(); err != nil || !visible {
		result.Status = StatusSkipped
		result.Error = "Element not visible"
		return result
	}

	if err := c.Element.Click(); err != nil {
		t.fail(&result, "dropdown", c.Label, err.Error())
		return result
	}
	t.page.Settle(t.cfg.InteractionDelay)

	// Close it again: second click, body click as fallback.
	if err := c.Element.Click(); err != nil {
		t.clickBody()
	}
	t.page.Settle(t.cfg.InteractionDelay)

	return result
}

// preflight runs the skip checks shared by click-style interactions.
func (t *Tester) preflight(el browser.Element, checkEnabled bool) (skip bool, reason string) {
	if visible, err := el.Visible(); err != nil || !visible {
		return true, "Element not visible"
	}
	if checkEnabled {
		if enabled, err := el.Enabled(); err != nil || !enabled {
			return true, "Element not enabled"
		}
	}
	if ok, err := el.Interactable(); err != nil || !ok {
		return true, "Element not interactable"
	}
	return false, ""
}

// clickWithPopupWatch clicks the element, tolerating a popup window: one
// opening within the window is closed and does not count as a failure.
func (t *Tester) clickWithPopupWatch(el browser.Element) error {
	resolve := t.page.WatchPopup(t.cfg.PopupWindow)
	if err := el.Click(); err != nil {
		return err
	}
	resolve()
	return nil
}

// maybeGoBack returns to the page under test when the click navigated away,
// reporting the URL the click landed on (empty when it stayed put).
// Best-effort: a page that cannot be returned to is caught by the caller's
// next navigation.
func (t *Tester) maybeGoBack(initialURL string) string {
	current := t.page.URL()
	if current == "" || current == initialURL {
		return ""
	}
	if err := t.page.Back(); err != nil {
		return current
	}
	t.page.Settle(t.cfg.InteractionDelay)
	return current
}

// clickBody clicks the page body, the generic way to collapse an open
// dropdown whose toggle became unclickable.
func (t *Tester) clickBody() {
	els, err := t.page.Elements("body")
	if err != nil || len(els) == 0 {
		return
	}
	_ = els[0].Click()
}

func (t *Tester) errorDialogVisible() bool {
	for _, selector := range errorDialogSelectors {
		els, err := t.page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err == nil && visible {
				return true
			}
		}
	}
	return false
}

func (t *Tester) closeDialogs() {
	for _, selector := range closeDialogSelectors {
		els, err := t.page.Elements(selector)
		if err != nil || len(els) == 0 {
			continue
		}
		if visible, err := els[0].Visible(); err != nil || !visible {
			continue
		}
		if err := els[0].Click(); err == nil {
			t.page.Settle(300 * time.Millisecond)
			break
		}
	}
	_ = t.page.PressEscape()
}

func (t *Tester) fail(result *Result, kind, label, message string) {
	result.Status = StatusFailed
	if len(message) > maxErrorLen {
		message = message[:maxErrorLen]
	}
	result.Error = message
	if t.cfg.ScreenshotOnError {
		result.Screenshot = t.screenshot(fmt.Sprintf("%s_error_%s", kind, truncate(label, 20)))
	}
}

// screenshot writes a timestamped capture and returns its path, empty when
// the capture fails.
func (t *Tester) screenshot(name string) string {
	filename := fmt.Sprintf("%s_%s.png", sanitize(name), t.now().Format("20060102_150405.000000"))
	path := filepath.Join(t.cfg.ScreenshotDir, filename)
	if err := t.page.Screenshot(path); err != nil {
		return ""
	}
	return path
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
