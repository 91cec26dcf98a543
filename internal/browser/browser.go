// Package browser provides headless Chrome integration via Rod.
//
// Discovery and interaction code never touches rod types directly; it works
// against the Page and Element interfaces below so the whole test pipeline
// runs against fakes.
package browser

import (
	"net/http"
	"time"
)

// Config defines browser configuration.
type Config struct {
	Headless          bool              `json:"headless" yaml:"headless"`
	NavTimeout        time.Duration     `json:"nav_timeout" yaml:"nav_timeout"`
	ActionTimeout     time.Duration     `json:"action_timeout" yaml:"action_timeout"`
	UserAgent         string            `json:"user_agent" yaml:"user_agent"`
	ViewportWidth     int               `json:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int               `json:"viewport_height" yaml:"viewport_height"`
	IgnoreHTTPSErrors bool              `json:"ignore_https_errors" yaml:"ignore_https_errors"`
	ExtraHeaders      map[string]string `json:"extra_headers" yaml:"extra_headers"`
}

// DefaultConfig returns default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		NavTimeout:        30 * time.Second,
		ActionTimeout:     5 * time.Second,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		IgnoreHTTPSErrors: true,
	}
}

// Element is one interactable DOM node. Predicates return an error separately
// from their answer so callers can tell "no" apart from "could not determine".
type Element interface {
	// Tag returns the lower-case tag name.
	Tag() (string, error)
	// Visible reports whether the node is rendered.
	Visible() (bool, error)
	// Enabled reports whether the node accepts interaction (not disabled).
	Enabled() (bool, error)
	// Editable reports whether the node accepts text input.
	Editable() (bool, error)
	// Interactable reports whether the node can receive a click right now.
	Interactable() (bool, error)
	// Attribute returns an attribute value and whether it is present.
	Attribute(name string) (string, bool, error)
	// Text returns the node's visible text.
	Text() (string, error)
	// EvalString runs a JS function bound to the node and stringifies the result.
	EvalString(js string) (string, error)
	// Click performs a left click.
	Click() error
	// Focus gives the node keyboard focus.
	Focus() error
	// Input replaces the node's current text with the given text.
	Input(text string) error
}

// Page is the browsing surface the exerciser drives. One Page maps onto one
// browser tab for the whole run.
type Page interface {
	// URL returns the current address, empty when it cannot be read.
	URL() string
	// Title returns the current document title, best effort.
	Title() string
	// HTML returns the serialized DOM.
	HTML() (string, error)
	// Navigate loads a URL and waits for the load event.
	Navigate(url string) error
	// Back performs history navigation and waits for the load event.
	Back() error
	// Elements returns all nodes matching a CSS selector without waiting.
	Elements(selector string) ([]Element, error)
	// Eval runs a JS function on the page and stringifies the result.
	Eval(js string) (string, error)
	// Screenshot writes a PNG of the viewport to path.
	Screenshot(path string) error
	// PressEscape sends the Escape key to the page.
	PressEscape() error
	// PressEnter sends the Enter key to the page.
	PressEnter() error
	// WatchPopup arms a popup watcher before a click. The returned resolve
	// reports whether a popup opened within the window, closing it if so.
	WatchPopup(window time.Duration) (resolve func() bool)
	// Settle sleeps to let client-side rendering catch up.
	Settle(d time.Duration)
}

// EventSink receives raw browser events captured while a page is live.
type EventSink interface {
	OnResponse(url string, status int)
	OnConsole(messageType, text string)
	OnPageError(text string)
}

// CookieSetter is implemented by sessions that can pre-load cookies before
// the first navigation.
type CookieSetter interface {
	SetCookies(cookies []*http.Cookie) error
}
