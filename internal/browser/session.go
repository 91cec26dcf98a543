package browser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// Session drives one Chrome tab through rod. It implements Page.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     Config
}

var _ Page = (*Session)(nil)
var _ CookieSetter = (*Session)(nil)

// NewSession launches a browser and opens the single tab used for the run.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	l := launcher.New().Headless(cfg.Headless)
	if cfg.IgnoreHTTPSErrors {
		l = l.Set("ignore-certificate-errors", "true")
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(url).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:  cfg.ViewportWidth,
			Height: cfg.ViewportHeight,
		})
	}

	if cfg.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}.Call(page)
	}

	if len(cfg.ExtraHeaders) > 0 {
		networkHeaders := make(proto.NetworkHeaders)
		for k, v := range cfg.ExtraHeaders {
			networkHeaders[k] = gson.New(v)
		}
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: networkHeaders}.Call(page)
	}

	// Event capture needs these domains up before the first navigation.
	_ = proto.NetworkEnable{}.Call(page)
	_ = proto.RuntimeEnable{}.Call(page)

	return &Session{browser: b, page: page, cfg: cfg}, nil
}

// SetCookies pre-loads cookies before the first navigation.
func (s *Session) SetCookies(cookies []*http.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return s.page.SetCookies(params)
}

// Navigate loads a URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	p := s.page.Timeout(s.cfg.NavTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("navigation load wait for %s failed: %w", url, err)
	}
	return nil
}

// Back performs history navigation and waits for the load event.
func (s *Session) Back() error {
	p := s.page.Timeout(s.cfg.NavTimeout)
	if err := p.NavigateBack(); err != nil {
		return fmt.Errorf("history back failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("history back load wait failed: %w", err)
	}
	return nil
}

// URL returns the current address, empty when it cannot be read.
func (s *Session) URL() string {
	info, err := s.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

// Title returns the current document title, best effort.
func (s *Session) Title() string {
	info, err := s.page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.Title
}

// HTML returns the serialized DOM.
func (s *Session) HTML() (string, error) {
	return s.page.Timeout(s.cfg.ActionTimeout).HTML()
}

// Elements returns all current matches for a CSS selector without waiting
// for one to appear.
func (s *Session) Elements(selector string) ([]Element, error) {
	els, err := s.page.Timeout(s.cfg.ActionTimeout).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, timeout: s.cfg.ActionTimeout})
	}
	return out, nil
}

// Eval runs a JS function on the page and stringifies the result.
func (s *Session) Eval(js string) (string, error) {
	obj, err := s.page.Timeout(s.cfg.ActionTimeout).Eval(js)
	if err != nil {
		return "", err
	}
	return jsonString(obj.Value), nil
}

// Screenshot writes a PNG of the viewport to path.
func (s *Session) Screenshot(path string) error {
	data, err := s.page.Timeout(s.cfg.ActionTimeout).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// PressEscape sends the Escape key to the page.
func (s *Session) PressEscape() error {
	return s.page.Timeout(s.cfg.ActionTimeout).Keyboard.Press(input.Escape)
}

// PressEnter sends the Enter key to the page.
func (s *Session) PressEnter() error {
	return s.page.Timeout(s.cfg.ActionTimeout).Keyboard.Press(input.Enter)
}

// WatchPopup arms a popup watcher before a click. The resolve function
// reports whether a popup opened within the window and closes it if so.
// A window elapsing with no popup is the normal case, not an error.
func (s *Session) WatchPopup(window time.Duration) func() bool {
	wait := s.page.Timeout(window).WaitOpen()
	return func() bool {
		popup, err := wait()
		if err != nil {
			return false
		}
		_ = popup.Close()
		return true
	}
}

// Settle sleeps to let client-side rendering catch up.
func (s *Session) Settle(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// ListenEvents streams network, console, and exception events into sink until
// the returned stop function is called.
func (s *Session) ListenEvents(sink EventSink) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	p := s.page.Context(ctx)

	go p.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if e.Response != nil {
				sink.OnResponse(e.Response.URL, e.Response.Status)
			}
		},
		func(e *proto.RuntimeConsoleAPICalled) {
			sink.OnConsole(string(e.Type), consoleText(e.Args))
		},
		func(e *proto.RuntimeExceptionThrown) {
			sink.OnPageError(exceptionText(e.ExceptionDetails))
		},
	)()

	return cancel
}

// Close shuts down the tab and the browser.
func (s *Session) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	return s.browser.Close()
}

func consoleText(args []*proto.RuntimeRemoteObject) string {
	text := ""
	for i, arg := range args {
		if i > 0 {
			text += " "
		}
		text += remoteObjectString(arg)
	}
	return text
}

func exceptionText(details *proto.RuntimeExceptionDetails) string {
	if details == nil {
		return ""
	}
	text := details.Text
	if details.Exception != nil {
		if desc := remoteObjectString(details.Exception); desc != "" {
			if text != "" {
				text += ": "
			}
			text += desc
		}
	}
	return text
}

func remoteObjectString(obj *proto.RuntimeRemoteObject) string {
	if obj == nil {
		return ""
	}
	if s := jsonString(obj.Value); s != "" {
		return s
	}
	return obj.Description
}

func jsonString(v gson.JSON) string {
	val := v.Val()
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}
