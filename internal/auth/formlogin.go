package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/PentesterFlow/OpenProbe/internal/browser"
)

// Selector probe lists for login forms without configured selectors, tried
// in order until one matches a visible field.
var (
	usernameSelectors = []string{
		"input[name='username']",
		"input[name='email']",
		"input[type='email']",
		"input[type='text'][name*='user']",
		"input[type='text'][name*='email']",
		"input#username",
		"input#email",
	}
	passwordSelectors = []string{
		"input[name='password']",
		"input[type='password']",
		"input#password",
	}
	submitSelectors = []string{
		"button[type='submit']",
		"input[type='submit']",
		"form button",
	}
	loginErrorSelectors = []string{
		".error",
		".alert-danger",
		".alert-error",
		"[class*='error']",
		"[class*='invalid']",
	}
)

// formLogin navigates to the login page, fills the credential fields, submits
// the form, and verifies the result by URL heuristics.
func (p *Provider) formLogin(ctx context.Context) error {
	if p.cfg.LoginURL == "" {
		return fmt.Errorf("form login requires a login URL")
	}
	if p.cfg.Username == "" || p.cfg.Password == "" {
		return fmt.Errorf("form login requires username and password")
	}

	p.log.WithURL(p.cfg.LoginURL).Info("Navigating to login page")
	if err := p.page.Navigate(p.cfg.LoginURL); err != nil {
		return fmt.Errorf("load login page: %w", err)
	}

	userField, err := p.findField(p.cfg.UsernameSelector, usernameSelectors)
	if err != nil {
		return fmt.Errorf("locate username field: %w", err)
	}
	if err := userField.Input(p.cfg.Username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}

	passField, err := p.findField(p.cfg.PasswordSelector, passwordSelectors)
	if err != nil {
		return fmt.Errorf("locate password field: %w", err)
	}
	if err := passField.Input(p.cfg.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	if err := p.submit(); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}

	if err := p.sleep(ctx, p.cfg.SubmitWait); err != nil {
		return err
	}

	if !p.loginSucceeded() {
		return fmt.Errorf("login failed: still on %s", p.page.URL())
	}
	p.log.WithURL(p.page.URL()).Info("Login successful")
	return nil
}

// findField probes selectors in order and returns the first visible match.
// A configured selector takes precedence and is the only one tried.
func (p *Provider) findField(configured string, fallbacks []string) (browser.Element, error) {
	selectors := fallbacks
	if configured != "" {
		selectors = []string{configured}
	}
	for _, selector := range selectors {
		els, err := p.page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err == nil && visible {
				return el, nil
			}
		}
	}
	return nil, fmt.Errorf("no visible field matched %v", selectors)
}

// submit clicks the submit control, or presses Enter when no control is
// found; plenty of login forms submit on Enter only.
func (p *Provider) submit() error {
	selectors := submitSelectors
	if p.cfg.SubmitSelector != "" {
		selectors = append([]string{p.cfg.SubmitSelector}, submitSelectors...)
	}
	for _, selector := range selectors {
		els, err := p.page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range els {
			visible, err := el.Visible()
			if err != nil || !visible {
				continue
			}
			if err := el.Click(); err == nil {
				return nil
			}
		}
	}
	p.log.Debug("No submit control found, pressing Enter")
	return p.page.PressEnter()
}

// loginSucceeded decides whether the post-submit page is authenticated. A URL
// still containing login or signin means failure unless a configured success
// keyword appears; a visible error banner on a login URL confirms failure.
func (p *Provider) loginSucceeded() bool {
	current := strings.ToLower(p.page.URL())

	for _, keyword := range p.cfg.SuccessURLKeywords {
		if keyword != "" && strings.Contains(current, strings.ToLower(keyword)) {
			return true
		}
	}

	if !strings.Contains(current, "login") && !strings.Contains(current, "signin") {
		return true
	}

	// Still on a login URL. Surface the banner text if there is one.
	p.errorBannerVisible()
	return false
}

func (p *Provider) errorBannerVisible() bool {
	for _, selector := range loginErrorSelectors {
		els, err := p.page.Elements(selector)
		if err != nil {
			continue
		}
		for _, el := range els {
			if visible, err := el.Visible(); err == nil && visible {
				if text, err := el.Text(); err == nil && text != "" {
					p.log.WithField("message", text).Warn("Login error banner")
				}
				return true
			}
		}
	}
	return false
}
