// Package auth establishes an authenticated browser session before the crawl
// starts. Authentication happens in the same tab the crawl will use, so
// whatever cookies and storage the login produces carry over automatically.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/PentesterFlow/OpenProbe/internal/browser"
	"github.com/PentesterFlow/OpenProbe/internal/logger"
)

// Mode selects how a session gets authenticated.
type Mode string

const (
	// ModeNone skips authentication entirely.
	ModeNone Mode = "none"
	// ModeForm fills and submits a username/password form.
	ModeForm Mode = "form"
	// ModeManual navigates to the login page and waits for a human to
	// complete the login, which covers OTP and SSO flows.
	ModeManual Mode = "manual"
)

// ParseMode maps a config string onto a Mode, defaulting to none.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, "":
		return ModeNone, nil
	case ModeForm:
		return ModeForm, nil
	case ModeManual:
		return ModeManual, nil
	default:
		return ModeNone, fmt.Errorf("unknown auth mode %q", s)
	}
}

// Config defines how to authenticate.
type Config struct {
	Mode     Mode   `json:"mode" yaml:"mode"`
	LoginURL string `json:"login_url" yaml:"login_url"`

	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"-"`

	// Selector overrides. When empty, a list of common selectors is probed.
	UsernameSelector string `json:"username_selector" yaml:"username_selector"`
	PasswordSelector string `json:"password_selector" yaml:"password_selector"`
	SubmitSelector   string `json:"submit_selector" yaml:"submit_selector"`

	// SuccessURLKeywords mark a post-login URL as authenticated even when
	// the generic login/signin check is inconclusive.
	SuccessURLKeywords []string `json:"success_url_keywords" yaml:"success_url_keywords"`

	// ManualWait bounds how long manual mode waits for the human.
	ManualWait time.Duration `json:"manual_wait" yaml:"manual_wait"`

	// SubmitWait is the pause after submitting before checking the outcome.
	SubmitWait time.Duration `json:"submit_wait" yaml:"submit_wait"`
}

// DefaultConfig returns authentication defaults: no auth, and the manual
// mode budget used when the mode is switched on later.
func DefaultConfig() Config {
	return Config{
		Mode:               ModeNone,
		SuccessURLKeywords: []string{"dashboard", "home"},
		ManualWait:         30 * time.Second,
		SubmitWait:         2 * time.Second,
	}
}

// Provider logs a page in according to its configured mode.
type Provider struct {
	page browser.Page
	cfg  Config
	log  *logger.Logger

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewProvider builds a provider driving the given page.
func NewProvider(page browser.Page, cfg Config, log *logger.Logger) *Provider {
	if cfg.ManualWait <= 0 {
		cfg.ManualWait = 30 * time.Second
	}
	if cfg.SubmitWait <= 0 {
		cfg.SubmitWait = 2 * time.Second
	}
	return &Provider{page: page, cfg: cfg, log: log, sleep: sleepCtx}
}

// Login authenticates the page. ModeNone returns immediately. A manual login
// that times out is reported as a warning, not an error: the crawl continues
// with whatever session state exists.
func (p *Provider) Login(ctx context.Context) error {
	switch p.cfg.Mode {
	case ModeNone:
		return nil
	case ModeForm:
		return p.formLogin(ctx)
	case ModeManual:
		return p.manualLogin(ctx)
	default:
		return fmt.Errorf("unknown auth mode %q", p.cfg.Mode)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
