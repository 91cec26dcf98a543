package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const manualPollInterval = time.Second

// manualLogin opens the login page and waits for a human to finish logging
// in. Completion is inferred from the URL leaving the login page. A timeout
// is not fatal: the crawl proceeds with whatever session exists, which keeps
// partially-authenticated runs useful.
func (p *Provider) manualLogin(ctx context.Context) error {
	if p.cfg.LoginURL == "" {
		return fmt.Errorf("manual login requires a login URL")
	}

	p.log.WithURL(p.cfg.LoginURL).Info("Waiting for manual login, complete it in the browser window")
	if err := p.page.Navigate(p.cfg.LoginURL); err != nil {
		return fmt.Errorf("load login page: %w", err)
	}

	initialURL := p.page.URL()

	for elapsed := time.Duration(0); elapsed < p.cfg.ManualWait; elapsed += manualPollInterval {
		current := p.page.URL()
		if p.loginComplete(current, initialURL) {
			p.log.WithURL(current).Info("Manual login detected")
			// Grace period for post-login redirects to settle.
			return p.sleep(ctx, 2*time.Second)
		}
		if elapsed > 0 && elapsed%(10*time.Second) == 0 {
			remaining := p.cfg.ManualWait - elapsed
			p.log.WithField("remaining", remaining.String()).Info("Still waiting for login")
		}
		if err := p.sleep(ctx, manualPollInterval); err != nil {
			return err
		}
	}

	p.log.Warn("Login timeout reached. Continuing anyway...")
	return nil
}

// loginComplete infers success from the current URL: a configured success
// keyword matches, or the URL left the login page.
func (p *Provider) loginComplete(current, initial string) bool {
	lower := strings.ToLower(current)
	for _, kw := range p.cfg.SuccessURLKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return current != initial && !strings.Contains(lower, "login")
}
