// Package ratelimit paces the exerciser so it never hammers the target. A
// single token bucket bounds page visits; fixed settle delays cover the gaps
// token buckets cannot express (SPA render time, post-click settling).
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer throttles page visits against one target application.
type Pacer struct {
	limiter      *rate.Limiter
	settleDelay  time.Duration
	elementDelay time.Duration
}

// NewPacer builds a pacer from the configured inter-page delay. A zero or
// negative pageDelay disables the token bucket.
func NewPacer(pageDelay, settleDelay, elementDelay time.Duration) *Pacer {
	var limiter *rate.Limiter
	if pageDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(pageDelay), 1)
	}
	return &Pacer{
		limiter:      limiter,
		settleDelay:  settleDelay,
		elementDelay: elementDelay,
	}
}

// WaitPage blocks until the next page visit is allowed or ctx is cancelled.
func (p *Pacer) WaitPage(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Settle sleeps the configured post-navigation settle delay.
func (p *Pacer) Settle(ctx context.Context) error {
	return sleep(ctx, p.settleDelay)
}

// BetweenElements sleeps the configured delay between element interactions.
func (p *Pacer) BetweenElements(ctx context.Context) error {
	return sleep(ctx, p.elementDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
