// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultMinDelay is the politeness spacing required by public geocoders.
const DefaultMinDelay = time.Second

// Pacer enforces a minimum interval between the starts of consecutive calls.
//
// A call that completes faster than the interval does not let the next one
// start early. Pacer is safe for concurrent use: waiters get consecutive
// slots, so a single instance can be shared by every run in a process when
// the upstream limit is process-wide.
type Pacer struct {
	minDelay time.Duration
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time // last reserved slot
	started time.Time // actual start of the latest call
	calls   int
}

// NewPacer creates a pacer. A non-positive delay disables pacing.
func NewPacer(minDelay time.Duration) *Pacer {
	return &Pacer{
		minDelay: minDelay,
		now:      time.Now,
	}
}

// MinDelay returns the configured spacing.
func (p *Pacer) MinDelay() time.Duration {
	return p.minDelay
}

// Calls returns how many slots have been granted so far.
func (p *Pacer) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls
}

// Wait blocks until the next call may start. The slot is reserved before
// sleeping, so concurrent waiters queue on the clock rather than on the lock
// and each one can give up as soon as its context is done. A cancelled
// reservation is released when nobody has queued behind it.
//
// Timers may fire late, so after waking the actual start of the previous call
// is checked again and the wait extended when needed.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()

	if p.minDelay <= 0 {
		p.calls++
		p.mu.Unlock()

		return nil
	}

	now := p.now()
	prev := p.last
	slot := now

	if p.calls > 0 {
		slot = latest(now, prev.Add(p.minDelay), p.started.Add(p.minDelay))
	}

	p.last = slot
	p.calls++
	p.mu.Unlock()

	for next := slot; ; {
		if err := p.sleepUntil(ctx, next); err != nil {
			p.mu.Lock()
			if p.last.Equal(slot) {
				p.last = prev
				p.calls--
			}
			p.mu.Unlock()

			return fmt.Errorf("waiting for geocode slot: %w", err)
		}

		p.mu.Lock()
		now = p.now()

		if p.started.IsZero() || !now.Before(p.started.Add(p.minDelay)) {
			p.started = now
			p.mu.Unlock()

			return nil
		}

		next = p.started.Add(p.minDelay)
		p.mu.Unlock()
	}
}

func (p *Pacer) sleepUntil(ctx context.Context, t time.Time) error {
	wait := t.Sub(p.now())
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func latest(t time.Time, others ...time.Time) time.Time {
	for _, o := range others {
		if o.After(t) {
			t = o
		}
	}

	return t
}

// PacedGeocoder delays every call to the wrapped Geocoder through a Pacer.
type PacedGeocoder struct {
	geocoder Geocoder
	pacer    *Pacer
}

// NewPacedGeocoder wraps g. A nil pacer gets a private one with DefaultMinDelay.
func NewPacedGeocoder(g Geocoder, p *Pacer) *PacedGeocoder {
	if p == nil {
		p = NewPacer(DefaultMinDelay)
	}

	return &PacedGeocoder{geocoder: g, pacer: p}
}

// Geocode implements Geocoder.
func (g *PacedGeocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	if err := g.pacer.Wait(ctx); err != nil {
		return nil, &ResolveError{
			Type:    ErrorTypeTimeout,
			Query:   query,
			Message: "pacing interrupted",
			Err:     err,
		}
	}

	return g.geocoder.Geocode(ctx, query)
}
