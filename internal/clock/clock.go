// Package clock abstracts the passage of time so the posting loop can be
// driven by a fake clock in tests instead of sleeping for hours.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock tells the time and waits.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is a Clock backed by the system clock.
type Real struct {
	clk clockwork.Clock
}

// NewReal returns a Clock backed by the system clock.
func NewReal() Real {
	return Real{clk: clockwork.NewRealClock()}
}

// Now returns the wall time.
func (r Real) Now() time.Time {
	return r.clk.Now()
}

// Sleep waits for d or for ctx to be cancelled.
func (r Real) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	return wait(ctx, r.clk.After(d))
}

func wait(ctx context.Context, fired <-chan time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}

// Fake is a manual Clock. Sleep returns immediately after advancing the
// clock and recording the requested duration.
type Fake struct {
	clk *clockwork.FakeClock

	mu     sync.Mutex
	sleeps []time.Duration

	// OnSleep, when set, is called after each recorded sleep. Tests use it to
	// cancel a context at a precise point in the loop.
	OnSleep func(d time.Duration)
}

// NewFake returns a fake clock starting at now.
func NewFake(now time.Time) *Fake {
	return &Fake{clk: clockwork.NewFakeClockAt(now)}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	return f.clk.Now()
}

// Sleep records d and advances the fake time past it.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	hook := f.OnSleep
	f.mu.Unlock()

	if d > 0 {
		fired := f.clk.After(d)
		f.clk.Advance(d)
		if err := wait(ctx, fired); err != nil {
			return err
		}
	}

	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

// Advance moves the fake time forward without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.clk.Advance(d)
}

// Sleeps returns a copy of every duration passed to Sleep.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}
