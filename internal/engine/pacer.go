package engine

import (
	"context"
	"fmt"
	"time"
)

// DefaultPacingDelay is the minimum gap between network operations.
const DefaultPacingDelay = time.Second

// pacer spaces out network operations so the content store's rate limit
// is never hit. The first operation is not delayed.
type pacer struct {
	last  time.Time
	now   func() time.Time
	delay time.Duration
}

func newPacer(delay time.Duration) *pacer {
	if delay < 0 {
		delay = 0
	}
	return &pacer{delay: delay, now: time.Now}
}

// wait blocks until delay has passed since the previous operation or the
// context is canceled.
func (p *pacer) wait(ctx context.Context) error {
	if !p.last.IsZero() && p.delay > 0 {
		if remaining := p.delay - p.now().Sub(p.last); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("pacing canceled: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}
	p.last = p.now()
	return nil
}
