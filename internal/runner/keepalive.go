package runner

import (
	"context"
	"time"
)

// IdleMonitor shuts the daemon down after a period without activity, the
// way a host reclaims an inactive worker. Anything that counts as activity
// calls Touch: HTTP requests do, and the organize runner does on a
// keepalive ticker while an AI call is outstanding so the daemon is never
// reclaimed mid-call.
type IdleMonitor struct {
	timeout time.Duration
	touch   chan struct{}
}

// NewIdleMonitor creates a monitor with the given idle timeout. A timeout
// of zero disables idle shutdown.
func NewIdleMonitor(timeout time.Duration) *IdleMonitor {
	return &IdleMonitor{
		timeout: timeout,
		touch:   make(chan struct{}, 1),
	}
}

// Touch marks activity, restarting the idle countdown. Never blocks.
func (m *IdleMonitor) Touch() {
	select {
	case m.touch <- struct{}{}:
	default:
	}
}

// Wait blocks until the idle timeout elapses without a Touch, or ctx is
// cancelled. It returns ctx.Err on cancellation and nil on idle expiry.
func (m *IdleMonitor) Wait(ctx context.Context) error {
	if m.timeout <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.touch:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(m.timeout)
		case <-timer.C:
			return nil
		}
	}
}
