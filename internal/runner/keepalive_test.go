package runner

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdleMonitorExpires(t *testing.T) {
	m := NewIdleMonitor(30 * time.Millisecond)

	start := time.Now()
	if err := m.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expired after %v, before the timeout", elapsed)
	}
}

func TestIdleMonitorTouchResets(t *testing.T) {
	m := NewIdleMonitor(60 * time.Millisecond)

	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- m.Wait(context.Background()) }()

	// Keep touching past the original deadline.
	for range 3 {
		time.Sleep(30 * time.Millisecond)
		m.Touch()
	}

	if err := <-done; err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 120*time.Millisecond {
		t.Errorf("expired after %v despite touches", elapsed)
	}
}

func TestIdleMonitorCancel(t *testing.T) {
	m := NewIdleMonitor(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Wait(ctx) }()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}

func TestIdleMonitorDisabled(t *testing.T) {
	m := NewIdleMonitor(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	// With no timeout the monitor never expires on its own.
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want context.DeadlineExceeded", err)
	}
}

func TestTouchNeverBlocks(t *testing.T) {
	m := NewIdleMonitor(time.Hour)
	// No listener; repeated touches must not block.
	for range 10 {
		m.Touch()
	}
}
