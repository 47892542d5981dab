package opentdb

import (
	"context"
	"sync"
	"time"
)

// limiter spaces requests at least minInterval apart. Callers reserve the
// next free slot under the lock and then sleep outside it.
type limiter struct {
	minInterval time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	next time.Time
}

func newLimiter(minInterval time.Duration) *limiter {
	return &limiter{
		minInterval: minInterval,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	slot := l.next
	if slot.Before(now) {
		slot = now
	}
	l.next = slot.Add(l.minInterval)
	l.mu.Unlock()

	err := ctx.Err()
	if d := slot.Sub(now); d > 0 && err == nil {
		err = l.sleep(ctx, d)
	}
	if err != nil {
		l.release(slot)
	}
	return err
}

// release hands back an abandoned slot. Only the latest reservation can be
// returned; earlier ones stay taken so later callers keep their order.
func (l *limiter) release(slot time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.next.Equal(slot.Add(l.minInterval)) {
		l.next = slot
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
