package shared

import (
	"context"
	crand "crypto/rand"
	"time"
)

// Backoff doubles base per attempt i (0,1,2,...) and adds up to +50%
// jitter drawn from crypto/rand, which is safe for concurrent callers.
func Backoff(base time.Duration, i int) time.Duration {
	d := time.Duration(1<<i) * base
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return d
	}
	f := float64(b[0]) / 255.0 // 0..1
	return d + time.Duration(0.5*f*float64(d))
}

// SleepCtx waits for d or returns false early if ctx is done.
func SleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
