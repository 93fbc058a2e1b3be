package bridge

import (
	"time"

	"trading-journal/internal/store"
)

const (
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 30 * time.Second
	defaultMaxAttempts = 5
)

// backoff computes reconnect delays: base doubled per attempt, capped at max
type backoff struct {
	base        time.Duration
	max         time.Duration
	maxAttempts int
}

func newBackoff(cfg store.BridgeConfig) backoff {
	b := backoff{
		base:        time.Duration(cfg.BaseBackoffMillis) * time.Millisecond,
		max:         time.Duration(cfg.MaxBackoffSeconds) * time.Second,
		maxAttempts: cfg.MaxReconnectAttempts,
	}
	if b.base <= 0 {
		b.base = defaultBaseBackoff
	}
	if b.max <= 0 {
		b.max = defaultMaxBackoff
	}
	if b.maxAttempts <= 0 {
		b.maxAttempts = defaultMaxAttempts
	}
	return b
}

// delay returns the wait before reconnect attempt n, counting from 1
func (b backoff) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.max {
			return b.max
		}
	}
	if d > b.max {
		return b.max
	}
	return d
}

func (b backoff) exhausted(attempt int) bool {
	return attempt > b.maxAttempts
}
