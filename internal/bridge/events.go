package bridge

import (
	"context"
	"time"

	"trading-journal/internal/logger"
	"trading-journal/internal/types"
)

// Events are optional callbacks fired by the bridge loops. OnUpdate and
// OnError may run on the socket reader goroutine.
//
// OnConnect fires when the bridge answers the first request of a session,
// not when the socket opens. A session that ends before that, a rejected
// login included, is reported through OnError, and OnDisconnect only follows
// an OnConnect.
type Events struct {
	OnConnect     func()
	OnDisconnect  func(err error)
	OnReconnect   func(attempt int, delay time.Duration)
	OnNoReconnect func(attempts int)
	OnUpdate      func(snap types.BridgeSnapshot)
	OnError       func(err error)
}

func (b *Bridge) onConnect(ctx context.Context) {
	logger.Info(ctx, "MetaTrader bridge connected", "url", b.cfg.URL, "login", b.cfg.Login)
	if b.events.OnConnect != nil {
		b.events.OnConnect()
	}
}

func (b *Bridge) onDisconnect(ctx context.Context, err error) {
	logger.Warn(ctx, "MetaTrader bridge disconnected", "error", err)
	if b.events.OnDisconnect != nil {
		b.events.OnDisconnect(err)
	}
}

func (b *Bridge) onReconnect(ctx context.Context, attempt int, delay time.Duration) {
	logger.Info(ctx, "MetaTrader bridge reconnecting",
		"attempt", attempt,
		"delay", delay,
	)
	if b.events.OnReconnect != nil {
		b.events.OnReconnect(attempt, delay)
	}
}

func (b *Bridge) onNoReconnect(ctx context.Context, attempts int) {
	logger.Warn(ctx, "MetaTrader bridge reconnection failed - giving up",
		"attempts", attempts,
	)
	if b.events.OnNoReconnect != nil {
		b.events.OnNoReconnect(attempts)
	}
}

func (b *Bridge) onUpdate(ctx context.Context, kind string) {
	snap := b.cache.snapshot()
	logger.Debug(ctx, "MetaTrader bridge update",
		"kind", kind,
		"positions", len(snap.Positions),
		"orders", len(snap.Orders),
	)
	if b.events.OnUpdate != nil {
		b.events.OnUpdate(snap)
	}
}

func (b *Bridge) onError(ctx context.Context, err error) {
	logger.ErrorWithErr(ctx, "MetaTrader bridge error", err)
	if b.events.OnError != nil {
		b.events.OnError(err)
	}
}
