// Package fallback keeps the journal usable when a platform is unreachable:
// failed calls are logged and answered with demo data for the same account.
package fallback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"trading-journal/internal/demo"
	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/types"
)

var errDemoOnly = errors.New("fallback: demo mode")

type Client struct {
	client interfaces.PlatformClient
	gen    *demo.Generator

	mu         sync.RWMutex
	creds      types.Credentials
	authFailed bool

	served atomic.Uint64
}

var _ interfaces.PlatformClient = (*Client)(nil)

// Wrap answers failed calls of client with demo data from gen
func Wrap(client interfaces.PlatformClient, gen *demo.Generator) *Client {
	return &Client{client: client, gen: gen}
}

// Demo returns a client that never calls a vendor
func Demo(p types.Platform, gen *demo.Generator) *Client {
	return &Client{client: demoOnly{p: p}, gen: gen}
}

// Served counts the calls answered with demo data so far
func (c *Client) Served() uint64 {
	return c.served.Load()
}

func (c *Client) Platform() types.Platform {
	return c.client.Platform()
}

// Authenticate never fails. A rejected login is retried on the next FetchAccount.
func (c *Client) Authenticate(ctx context.Context, creds types.Credentials) error {
	err := c.client.Authenticate(ctx, creds)

	c.mu.Lock()
	c.creds = creds
	c.authFailed = err != nil
	c.mu.Unlock()

	if err != nil {
		c.warn(ctx, "authenticate", err)
	}
	return nil
}

func (c *Client) FetchAccount(ctx context.Context) (types.TradingAccount, error) {
	if c.reauthenticate(ctx) {
		acc, err := c.client.FetchAccount(ctx)
		if err == nil {
			return acc, nil
		}
		c.warn(ctx, "fetch account", err)
	}
	c.served.Add(1)
	return c.gen.Account(c.client.Platform(), c.credentials()), nil
}

func (c *Client) FetchOpenTrades(ctx context.Context) ([]types.Trade, error) {
	if c.authenticated() {
		trades, err := c.client.FetchOpenTrades(ctx)
		if err == nil {
			return trades, nil
		}
		c.warn(ctx, "fetch open trades", err)
	}
	c.served.Add(1)
	return c.demoTrades(types.TradeOpen, time.Time{}, time.Time{}), nil
}

func (c *Client) FetchClosedTrades(ctx context.Context, from, to time.Time) ([]types.Trade, error) {
	if c.authenticated() {
		trades, err := c.client.FetchClosedTrades(ctx, from, to)
		if err == nil {
			return trades, nil
		}
		c.warn(ctx, "fetch closed trades", err)
	}
	c.served.Add(1)
	return c.demoTrades(types.TradeClosed, from, to), nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

func (c *Client) authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.authFailed
}

// reauthenticate retries a failed login and reports whether a session exists
func (c *Client) reauthenticate(ctx context.Context) bool {
	if c.authenticated() {
		return true
	}
	if _, ok := c.client.(demoOnly); ok {
		return false
	}

	creds := c.credentials()
	if err := c.client.Authenticate(ctx, creds); err != nil {
		c.warn(ctx, "authenticate", err)
		return false
	}

	c.mu.Lock()
	c.authFailed = false
	c.mu.Unlock()
	logger.Info(ctx, "Platform reachable again", "platform", c.client.Platform(), "account", creds.AccountRef())
	return true
}

func (c *Client) demoTrades(status types.TradeStatus, from, to time.Time) []types.Trade {
	all := c.gen.Trades(c.client.Platform(), c.credentials())
	out := make([]types.Trade, 0, len(all))
	for _, t := range all {
		if t.Status != status {
			continue
		}
		if status == types.TradeClosed && t.CloseTime != nil {
			if (!from.IsZero() && t.CloseTime.Before(from)) || (!to.IsZero() && t.CloseTime.After(to)) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func (c *Client) credentials() types.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *Client) warn(ctx context.Context, op string, err error) {
	if errors.Is(err, errDemoOnly) {
		return
	}
	logger.Warn(ctx, "Platform call failed, serving demo data",
		"platform", c.client.Platform(),
		"op", op,
		"account", c.credentials().AccountRef(),
		"error", err,
	)
}

// demoOnly stands in for a vendor in DEMO mode
type demoOnly struct {
	p types.Platform
}

func (d demoOnly) Platform() types.Platform { return d.p }

func (demoOnly) Authenticate(context.Context, types.Credentials) error { return errDemoOnly }

func (demoOnly) FetchAccount(context.Context) (types.TradingAccount, error) {
	return types.TradingAccount{}, errDemoOnly
}

func (demoOnly) FetchOpenTrades(context.Context) ([]types.Trade, error) { return nil, errDemoOnly }

func (demoOnly) FetchClosedTrades(context.Context, time.Time, time.Time) ([]types.Trade, error) {
	return nil, errDemoOnly
}

func (demoOnly) Close(context.Context) error { return nil }
