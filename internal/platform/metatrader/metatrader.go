// Package metatrader talks to MT4 and MT5 terminals through a MetaTrader web
// API gateway. Both versions share the endpoints and differ in volume units.
package metatrader

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"trading-journal/internal/api"
	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/normalize"
	"trading-journal/internal/platform/core"
	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

const historyLayout = "2006-01-02T15:04:05"

type Client struct {
	platform types.Platform
	http     *api.Client
	scale    int64

	mu    sync.RWMutex
	token string
	creds types.Credentials
}

var _ interfaces.PlatformClient = (*Client)(nil)

// New creates a client for MT4 or MT5
func New(p types.Platform, cfg store.PlatformConfig) (*Client, error) {
	if !p.IsMetaTrader() {
		return nil, fmt.Errorf("metatrader: unsupported platform %s", p)
	}

	scale := cfg.VolumeScale
	if scale <= 0 {
		scale = normalize.MT5VolumeScale
		if p == types.PlatformMT4 {
			scale = normalize.MT4VolumeScale
		}
	}

	return &Client{
		platform: p,
		http:     core.NewAPIClient(cfg),
		scale:    scale,
	}, nil
}

func (c *Client) Platform() types.Platform {
	return c.platform
}

func (c *Client) Authenticate(ctx context.Context, creds types.Credentials) error {
	if err := core.Require(c.platform, "login", creds.Login, "password", creds.Password, "server", creds.Server); err != nil {
		return err
	}

	resp, err := c.http.Do(ctx, api.Request{
		Method: "GET",
		Path:   "/Connect",
		Query: map[string]string{
			"user":     creds.Login,
			"password": creds.Password,
			"server":   creds.Server,
		},
	})
	if err != nil {
		return core.Wrap(c.platform, "authenticate", err)
	}

	// the gateway answers with the bare session id, sometimes JSON-quoted
	token := strings.Trim(strings.TrimSpace(resp.String()), `"`)
	if token == "" || strings.HasPrefix(token, "{") {
		return core.Wrap(c.platform, "authenticate", fmt.Errorf("%w: %s", core.ErrAuthFailed, resp.String()))
	}

	c.mu.Lock()
	c.token = token
	c.creds = creds
	c.mu.Unlock()

	logger.Debug(ctx, "MetaTrader session opened", "platform", c.platform, "login", creds.Login, "server", creds.Server)
	return nil
}

func (c *Client) session() (string, types.Credentials, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", types.Credentials{}, core.Wrap(c.platform, "session", core.ErrNotAuthenticated)
	}
	return c.token, c.creds, nil
}

func (c *Client) FetchAccount(ctx context.Context) (types.TradingAccount, error) {
	token, creds, err := c.session()
	if err != nil {
		return types.TradingAccount{}, err
	}

	var s accountSummary
	if err := c.http.GetJSON(ctx, "/AccountSummary", map[string]string{"id": token}, nil, &s); err != nil {
		return types.TradingAccount{}, core.Wrap(c.platform, "fetch account", err)
	}

	return types.TradingAccount{
		Platform:      c.platform,
		Broker:        s.Company,
		Server:        creds.Server,
		AccountNumber: creds.Login,
		Balance:       normalize.Round2(s.Balance),
		Equity:        normalize.Round2(s.Equity),
		Currency:      s.Currency,
		Leverage:      normalize.Leverage(s.Leverage, false),
		Status:        types.StatusConnected,
		LastUpdated:   time.Now().UTC(),
	}, nil
}

func (c *Client) FetchOpenTrades(ctx context.Context) ([]types.Trade, error) {
	token, _, err := c.session()
	if err != nil {
		return nil, err
	}

	var orders []order
	if err := c.http.GetJSON(ctx, "/OpenedOrders", map[string]string{"id": token}, nil, &orders); err != nil {
		return nil, core.Wrap(c.platform, "fetch open trades", err)
	}

	return c.mapOrders(ctx, orders, types.TradeOpen)
}

func (c *Client) FetchClosedTrades(ctx context.Context, from, to time.Time) ([]types.Trade, error) {
	token, _, err := c.session()
	if err != nil {
		return nil, err
	}

	var orders []order
	query := map[string]string{
		"id":   token,
		"from": from.UTC().Format(historyLayout),
		"to":   to.UTC().Format(historyLayout),
	}
	if err := c.http.GetJSON(ctx, "/OrderHistory", query, nil, &orders); err != nil {
		return nil, core.Wrap(c.platform, "fetch closed trades", err)
	}

	return c.mapOrders(ctx, orders, types.TradeClosed)
}

func (c *Client) mapOrders(ctx context.Context, orders []order, status types.TradeStatus) ([]types.Trade, error) {
	trades := make([]types.Trade, 0, len(orders))
	for _, o := range orders {
		if !isPosition(o.OrderType) {
			continue
		}
		t, err := c.toTrade(o, status)
		if err != nil {
			logger.Warn(ctx, "Skipping malformed MetaTrader order", "platform", c.platform, "ticket", o.Ticket, "error", err)
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.token = ""
	c.mu.Unlock()

	if token == "" {
		return nil
	}
	_, err := c.http.Do(ctx, api.Request{Method: "GET", Path: "/Disconnect", Query: map[string]string{"id": token}})
	return core.Wrap(c.platform, "disconnect", err)
}
