// Package matchtrader reads MatchTrader accounts. The platform reports every
// number as a decimal string.
package matchtrader

import (
	"context"
	"fmt"
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

const (
	platform   = types.PlatformMatchTrader
	authHeader = "Auth-trading-api"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	BrokerID string `json:"brokerId"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Accounts []struct {
		TradingAccountID string `json:"tradingAccountId"`
		SystemUUID       string `json:"systemUuid"`
		BrokerName       string `json:"brokerName"`
		Server           string `json:"server"`
		Leverage         int64  `json:"leverage"`
	} `json:"accounts"`
}

type balanceResponse struct {
	Balance  string `json:"balance"`
	Equity   string `json:"equity"`
	Currency string `json:"currency"`
}

type position struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Volume     string `json:"volume"`
	OpenPrice  string `json:"openPrice"`
	ClosePrice string `json:"closePrice"`
	OpenTime   string `json:"openTime"`
	CloseTime  string `json:"closeTime"`
	StopLoss   string `json:"stopLoss"`
	TakeProfit string `json:"takeProfit"`
	Profit     string `json:"profit"`
	Swap       string `json:"swap"`
	Commission string `json:"commission"`
}

type session struct {
	token     string
	uuid      string
	accountID string
	broker    string
	server    string
	leverage  int64
}

type Client struct {
	http *api.Client

	mu   sync.RWMutex
	sess *session
}

var _ interfaces.PlatformClient = (*Client)(nil)

func New(cfg store.PlatformConfig) *Client {
	return &Client{http: core.NewAPIClient(cfg)}
}

func (c *Client) Platform() types.Platform {
	return platform
}

func (c *Client) Authenticate(ctx context.Context, creds types.Credentials) error {
	if err := core.Require(platform, "email", creds.Email, "password", creds.Password, "broker id", creds.BrokerID); err != nil {
		return err
	}

	var resp loginResponse
	req := loginRequest{Email: creds.Email, Password: creds.Password, BrokerID: creds.BrokerID}
	if err := c.http.PostJSON(ctx, "/manager/mtr-login", req, nil, &resp); err != nil {
		return core.Wrap(platform, "authenticate", err)
	}
	if resp.Token == "" {
		return core.Wrap(platform, "authenticate", core.ErrAuthFailed)
	}

	for _, a := range resp.Accounts {
		if creds.AccountNumber != "" && a.TradingAccountID != creds.AccountNumber {
			continue
		}
		s := &session{
			token:     resp.Token,
			uuid:      a.SystemUUID,
			accountID: a.TradingAccountID,
			broker:    a.BrokerName,
			server:    a.Server,
			leverage:  a.Leverage,
		}
		c.mu.Lock()
		c.sess = s
		c.mu.Unlock()

		logger.Debug(ctx, "MatchTrader session opened", "email", creds.Email, "trading_account_id", a.TradingAccountID)
		return nil
	}

	return core.Wrap(platform, "authenticate", fmt.Errorf("%w: %s", core.ErrAccountNotFound, creds.AccountNumber))
}

func (c *Client) session() (*session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return nil, core.Wrap(platform, "session", core.ErrNotAuthenticated)
	}
	return c.sess, nil
}

func (s *session) headers() map[string]string {
	return map[string]string{authHeader: s.token}
}

func (c *Client) FetchAccount(ctx context.Context) (types.TradingAccount, error) {
	s, err := c.session()
	if err != nil {
		return types.TradingAccount{}, err
	}

	var b balanceResponse
	if err := c.http.GetJSON(ctx, "/mtr-api/"+s.uuid+"/balance", nil, s.headers(), &b); err != nil {
		return types.TradingAccount{}, core.Wrap(platform, "fetch account", err)
	}

	balance, err := normalize.MoneyString(b.Balance)
	if err != nil {
		return types.TradingAccount{}, core.Wrap(platform, "fetch account", err)
	}
	equity, err := normalize.MoneyString(b.Equity)
	if err != nil {
		return types.TradingAccount{}, core.Wrap(platform, "fetch account", err)
	}

	return types.TradingAccount{
		Platform:      platform,
		Broker:        s.broker,
		Server:        s.server,
		AccountNumber: s.accountID,
		Balance:       balance,
		Equity:        equity,
		Currency:      b.Currency,
		Leverage:      normalize.Leverage(s.leverage, false),
		Status:        types.StatusConnected,
		LastUpdated:   time.Now().UTC(),
	}, nil
}

func (c *Client) FetchOpenTrades(ctx context.Context) ([]types.Trade, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Positions []position `json:"positions"`
	}
	if err := c.http.GetJSON(ctx, "/mtr-api/"+s.uuid+"/open-positions", nil, s.headers(), &resp); err != nil {
		return nil, core.Wrap(platform, "fetch open trades", err)
	}
	return toTrades(ctx, resp.Positions, types.TradeOpen), nil
}

func (c *Client) FetchClosedTrades(ctx context.Context, from, to time.Time) ([]types.Trade, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Operations []position `json:"operations"`
	}
	query := map[string]string{
		"from": from.UTC().Format(time.RFC3339),
		"to":   to.UTC().Format(time.RFC3339),
	}
	if err := c.http.GetJSON(ctx, "/mtr-api/"+s.uuid+"/closed-positions", query, s.headers(), &resp); err != nil {
		return nil, core.Wrap(platform, "fetch closed trades", err)
	}
	return toTrades(ctx, resp.Operations, types.TradeClosed), nil
}

func toTrades(ctx context.Context, positions []position, status types.TradeStatus) []types.Trade {
	trades := make([]types.Trade, 0, len(positions))
	for _, p := range positions {
		t, err := toTrade(p, status)
		if err != nil {
			logger.Warn(ctx, "Skipping MatchTrader position", "id", p.ID, "error", err)
			continue
		}
		trades = append(trades, t)
	}
	return trades
}

// decimals parses a set of decimal strings, stopping at the first failure
type decimals struct{ err error }

func (d *decimals) money(s string) float64 {
	if d.err != nil {
		return 0
	}
	v, err := normalize.MoneyString(s)
	d.err = err
	return v
}

func (d *decimals) price(s string) float64 {
	if d.err != nil {
		return 0
	}
	v, err := normalize.Price(s)
	d.err = err
	return v
}

func toTrade(p position, status types.TradeStatus) (types.Trade, error) {
	dir, err := normalize.ParseDirection(p.Side)
	if err != nil {
		return types.Trade{}, err
	}
	size, err := normalize.LotsString(p.Volume)
	if err != nil {
		return types.Trade{}, err
	}
	openTime, err := normalize.ParseTime(p.OpenTime)
	if err != nil {
		return types.Trade{}, err
	}

	var d decimals
	t := types.Trade{
		ExternalID: p.ID,
		Symbol:     p.Symbol,
		Direction:  dir,
		OpenPrice:  d.price(p.OpenPrice),
		OpenTime:   openTime,
		Size:       size,
		Profit:     d.money(p.Profit),
		Commission: d.money(p.Commission),
		Swap:       d.money(p.Swap),
		StopLoss:   d.price(p.StopLoss),
		TakeProfit: d.price(p.TakeProfit),
		Status:     status,
	}

	if status == types.TradeClosed {
		t.ClosePrice = d.price(p.ClosePrice)
		closeTime, err := normalize.ParseTime(p.CloseTime)
		if err != nil {
			return types.Trade{}, err
		}
		if !closeTime.IsZero() {
			t.CloseTime = &closeTime
		}
	}

	if d.err != nil {
		return types.Trade{}, d.err
	}
	return t, nil
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.sess = nil
	c.mu.Unlock()
	return nil
}
