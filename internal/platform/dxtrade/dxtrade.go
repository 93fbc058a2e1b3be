// Package dxtrade reads DXtrade accounts through the DXtrade REST API.
package dxtrade

import (
	"context"
	"fmt"
	"net/url"
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

const (
	platform = types.PlatformDXtrade
	basePath = "/dxsca-web"
)

type loginRequest struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionToken string `json:"sessionToken"`
	Timeout      string `json:"timeout"`
}

type metricsResponse struct {
	Metrics []struct {
		Account  string  `json:"account"`
		Balance  float64 `json:"balance"`
		Equity   float64 `json:"equity"`
		Currency string  `json:"currency"`
		Leverage int64   `json:"leverage"`
	} `json:"metrics"`
}

type positionsResponse struct {
	Positions []position `json:"positions"`
}

type position struct {
	PositionCode string  `json:"positionCode"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	Side         string  `json:"side"`
	OpenPrice    float64 `json:"openPrice"`
	OpenTime     string  `json:"openTime"`
	ClosePrice   float64 `json:"closePrice"`
	CloseTime    string  `json:"closeTime"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	FPL          float64 `json:"fpl"`
	PL           float64 `json:"pl"`
	Swap         float64 `json:"swap"`
	Commission   float64 `json:"commission"`
}

type Client struct {
	http         *api.Client
	contractSize float64

	mu      sync.RWMutex
	token   string
	account string
	creds   types.Credentials
}

var _ interfaces.PlatformClient = (*Client)(nil)

func New(cfg store.PlatformConfig) *Client {
	size := cfg.ContractSize
	if size <= 0 {
		size = normalize.DefaultContractSize
	}
	return &Client{
		http:         core.NewAPIClient(cfg),
		contractSize: size,
	}
}

func (c *Client) Platform() types.Platform {
	return platform
}

func (c *Client) Authenticate(ctx context.Context, creds types.Credentials) error {
	if err := core.Require(platform,
		"username", creds.Username,
		"domain", creds.Domain,
		"password", creds.Password,
		"account code", creds.AccountNumber,
	); err != nil {
		return err
	}

	var resp loginResponse
	req := loginRequest{Username: creds.Username, Domain: creds.Domain, Password: creds.Password}
	if err := c.http.PostJSON(ctx, basePath+"/login", req, nil, &resp); err != nil {
		return core.Wrap(platform, "authenticate", err)
	}
	if resp.SessionToken == "" {
		return core.Wrap(platform, "authenticate", core.ErrAuthFailed)
	}

	c.mu.Lock()
	c.token = resp.SessionToken
	c.account = accountCode(creds)
	c.creds = creds
	c.mu.Unlock()

	logger.Debug(ctx, "DXtrade session opened", "username", creds.Username, "domain", creds.Domain, "timeout", resp.Timeout)
	return nil
}

// accountCode qualifies a bare account code with the login domain
func accountCode(creds types.Credentials) string {
	if strings.Contains(creds.AccountNumber, ":") {
		return creds.AccountNumber
	}
	return creds.Domain + ":" + creds.AccountNumber
}

func (c *Client) session() (map[string]string, string, types.Credentials, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return nil, "", types.Credentials{}, core.Wrap(platform, "session", core.ErrNotAuthenticated)
	}
	return map[string]string{"Authorization": "DXAPI " + c.token}, url.PathEscape(c.account), c.creds, nil
}

func (c *Client) FetchAccount(ctx context.Context) (types.TradingAccount, error) {
	headers, code, creds, err := c.session()
	if err != nil {
		return types.TradingAccount{}, err
	}

	var resp metricsResponse
	if err := c.http.GetJSON(ctx, basePath+"/accounts/"+code+"/metrics", nil, headers, &resp); err != nil {
		return types.TradingAccount{}, core.Wrap(platform, "fetch account", err)
	}
	if len(resp.Metrics) == 0 {
		return types.TradingAccount{}, core.Wrap(platform, "fetch account", fmt.Errorf("%w: %s", core.ErrAccountNotFound, creds.AccountNumber))
	}

	m := resp.Metrics[0]
	currency := m.Currency
	if currency == "" {
		currency = "USD"
	}

	return types.TradingAccount{
		Platform:      platform,
		Server:        creds.Domain,
		AccountNumber: creds.AccountNumber,
		Balance:       normalize.Round2(m.Balance),
		Equity:        normalize.Round2(m.Equity),
		Currency:      currency,
		Leverage:      normalize.Leverage(m.Leverage, false),
		Status:        types.StatusConnected,
		LastUpdated:   time.Now().UTC(),
	}, nil
}

func (c *Client) FetchOpenTrades(ctx context.Context) ([]types.Trade, error) {
	headers, code, _, err := c.session()
	if err != nil {
		return nil, err
	}

	var resp positionsResponse
	if err := c.http.GetJSON(ctx, basePath+"/accounts/"+code+"/positions", nil, headers, &resp); err != nil {
		return nil, core.Wrap(platform, "fetch open trades", err)
	}
	return c.toTrades(ctx, resp.Positions, types.TradeOpen), nil
}

func (c *Client) FetchClosedTrades(ctx context.Context, from, to time.Time) ([]types.Trade, error) {
	headers, code, _, err := c.session()
	if err != nil {
		return nil, err
	}

	var resp positionsResponse
	query := map[string]string{
		"from": from.UTC().Format(time.RFC3339),
		"to":   to.UTC().Format(time.RFC3339),
	}
	if err := c.http.GetJSON(ctx, basePath+"/accounts/"+code+"/positions/history", query, headers, &resp); err != nil {
		return nil, core.Wrap(platform, "fetch closed trades", err)
	}
	return c.toTrades(ctx, resp.Positions, types.TradeClosed), nil
}

func (c *Client) toTrades(ctx context.Context, positions []position, status types.TradeStatus) []types.Trade {
	trades := make([]types.Trade, 0, len(positions))
	for _, p := range positions {
		t, err := c.toTrade(p, status)
		if err != nil {
			logger.Warn(ctx, "Skipping DXtrade position", "position_code", p.PositionCode, "error", err)
			continue
		}
		trades = append(trades, t)
	}
	return trades
}

func (c *Client) toTrade(p position, status types.TradeStatus) (types.Trade, error) {
	side := p.Side
	if side == "" && p.Quantity < 0 {
		side = "SELL"
	} else if side == "" {
		side = "BUY"
	}
	dir, err := normalize.ParseDirection(side)
	if err != nil {
		return types.Trade{}, err
	}

	size, err := normalize.UnitsToLots(p.Quantity, c.contractSize)
	if err != nil {
		return types.Trade{}, err
	}

	openTime, err := normalize.ParseTime(p.OpenTime)
	if err != nil {
		return types.Trade{}, err
	}

	t := types.Trade{
		ExternalID: p.PositionCode,
		Symbol:     strings.ReplaceAll(p.Symbol, "/", ""),
		Direction:  dir,
		OpenPrice:  p.OpenPrice,
		OpenTime:   openTime,
		Size:       size,
		Profit:     normalize.Round2(p.FPL),
		Commission: normalize.Round2(p.Commission),
		Swap:       normalize.Round2(p.Swap),
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Status:     status,
	}

	if status == types.TradeClosed {
		closeTime, err := normalize.ParseTime(p.CloseTime)
		if err != nil {
			return types.Trade{}, err
		}
		t.Profit = normalize.Round2(p.PL)
		t.ClosePrice = p.ClosePrice
		if !closeTime.IsZero() {
			t.CloseTime = &closeTime
		}
	}

	return t, nil
}

func (c *Client) Close(ctx context.Context) error {
	headers, _, _, err := c.session()
	if err != nil {
		return nil
	}

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	_, err = c.http.Do(ctx, api.Request{Method: "POST", Path: basePath + "/logout", Headers: headers})
	return core.Wrap(platform, "logout", err)
}
