// Package ctrader reads cTrader accounts through the Spotware Connect REST
// endpoints. Money arrives as integers scaled by moneyDigits and volumes in
// cents of units.
package ctrader

import (
	"context"
	"fmt"
	"sort"
	"strconv"
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

const platform = types.PlatformCTrader

type Client struct {
	http    *api.Client
	symbols *symbolMapper

	mu        sync.RWMutex
	token     string
	accountID int64
	creds     types.Credentials
}

var _ interfaces.PlatformClient = (*Client)(nil)

func New(cfg store.PlatformConfig) *Client {
	return &Client{
		http:    core.NewAPIClient(cfg),
		symbols: newSymbolMapper(),
	}
}

func (c *Client) Platform() types.Platform {
	return platform
}

func (c *Client) Authenticate(ctx context.Context, creds types.Credentials) error {
	if err := core.Require(platform, "access token", creds.AccessToken, "account number", creds.AccountNumber); err != nil {
		return err
	}

	acc, err := c.findAccount(ctx, creds.AccessToken, creds.AccountNumber)
	if err != nil {
		return core.Wrap(platform, "authenticate", err)
	}

	var syms envelope[symbol]
	path := fmt.Sprintf("/connect/tradingaccounts/%d/symbols", acc.AccountID)
	if err := c.http.GetJSON(ctx, path, nil, bearer(creds.AccessToken), &syms); err != nil {
		return core.Wrap(platform, "load symbols", err)
	}

	c.symbols.clear()
	for _, s := range syms.Data {
		c.symbols.add(s.SymbolID, s.SymbolName, s.LotSize)
	}

	c.mu.Lock()
	c.token = creds.AccessToken
	c.accountID = acc.AccountID
	c.creds = creds
	c.mu.Unlock()

	logger.Debug(ctx, "cTrader account resolved", "account_number", creds.AccountNumber, "ctid_account_id", acc.AccountID, "symbols", c.symbols.len())
	return nil
}

func (c *Client) findAccount(ctx context.Context, token, number string) (tradingAccount, error) {
	var accounts envelope[tradingAccount]
	if err := c.http.GetJSON(ctx, "/connect/tradingaccounts", nil, bearer(token), &accounts); err != nil {
		return tradingAccount{}, err
	}
	for _, a := range accounts.Data {
		if strconv.FormatInt(a.AccountNumber, 10) == number || strconv.FormatInt(a.AccountID, 10) == number {
			return a, nil
		}
	}
	return tradingAccount{}, fmt.Errorf("%w: %s", core.ErrAccountNotFound, number)
}

func (c *Client) session() (string, int64, types.Credentials, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", 0, types.Credentials{}, core.Wrap(platform, "session", core.ErrNotAuthenticated)
	}
	return c.token, c.accountID, c.creds, nil
}

func (c *Client) FetchAccount(ctx context.Context) (types.TradingAccount, error) {
	token, _, creds, err := c.session()
	if err != nil {
		return types.TradingAccount{}, err
	}

	a, err := c.findAccount(ctx, token, creds.AccountNumber)
	if err != nil {
		return types.TradingAccount{}, core.Wrap(platform, "fetch account", err)
	}

	md := digits(a.MoneyDigits)
	balance := normalize.Money(a.Balance, md)
	equity := balance
	if a.Equity != 0 {
		equity = normalize.Money(a.Equity, md)
	}

	broker := a.BrokerTitle
	if broker == "" {
		broker = a.BrokerName
	}

	return types.TradingAccount{
		Platform:      platform,
		Broker:        broker,
		Server:        liveOrDemo(a.Live),
		AccountNumber: strconv.FormatInt(a.AccountNumber, 10),
		Balance:       balance,
		Equity:        equity,
		Currency:      a.DepositCurrency,
		Leverage:      normalize.Leverage(a.LeverageInCents, true),
		Status:        types.StatusConnected,
		LastUpdated:   time.Now().UTC(),
	}, nil
}

func liveOrDemo(live bool) string {
	if live {
		return "live"
	}
	return "demo"
}

func (c *Client) FetchOpenTrades(ctx context.Context) ([]types.Trade, error) {
	token, id, _, err := c.session()
	if err != nil {
		return nil, err
	}

	var positions envelope[position]
	path := fmt.Sprintf("/connect/tradingaccounts/%d/positions", id)
	if err := c.http.GetJSON(ctx, path, nil, bearer(token), &positions); err != nil {
		return nil, core.Wrap(platform, "fetch open trades", err)
	}

	trades := make([]types.Trade, 0, len(positions.Data))
	for _, p := range positions.Data {
		dir, err := normalize.ParseDirection(p.TradeSide)
		if err != nil {
			logger.Warn(ctx, "Skipping cTrader position", "position_id", p.PositionID, "error", err)
			continue
		}
		size, err := normalize.Lots(p.Volume, c.symbols.lotSize(p.SymbolID))
		if err != nil {
			logger.Warn(ctx, "Skipping cTrader position", "position_id", p.PositionID, "error", err)
			continue
		}

		md := digits(p.MoneyDigits)
		trades = append(trades, types.Trade{
			ExternalID: strconv.FormatInt(p.PositionID, 10),
			Symbol:     c.symbols.name(p.SymbolID),
			Direction:  dir,
			OpenPrice:  p.EntryPrice,
			OpenTime:   normalize.FromMillis(p.OpenTimestamp),
			Size:       size,
			Profit:     normalize.Money(p.UnrealizedPnl, md),
			Commission: normalize.Money(p.Commission, md),
			Swap:       normalize.Money(p.Swap, md),
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
			Status:     types.TradeOpen,
		})
	}
	return trades, nil
}

// FetchClosedTrades turns closing deals into trades. The opening deal, when it
// falls inside the window, supplies the open time; otherwise the close time is used.
func (c *Client) FetchClosedTrades(ctx context.Context, from, to time.Time) ([]types.Trade, error) {
	token, id, _, err := c.session()
	if err != nil {
		return nil, err
	}

	var deals envelope[deal]
	path := fmt.Sprintf("/connect/tradingaccounts/%d/deals", id)
	query := map[string]string{
		"from": strconv.FormatInt(from.UnixMilli(), 10),
		"to":   strconv.FormatInt(to.UnixMilli(), 10),
	}
	if err := c.http.GetJSON(ctx, path, query, bearer(token), &deals); err != nil {
		return nil, core.Wrap(platform, "fetch closed trades", err)
	}

	opened := make(map[int64]int64)
	for _, d := range deals.Data {
		if d.ClosePositionDetail == nil {
			if ts, ok := opened[d.PositionID]; !ok || d.ExecutionTimestamp < ts {
				opened[d.PositionID] = d.ExecutionTimestamp
			}
		}
	}

	trades := make([]types.Trade, 0, len(deals.Data))
	for _, d := range deals.Data {
		cp := d.ClosePositionDetail
		if cp == nil {
			continue
		}

		closing, err := normalize.ParseDirection(d.TradeSide)
		if err != nil {
			logger.Warn(ctx, "Skipping cTrader deal", "deal_id", d.DealID, "error", err)
			continue
		}

		volume := cp.ClosedVolume
		if volume == 0 {
			volume = d.Volume
		}
		size, err := normalize.Lots(volume, c.symbols.lotSize(d.SymbolID))
		if err != nil {
			logger.Warn(ctx, "Skipping cTrader deal", "deal_id", d.DealID, "error", err)
			continue
		}

		closeTime := normalize.FromMillis(d.ExecutionTimestamp)
		openTime := closeTime
		if ts, ok := opened[d.PositionID]; ok {
			openTime = normalize.FromMillis(ts)
		}

		md := digits(cp.MoneyDigits, d.MoneyDigits)
		trades = append(trades, types.Trade{
			ExternalID: dealExternalID(d.DealID),
			Symbol:     c.symbols.name(d.SymbolID),
			Direction:  opposite(closing),
			OpenPrice:  cp.EntryPrice,
			ClosePrice: d.ExecutionPrice,
			OpenTime:   openTime,
			CloseTime:  &closeTime,
			Size:       size,
			Profit:     normalize.Money(cp.GrossProfit, md),
			Commission: normalize.Money(cp.Commission, md),
			Swap:       normalize.Money(cp.Swap, md),
			StopLoss:   cp.StopLoss,
			TakeProfit: cp.TakeProfit,
			Status:     types.TradeClosed,
		})
	}

	sort.Slice(trades, func(i, j int) bool { return trades[i].CloseTime.Before(*trades[j].CloseTime) })
	return trades, nil
}

// a closing deal trades against the position it closes
func opposite(d types.Direction) types.Direction {
	if d == types.DirectionBuy {
		return types.DirectionSell
	}
	return types.DirectionBuy
}

func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.accountID = 0
	c.mu.Unlock()
	c.symbols.clear()
	return nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// dealExternalID keeps closed-deal ids apart from open position ids, which
// cTrader numbers from a separate counter.
func dealExternalID(dealID int64) string {
	return "deal-" + strconv.FormatInt(dealID, 10)
}
