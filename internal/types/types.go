package types

import (
	"fmt"
	"strings"
	"time"
)

type Platform string

const (
	PlatformMT4         Platform = "MT4"
	PlatformMT5         Platform = "MT5"
	PlatformCTrader     Platform = "CTRADER"
	PlatformDXtrade     Platform = "DXTRADE"
	PlatformMatchTrader Platform = "MATCHTRADER"
)

// Platforms lists every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformMT4, PlatformMT5, PlatformCTrader, PlatformDXtrade, PlatformMatchTrader}
}

// ParsePlatform accepts the canonical names and the common aliases used by
// brokers and the journal UI.
func ParsePlatform(s string) (Platform, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer("-", "", "_", "", " ", "").Replace(k)
	switch k {
	case "mt4", "metatrader4":
		return PlatformMT4, nil
	case "mt5", "metatrader5":
		return PlatformMT5, nil
	case "ctrader", "ct":
		return PlatformCTrader, nil
	case "dxtrade", "dx":
		return PlatformDXtrade, nil
	case "matchtrader", "match", "mtr":
		return PlatformMatchTrader, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// IsMetaTrader reports whether p is served by the MetaTrader web API.
func (p Platform) IsMetaTrader() bool {
	return p == PlatformMT4 || p == PlatformMT5
}

type AccountStatus string

const (
	StatusConnected    AccountStatus = "connected"
	StatusSyncing      AccountStatus = "syncing"
	StatusDisconnected AccountStatus = "disconnected"
	StatusError        AccountStatus = "error"
)

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

type TradingAccount struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Platform      Platform      `json:"platform"`
	Broker        string        `json:"broker,omitempty"`
	Server        string        `json:"server"`
	AccountNumber string        `json:"accountNumber"`
	Balance       float64       `json:"balance"`
	Equity        float64       `json:"equity"`
	Currency      string        `json:"currency"`
	Leverage      int           `json:"leverage"`
	Status        AccountStatus `json:"status"`
	IsDemo        bool          `json:"isDemo"`
	LastError     string        `json:"lastError,omitempty"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

type Trade struct {
	ID         string      `json:"id"`
	AccountID  string      `json:"accountId"`
	ExternalID string      `json:"externalId"`
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction"`
	OpenPrice  float64     `json:"openPrice"`
	ClosePrice float64     `json:"closePrice,omitempty"`
	OpenTime   time.Time   `json:"openTime"`
	CloseTime  *time.Time  `json:"closeTime,omitempty"`
	Size       float64     `json:"size"`
	Profit     float64     `json:"profit"`
	Commission float64     `json:"commission,omitempty"`
	Swap       float64     `json:"swap,omitempty"`
	StopLoss   float64     `json:"stopLoss,omitempty"`
	TakeProfit float64     `json:"takeProfit,omitempty"`
	Status     TradeStatus `json:"status"`
}

// TradeID builds the deterministic id under which a broker trade is stored,
// so a re-sync overwrites instead of duplicating.
func TradeID(accountID, externalID string) string {
	return accountID + ":" + externalID
}

// Order is a pending order as reported by the MetaTrader bridge.
type Order struct {
	Ticket     string    `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	Direction  Direction `json:"direction"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price"`
	StopLoss   float64   `json:"stopLoss,omitempty"`
	TakeProfit float64   `json:"takeProfit,omitempty"`
	PlacedAt   time.Time `json:"placedAt"`
}

type Credentials struct {
	Login         string `json:"login,omitempty"`
	Password      string `json:"password,omitempty"`
	Server        string `json:"server,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccessToken   string `json:"accessToken,omitempty"`
	Username      string `json:"username,omitempty"`
	Domain        string `json:"domain,omitempty"`
	Email         string `json:"email,omitempty"`
	BrokerID      string `json:"brokerId,omitempty"`
}

// AccountRef returns the identifier a platform knows the account by.
func (c Credentials) AccountRef() string {
	switch {
	case c.AccountNumber != "":
		return c.AccountNumber
	case c.Login != "":
		return c.Login
	case c.Username != "":
		return c.Username
	}
	return c.Email
}

type ConnectRequest struct {
	Name        string      `json:"name" validate:"max=64"`
	Platform    Platform    `json:"platform" validate:"required,oneof=MT4 MT5 CTRADER DXTRADE MATCHTRADER"`
	Credentials Credentials `json:"credentials"`
}

type SyncResult struct {
	Account      TradingAccount `json:"account"`
	Trades       []Trade        `json:"trades"`
	OpenCount    int            `json:"openCount"`
	ClosedCount  int            `json:"closedCount"`
	UsedFallback bool           `json:"usedFallback"`
	Duration     time.Duration  `json:"duration"`
}

type BridgeState string

const (
	BridgeIdle         BridgeState = "idle"
	BridgeConnecting   BridgeState = "connecting"
	BridgeConnected    BridgeState = "connected"
	BridgeReconnecting BridgeState = "reconnecting"
	BridgeFailed       BridgeState = "failed"
	BridgeStopped      BridgeState = "stopped"
)

// BridgeSnapshot is the latest state pushed by the MetaTrader bridge.
type BridgeSnapshot struct {
	State     BridgeState     `json:"state"`
	Account   *TradingAccount `json:"account,omitempty"`
	Positions []Trade         `json:"positions"`
	Orders    []Order         `json:"orders"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
