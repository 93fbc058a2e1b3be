package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trading-journal/internal/normalize"
	"trading-journal/internal/types"
)

const (
	msgAuth    = "auth"
	msgRequest = "request"

	actionAccountInfo = "account_info"
	actionPositions   = "positions"
	actionOrders      = "orders"
)

var pollActions = []string{actionAccountInfo, actionPositions, actionOrders}

// outbound is every message the bridge client writes
type outbound struct {
	Type      string `json:"type"`
	Action    string `json:"action,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type authData struct {
	Login string `json:"login"`
	Token string `json:"token"`
}

// envelope is every message the bridge service sends
type envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// RemoteError is an error reported by the bridge service
type RemoteError struct {
	Type      string
	RequestID string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("bridge %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("bridge %s (%s): %s", e.Type, e.RequestID, e.Message)
}

type accountInfo struct {
	Login     json.Number `json:"login"`
	Name      string      `json:"name"`
	Server    string      `json:"server"`
	Company   string      `json:"company"`
	Currency  string      `json:"currency"`
	Balance   float64     `json:"balance"`
	Equity    float64     `json:"equity"`
	Leverage  int64       `json:"leverage"`
	TradeMode string      `json:"tradeMode"`
}

// position volumes arrive in the terminal's integer volume units
type position struct {
	Ticket     json.Number `json:"ticket"`
	Symbol     string      `json:"symbol"`
	Type       string      `json:"type"`
	Volume     int64       `json:"volume"`
	PriceOpen  float64     `json:"priceOpen"`
	StopLoss   float64     `json:"sl"`
	TakeProfit float64     `json:"tp"`
	Profit     float64     `json:"profit"`
	Swap       float64     `json:"swap"`
	Commission float64     `json:"commission"`
	Time       stamp       `json:"time"`
}

type pendingOrder struct {
	Ticket     json.Number `json:"ticket"`
	Symbol     string      `json:"symbol"`
	Type       string      `json:"type"`
	Volume     int64       `json:"volume"`
	Price      float64     `json:"price"`
	StopLoss   float64     `json:"sl"`
	TakeProfit float64     `json:"tp"`
	Time       stamp       `json:"time"`
}

// stamp is a time sent either as epoch milliseconds or as a string such as
// "2024.03.05 14:30:00"
type stamp json.RawMessage

func (s *stamp) UnmarshalJSON(b []byte) error {
	*s = append((*s)[:0], b...)
	return nil
}

func (s stamp) parse() (time.Time, error) {
	raw := bytes.TrimSpace(s)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, fmt.Errorf("bridge: bad time %s: %w", raw, err)
		}
		return normalize.ParseTime(str)
	}
	return normalize.ParseTime(string(raw))
}

func (b *Bridge) toAccount(a accountInfo) types.TradingAccount {
	return types.TradingAccount{
		Platform:      b.platform,
		Name:          a.Name,
		Broker:        a.Company,
		Server:        a.Server,
		AccountNumber: a.Login.String(),
		Balance:       normalize.Round2(a.Balance),
		Equity:        normalize.Round2(a.Equity),
		Currency:      a.Currency,
		Leverage:      normalize.Leverage(a.Leverage, false),
		Status:        types.StatusConnected,
		IsDemo:        strings.EqualFold(a.TradeMode, "demo"),
		LastUpdated:   b.now().UTC(),
	}
}

func (b *Bridge) toTrade(p position) (types.Trade, error) {
	dir, err := normalize.ParseDirection(p.Type)
	if err != nil {
		return types.Trade{}, err
	}
	size, err := normalize.Lots(p.Volume, b.scale)
	if err != nil {
		return types.Trade{}, err
	}
	opened, err := p.Time.parse()
	if err != nil {
		return types.Trade{}, err
	}

	return types.Trade{
		ExternalID: p.Ticket.String(),
		Symbol:     p.Symbol,
		Direction:  dir,
		OpenPrice:  p.PriceOpen,
		OpenTime:   opened,
		Size:       size,
		Profit:     normalize.Round2(p.Profit),
		Commission: normalize.Round2(p.Commission),
		Swap:       normalize.Round2(p.Swap),
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Status:     types.TradeOpen,
	}, nil
}

func (b *Bridge) toOrder(o pendingOrder) (types.Order, error) {
	dir, err := normalize.ParseDirection(o.Type)
	if err != nil {
		return types.Order{}, err
	}
	vol, err := normalize.Lots(o.Volume, b.scale)
	if err != nil {
		return types.Order{}, err
	}
	placed, err := o.Time.parse()
	if err != nil {
		return types.Order{}, err
	}

	return types.Order{
		Ticket:     o.Ticket.String(),
		Symbol:     o.Symbol,
		Type:       orderKind(o.Type),
		Direction:  dir,
		Volume:     vol,
		Price:      o.Price,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		PlacedAt:   placed,
	}, nil
}

// orderKind turns "ORDER_TYPE_BUY_LIMIT" into "buy_limit"
func orderKind(t string) string {
	k := strings.ToUpper(strings.TrimSpace(t))
	k = strings.TrimPrefix(k, "ORDER_TYPE_")
	k = strings.TrimPrefix(k, "OP_")
	return strings.ToLower(strings.ReplaceAll(k, " ", "_"))
}

// decodeItems decodes a JSON array item by item so one malformed entry does
// not drop the rest. bad reports the index and error of each skipped item.
func decodeItems[T any](data json.RawMessage, bad func(i int, err error)) ([]T, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	items := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			bad(i, err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
