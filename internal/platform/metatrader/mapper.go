package metatrader

import (
	"strconv"
	"strings"

	"trading-journal/internal/normalize"
	"trading-journal/internal/types"
)

// isPosition reports whether an order type is a filled market position rather
// than a pending order or a balance operation
func isPosition(orderType string) bool {
	switch strings.ToUpper(strings.TrimSpace(orderType)) {
	case "BUY", "SELL", "OP_BUY", "OP_SELL", "POSITION_TYPE_BUY", "POSITION_TYPE_SELL", "DEAL_TYPE_BUY", "DEAL_TYPE_SELL", "0", "1":
		return true
	}
	return false
}

func (c *Client) toTrade(o order, status types.TradeStatus) (types.Trade, error) {
	dir, err := normalize.ParseDirection(o.OrderType)
	if err != nil {
		return types.Trade{}, err
	}

	size := o.Lots
	if o.Volume != 0 || size == 0 {
		size, err = normalize.Lots(o.Volume, c.scale)
		if err != nil {
			return types.Trade{}, err
		}
	}

	openTime, err := normalize.ParseTime(o.OpenTime)
	if err != nil {
		return types.Trade{}, err
	}

	t := types.Trade{
		ExternalID: strconv.FormatInt(o.Ticket, 10),
		Symbol:     o.Symbol,
		Direction:  dir,
		OpenPrice:  o.OpenPrice,
		OpenTime:   openTime,
		Size:       normalize.Round2(size),
		Profit:     normalize.Round2(o.Profit),
		Commission: normalize.Round2(o.Commission),
		Swap:       normalize.Round2(o.Swap),
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Status:     status,
	}

	if status == types.TradeClosed {
		closeTime, err := normalize.ParseTime(o.CloseTime)
		if err != nil {
			return types.Trade{}, err
		}
		t.ClosePrice = o.ClosePrice
		if !closeTime.IsZero() {
			t.CloseTime = &closeTime
		}
	}

	return t, nil
}
