package normalize

import (
	"fmt"
	"strings"

	"trading-journal/internal/types"
)

// ParseDirection maps vendor side encodings onto buy/sell. MetaTrader order
// types ("ORDER_TYPE_BUY_LIMIT", "Sell Stop", "OP_BUY") map to their side.
func ParseDirection(s string) (types.Direction, error) {
	k := strings.ToUpper(strings.TrimSpace(s))
	k = strings.TrimPrefix(k, "ORDER_TYPE_")
	k = strings.TrimPrefix(k, "DEAL_TYPE_")
	k = strings.TrimPrefix(k, "POSITION_TYPE_")
	k = strings.TrimPrefix(k, "OP_")

	switch k {
	case "0", "BUY", "LONG", "B":
		return types.DirectionBuy, nil
	case "1", "SELL", "SHORT", "S":
		return types.DirectionSell, nil
	}

	switch {
	case strings.HasPrefix(k, "BUY"):
		return types.DirectionBuy, nil
	case strings.HasPrefix(k, "SELL"):
		return types.DirectionSell, nil
	}
	return "", fmt.Errorf("normalize: unknown direction %q", s)
}
