package journal

import (
	"errors"
	"fmt"

	"trading-journal/internal/types"
)

// ErrDuplicateTrade is returned when a ReplaceTrades batch repeats a trade id
var ErrDuplicateTrade = errors.New("journal: duplicate trade id")

func checkTradeIDs(trades []types.Trade) error {
	seen := make(map[string]struct{}, len(trades))
	for _, t := range trades {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTrade, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
