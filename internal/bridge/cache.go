package bridge

import (
	"sync"
	"time"

	"trading-journal/internal/types"
)

// snapshotCache holds the latest bridge state with thread-safe access
type snapshotCache struct {
	state     types.BridgeState
	account   *types.TradingAccount
	positions []types.Trade
	orders    []types.Order
	updatedAt time.Time
	mu        sync.RWMutex
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{state: types.BridgeIdle}
}

func (sc *snapshotCache) setState(s types.BridgeState) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.state = s
}

func (sc *snapshotCache) getState() types.BridgeState {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.state
}

func (sc *snapshotCache) setAccount(acc types.TradingAccount, at time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.account = &acc
	sc.updatedAt = at
}

func (sc *snapshotCache) setPositions(trades []types.Trade, at time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.positions = trades
	sc.updatedAt = at
}

func (sc *snapshotCache) setOrders(orders []types.Order, at time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.orders = orders
	sc.updatedAt = at
}

// snapshot returns a copy that later updates do not touch
func (sc *snapshotCache) snapshot() types.BridgeSnapshot {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	snap := types.BridgeSnapshot{
		State:     sc.state,
		Positions: append([]types.Trade{}, sc.positions...),
		Orders:    append([]types.Order{}, sc.orders...),
		UpdatedAt: sc.updatedAt,
	}
	if sc.account != nil {
		acc := *sc.account
		snap.Account = &acc
	}
	return snap
}
