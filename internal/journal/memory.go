// Package journal persists connected accounts and their synced trades.
package journal

import (
	"context"
	"sort"
	"sync"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/types"
)

// Memory is the default AccountStore. Nothing survives a restart.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]types.TradingAccount
	trades   map[string][]types.Trade
}

var _ interfaces.AccountStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]types.TradingAccount),
		trades:   make(map[string][]types.Trade),
	}
}

func (m *Memory) SaveAccount(ctx context.Context, acc types.TradingAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.ID] = acc
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, id string) (types.TradingAccount, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	return acc, ok, nil
}

func (m *Memory) ListAccounts(ctx context.Context) ([]types.TradingAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.TradingAccount, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteAccount removes the account together with its trades
func (m *Memory) DeleteAccount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	delete(m.trades, id)
	return nil
}

func (m *Memory) ReplaceTrades(ctx context.Context, accountID string, trades []types.Trade) error {
	if err := checkTradeIDs(trades); err != nil {
		return err
	}
	cp := make([]types.Trade, len(trades))
	copy(cp, trades)
	sortTrades(cp)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[accountID] = cp
	return nil
}

func (m *Memory) ListTrades(ctx context.Context, accountID string) ([]types.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.trades[accountID]
	out := make([]types.Trade, len(src))
	copy(out, src)
	return out, nil
}

func (m *Memory) Close() error {
	return nil
}

// sortTrades orders by open time, then id
func sortTrades(trades []types.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].OpenTime.Equal(trades[j].OpenTime) {
			return trades[i].OpenTime.Before(trades[j].OpenTime)
		}
		return trades[i].ID < trades[j].ID
	})
}
