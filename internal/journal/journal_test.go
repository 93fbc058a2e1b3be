package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/types"
)

func stores(t *testing.T) map[string]interfaces.AccountStore {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]interfaces.AccountStore{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func sampleAccount(id string) types.TradingAccount {
	return types.TradingAccount{
		ID:            id,
		Name:          "Main",
		Platform:      types.PlatformMT5,
		Broker:        "IC Markets",
		Server:        "ICMarkets-Demo",
		AccountNumber: "5001234",
		Balance:       10234.57,
		Equity:        10100.1,
		Currency:      "USD",
		Leverage:      500,
		Status:        types.StatusConnected,
		IsDemo:        true,
		LastUpdated:   time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}
}

func sampleTrades(accountID string) []types.Trade {
	closed := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	return []types.Trade{
		{
			ID: types.TradeID(accountID, "2"), AccountID: accountID, ExternalID: "2", Symbol: "EURUSD",
			Direction: types.DirectionBuy, OpenPrice: 1.085, OpenTime: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
			Size: 0.15, Profit: -12.35, Status: types.TradeOpen,
		},
		{
			ID: types.TradeID(accountID, "1"), AccountID: accountID, ExternalID: "1", Symbol: "XAUUSD",
			Direction: types.DirectionSell, OpenPrice: 2031.5, ClosePrice: 2025.25,
			OpenTime: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), CloseTime: &closed,
			Size: 2, Profit: 1250, Commission: -14, Swap: -1.5, StopLoss: 2040, Status: types.TradeClosed,
		},
	}
}

func TestAccountRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.GetAccount(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			acc := sampleAccount("a1")
			require.NoError(t, s.SaveAccount(ctx, acc))

			got, ok, err := s.GetAccount(ctx, "a1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, acc, got)

			acc.Status = types.StatusError
			acc.LastError = "timeout"
			require.NoError(t, s.SaveAccount(ctx, acc))
			require.NoError(t, s.SaveAccount(ctx, sampleAccount("a0")))

			list, err := s.ListAccounts(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "a0", list[0].ID)
			assert.Equal(t, "timeout", list[1].LastError)
		})
	}
}

func TestReplaceTrades(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveAccount(ctx, sampleAccount("a1")))

			require.NoError(t, s.ReplaceTrades(ctx, "a1", sampleTrades("a1")))
			require.NoError(t, s.ReplaceTrades(ctx, "a1", sampleTrades("a1")))

			trades, err := s.ListTrades(ctx, "a1")
			require.NoError(t, err)
			require.Len(t, trades, 2)
			assert.Equal(t, "a1:1", trades[0].ID)
			require.NotNil(t, trades[0].CloseTime)
			assert.Equal(t, 12, trades[0].CloseTime.Hour())
			assert.Nil(t, trades[1].CloseTime)
			assert.Equal(t, -12.35, trades[1].Profit)

			require.NoError(t, s.ReplaceTrades(ctx, "a1", sampleTrades("a1")[:1]))
			trades, err = s.ListTrades(ctx, "a1")
			require.NoError(t, err)
			assert.Len(t, trades, 1)
		})
	}
}

func TestReplaceTradesRejectsDuplicateIDs(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveAccount(ctx, sampleAccount("a1")))
			require.NoError(t, s.ReplaceTrades(ctx, "a1", sampleTrades("a1")))

			dup := sampleTrades("a1")
			dup[1].ID = dup[0].ID
			err := s.ReplaceTrades(ctx, "a1", dup)
			assert.ErrorIs(t, err, ErrDuplicateTrade)

			trades, err := s.ListTrades(ctx, "a1")
			require.NoError(t, err)
			assert.Len(t, trades, 2, "a rejected batch keeps the previous trades")
		})
	}
}

func TestDeleteAccountRemovesTrades(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.SaveAccount(ctx, sampleAccount("a1")))
			require.NoError(t, s.ReplaceTrades(ctx, "a1", sampleTrades("a1")))

			require.NoError(t, s.DeleteAccount(ctx, "a1"))

			_, ok, err := s.GetAccount(ctx, "a1")
			require.NoError(t, err)
			assert.False(t, ok)

			trades, err := s.ListTrades(ctx, "a1")
			require.NoError(t, err)
			assert.Empty(t, trades)
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveAccount(ctx, sampleAccount("a1")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, ok)
}
