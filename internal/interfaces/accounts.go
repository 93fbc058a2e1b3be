package interfaces

import (
	"context"

	"trading-journal/internal/types"
)

type AccountService interface {
	Connect(ctx context.Context, req types.ConnectRequest) (types.TradingAccount, error)
	Sync(ctx context.Context, accountID string) (types.SyncResult, error)
	Disconnect(ctx context.Context, accountID string) error
	Get(ctx context.Context, accountID string) (types.TradingAccount, error)
	List(ctx context.Context) ([]types.TradingAccount, error)
	Trades(ctx context.Context, accountID string) ([]types.Trade, error)
}
