package interfaces

import (
	"context"

	"trading-journal/internal/types"
)

type AccountStore interface {
	SaveAccount(ctx context.Context, acc types.TradingAccount) error
	GetAccount(ctx context.Context, id string) (types.TradingAccount, bool, error)
	ListAccounts(ctx context.Context) ([]types.TradingAccount, error)
	DeleteAccount(ctx context.Context, id string) error
	ReplaceTrades(ctx context.Context, accountID string, trades []types.Trade) error
	ListTrades(ctx context.Context, accountID string) ([]types.Trade, error)
	Close() error
}

type CredentialVault interface {
	Put(ctx context.Context, accountID string, creds types.Credentials) error
	Get(ctx context.Context, accountID string) (types.Credentials, bool, error)
	Delete(ctx context.Context, accountID string) error
	Close() error
}
