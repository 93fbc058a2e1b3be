package interfaces

import (
	"context"
	"time"

	"trading-journal/internal/types"
)

// PlatformClient is a session against one trading-platform account.
type PlatformClient interface {
	// Platform reports which platform the client talks to
	Platform() types.Platform

	// Authenticate opens a session with the given credentials
	Authenticate(ctx context.Context, creds types.Credentials) error

	// FetchAccount returns the normalized account summary
	FetchAccount(ctx context.Context) (types.TradingAccount, error)

	// FetchOpenTrades returns currently open positions as open trades
	FetchOpenTrades(ctx context.Context) ([]types.Trade, error)

	// FetchClosedTrades returns trades closed within [from, to]
	FetchClosedTrades(ctx context.Context, from, to time.Time) ([]types.Trade, error)

	// Close ends the session
	Close(ctx context.Context) error
}
