package platformobs

import (
	"context"
	"time"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/trace"
	"trading-journal/internal/types"
)

// observableClient wraps a PlatformClient with observability (logging & tracing)
type observableClient struct {
	client interfaces.PlatformClient
}

// Compile-time interface check
var _ interfaces.PlatformClient = (*observableClient)(nil)

// Wrap wraps a platform client with observability middleware
func Wrap(client interfaces.PlatformClient) interfaces.PlatformClient {
	return &observableClient{
		client: client,
	}
}

func (oc *observableClient) Platform() types.Platform {
	return oc.client.Platform()
}

// Authenticate opens a session with observability. Secrets are never logged.
func (oc *observableClient) Authenticate(ctx context.Context, creds types.Credentials) error {
	ctx, span := trace.StartSpan(ctx, "platform.Authenticate")
	defer span.End()

	p := oc.client.Platform()
	logger.InfoSkip(ctx, 1, "Authenticating with platform", "platform", p, "account", creds.AccountRef(), "server", creds.Server)

	if err := oc.client.Authenticate(ctx, creds); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Platform authentication failed", err, "platform", p, "account", creds.AccountRef())
		return err
	}

	logger.InfoSkip(ctx, 1, "Platform authentication succeeded", "platform", p, "account", creds.AccountRef())
	return nil
}

// FetchAccount fetches the account summary with observability
func (oc *observableClient) FetchAccount(ctx context.Context) (types.TradingAccount, error) {
	ctx, span := trace.StartSpan(ctx, "platform.FetchAccount")
	defer span.End()

	p := oc.client.Platform()
	logger.DebugSkip(ctx, 1, "Fetching account", "platform", p)

	acc, err := oc.client.FetchAccount(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account", err, "platform", p)
		return types.TradingAccount{}, err
	}

	logger.DebugSkip(ctx, 1, "Account fetched successfully",
		"platform", p,
		"account", acc.AccountNumber,
		"balance", acc.Balance,
		"equity", acc.Equity,
		"currency", acc.Currency,
	)
	return acc, nil
}

// FetchOpenTrades fetches open positions with observability
func (oc *observableClient) FetchOpenTrades(ctx context.Context) ([]types.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "platform.FetchOpenTrades")
	defer span.End()

	p := oc.client.Platform()
	logger.DebugSkip(ctx, 1, "Fetching open trades", "platform", p)

	trades, err := oc.client.FetchOpenTrades(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch open trades", err, "platform", p)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Open trades fetched successfully", "platform", p, "count", len(trades))
	return trades, nil
}

// FetchClosedTrades fetches trade history with observability
func (oc *observableClient) FetchClosedTrades(ctx context.Context, from, to time.Time) ([]types.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "platform.FetchClosedTrades")
	defer span.End()

	p := oc.client.Platform()
	logger.DebugSkip(ctx, 1, "Fetching closed trades",
		"platform", p,
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339),
	)

	trades, err := oc.client.FetchClosedTrades(ctx, from, to)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch closed trades", err, "platform", p)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Closed trades fetched successfully", "platform", p, "count", len(trades))
	return trades, nil
}

// Close ends the session with observability
func (oc *observableClient) Close(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "platform.Close")
	defer span.End()

	p := oc.client.Platform()
	logger.InfoSkip(ctx, 1, "Closing platform session", "platform", p)

	if err := oc.client.Close(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to close platform session", err, "platform", p)
		return err
	}

	logger.InfoSkip(ctx, 1, "Platform session closed", "platform", p)
	return nil
}
