package accountsobs

import (
	"context"
	"time"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/trace"
	"trading-journal/internal/types"
)

type observableService struct {
	svc interfaces.AccountService
}

var _ interfaces.AccountService = (*observableService)(nil)

func Wrap(svc interfaces.AccountService) interfaces.AccountService {
	return &observableService{
		svc: svc,
	}
}

func (o *observableService) Connect(ctx context.Context, req types.ConnectRequest) (types.TradingAccount, error) {
	ctx, span := trace.StartSpan(ctx, "accounts.Connect")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Connecting account",
		"platform", req.Platform,
		"name", req.Name,
		"account", req.Credentials.AccountRef(),
	)

	acc, err := o.svc.Connect(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Account connect failed", err,
			"platform", req.Platform,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.TradingAccount{}, err
	}

	logger.InfoSkip(ctx, 1, "Account connected",
		"account_id", acc.ID,
		"platform", acc.Platform,
		"status", acc.Status,
		"is_demo", acc.IsDemo,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return acc, nil
}

func (o *observableService) Sync(ctx context.Context, accountID string) (types.SyncResult, error) {
	ctx, span := trace.StartSpan(ctx, "accounts.Sync")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting account sync", "account_id", accountID)

	res, err := o.svc.Sync(ctx, accountID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Account sync failed", err, "account_id", accountID)
		return types.SyncResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Account sync completed",
		"account_id", accountID,
		"balance", res.Account.Balance,
		"equity", res.Account.Equity,
		"open", res.OpenCount,
		"closed", res.ClosedCount,
		"used_fallback", res.UsedFallback,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (o *observableService) Disconnect(ctx context.Context, accountID string) error {
	ctx, span := trace.StartSpan(ctx, "accounts.Disconnect")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Disconnecting account", "account_id", accountID)

	if err := o.svc.Disconnect(ctx, accountID); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Account disconnect failed", err, "account_id", accountID)
		return err
	}

	logger.InfoSkip(ctx, 1, "Account disconnected", "account_id", accountID)
	return nil
}

func (o *observableService) Get(ctx context.Context, accountID string) (types.TradingAccount, error) {
	ctx, span := trace.StartSpan(ctx, "accounts.Get")
	defer span.End()

	acc, err := o.svc.Get(ctx, accountID)
	if err != nil {
		logger.DebugSkip(ctx, 1, "Account lookup failed", "account_id", accountID, "error", err)
		return types.TradingAccount{}, err
	}
	return acc, nil
}

func (o *observableService) List(ctx context.Context) ([]types.TradingAccount, error) {
	ctx, span := trace.StartSpan(ctx, "accounts.List")
	defer span.End()

	accs, err := o.svc.List(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Listing accounts failed", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Accounts listed", "count", len(accs))
	return accs, nil
}

func (o *observableService) Trades(ctx context.Context, accountID string) ([]types.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "accounts.Trades")
	defer span.End()

	trades, err := o.svc.Trades(ctx, accountID)
	if err != nil {
		logger.DebugSkip(ctx, 1, "Trade lookup failed", "account_id", accountID, "error", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Trades listed", "account_id", accountID, "count", len(trades))
	return trades, nil
}
