package accountsobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/types"
)

type stubService struct {
	calls []string
	err   error
}

func (s *stubService) Connect(_ context.Context, req types.ConnectRequest) (types.TradingAccount, error) {
	s.calls = append(s.calls, "connect")
	return types.TradingAccount{ID: "a1", Platform: req.Platform}, s.err
}

func (s *stubService) Sync(_ context.Context, id string) (types.SyncResult, error) {
	s.calls = append(s.calls, "sync")
	return types.SyncResult{Account: types.TradingAccount{ID: id}, OpenCount: 2}, s.err
}

func (s *stubService) Disconnect(context.Context, string) error {
	s.calls = append(s.calls, "disconnect")
	return s.err
}

func (s *stubService) Get(_ context.Context, id string) (types.TradingAccount, error) {
	s.calls = append(s.calls, "get")
	return types.TradingAccount{ID: id}, s.err
}

func (s *stubService) List(context.Context) ([]types.TradingAccount, error) {
	s.calls = append(s.calls, "list")
	return []types.TradingAccount{{ID: "a1"}}, s.err
}

func (s *stubService) Trades(context.Context, string) ([]types.Trade, error) {
	s.calls = append(s.calls, "trades")
	return []types.Trade{{ID: "a1:1"}}, s.err
}

func TestWrapDelegates(t *testing.T) {
	inner := &stubService{}
	svc := Wrap(inner)
	ctx := context.Background()

	acc, err := svc.Connect(ctx, types.ConnectRequest{Platform: types.PlatformMT5})
	require.NoError(t, err)
	assert.Equal(t, "a1", acc.ID)

	res, err := svc.Sync(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.OpenCount)

	_, err = svc.Get(ctx, "a1")
	require.NoError(t, err)
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	trades, err := svc.Trades(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
	require.NoError(t, svc.Disconnect(ctx, "a1"))

	assert.Equal(t, []string{"connect", "sync", "get", "list", "trades", "disconnect"}, inner.calls)
}

func TestWrapPassesErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	svc := Wrap(&stubService{err: boom})
	ctx := context.Background()

	_, err := svc.Connect(ctx, types.ConnectRequest{})
	assert.ErrorIs(t, err, boom)
	_, err = svc.Sync(ctx, "a1")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, svc.Disconnect(ctx, "a1"), boom)
	_, err = svc.Trades(ctx, "a1")
	assert.ErrorIs(t, err, boom)
}
