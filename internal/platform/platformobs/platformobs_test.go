package platformobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/types"
)

type recordingClient struct {
	calls []string
	err   error
}

func (r *recordingClient) Platform() types.Platform { return types.PlatformCTrader }

func (r *recordingClient) Authenticate(context.Context, types.Credentials) error {
	r.calls = append(r.calls, "auth")
	return r.err
}

func (r *recordingClient) FetchAccount(context.Context) (types.TradingAccount, error) {
	r.calls = append(r.calls, "account")
	return types.TradingAccount{AccountNumber: "1"}, r.err
}

func (r *recordingClient) FetchOpenTrades(context.Context) ([]types.Trade, error) {
	r.calls = append(r.calls, "open")
	return []types.Trade{{ExternalID: "a"}}, r.err
}

func (r *recordingClient) FetchClosedTrades(context.Context, time.Time, time.Time) ([]types.Trade, error) {
	r.calls = append(r.calls, "closed")
	return nil, r.err
}

func (r *recordingClient) Close(context.Context) error {
	r.calls = append(r.calls, "close")
	return r.err
}

func TestWrapDelegates(t *testing.T) {
	inner := &recordingClient{}
	c := Wrap(inner)
	ctx := context.Background()

	assert.Equal(t, types.PlatformCTrader, c.Platform())
	require.NoError(t, c.Authenticate(ctx, types.Credentials{AccountNumber: "1"}))
	acc, err := c.FetchAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", acc.AccountNumber)
	open, err := c.FetchOpenTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
	_, err = c.FetchClosedTrades(ctx, time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx))

	assert.Equal(t, []string{"auth", "account", "open", "closed", "close"}, inner.calls)
}

func TestWrapPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	c := Wrap(&recordingClient{err: boom})
	ctx := context.Background()

	assert.ErrorIs(t, c.Authenticate(ctx, types.Credentials{}), boom)
	acc, err := c.FetchAccount(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, acc.AccountNumber)
	open, err := c.FetchOpenTrades(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, open)
}
