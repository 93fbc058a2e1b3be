package matchtrader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/platform/core"
	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

func fakeMTR(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/manager/mtr-login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "pw" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		writeJSON(w, map[string]any{
			"token": "mtr-tok",
			"accounts": []map[string]any{
				{"tradingAccountId": "880001", "systemUuid": "sys-a", "brokerName": "FTMO", "leverage": 100},
				{"tradingAccountId": "880002", "systemUuid": "sys-b", "brokerName": "FTMO", "leverage": 30},
			},
		})
	})
	mux.HandleFunc("/mtr-api/sys-b/balance", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "mtr-tok", r.Header.Get("Auth-trading-api"))
		writeJSON(w, map[string]any{"balance": "10250.1234", "equity": "10300.555", "currency": "USD"})
	})
	mux.HandleFunc("/mtr-api/sys-b/open-positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"positions": []map[string]any{
			{"id": "op1", "symbol": "EURUSD", "side": "BUY", "volume": "0.10", "openPrice": "1.08512",
				"openTime": "2024-03-05T14:30:00Z", "stopLoss": "0", "takeProfit": "1.0900", "profit": "12.345"},
			{"id": "op2", "symbol": "EURUSD", "side": "SIDEWAYS", "volume": "0.10"},
		}})
	})
	mux.HandleFunc("/mtr-api/sys-b/closed-positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"operations": []map[string]any{
			{"id": "cp1", "symbol": "US30", "side": "SELL", "volume": "1.5", "openPrice": "38500.0",
				"closePrice": "38400.5", "openTime": "1709280000000", "closeTime": "1709283600000",
				"profit": "149.25", "swap": "0", "commission": "-3.00"},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var creds = types.Credentials{Email: "me@example.com", Password: "pw", BrokerID: "0", AccountNumber: "880002"}

func TestMatchTraderSync(t *testing.T) {
	srv := fakeMTR(t)
	c := New(store.PlatformConfig{BaseURL: srv.URL, TimeoutSeconds: 5})
	ctx := context.Background()

	require.NoError(t, c.Authenticate(ctx, creds))

	acc, err := c.FetchAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10250.12, acc.Balance)
	assert.Equal(t, 10300.56, acc.Equity)
	assert.Equal(t, "880002", acc.AccountNumber)
	assert.Equal(t, 30, acc.Leverage)

	open, err := c.FetchOpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, 0.1, open[0].Size)
	assert.Equal(t, 1.08512, open[0].OpenPrice)
	assert.Equal(t, 12.35, open[0].Profit)
	assert.Zero(t, open[0].StopLoss)
	assert.Equal(t, 1.09, open[0].TakeProfit)

	closed, err := c.FetchClosedTrades(ctx, time.Now().AddDate(0, -1, 0), time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, types.DirectionSell, closed[0].Direction)
	assert.Equal(t, 1.5, closed[0].Size)
	assert.Equal(t, -3.0, closed[0].Commission)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), closed[0].OpenTime)
	require.NotNil(t, closed[0].CloseTime)
	assert.Equal(t, 38400.5, closed[0].ClosePrice)
}

func TestMatchTraderFirstAccountWhenUnspecified(t *testing.T) {
	srv := fakeMTR(t)
	c := New(store.PlatformConfig{BaseURL: srv.URL, TimeoutSeconds: 5})

	cr := creds
	cr.AccountNumber = ""
	require.NoError(t, c.Authenticate(context.Background(), cr))
	s, err := c.session()
	require.NoError(t, err)
	assert.Equal(t, "sys-a", s.uuid)
}

func TestMatchTraderErrors(t *testing.T) {
	srv := fakeMTR(t)
	c := New(store.PlatformConfig{BaseURL: srv.URL, TimeoutSeconds: 5})
	ctx := context.Background()

	cr := creds
	cr.AccountNumber = "nope"
	assert.ErrorIs(t, c.Authenticate(ctx, cr), core.ErrAccountNotFound)

	cr = creds
	cr.Password = "bad"
	assert.ErrorIs(t, c.Authenticate(ctx, cr), core.ErrAuthFailed)

	_, err := c.FetchOpenTrades(ctx)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}
