package dxtrade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/platform/core"
	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

func fakeDX(t *testing.T) (*httptest.Server, *atomic.Bool) {
	t.Helper()
	loggedOut := &atomic.Bool{}
	mux := http.NewServeMux()
	mux.HandleFunc("/dxsca-web/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"sessionToken": "dx-tok", "timeout": "00:30:00"})
	})
	mux.HandleFunc("/dxsca-web/accounts/default:1001/metrics", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DXAPI dx-tok", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"metrics": []map[string]any{
			{"account": "default:1001", "balance": 50000.004, "equity": 50120.5},
		}})
	})
	mux.HandleFunc("/dxsca-web/accounts/default:1001/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"positions": []map[string]any{
			{"positionCode": "P1", "symbol": "EUR/USD", "quantity": -30000, "openPrice": 1.09,
				"openTime": "2024-03-05T14:30:00.000Z", "fpl": 120.456},
		}})
	})
	mux.HandleFunc("/dxsca-web/accounts/default:1001/positions/history", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		writeJSON(w, map[string]any{"positions": []map[string]any{
			{"positionCode": "P0", "symbol": "GBP/USD", "quantity": 100000, "side": "BUY", "openPrice": 1.26,
				"closePrice": 1.265, "openTime": "2024-03-01T08:00:00Z", "closeTime": "2024-03-01T10:00:00Z", "pl": 500},
		}})
	})
	mux.HandleFunc("/dxsca-web/logout", func(w http.ResponseWriter, r *http.Request) {
		loggedOut.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, loggedOut
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

var creds = types.Credentials{Username: "trader", Domain: "default", Password: "pw", AccountNumber: "1001"}

func TestDXtradeSync(t *testing.T) {
	srv, loggedOut := fakeDX(t)
	c := New(store.PlatformConfig{BaseURL: srv.URL, TimeoutSeconds: 5})
	ctx := context.Background()

	require.NoError(t, c.Authenticate(ctx, creds))

	acc, err := c.FetchAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50000.0, acc.Balance)
	assert.Equal(t, 50120.5, acc.Equity)
	assert.Equal(t, "USD", acc.Currency)
	assert.Equal(t, "1001", acc.AccountNumber)

	open, err := c.FetchOpenTrades(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "EURUSD", open[0].Symbol)
	assert.Equal(t, types.DirectionSell, open[0].Direction)
	assert.Equal(t, 0.3, open[0].Size)
	assert.Equal(t, 120.46, open[0].Profit)

	closed, err := c.FetchClosedTrades(ctx, time.Now().AddDate(0, 0, -30), time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, 1.0, closed[0].Size)
	assert.Equal(t, 500.0, closed[0].Profit)
	require.NotNil(t, closed[0].CloseTime)

	require.NoError(t, c.Close(ctx))
	assert.True(t, loggedOut.Load())

	_, err = c.FetchAccount(ctx)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
}

func TestDXtradeBadPassword(t *testing.T) {
	srv, _ := fakeDX(t)
	c := New(store.PlatformConfig{BaseURL: srv.URL, TimeoutSeconds: 5})

	bad := creds
	bad.Password = "nope"
	assert.ErrorIs(t, c.Authenticate(context.Background(), bad), core.ErrAuthFailed)

	bad.Domain = ""
	assert.ErrorIs(t, c.Authenticate(context.Background(), bad), core.ErrMissingCredentials)
}

func TestAccountCode(t *testing.T) {
	assert.Equal(t, "default:1001", accountCode(creds))
	assert.Equal(t, "other:7", accountCode(types.Credentials{Domain: "default", AccountNumber: "other:7"}))
}
