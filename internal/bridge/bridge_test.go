package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

var upgrader = websocket.Upgrader{}

type authMsg struct {
	Type      string   `json:"type"`
	RequestID string   `json:"requestId"`
	Data      authData `json:"data"`
}

type recorder struct {
	mu      sync.Mutex
	auth    []authMsg
	actions []string
	ids     []string
}

func (r *recorder) record(fn func(r *recorder)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

const (
	accountJSON   = `{"login":5001234,"name":"J Doe","server":"ICMarkets-Demo","company":"IC Markets","currency":"USD","balance":10234.567,"equity":10100.104,"leverage":500,"tradeMode":"demo"}`
	positionsJSON = `[{"ticket":7001,"symbol":"EURUSD","type":"POSITION_TYPE_BUY","volume":15000,"priceOpen":1.0851,"sl":1.08,"tp":1.09,"profit":12.34,"swap":-0.5,"commission":-1.05,"time":1709629200000},{"ticket":7002,"symbol":"EURUSD","type":"DEPOSIT","volume":0}]`
	ordersJSON    = `[{"ticket":"8001","symbol":"XAUUSD","type":"ORDER_TYPE_SELL_LIMIT","volume":2500,"price":2050.5,"time":1709629200000}]`
)

var payloads = map[string]string{
	actionAccountInfo: accountJSON,
	actionPositions:   positionsJSON,
	actionOrders:      ordersJSON,
}

func newBridgeServer(t *testing.T, handle func(conn *websocket.Conn, n int32)) *httptest.Server {
	t.Helper()
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		handle(conn, count.Add(1))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readAuth(conn *websocket.Conn, rec *recorder) bool {
	var auth authMsg
	if err := conn.ReadJSON(&auth); err != nil {
		return false
	}
	rec.record(func(r *recorder) { r.auth = append(r.auth, auth) })
	return true
}

// serveSnapshot answers every request with the canned payload for its action
func serveSnapshot(conn *websocket.Conn, rec *recorder) {
	if !readAuth(conn, rec) {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth","data":{"ok":true}}`))

	for {
		var req outbound
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		rec.record(func(r *recorder) {
			r.actions = append(r.actions, req.Action)
			r.ids = append(r.ids, req.RequestID)
		})
		msg := `{"type":"` + req.Action + `","requestId":"` + req.RequestID + `","data":` + payloads[req.Action] + `}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
	}
}

func testConfig(url string) store.BridgeConfig {
	return store.BridgeConfig{
		Enabled:              true,
		URL:                  url,
		Login:                "5001234",
		Platform:             "MT5",
		PollSeconds:          5,
		MaxReconnectAttempts: 3,
		BaseBackoffMillis:    5,
		MaxBackoffSeconds:    1,
	}
}

func TestBridgeBuildsSnapshot(t *testing.T) {
	rec := &recorder{}
	srv := newBridgeServer(t, func(conn *websocket.Conn, _ int32) { serveSnapshot(conn, rec) })

	b, err := New(testConfig(wsURL(srv)), "secret")
	require.NoError(t, err)
	assert.Equal(t, types.BridgeIdle, b.State())

	ctx := context.Background()
	require.NoError(t, b.Start(ctx))
	assert.ErrorIs(t, b.Start(ctx), ErrAlreadyStarted)

	require.Eventually(t, func() bool {
		s := b.Snapshot()
		return s.Account != nil && len(s.Positions) == 1 && len(s.Orders) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, types.BridgeConnected, b.State())

	snap := b.Snapshot()
	acc := snap.Account
	assert.Equal(t, types.PlatformMT5, acc.Platform)
	assert.Equal(t, "5001234", acc.AccountNumber)
	assert.Equal(t, "IC Markets", acc.Broker)
	assert.Equal(t, 10234.57, acc.Balance)
	assert.Equal(t, 10100.1, acc.Equity)
	assert.Equal(t, 500, acc.Leverage)
	assert.True(t, acc.IsDemo)

	pos := snap.Positions[0]
	assert.Equal(t, "7001", pos.ExternalID)
	assert.Equal(t, types.DirectionBuy, pos.Direction)
	assert.Equal(t, 1.5, pos.Size)
	assert.Equal(t, 12.34, pos.Profit)
	assert.Equal(t, types.TradeOpen, pos.Status)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), pos.OpenTime)

	ord := snap.Orders[0]
	assert.Equal(t, "8001", ord.Ticket)
	assert.Equal(t, "sell_limit", ord.Type)
	assert.Equal(t, types.DirectionSell, ord.Direction)
	assert.Equal(t, 0.25, ord.Volume)

	rec.mu.Lock()
	require.Len(t, rec.auth, 1)
	assert.Equal(t, msgAuth, rec.auth[0].Type)
	assert.Equal(t, authData{Login: "5001234", Token: "secret"}, rec.auth[0].Data)
	require.GreaterOrEqual(t, len(rec.actions), 3)
	assert.Equal(t, pollActions, rec.actions[:3])
	for _, id := range rec.ids {
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
	rec.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b.Stop(stopCtx)
	assert.Equal(t, types.BridgeStopped, b.State())
	assert.ErrorIs(t, b.Start(ctx), ErrAlreadyStarted)
}

func TestBridgeGivesUpAfterMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	var (
		mu       sync.Mutex
		attempts []int
		delays   []time.Duration
	)
	gaveUp := make(chan int, 1)

	b, err := New(testConfig(url), "secret", WithEvents(Events{
		OnReconnect: func(attempt int, delay time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			attempts = append(attempts, attempt)
			delays = append(delays, delay)
		},
		OnNoReconnect: func(n int) { gaveUp <- n },
	}))
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))

	select {
	case n := <-gaveUp:
		assert.Equal(t, 3, n)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never gave up")
	}

	assert.Equal(t, types.BridgeFailed, b.State())
	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond}, delays)
	mu.Unlock()

	b.Stop(context.Background())
	assert.Equal(t, types.BridgeStopped, b.State())
}

func TestBridgeReconnectResetsAttempts(t *testing.T) {
	rec := &recorder{}
	srv := newBridgeServer(t, func(conn *websocket.Conn, n int32) {
		if n <= 2 {
			// drop the first two sessions right after acknowledging auth
			if readAuth(conn, rec) {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth","data":{"ok":true}}`))
				time.Sleep(20 * time.Millisecond)
			}
			return
		}
		serveSnapshot(conn, rec)
	})

	var (
		mu       sync.Mutex
		attempts []int
	)
	var connects atomic.Int32
	b, err := New(testConfig(wsURL(srv)), "secret", WithEvents(Events{
		OnConnect: func() { connects.Add(1) },
		OnReconnect: func(attempt int, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			attempts = append(attempts, attempt)
		},
	}))
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	require.Eventually(t, func() bool {
		return connects.Load() == 3 && b.Snapshot().Account != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, types.BridgeConnected, b.State())
	mu.Lock()
	assert.Equal(t, []int{1, 1}, attempts)
	mu.Unlock()
}

func TestBridgeAuthRejected(t *testing.T) {
	rec := &recorder{}
	srv := newBridgeServer(t, func(conn *websocket.Conn, _ int32) {
		if !readAuth(conn, rec) {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"auth","error":"invalid token"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := testConfig(wsURL(srv))
	cfg.MaxReconnectAttempts = 1
	errs := make(chan error, 4)
	gaveUp := make(chan int, 1)
	var connects, disconnects atomic.Int32

	b, err := New(cfg, "wrong", WithEvents(Events{
		OnConnect:     func() { connects.Add(1) },
		OnDisconnect:  func(error) { disconnects.Add(1) },
		OnError:       func(err error) { errs <- err },
		OnNoReconnect: func(n int) { gaveUp <- n },
	}))
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrAuthRejected)
		var rerr *RemoteError
		require.True(t, errors.As(err, &rerr))
		assert.Equal(t, "invalid token", rerr.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no auth error")
	}

	select {
	case <-gaveUp:
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never gave up")
	}
	assert.Equal(t, types.BridgeFailed, b.State())
	assert.Zero(t, connects.Load(), "a rejected login never reports connected")
	assert.Zero(t, disconnects.Load())
}

func TestBridgeSilentSessionIsNotConnected(t *testing.T) {
	rec := &recorder{}
	srv := newBridgeServer(t, func(conn *websocket.Conn, _ int32) {
		// accept the socket, swallow auth and drop without answering
		readAuth(conn, rec)
	})

	var (
		mu     sync.Mutex
		states []types.BridgeState
	)
	var connects atomic.Int32
	gaveUp := make(chan int, 1)

	var b *Bridge
	b, err := New(testConfig(wsURL(srv)), "secret", WithEvents(Events{
		OnConnect: func() { connects.Add(1) },
		OnError: func(error) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, b.State())
		},
		OnNoReconnect: func(n int) { gaveUp <- n },
	}))
	require.NoError(t, err)
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop(context.Background())

	select {
	case n := <-gaveUp:
		assert.Equal(t, 3, n, "sessions that never answer do not reset the attempt counter")
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never gave up")
	}
	assert.Zero(t, connects.Load())
	assert.Equal(t, types.BridgeFailed, b.State())

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, states, types.BridgeConnected)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(store.BridgeConfig{URL: "ws://x", Platform: "CTRADER"}, "")
	assert.Error(t, err)

	_, err = New(store.BridgeConfig{Platform: "MT5"}, "")
	assert.Error(t, err)

	b, err := New(store.BridgeConfig{URL: "ws://x", Platform: "mt4"}, "")
	require.NoError(t, err)
	assert.Equal(t, types.PlatformMT4, b.platform)
	assert.Equal(t, int64(100), b.scale)
	assert.Equal(t, defaultPollInterval, b.poll)
}

func TestBackoffDelay(t *testing.T) {
	bo := newBackoff(store.BridgeConfig{})

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, bo.delay(i+1), "attempt %d", i+1)
	}
	assert.Equal(t, time.Second, bo.delay(0))

	assert.False(t, bo.exhausted(5))
	assert.True(t, bo.exhausted(6))
}

func TestSnapshotIsACopy(t *testing.T) {
	sc := newSnapshotCache()
	sc.setPositions([]types.Trade{{ExternalID: "1"}}, time.Now())
	sc.setAccount(types.TradingAccount{Balance: 1}, time.Now())

	snap := sc.snapshot()
	snap.Positions[0].ExternalID = "changed"
	snap.Account.Balance = 2

	again := sc.snapshot()
	assert.Equal(t, "1", again.Positions[0].ExternalID)
	assert.Equal(t, 1.0, again.Account.Balance)
	assert.Empty(t, again.Orders)
}

func TestHandleSkipsOnlyBadItems(t *testing.T) {
	b, err := New(testConfig("ws://127.0.0.1:1/ws"), "secret")
	require.NoError(t, err)
	ctx := context.Background()

	positions := `[
		{"ticket":1,"symbol":"EURUSD","type":"POSITION_TYPE_BUY","volume":10000,"priceOpen":1.085,"time":"2024.03.05 14:30:00"},
		{"ticket":2,"symbol":"GBPUSD","type":"POSITION_TYPE_SELL","volume":"lots","time":1709629200000},
		{"ticket":3,"symbol":"USDJPY","type":"POSITION_TYPE_SELL","volume":5000,"priceOpen":150.1,"time":1709629200000},
		{"ticket":4,"symbol":"XAUUSD","type":"POSITION_TYPE_BUY","volume":100,"time":"yesterday"}
	]`
	require.NoError(t, b.handle(ctx, envelope{Type: actionPositions, Data: json.RawMessage(positions)}))

	snap := b.Snapshot()
	require.Len(t, snap.Positions, 2)
	assert.Equal(t, "1", snap.Positions[0].ExternalID)
	assert.Equal(t, 1.0, snap.Positions[0].Size)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), snap.Positions[0].OpenTime)
	assert.Equal(t, "3", snap.Positions[1].ExternalID)
	assert.Equal(t, 0.5, snap.Positions[1].Size)
	assert.Equal(t, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), snap.Positions[1].OpenTime)

	orders := `[{"ticket":"8001","symbol":"XAUUSD","type":"ORDER_TYPE_BUY_STOP","volume":2500,"price":2100,"time":"2024-03-05T14:30:00Z"},{"ticket":8002,"price":{}}]`
	require.NoError(t, b.handle(ctx, envelope{Type: actionOrders, Data: json.RawMessage(orders)}))

	snap = b.Snapshot()
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, "buy_stop", snap.Orders[0].Type)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), snap.Orders[0].PlacedAt)

	assert.Error(t, b.handle(ctx, envelope{Type: actionPositions, Data: json.RawMessage(`{"not":"a list"}`)}))
}
