// Package bridge keeps a live snapshot of a MetaTrader terminal through the
// WebSocket service running next to it.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/normalize"
	"trading-journal/internal/store"
	"trading-journal/internal/types"
)

const (
	defaultPollInterval = 5 * time.Second
	writeTimeout        = 10 * time.Second
)

var (
	ErrAlreadyStarted = errors.New("bridge already started")
	ErrAuthRejected   = errors.New("bridge rejected credentials")
)

// Bridge is a single-connection MetaTrader bridge client
type Bridge struct {
	cfg      store.BridgeConfig
	platform types.Platform
	token    string
	scale    int64
	poll     time.Duration
	backoff  backoff
	dialer   *websocket.Dialer
	events   Events
	cache    *snapshotCache
	newID    func() string
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ interfaces.Bridge = (*Bridge)(nil)

// Option configures a Bridge
type Option func(*Bridge)

// WithEvents installs the event callbacks
func WithEvents(ev Events) Option {
	return func(b *Bridge) { b.events = ev }
}

// WithDialer replaces the default WebSocket dialer
func WithDialer(d *websocket.Dialer) Option {
	return func(b *Bridge) { b.dialer = d }
}

// WithPollInterval overrides poll_seconds
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.poll = d
		}
	}
}

// New creates a bridge client for cfg. token authenticates the login with the
// bridge service.
func New(cfg store.BridgeConfig, token string, opts ...Option) (*Bridge, error) {
	p, err := types.ParsePlatform(cfg.Platform)
	if err != nil {
		return nil, err
	}
	if !p.IsMetaTrader() {
		return nil, fmt.Errorf("bridge: platform %s is not MetaTrader", p)
	}
	if cfg.URL == "" {
		return nil, errors.New("bridge: url is required")
	}

	scale := normalize.MT5VolumeScale
	if p == types.PlatformMT4 {
		scale = normalize.MT4VolumeScale
	}

	b := &Bridge{
		cfg:      cfg,
		platform: p,
		token:    token,
		scale:    scale,
		poll:     time.Duration(cfg.PollSeconds) * time.Second,
		backoff:  newBackoff(cfg),
		dialer:   websocket.DefaultDialer,
		cache:    newSnapshotCache(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	if b.poll <= 0 {
		b.poll = defaultPollInterval
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Start launches the connect loop and returns immediately
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil || b.cache.getState() == types.BridgeStopped {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		logger.Info(runCtx, "Starting MetaTrader bridge", "url", b.cfg.URL, "platform", b.platform)
		b.run(runCtx)
	}()
	return nil
}

// Stop closes the socket, ends the loops and leaves the bridge stopped
func (b *Bridge) Stop(ctx context.Context) {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	if cancel != nil {
		logger.Info(ctx, "Stopping MetaTrader bridge")
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn(ctx, "MetaTrader bridge did not stop in time")
		}
	}
	b.cache.setState(types.BridgeStopped)
}

func (b *Bridge) State() types.BridgeState {
	return b.cache.getState()
}

func (b *Bridge) Snapshot() types.BridgeSnapshot {
	return b.cache.snapshot()
}

// run dials, serves and reconnects until ctx ends or the attempts run out
func (b *Bridge) run(ctx context.Context) {
	b.cache.setState(types.BridgeConnecting)
	attempt := 0
	for {
		conn, err := b.connect(ctx)
		if err == nil {
			var established bool
			established, err = b.serve(ctx, conn)
			if established {
				attempt = 0
				if ctx.Err() == nil {
					b.onDisconnect(ctx, err)
				}
			} else if ctx.Err() == nil {
				b.onError(ctx, err)
			}
		} else if ctx.Err() == nil {
			b.onError(ctx, err)
		}
		if ctx.Err() != nil {
			b.cache.setState(types.BridgeStopped)
			return
		}

		attempt++
		if b.backoff.exhausted(attempt) {
			b.cache.setState(types.BridgeFailed)
			b.onNoReconnect(ctx, attempt-1)
			return
		}

		delay := b.backoff.delay(attempt)
		b.cache.setState(types.BridgeReconnecting)
		b.onReconnect(ctx, attempt, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.cache.setState(types.BridgeStopped)
			return
		case <-timer.C:
		}
	}
}

func (b *Bridge) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := b.dialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge dial %s: %s: %w", b.cfg.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("bridge dial %s: %w", b.cfg.URL, err)
	}

	auth := outbound{
		Type:      msgAuth,
		RequestID: b.newID(),
		Data:      authData{Login: b.cfg.Login, Token: b.token},
	}
	if err := b.write(conn, auth); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bridge auth: %w", err)
	}
	return conn, nil
}

// serve polls on conn until the reader fails or ctx ends. Only this goroutine
// writes to conn. The session counts as established, and the bridge as
// connected, once the first reply without an error arrives.
func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn) (established bool, err error) {
	ready := make(chan struct{})
	readErr := make(chan error, 1)
	go func(ready chan<- struct{}) {
		readErr <- b.readLoop(ctx, conn, ready)
	}(ready)

	markReady := func() {
		ready = nil
		established = true
		b.cache.setState(types.BridgeConnected)
		b.onConnect(ctx)
	}
	// the reader may close ready and fail before the select sees ready
	drainReady := func() {
		select {
		case <-ready:
			markReady()
		default:
		}
	}
	shutdown := func(err error) (bool, error) {
		conn.Close()
		<-readErr
		return established, err
	}

	if err := b.requestAll(conn); err != nil {
		return shutdown(err)
	}

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ready:
			markReady()
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stopping"),
				time.Now().Add(time.Second))
			return shutdown(ctx.Err())
		case err := <-readErr:
			if ready != nil {
				drainReady()
			}
			conn.Close()
			return established, err
		case <-ticker.C:
			if err := b.requestAll(conn); err != nil {
				return shutdown(err)
			}
		}
	}
}

func (b *Bridge) requestAll(conn *websocket.Conn) error {
	for _, action := range pollActions {
		req := outbound{Type: msgRequest, Action: action, RequestID: b.newID()}
		if err := b.write(conn, req); err != nil {
			return fmt.Errorf("bridge request %s: %w", action, err)
		}
	}
	return nil
}

func (b *Bridge) write(conn *websocket.Conn, msg outbound) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// readLoop closes ready after the first accepted reply
func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn, ready chan<- struct{}) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			b.onError(ctx, fmt.Errorf("bridge: malformed message: %w", err))
			continue
		}

		if err := b.handle(ctx, env); err != nil {
			if errors.Is(err, ErrAuthRejected) {
				return err
			}
			b.onError(ctx, err)
			continue
		}
		if ready != nil && env.Error == "" {
			close(ready)
			ready = nil
		}
	}
}

func (b *Bridge) handle(ctx context.Context, env envelope) error {
	if env.Error != "" {
		rerr := &RemoteError{Type: env.Type, RequestID: env.RequestID, Message: env.Error}
		if env.Type == msgAuth {
			return fmt.Errorf("%w: %w", ErrAuthRejected, rerr)
		}
		return rerr
	}

	now := b.now().UTC()
	switch env.Type {
	case actionAccountInfo:
		var a accountInfo
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return fmt.Errorf("bridge %s: %w", env.Type, err)
		}
		b.cache.setAccount(b.toAccount(a), now)

	case actionPositions:
		raw, err := decodeItems[position](env.Data, func(i int, err error) {
			logger.Warn(ctx, "Skipping undecodable bridge position", "index", i, "error", err)
		})
		if err != nil {
			return fmt.Errorf("bridge %s: %w", env.Type, err)
		}
		trades := make([]types.Trade, 0, len(raw))
		for _, p := range raw {
			t, err := b.toTrade(p)
			if err != nil {
				logger.Warn(ctx, "Skipping malformed bridge position", "ticket", p.Ticket.String(), "error", err)
				continue
			}
			trades = append(trades, t)
		}
		b.cache.setPositions(trades, now)

	case actionOrders:
		raw, err := decodeItems[pendingOrder](env.Data, func(i int, err error) {
			logger.Warn(ctx, "Skipping undecodable bridge order", "index", i, "error", err)
		})
		if err != nil {
			return fmt.Errorf("bridge %s: %w", env.Type, err)
		}
		orders := make([]types.Order, 0, len(raw))
		for _, o := range raw {
			order, err := b.toOrder(o)
			if err != nil {
				logger.Warn(ctx, "Skipping malformed bridge order", "ticket", o.Ticket.String(), "error", err)
				continue
			}
			orders = append(orders, order)
		}
		b.cache.setOrders(orders, now)

	case msgAuth:
		logger.Debug(ctx, "MetaTrader bridge authenticated", "login", b.cfg.Login)
		return nil

	default:
		logger.Debug(ctx, "Ignoring bridge message", "type", env.Type)
		return nil
	}

	b.onUpdate(ctx, env.Type)
	return nil
}
