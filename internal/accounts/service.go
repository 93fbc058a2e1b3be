// Package accounts connects journal accounts to trading platforms and keeps
// their balances and trades in sync.
package accounts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/logger"
	"trading-journal/internal/store"
	"trading-journal/internal/tradelog"
	"trading-journal/internal/types"
)

// ClientFactory builds a platform client ready for Authenticate
type ClientFactory interface {
	Client(p types.Platform) (interfaces.PlatformClient, error)
}

// fallbackCounter is implemented by clients that may answer with demo data
type fallbackCounter interface {
	Served() uint64
}

type Service struct {
	cfg      *store.Config
	factory  ClientFactory
	store    interfaces.AccountStore
	vault    interfaces.CredentialVault
	validate *validator.Validate

	now      func() time.Time
	newID    func() string
	eventLog func(tradelog.Entry) error

	mu       sync.Mutex
	sessions map[string]interfaces.PlatformClient
	syncing  map[string]*sync.Mutex
}

var _ interfaces.AccountService = (*Service)(nil)

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid account ids
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithEventLog replaces the daily event log writer; nil disables it
func WithEventLog(fn func(tradelog.Entry) error) Option {
	return func(s *Service) { s.eventLog = fn }
}

func New(cfg *store.Config, factory ClientFactory, st interfaces.AccountStore, v interfaces.CredentialVault, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		factory:  factory,
		store:    st,
		vault:    v,
		validate: newValidator(),
		now:      time.Now,
		newID:    uuid.NewString,
		eventLog: tradelog.Append,
		sessions: make(map[string]interfaces.PlatformClient),
		syncing:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect validates the request, opens a platform session, stores the account
// and its credentials, then runs the first sync. A failed first sync leaves the
// account stored in the error state.
func (s *Service) Connect(ctx context.Context, req types.ConnectRequest) (types.TradingAccount, error) {
	req, err := s.validateConnect(req)
	if err != nil {
		return types.TradingAccount{}, err
	}

	client, err := s.factory.Client(req.Platform)
	if err != nil {
		return types.TradingAccount{}, err
	}
	if err := client.Authenticate(ctx, req.Credentials); err != nil {
		return types.TradingAccount{}, err
	}

	acc, err := client.FetchAccount(ctx)
	if err != nil {
		_ = client.Close(ctx)
		return types.TradingAccount{}, err
	}

	acc.ID = s.newID()
	acc.Name = req.Name
	if acc.Name == "" {
		acc.Name = fmt.Sprintf("%s %s", req.Platform, acc.AccountNumber)
	}
	acc.Platform = req.Platform
	if acc.Server == "" {
		acc.Server = req.Credentials.Server
	}
	if acc.AccountNumber == "" {
		acc.AccountNumber = req.Credentials.AccountRef()
	}
	acc.Status = types.StatusConnected
	acc.LastUpdated = s.now().UTC()

	if err := s.store.SaveAccount(ctx, acc); err != nil {
		_ = client.Close(ctx)
		return types.TradingAccount{}, err
	}
	if err := s.vault.Put(ctx, acc.ID, req.Credentials); err != nil {
		_ = client.Close(ctx)
		_ = s.store.DeleteAccount(ctx, acc.ID)
		return types.TradingAccount{}, err
	}

	s.mu.Lock()
	s.sessions[acc.ID] = client
	s.mu.Unlock()

	s.record(ctx, tradelog.Entry{
		Event:     tradelog.EventConnect,
		AccountID: acc.ID,
		Platform:  string(acc.Platform),
		Status:    string(acc.Status),
		Balance:   acc.Balance,
		Equity:    acc.Equity,
	})
	logger.Sync(ctx, acc.ID, string(acc.Platform), "connected", "account_number", acc.AccountNumber, "is_demo", acc.IsDemo)

	res, err := s.Sync(ctx, acc.ID)
	if err != nil {
		logger.Warn(ctx, "Initial sync failed", "account_id", acc.ID, "error", err)
		stored, _, gerr := s.store.GetAccount(ctx, acc.ID)
		if gerr == nil {
			return stored, nil
		}
		return acc, nil
	}
	return res.Account, nil
}

// Sync refreshes the account, replaces its trades with the platform's open
// positions and the closed trades of the history window.
func (s *Service) Sync(ctx context.Context, accountID string) (types.SyncResult, error) {
	lock := s.syncLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	start := s.now()
	acc, err := s.Get(ctx, accountID)
	if err != nil {
		return types.SyncResult{}, err
	}

	acc.Status = types.StatusSyncing
	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return types.SyncResult{}, err
	}

	res, err := s.sync(ctx, acc)
	if err != nil {
		acc.Status = types.StatusError
		acc.LastError = err.Error()
		acc.LastUpdated = s.now().UTC()
		if serr := s.store.SaveAccount(ctx, acc); serr != nil {
			logger.ErrorWithErr(ctx, "Failed to store sync error", serr, "account_id", accountID)
		}
		s.record(ctx, tradelog.Entry{
			Event:      tradelog.EventSync,
			AccountID:  acc.ID,
			Platform:   string(acc.Platform),
			Status:     string(acc.Status),
			DurationMS: s.now().Sub(start).Milliseconds(),
			Error:      err.Error(),
		})
		logger.Sync(ctx, acc.ID, string(acc.Platform), "sync_failed", "error", err.Error())
		return types.SyncResult{}, err
	}

	res.Duration = s.now().Sub(start)
	s.record(ctx, tradelog.Entry{
		Event:        tradelog.EventSync,
		AccountID:    res.Account.ID,
		Platform:     string(res.Account.Platform),
		Status:       string(res.Account.Status),
		Balance:      res.Account.Balance,
		Equity:       res.Account.Equity,
		OpenTrades:   res.OpenCount,
		ClosedTrades: res.ClosedCount,
		UsedFallback: res.UsedFallback,
		DurationMS:   res.Duration.Milliseconds(),
	})
	logger.Sync(ctx, res.Account.ID, string(res.Account.Platform), "synced",
		"open", res.OpenCount,
		"closed", res.ClosedCount,
		"used_fallback", res.UsedFallback,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (s *Service) sync(ctx context.Context, acc types.TradingAccount) (types.SyncResult, error) {
	client, err := s.session(ctx, acc)
	if err != nil {
		return types.SyncResult{}, err
	}

	var before uint64
	counter, counts := client.(fallbackCounter)
	if counts {
		before = counter.Served()
	}

	fresh, err := client.FetchAccount(ctx)
	if err != nil {
		return types.SyncResult{}, err
	}
	open, err := client.FetchOpenTrades(ctx)
	if err != nil {
		return types.SyncResult{}, err
	}
	to := s.now().UTC()
	closed, err := client.FetchClosedTrades(ctx, to.Add(-s.cfg.HistoryWindow()), to)
	if err != nil {
		return types.SyncResult{}, err
	}

	trades := make([]types.Trade, 0, len(open)+len(closed))
	for _, t := range append(open, closed...) {
		t.AccountID = acc.ID
		t.ID = types.TradeID(acc.ID, t.ExternalID)
		trades = append(trades, t)
	}
	if err := s.store.ReplaceTrades(ctx, acc.ID, trades); err != nil {
		return types.SyncResult{}, err
	}

	acc.Balance = fresh.Balance
	acc.Equity = fresh.Equity
	acc.IsDemo = fresh.IsDemo
	if fresh.Currency != "" {
		acc.Currency = fresh.Currency
	}
	if fresh.Leverage != 0 {
		acc.Leverage = fresh.Leverage
	}
	if fresh.Broker != "" {
		acc.Broker = fresh.Broker
	}
	acc.Status = types.StatusConnected
	acc.LastError = ""
	acc.LastUpdated = s.now().UTC()
	if err := s.store.SaveAccount(ctx, acc); err != nil {
		return types.SyncResult{}, err
	}

	return types.SyncResult{
		Account:      acc,
		Trades:       trades,
		OpenCount:    len(open),
		ClosedCount:  len(closed),
		UsedFallback: fresh.IsDemo || (counts && counter.Served() > before),
	}, nil
}

// session returns the live client, re-opening it from vault credentials after a restart
func (s *Service) session(ctx context.Context, acc types.TradingAccount) (interfaces.PlatformClient, error) {
	s.mu.Lock()
	client, ok := s.sessions[acc.ID]
	s.mu.Unlock()
	if ok {
		return client, nil
	}

	creds, ok, err := s.vault.Get(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCredentials, acc.ID)
	}

	client, err = s.factory.Client(acc.Platform)
	if err != nil {
		return nil, err
	}
	if err := client.Authenticate(ctx, creds); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[acc.ID] = client
	s.mu.Unlock()
	return client, nil
}

func (s *Service) syncLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.syncing[accountID]
	if !ok {
		l = &sync.Mutex{}
		s.syncing[accountID] = l
	}
	return l
}

// Disconnect closes the session and removes the account, its trades and
// credentials. It waits for an in-flight sync of the account to finish.
func (s *Service) Disconnect(ctx context.Context, accountID string) error {
	lock := s.syncLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	acc, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	client, ok := s.sessions[accountID]
	delete(s.sessions, accountID)
	s.mu.Unlock()

	if ok {
		if err := client.Close(ctx); err != nil {
			logger.Warn(ctx, "Closing platform session failed", "account_id", accountID, "error", err)
		}
	}

	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	if err := s.vault.Delete(ctx, accountID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.syncing, accountID)
	s.mu.Unlock()

	s.record(ctx, tradelog.Entry{Event: tradelog.EventDisconnect, AccountID: accountID, Platform: string(acc.Platform)})
	logger.Sync(ctx, accountID, string(acc.Platform), "disconnected")
	return nil
}

func (s *Service) Get(ctx context.Context, accountID string) (types.TradingAccount, error) {
	acc, ok, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return types.TradingAccount{}, err
	}
	if !ok {
		return types.TradingAccount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	return acc, nil
}

func (s *Service) List(ctx context.Context) ([]types.TradingAccount, error) {
	return s.store.ListAccounts(ctx)
}

func (s *Service) Trades(ctx context.Context, accountID string) ([]types.Trade, error) {
	if _, err := s.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.ListTrades(ctx, accountID)
}

// AutoSync syncs every stored account each interval until ctx is done
func (s *Service) AutoSync(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// SyncAll syncs every stored account once and returns how many failed
func (s *Service) SyncAll(ctx context.Context) int {
	accs, err := s.List(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Listing accounts for sync failed", err)
		return 0
	}

	failed := 0
	for _, acc := range accs {
		if ctx.Err() != nil {
			return failed
		}
		if _, err := s.Sync(ctx, acc.ID); err != nil {
			failed++
		}
	}
	return failed
}

// Close ends every open platform session
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]interfaces.PlatformClient)
	s.mu.Unlock()

	for id, c := range sessions {
		if err := c.Close(ctx); err != nil {
			logger.Warn(ctx, "Closing platform session failed", "account_id", id, "error", err)
		}
	}
}

func (s *Service) record(ctx context.Context, e tradelog.Entry) {
	if s.eventLog == nil {
		return
	}
	if err := s.eventLog(e); err != nil {
		logger.Warn(ctx, "Writing sync event log failed", "event", e.Event, "account_id", e.AccountID, "error", err)
	}
}
