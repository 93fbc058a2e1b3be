package vault

import (
	"context"
	"sync"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/types"
)

type Memory struct {
	mu    sync.RWMutex
	creds map[string]types.Credentials
}

var _ interfaces.CredentialVault = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{creds: make(map[string]types.Credentials)}
}

func (m *Memory) Put(ctx context.Context, accountID string, creds types.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[accountID] = creds
	return nil
}

func (m *Memory) Get(ctx context.Context, accountID string) (types.Credentials, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.creds[accountID]
	return c, ok, nil
}

func (m *Memory) Delete(ctx context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, accountID)
	return nil
}

func (m *Memory) Close() error { return nil }
