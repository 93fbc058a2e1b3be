// Package vault keeps platform credentials out of the account store.
package vault

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/types"
)

const keyPrefix = "creds/"

// Badger is a credential vault encrypted at rest by Badger itself
// (value log and key registry) when a key is supplied.
type Badger struct {
	db *badger.DB
}

var _ interfaces.CredentialVault = (*Badger)(nil)

type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; nil opens the DB unencrypted
	ReadOnly      bool
}

func OpenBadger(opts OpenOptions) (*Badger, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("vault: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// encrypted workloads need an index cache
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("vault: open %s: %w", opts.Path, err)
	}
	return &Badger{db: db}, nil
}

func credKey(accountID string) ([]byte, error) {
	id := strings.TrimSpace(accountID)
	if id == "" {
		return nil, errors.New("vault: account id is empty")
	}
	return []byte(keyPrefix + id), nil
}

func (b *Badger) Put(ctx context.Context, accountID string, creds types.Credentials) error {
	k, err := credKey(accountID)
	if err != nil {
		return err
	}
	v, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("vault: encode credentials: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (b *Badger) Get(ctx context.Context, accountID string) (types.Credentials, bool, error) {
	k, err := credKey(accountID)
	if err != nil {
		return types.Credentials{}, false, err
	}

	var (
		creds types.Credentials
		found bool
	)
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &creds)
		})
	})
	if err != nil {
		return types.Credentials{}, false, fmt.Errorf("vault: get %s: %w", accountID, err)
	}
	return creds, found, nil
}

func (b *Badger) Delete(ctx context.Context, accountID string) error {
	k, err := credKey(accountID)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

func (b *Badger) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// ParseKey expects 32 bytes, hex (optionally 0x-prefixed) or base64. Empty input yields a nil key.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x")); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("vault: decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("vault: key must be base64(32 bytes) or hex(32 bytes)")
}
