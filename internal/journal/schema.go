package journal

import (
	"context"
	"fmt"
	"time"
)

func (s *SQLite) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS accounts (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  platform TEXT NOT NULL,
  broker TEXT NOT NULL DEFAULT '',
  server TEXT NOT NULL DEFAULT '',
  account_number TEXT NOT NULL,
  balance REAL NOT NULL DEFAULT 0,
  equity REAL NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT '',
  leverage INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  is_demo INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  last_updated TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
  external_id TEXT NOT NULL,
  symbol TEXT NOT NULL,
  direction TEXT NOT NULL,
  open_price REAL NOT NULL,
  close_price REAL NOT NULL DEFAULT 0,
  open_time TEXT NOT NULL,
  close_time TEXT,
  size REAL NOT NULL,
  profit REAL NOT NULL DEFAULT 0,
  commission REAL NOT NULL DEFAULT 0,
  swap REAL NOT NULL DEFAULT 0,
  stop_loss REAL NOT NULL DEFAULT 0,
  take_profit REAL NOT NULL DEFAULT 0,
  status TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_account_open ON trades(account_id, open_time);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
