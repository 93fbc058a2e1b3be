package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/types"
)

const timeLayout = time.RFC3339Nano

type SQLite struct {
	db *sql.DB
}

var _ interfaces.AccountStore = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the journal database at path
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps PRAGMAs and writes serialized
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) SaveAccount(ctx context.Context, a types.TradingAccount) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO accounts
  (id, name, platform, broker, server, account_number, balance, equity, currency, leverage, status, is_demo, last_error, last_updated)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name, platform=excluded.platform, broker=excluded.broker, server=excluded.server,
  account_number=excluded.account_number, balance=excluded.balance, equity=excluded.equity,
  currency=excluded.currency, leverage=excluded.leverage, status=excluded.status,
  is_demo=excluded.is_demo, last_error=excluded.last_error, last_updated=excluded.last_updated`,
		a.ID, a.Name, string(a.Platform), a.Broker, a.Server, a.AccountNumber, a.Balance, a.Equity,
		a.Currency, a.Leverage, string(a.Status), a.IsDemo, a.LastError, a.LastUpdated.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

const accountColumns = `id, name, platform, broker, server, account_number, balance, equity, currency, leverage, status, is_demo, last_error, last_updated`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (types.TradingAccount, error) {
	var (
		a                         types.TradingAccount
		platform, status, updated string
	)
	if err := row.Scan(&a.ID, &a.Name, &platform, &a.Broker, &a.Server, &a.AccountNumber, &a.Balance, &a.Equity,
		&a.Currency, &a.Leverage, &status, &a.IsDemo, &a.LastError, &updated); err != nil {
		return types.TradingAccount{}, err
	}
	a.Platform = types.Platform(platform)
	a.Status = types.AccountStatus(status)
	t, err := time.Parse(timeLayout, updated)
	if err != nil {
		return types.TradingAccount{}, fmt.Errorf("account %s last_updated: %w", a.ID, err)
	}
	a.LastUpdated = t
	return a, nil
}

func (s *SQLite) GetAccount(ctx context.Context, id string) (types.TradingAccount, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return types.TradingAccount{}, false, nil
	}
	if err != nil {
		return types.TradingAccount{}, false, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, true, nil
}

func (s *SQLite) ListAccounts(ctx context.Context) ([]types.TradingAccount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := []types.TradingAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAccount removes the account; its trades go with it through the foreign key
func (s *SQLite) DeleteAccount(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	return nil
}

// ReplaceTrades overwrites every stored trade of the account in one transaction
func (s *SQLite) ReplaceTrades(ctx context.Context, accountID string, trades []types.Trade) error {
	if err := checkTradeIDs(trades); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace trades: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("replace trades: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO trades
  (id, account_id, external_id, symbol, direction, open_price, close_price, open_time, close_time,
   size, profit, commission, swap, stop_loss, take_profit, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("replace trades: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		var closeTime any
		if t.CloseTime != nil {
			closeTime = t.CloseTime.UTC().Format(timeLayout)
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, accountID, t.ExternalID, t.Symbol, string(t.Direction), t.OpenPrice, t.ClosePrice,
			t.OpenTime.UTC().Format(timeLayout), closeTime, t.Size, t.Profit, t.Commission, t.Swap,
			t.StopLoss, t.TakeProfit, string(t.Status),
		); err != nil {
			return fmt.Errorf("insert trade %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) ListTrades(ctx context.Context, accountID string) ([]types.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, account_id, external_id, symbol, direction, open_price, close_price, open_time, close_time,
       size, profit, commission, swap, stop_loss, take_profit, status
FROM trades WHERE account_id = ? ORDER BY open_time, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	out := []types.Trade{}
	for rows.Next() {
		var (
			t                         types.Trade
			direction, status, opened string
			closed                    sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.ExternalID, &t.Symbol, &direction, &t.OpenPrice, &t.ClosePrice,
			&opened, &closed, &t.Size, &t.Profit, &t.Commission, &t.Swap, &t.StopLoss, &t.TakeProfit, &status); err != nil {
			return nil, fmt.Errorf("list trades: %w", err)
		}
		t.Direction = types.Direction(direction)
		t.Status = types.TradeStatus(status)
		if t.OpenTime, err = time.Parse(timeLayout, opened); err != nil {
			return nil, fmt.Errorf("trade %s open_time: %w", t.ID, err)
		}
		if closed.Valid {
			ct, err := time.Parse(timeLayout, closed.String)
			if err != nil {
				return nil, fmt.Errorf("trade %s close_time: %w", t.ID, err)
			}
			t.CloseTime = &ct
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
