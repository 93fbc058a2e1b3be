// Package eod writes per-account end-of-day CSV summaries of closed trades.
package eod

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trading-journal/internal/interfaces"
	"trading-journal/internal/types"
)

type aggRow struct {
	Symbol      string
	Trades      int
	Wins        int
	Losses      int
	BuyLots     decimal.Decimal
	SellLots    decimal.Decimal
	GrossProfit decimal.Decimal
	Commission  decimal.Decimal
	Swap        decimal.Decimal
}

func (r *aggRow) add(t types.Trade) {
	r.Trades++
	switch {
	case t.Profit > 0:
		r.Wins++
	case t.Profit < 0:
		r.Losses++
	}
	lots := decimal.NewFromFloat(t.Size)
	if t.Direction == types.DirectionBuy {
		r.BuyLots = r.BuyLots.Add(lots)
	} else {
		r.SellLots = r.SellLots.Add(lots)
	}
	r.GrossProfit = r.GrossProfit.Add(decimal.NewFromFloat(t.Profit))
	r.Commission = r.Commission.Add(decimal.NewFromFloat(t.Commission))
	r.Swap = r.Swap.Add(decimal.NewFromFloat(t.Swap))
}

func (r *aggRow) merge(o *aggRow) {
	r.Trades += o.Trades
	r.Wins += o.Wins
	r.Losses += o.Losses
	r.BuyLots = r.BuyLots.Add(o.BuyLots)
	r.SellLots = r.SellLots.Add(o.SellLots)
	r.GrossProfit = r.GrossProfit.Add(o.GrossProfit)
	r.Commission = r.Commission.Add(o.Commission)
	r.Swap = r.Swap.Add(o.Swap)
}

func (r *aggRow) record() []string {
	net := r.GrossProfit.Add(r.Commission).Add(r.Swap)
	winRate := decimal.Zero
	if r.Trades > 0 {
		winRate = decimal.NewFromInt(int64(r.Wins)).Div(decimal.NewFromInt(int64(r.Trades))).Mul(decimal.NewFromInt(100))
	}
	return []string{
		r.Symbol,
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		r.BuyLots.StringFixed(2),
		r.SellLots.StringFixed(2),
		r.GrossProfit.StringFixed(2),
		r.Commission.StringFixed(2),
		r.Swap.StringFixed(2),
		net.StringFixed(2),
		winRate.StringFixed(1),
	}
}

var headers = []string{"symbol", "trades", "wins", "losses", "buy_lots", "sell_lots", "gross_profit", "commission", "swap", "net_profit", "win_rate_pct"}

type eodSummarizer struct {
	store interfaces.AccountStore
	dir   string

	mu   sync.Mutex
	done map[string]time.Time // accountID -> last day with nothing to write
}

var _ interfaces.EodSummarizer = (*eodSummarizer)(nil)

// NewSummarizer reads closed trades from st and writes CSVs under dir/eod.
// An empty dir means JOURNAL_LOG_DIR, then "logs".
func NewSummarizer(st interfaces.AccountStore, dir string) interfaces.EodSummarizer {
	if dir == "" {
		dir = logDir()
	}
	return &eodSummarizer{store: st, dir: dir, done: make(map[string]time.Time)}
}

// SummarizeDay aggregates the trades the account closed on day (UTC) by symbol.
// It returns an empty path when there is nothing to summarize.
func (s *eodSummarizer) SummarizeDay(ctx context.Context, accountID string, day time.Time) (string, error) {
	start := utcDay(day)
	outPath, err := eodCSVPath(s.dir, accountID, start)
	if err != nil {
		return "", err
	}

	trades, err := s.store.ListTrades(ctx, accountID)
	if err != nil {
		return "", err
	}

	end := start.Add(24 * time.Hour)

	aggs := map[string]*aggRow{}
	for _, t := range trades {
		if t.Status != types.TradeClosed || t.CloseTime == nil {
			continue
		}
		if t.CloseTime.Before(start) || !t.CloseTime.Before(end) {
			continue
		}
		row := aggs[t.Symbol]
		if row == nil {
			row = &aggRow{Symbol: t.Symbol}
			aggs[t.Symbol] = row
		}
		row.add(t)
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	total := &aggRow{Symbol: "TOTAL"}
	for _, k := range keys {
		if err := w.Write(aggs[k].record()); err != nil {
			return "", err
		}
		total.merge(aggs[k])
	}
	if err := w.Write(total.record()); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	return outPath, nil
}

// SummarizeDue writes yesterday's summary for every account still missing one
func (s *eodSummarizer) SummarizeDue(ctx context.Context, now time.Time) ([]string, error) {
	accs, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	day := utcDay(now).AddDate(0, 0, -1)
	s.prune(day)

	var (
		paths []string
		errs  []error
	)
	for _, acc := range accs {
		if ok, _ := s.ShouldRunNow(acc.ID, now); !ok {
			continue
		}
		p, err := s.SummarizeDay(ctx, acc.ID, day)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", acc.ID, err))
			continue
		}
		if p == "" {
			s.markDone(acc.ID, day)
			continue
		}
		paths = append(paths, p)
	}
	return paths, errors.Join(errs...)
}

// ShouldRunNow reports whether yesterday's summary for the account is due:
// the cutoff after UTC midnight has passed and neither a CSV nor an empty
// result exists for it yet.
func (s *eodSummarizer) ShouldRunNow(accountID string, now time.Time) (bool, string) {
	day := utcDay(now).AddDate(0, 0, -1)
	outPath, err := eodCSVPath(s.dir, accountID, day)
	if err != nil {
		return false, err.Error()
	}
	if now.UTC().Before(dayCutoff(now)) || s.isDone(accountID, day) {
		return false, outPath
	}
	if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
		return true, outPath
	}
	return false, outPath
}

func (s *eodSummarizer) markDone(accountID string, day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done[accountID] = day
}

func (s *eodSummarizer) isDone(accountID string, day time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.done[accountID]
	return ok && d.Equal(day)
}

// prune forgets empty results older than day, including removed accounts
func (s *eodSummarizer) prune(day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.done {
		if d.Before(day) {
			delete(s.done, id)
		}
	}
}

func (s *eodSummarizer) doneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.done)
}
