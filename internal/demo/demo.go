// Package demo produces the deterministic mock account data the journal shows
// when a platform cannot be reached.
package demo

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"trading-journal/internal/normalize"
	"trading-journal/internal/types"
)

const (
	// StartingBalance is the balance of every demo account
	StartingBalance = 10000.0
	// DefaultTrades is used when a generator is built with a non-positive count
	DefaultTrades = 25

	historyDays = 30
	openShare   = 5 // one in openShare trades stays open
)

type instrument struct {
	symbol     string
	price      float64
	volatility float64
	pointValue float64 // account currency per 1.0 price move per lot
	digits     int32
}

var instruments = []instrument{
	{"EURUSD", 1.0850, 0.0040, 100000, 5},
	{"GBPUSD", 1.2700, 0.0050, 100000, 5},
	{"USDJPY", 149.50, 0.60, 670, 3},
	{"XAUUSD", 2030.0, 12.0, 100, 2},
	{"US30", 38500, 150, 1, 1},
	{"BTCUSD", 52000, 900, 1, 2},
}

// Generator builds demo accounts and trades. The output depends only on the
// platform, the account reference and the UTC day, so repeated syncs on the
// same day yield identical trades.
type Generator struct {
	trades int
	now    func() time.Time
}

// NewGenerator creates a generator producing n trades per account
func NewGenerator(n int) *Generator {
	if n <= 0 {
		n = DefaultTrades
	}
	return &Generator{trades: n, now: time.Now}
}

// WithClock replaces the wall clock, for tests
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Account returns the demo account for the given credentials
func (g *Generator) Account(p types.Platform, creds types.Credentials) types.TradingAccount {
	seed := seedFor(p, creds)

	number := creds.AccountRef()
	if number == "" {
		number = fmt.Sprintf("DEMO-%06d", seed%1_000_000)
	}
	server := creds.Server
	if server == "" {
		server = "demo"
	}

	equity := StartingBalance
	for _, t := range g.Trades(p, creds) {
		if t.Status == types.TradeOpen {
			equity += t.Profit
		}
	}

	return types.TradingAccount{
		Name:          fmt.Sprintf("Demo %s", p),
		Platform:      p,
		Broker:        "Demo Broker",
		Server:        server,
		AccountNumber: number,
		Balance:       StartingBalance,
		Equity:        normalize.Round2(equity),
		Currency:      "USD",
		Leverage:      100,
		Status:        types.StatusConnected,
		IsDemo:        true,
		LastUpdated:   g.now().UTC(),
	}
}

// Trades returns the demo trades for the given credentials, newest last
func (g *Generator) Trades(p types.Platform, creds types.Credentials) []types.Trade {
	seed := seedFor(p, creds)
	rng := rand.New(rand.NewSource(int64(seed)))

	end := g.now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -historyDays)
	step := end.Sub(start) / time.Duration(g.trades)

	trades := make([]types.Trade, 0, g.trades)
	for i := 0; i < g.trades; i++ {
		inst := instruments[rng.Intn(len(instruments))]

		openTime := start.Add(time.Duration(i)*step + time.Duration(rng.Int63n(int64(step))))
		dir := types.DirectionBuy
		sign := 1.0
		if rng.Intn(2) == 1 {
			dir = types.DirectionSell
			sign = -1
		}

		size := float64(1+rng.Intn(20)) / 10
		openPrice := round(inst.price+(rng.Float64()-0.5)*inst.volatility*4, inst.digits)
		move := (rng.Float64() - 0.45) * inst.volatility
		closePrice := round(openPrice+move*sign, inst.digits)
		risk := inst.volatility / 2

		t := types.Trade{
			ExternalID: ulid.MustNew(ulid.Timestamp(openTime), rng).String(),
			Symbol:     inst.symbol,
			Direction:  dir,
			OpenPrice:  openPrice,
			OpenTime:   openTime,
			Size:       size,
			StopLoss:   round(openPrice-sign*risk, inst.digits),
			TakeProfit: round(openPrice+sign*risk*2, inst.digits),
			Profit:     normalize.Round2((closePrice - openPrice) * sign * size * inst.pointValue),
			Swap:       normalize.Round2(-rng.Float64() * size * 3),
			Commission: normalize.Round2(-size * 7),
			Status:     types.TradeClosed,
		}

		if i%openShare == openShare-1 {
			// open trades carry the floating profit and no close data
			t.Status = types.TradeOpen
			t.Commission = 0
			t.Swap = 0
		} else {
			closeTime := openTime.Add(time.Duration(1+rng.Intn(48)) * time.Hour)
			if closeTime.After(end) {
				closeTime = end
			}
			t.ClosePrice = closePrice
			t.CloseTime = &closeTime
		}

		trades = append(trades, t)
	}

	return trades
}

func seedFor(p types.Platform, creds types.Credentials) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(string(p) + "|" + creds.AccountRef() + "|" + creds.Server))
	return h.Sum64()
}

func round(v float64, digits int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(digits).Float64()
	return f
}
