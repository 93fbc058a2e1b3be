// Package statement imports MetaTrader "Detailed Statement" HTML exports.
package statement

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trading-journal/internal/normalize"
	"trading-journal/internal/types"
)

// Statement is the account header and trade rows of one export.
type Statement struct {
	AccountNumber string        `json:"accountNumber"`
	Name          string        `json:"name"`
	Currency      string        `json:"currency"`
	Balance       float64       `json:"balance"`
	Equity        float64       `json:"equity"`
	Trades        []types.Trade `json:"trades"`
	Skipped       []SkippedRow  `json:"skipped,omitempty"`
}

// SkippedRow is a trade-shaped row that could not be normalized.
type SkippedRow struct {
	Ticket string `json:"ticket"`
	Reason string `json:"reason"`
}

// Column order of the trade tables in MT4 and MT5 statements.
const (
	colTicket = iota
	colOpenTime
	colType
	colSize
	colItem
	colOpenPrice
	colStopLoss
	colTakeProfit
	colCloseTime
	colClosePrice
	colCommission
	colTaxes
	colSwap
	colProfit
	tradeColumns
)

var ticketRe = regexp.MustCompile(`^\d+$`)

// Parse reads a statement and assigns its trades to accountID.
func Parse(r io.Reader, accountID string) (Statement, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Statement{}, fmt.Errorf("statement: parse html: %w", err)
	}

	var st Statement
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td").Map(func(_ int, c *goquery.Selection) string {
			return cleanText(c.Text())
		})
		readHeader(&st, cells)

		if len(cells) < tradeColumns || !ticketRe.MatchString(cells[colTicket]) {
			return
		}
		kind := strings.ToLower(cells[colType])
		if kind != "buy" && kind != "sell" {
			return
		}
		t, err := toTrade(accountID, cells)
		if err != nil {
			st.Skipped = append(st.Skipped, SkippedRow{Ticket: cells[colTicket], Reason: err.Error()})
			return
		}
		st.Trades = append(st.Trades, t)
	})

	if st.AccountNumber == "" && len(st.Trades) == 0 {
		return Statement{}, fmt.Errorf("statement: no account header or trades found")
	}
	return st, nil
}

// readHeader picks up "Account: 123", "Name: x", "Currency: USD" cells and
// the "Balance:"/"Equity:" label cells of the summary table.
func readHeader(st *Statement, cells []string) {
	for i, c := range cells {
		switch {
		case strings.HasPrefix(c, "Account:"):
			st.AccountNumber = firstField(strings.TrimPrefix(c, "Account:"))
		case strings.HasPrefix(c, "Name:"):
			st.Name = strings.TrimSpace(strings.TrimPrefix(c, "Name:"))
		case strings.HasPrefix(c, "Currency:"):
			st.Currency = strings.TrimSpace(strings.TrimPrefix(c, "Currency:"))
		case (c == "Balance:" || c == "Equity:") && i+1 < len(cells):
			v, err := normalize.MoneyString(compactNumber(cells[i+1]))
			if err != nil {
				continue
			}
			if c == "Balance:" {
				st.Balance = v
			} else {
				st.Equity = v
			}
		}
	}
}

func toTrade(accountID string, cells []string) (types.Trade, error) {
	dir, err := normalize.ParseDirection(cells[colType])
	if err != nil {
		return types.Trade{}, err
	}
	openTime, err := normalize.ParseTime(cells[colOpenTime])
	if err != nil {
		return types.Trade{}, fmt.Errorf("open time: %w", err)
	}
	size, err := normalize.LotsString(cells[colSize])
	if err != nil {
		return types.Trade{}, fmt.Errorf("size: %w", err)
	}

	var nums [tradeColumns]float64
	for _, i := range []int{colOpenPrice, colStopLoss, colTakeProfit, colClosePrice} {
		if nums[i], err = normalize.Price(compactNumber(cells[i])); err != nil {
			return types.Trade{}, err
		}
	}
	for _, i := range []int{colCommission, colTaxes, colSwap, colProfit} {
		if nums[i], err = normalize.MoneyString(compactNumber(cells[i])); err != nil {
			return types.Trade{}, err
		}
	}

	t := types.Trade{
		ID:         types.TradeID(accountID, cells[colTicket]),
		AccountID:  accountID,
		ExternalID: cells[colTicket],
		Symbol:     strings.ToUpper(cells[colItem]),
		Direction:  dir,
		OpenPrice:  nums[colOpenPrice],
		OpenTime:   openTime,
		Size:       size,
		Profit:     nums[colProfit],
		Commission: normalize.Round2(nums[colCommission] + nums[colTaxes]),
		Swap:       nums[colSwap],
		StopLoss:   nums[colStopLoss],
		TakeProfit: nums[colTakeProfit],
		Status:     types.TradeOpen,
	}

	// Open positions carry a blank close time and the current price.
	if cells[colCloseTime] != "" {
		closeTime, err := normalize.ParseTime(cells[colCloseTime])
		if err != nil {
			return types.Trade{}, fmt.Errorf("close time: %w", err)
		}
		t.CloseTime = &closeTime
		t.ClosePrice = nums[colClosePrice]
		t.Status = types.TradeClosed
	}
	return t, nil
}

// cleanText collapses runs of whitespace, including the non-breaking spaces
// MetaTrader pads cells with.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// compactNumber drops thousands separators like "10 234.57".
func compactNumber(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
