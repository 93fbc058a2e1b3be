// Package normalize converts vendor-specific numeric, side and time encodings
// into the units the journal stores: currency with 2 decimals, lots with 2
// decimals, buy/sell directions and UTC times.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	moneyPlaces = 2
	lotPlaces   = 2

	// DefaultMoneyDigits is used by cTrader when an entity omits moneyDigits.
	DefaultMoneyDigits = 2
)

var ErrNegativeVolume = errors.New("normalize: negative volume")

// Money converts an integer amount scaled by 10^digits into currency.
func Money(value int64, digits int) float64 {
	if digits < 0 {
		digits = DefaultMoneyDigits
	}
	f, _ := decimal.New(value, int32(-digits)).Round(moneyPlaces).Float64()
	return f
}

// MoneyString parses a decimal string such as "10250.1234" into currency.
// An empty string is zero.
func MoneyString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("normalize: invalid amount %q: %w", s, err)
	}
	f, _ := d.Round(moneyPlaces).Float64()
	return f, nil
}

// Round2 rounds a float amount to cents.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(moneyPlaces).Float64()
	return f
}

// Price parses a decimal price string without rounding.
func Price(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("normalize: invalid price %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

// Leverage converts a leverage value to the 1:N integer form. cTrader sends
// leverageInCents where 10000 means 1:100.
func Leverage(v int64, inCents bool) int {
	if inCents {
		return int(decimal.New(v, -2).IntPart())
	}
	return int(v)
}
