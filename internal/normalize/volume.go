package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MT5VolumeScale is the MT5 web API volume unit: 1/10000 lot.
	MT5VolumeScale int64 = 10000
	// MT4VolumeScale is the MT4 web API volume unit: 1/100 lot.
	MT4VolumeScale int64 = 100
	// CTraderDefaultLotSize is 100,000 units expressed in cents of units.
	CTraderDefaultLotSize int64 = 10_000_000
	// DefaultContractSize is the FX contract size in units.
	DefaultContractSize = 100_000.0
)

// Lots converts a scaled integer volume into lots.
func Lots(volume, scale int64) (float64, error) {
	if volume < 0 {
		return 0, ErrNegativeVolume
	}
	if scale <= 0 {
		scale = 1
	}
	f, _ := decimal.NewFromInt(volume).Div(decimal.NewFromInt(scale)).Round(lotPlaces).Float64()
	return f, nil
}

// UnitsToLots converts a quantity in base units into lots.
func UnitsToLots(units, contractSize float64) (float64, error) {
	if units < 0 {
		units = -units
	}
	if contractSize <= 0 {
		contractSize = DefaultContractSize
	}
	f, _ := decimal.NewFromFloat(units).Div(decimal.NewFromFloat(contractSize)).Round(lotPlaces).Float64()
	return f, nil
}

// LotsString parses a lot size sent as a string.
func LotsString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrNegativeVolume
	}
	f, _ := d.Round(lotPlaces).Float64()
	return f, nil
}
