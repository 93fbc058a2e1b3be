package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-journal/internal/types"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, 12345.67, Money(1234567, 2))
	assert.Equal(t, 1234.57, Money(1234567, 3))
	assert.Equal(t, 500.0, Money(50000, -1))
	assert.Equal(t, -12.5, Money(-1250, 2))
}

func TestMoneyString(t *testing.T) {
	v, err := MoneyString("10250.1251")
	require.NoError(t, err)
	assert.Equal(t, 10250.13, v)

	v, err = MoneyString("")
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = MoneyString("ten")
	assert.Error(t, err)
}

func TestLeverage(t *testing.T) {
	assert.Equal(t, 100, Leverage(10000, true))
	assert.Equal(t, 30, Leverage(30, false))
}

func TestLots(t *testing.T) {
	lots, err := Lots(1000, MT5VolumeScale)
	require.NoError(t, err)
	assert.Equal(t, 0.1, lots)

	lots, err = Lots(150, MT4VolumeScale)
	require.NoError(t, err)
	assert.Equal(t, 1.5, lots)

	// cTrader: 100000 cents of units = 1000 units = 0.01 lot
	lots, err = Lots(100000, CTraderDefaultLotSize)
	require.NoError(t, err)
	assert.Equal(t, 0.01, lots)

	_, err = Lots(-1, MT5VolumeScale)
	assert.ErrorIs(t, err, ErrNegativeVolume)
}

func TestUnitsToLots(t *testing.T) {
	lots, err := UnitsToLots(25000, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.25, lots)

	lots, err = UnitsToLots(-50000, DefaultContractSize)
	require.NoError(t, err)
	assert.Equal(t, 0.5, lots)
}

func TestLotsString(t *testing.T) {
	lots, err := LotsString("0.30")
	require.NoError(t, err)
	assert.Equal(t, 0.3, lots)

	_, err = LotsString("-1")
	assert.ErrorIs(t, err, ErrNegativeVolume)
}

func TestParseDirection(t *testing.T) {
	buys := []string{"buy", "BUY", "Buy Limit", "ORDER_TYPE_BUY_STOP", "OP_BUY", "0", "long"}
	for _, s := range buys {
		d, err := ParseDirection(s)
		require.NoError(t, err, s)
		assert.Equal(t, types.DirectionBuy, d, s)
	}

	sells := []string{"sell", "SELL", "Sell Stop", "DEAL_TYPE_SELL", "1", "SHORT"}
	for _, s := range sells {
		d, err := ParseDirection(s)
		require.NoError(t, err, s)
		assert.Equal(t, types.DirectionSell, d, s)
	}

	_, err := ParseDirection("balance")
	assert.Error(t, err)
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	cases := []any{
		want.UnixMilli(),
		float64(want.UnixMilli()),
		json.Number("1709649000000"),
		"1709649000000",
		"2024-03-05T14:30:00Z",
		"2024-03-05T16:30:00+02:00",
		"2024-03-05T14:30:00",
		"2024.03.05 14:30:00",
		"2024-03-05 14:30:00",
	}
	for _, c := range cases {
		got, err := ParseTime(c)
		require.NoError(t, err, "%v", c)
		assert.True(t, want.Equal(got), "%v parsed to %v", c, got)
	}

	zero, err := ParseTime("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
