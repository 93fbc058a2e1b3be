package ctrader

type envelope[T any] struct {
	Data []T `json:"data"`
}

type tradingAccount struct {
	AccountID       int64  `json:"accountId"`
	AccountNumber   int64  `json:"accountNumber"`
	Live            bool   `json:"live"`
	BrokerName      string `json:"brokerName"`
	BrokerTitle     string `json:"brokerTitle"`
	DepositCurrency string `json:"depositCurrency"`
	Balance         int64  `json:"balance"`
	Equity          int64  `json:"equity"`
	MoneyDigits     *int   `json:"moneyDigits"`
	LeverageInCents int64  `json:"leverageInCents"`
}

type symbol struct {
	SymbolID   int64  `json:"symbolId"`
	SymbolName string `json:"symbolName"`
	LotSize    int64  `json:"lotSize"`
	Digits     int    `json:"digits"`
}

type position struct {
	PositionID    int64   `json:"positionId"`
	SymbolID      int64   `json:"symbolId"`
	TradeSide     string  `json:"tradeSide"`
	Volume        int64   `json:"volume"`
	EntryPrice    float64 `json:"entryPrice"`
	OpenTimestamp int64   `json:"openTimestamp"`
	StopLoss      float64 `json:"stopLoss"`
	TakeProfit    float64 `json:"takeProfit"`
	Swap          int64   `json:"swap"`
	Commission    int64   `json:"commission"`
	UnrealizedPnl int64   `json:"unrealizedPnl"`
	MoneyDigits   *int    `json:"moneyDigits"`
}

type deal struct {
	DealID              int64                `json:"dealId"`
	PositionID          int64                `json:"positionId"`
	SymbolID            int64                `json:"symbolId"`
	TradeSide           string               `json:"tradeSide"`
	Volume              int64                `json:"volume"`
	ExecutionPrice      float64              `json:"executionPrice"`
	ExecutionTimestamp  int64                `json:"executionTimestamp"`
	MoneyDigits         *int                 `json:"moneyDigits"`
	ClosePositionDetail *closePositionDetail `json:"closePositionDetail"`
}

type closePositionDetail struct {
	EntryPrice   float64 `json:"entryPrice"`
	GrossProfit  int64   `json:"grossProfit"`
	Swap         int64   `json:"swap"`
	Commission   int64   `json:"commission"`
	ClosedVolume int64   `json:"closedVolume"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	MoneyDigits  *int    `json:"moneyDigits"`
}

func digits(candidates ...*int) int {
	for _, d := range candidates {
		if d != nil {
			return *d
		}
	}
	return -1
}
