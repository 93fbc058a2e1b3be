package metatrader

// accountSummary is the /AccountSummary payload
type accountSummary struct {
	Login       int64   `json:"login"`
	Balance     float64 `json:"balance"`
	Credit      float64 `json:"credit"`
	Profit      float64 `json:"profit"`
	Equity      float64 `json:"equity"`
	Margin      float64 `json:"margin"`
	FreeMargin  float64 `json:"freeMargin"`
	MarginLevel float64 `json:"marginLevel"`
	Leverage    int64   `json:"leverage"`
	Currency    string  `json:"currency"`
	Company     string  `json:"company"`
	Type        string  `json:"type"`
}

// order is one entry of /OpenedOrders or /OrderHistory. MT4 bridges report
// lots directly, MT5 bridges a scaled integer volume.
type order struct {
	Ticket     int64   `json:"ticket"`
	Symbol     string  `json:"symbol"`
	OrderType  string  `json:"orderType"`
	Volume     int64   `json:"volume"`
	Lots       float64 `json:"lots"`
	OpenPrice  float64 `json:"openPrice"`
	ClosePrice float64 `json:"closePrice"`
	OpenTime   string  `json:"openTime"`
	CloseTime  string  `json:"closeTime"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
	Profit     float64 `json:"profit"`
	Swap       float64 `json:"swap"`
	Commission float64 `json:"commission"`
	Comment    string  `json:"comment"`
}
