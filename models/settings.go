package models

// TradingSettings is the persisted simulation configuration. Dates are
// carried as ISO instants; CurrentDate is empty until the first start.
type TradingSettings struct {
	StartDate   string  `json:"startDate"`
	SpeedFactor float64 `json:"speedFactor"` // real seconds per simulated day
	IsActive    bool    `json:"isActive"`
	CurrentDate string  `json:"currentDate,omitempty"`
}

// StockQuote is one symbol/price pair of a status snapshot.
type StockQuote struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// TradingStatus is the snapshot broadcast after every tick and every
// reset. It is never persisted. CurrentDate is the simulated trading day
// in M/D/YYYY form.
type TradingStatus struct {
	IsActive    bool         `json:"isActive"`
	CurrentDate string       `json:"currentDate"`
	StockPrices []StockQuote `json:"stockPrices"`
}
