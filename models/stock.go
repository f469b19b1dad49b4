package models

// StockPrice is one entry of a stock's historical series. Dates written by
// the simulation use the M/D/YYYY form without zero padding; pre-seeded data
// may carry YYYY-MM-DD instead, and the two never match on lookup.
type StockPrice struct {
	Date string `json:"date"`
	Open string `json:"open"`
}

// StockRecord is one catalog entry, keyed by symbol.
type StockRecord struct {
	Symbol         string       `json:"symbol"`
	CompanyName    string       `json:"companyName"`
	IsActive       bool         `json:"isActive"`
	CurrentPrice   string       `json:"currentPrice"`
	HistoricalData []StockPrice `json:"historicalData"`
}

// HistoricalOpen returns the open price recorded for date, or "" when the
// series holds no entry for it. The first match wins; the catalog never
// dedupes the series.
func (s *StockRecord) HistoricalOpen(date string) string {
	for _, entry := range s.HistoricalData {
		if entry.Date == date {
			return entry.Open
		}
	}
	return ""
}

// StockPatch names the fields a catalog update may replace. Nil fields are
// left untouched.
type StockPatch struct {
	CompanyName    *string       `json:"companyName"`
	IsActive       *bool         `json:"isActive"`
	CurrentPrice   *string       `json:"currentPrice"`
	HistoricalData *[]StockPrice `json:"historicalData"`
}

// Apply merges the patch over the record.
func (p StockPatch) Apply(s *StockRecord) {
	if p.CompanyName != nil {
		s.CompanyName = *p.CompanyName
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.CurrentPrice != nil {
		s.CurrentPrice = *p.CurrentPrice
	}
	if p.HistoricalData != nil {
		s.HistoricalData = *p.HistoricalData
	}
}
