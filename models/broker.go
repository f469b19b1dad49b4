package models

import (
	"time"

	"github.com/google/uuid"
)

// BrokerHolding is one position in a broker's account.
type BrokerHolding struct {
	Symbol       string  `json:"symbol"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"averagePrice"`
}

// Broker is a trading account with a cash balance and stock holdings.
type Broker struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   float64         `json:"balance"`
	Stocks    []BrokerHolding `json:"stocks"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewBroker(name string, balance float64) *Broker {
	now := time.Now()
	return &Broker{
		ID:        uuid.NewString(),
		Name:      name,
		Balance:   balance,
		Stocks:    []BrokerHolding{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Buy debits the balance and folds the purchase into the holding's average
// price. It reports false when funds are insufficient.
func (b *Broker) Buy(symbol string, quantity int, price float64) bool {
	totalCost := float64(quantity) * price
	if b.Balance < totalCost {
		return false
	}

	updated := false
	for i := range b.Stocks {
		if b.Stocks[i].Symbol != symbol {
			continue
		}
		holding := &b.Stocks[i]
		totalQuantity := holding.Quantity + quantity
		totalValue := float64(holding.Quantity)*holding.AveragePrice + totalCost
		holding.AveragePrice = totalValue / float64(totalQuantity)
		holding.Quantity = totalQuantity
		updated = true
		break
	}
	if !updated {
		b.Stocks = append(b.Stocks, BrokerHolding{
			Symbol:       symbol,
			Quantity:     quantity,
			AveragePrice: price,
		})
	}

	b.Balance -= totalCost
	b.UpdatedAt = time.Now()
	return true
}

// Sell credits the balance and drops a holding once it empties. It reports
// false when the broker does not hold enough shares.
func (b *Broker) Sell(symbol string, quantity int, price float64) bool {
	index := -1
	for i := range b.Stocks {
		if b.Stocks[i].Symbol == symbol {
			index = i
			break
		}
	}
	if index == -1 || b.Stocks[index].Quantity < quantity {
		return false
	}

	b.Stocks[index].Quantity -= quantity
	if b.Stocks[index].Quantity == 0 {
		b.Stocks = append(b.Stocks[:index], b.Stocks[index+1:]...)
	}

	b.Balance += float64(quantity) * price
	b.UpdatedAt = time.Now()
	return true
}

// BrokerPatch names the fields a broker update may replace.
type BrokerPatch struct {
	Name    *string  `json:"name"`
	Balance *float64 `json:"balance"`
}

func (p BrokerPatch) Apply(b *Broker) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Balance != nil {
		b.Balance = *p.Balance
	}
	b.UpdatedAt = time.Now()
}

// Trade is one executed buy or sell, appended to the trade log.
type Trade struct {
	BrokerID  string    `json:"brokerId"`
	Symbol    string    `json:"symbol"`
	Type      string    `json:"type"` // "buy" or "sell"
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
