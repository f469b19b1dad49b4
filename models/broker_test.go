package models

import (
	"math"
	"testing"
)

func TestNewBroker(t *testing.T) {
	broker := NewBroker("Alice", 1000)
	if broker.ID == "" {
		t.Error("expected a generated id")
	}
	if broker.Name != "Alice" || broker.Balance != 1000 {
		t.Errorf("unexpected broker: %+v", broker)
	}
	if len(broker.Stocks) != 0 {
		t.Errorf("new broker should hold no stocks: %+v", broker.Stocks)
	}
}

func TestBroker_Buy(t *testing.T) {
	broker := NewBroker("Alice", 1000)

	if !broker.Buy("AAPL", 2, 100) {
		t.Fatal("buy should succeed")
	}
	if broker.Balance != 800 {
		t.Errorf("balance = %v, want 800", broker.Balance)
	}
	if len(broker.Stocks) != 1 || broker.Stocks[0].Quantity != 2 {
		t.Fatalf("unexpected holdings: %+v", broker.Stocks)
	}

	// Second buy at a different price folds into the average.
	if !broker.Buy("AAPL", 2, 200) {
		t.Fatal("second buy should succeed")
	}
	holding := broker.Stocks[0]
	if holding.Quantity != 4 {
		t.Errorf("quantity = %d, want 4", holding.Quantity)
	}
	if math.Abs(holding.AveragePrice-150) > 1e-9 {
		t.Errorf("average price = %v, want 150", holding.AveragePrice)
	}
}

func TestBroker_BuyInsufficientFunds(t *testing.T) {
	broker := NewBroker("Alice", 100)
	if broker.Buy("AAPL", 2, 100) {
		t.Error("buy should fail on insufficient funds")
	}
	if broker.Balance != 100 || len(broker.Stocks) != 0 {
		t.Errorf("failed buy must not mutate the broker: %+v", broker)
	}
}

func TestBroker_Sell(t *testing.T) {
	broker := NewBroker("Alice", 1000)
	broker.Buy("AAPL", 4, 100)

	if !broker.Sell("AAPL", 2, 150) {
		t.Fatal("sell should succeed")
	}
	if broker.Balance != 900 {
		t.Errorf("balance = %v, want 900", broker.Balance)
	}

	// Selling the rest drops the holding entirely.
	if !broker.Sell("AAPL", 2, 150) {
		t.Fatal("second sell should succeed")
	}
	if len(broker.Stocks) != 0 {
		t.Errorf("emptied holding should be removed: %+v", broker.Stocks)
	}
}

func TestBroker_SellInsufficientShares(t *testing.T) {
	broker := NewBroker("Alice", 1000)
	broker.Buy("AAPL", 1, 100)

	if broker.Sell("AAPL", 2, 100) {
		t.Error("sell should fail when shares are insufficient")
	}
	if broker.Sell("MSFT", 1, 100) {
		t.Error("sell should fail for a symbol the broker does not hold")
	}
}
