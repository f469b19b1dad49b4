package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"paper-exchange/models"
	"paper-exchange/storage"

	"github.com/gin-gonic/gin"
)

const (
	brokersFile = "brokers"
	tradesFile  = "trades"
)

// BrokerService manages broker accounts, stored together as the "brokers"
// array document.
type BrokerService struct {
	store  storage.DocumentStore
	stocks *StockService
}

func NewBrokerService(store storage.DocumentStore, stocks *StockService) *BrokerService {
	return &BrokerService{store: store, stocks: stocks}
}

func (s *BrokerService) FindAll(ctx context.Context) ([]models.Broker, error) {
	var brokers []models.Broker
	if _, err := s.store.Load(ctx, brokersFile, &brokers); err != nil {
		return nil, err
	}
	return brokers, nil
}

func (s *BrokerService) FindOne(ctx context.Context, id string) (models.Broker, error) {
	brokers, err := s.FindAll(ctx)
	if err != nil {
		return models.Broker{}, err
	}
	for _, broker := range brokers {
		if broker.ID == id {
			return broker, nil
		}
	}
	return models.Broker{}, fmt.Errorf("%w: %s", ErrBrokerNotFound, id)
}

func (s *BrokerService) Create(ctx context.Context, name string, balance float64) (models.Broker, error) {
	broker := models.NewBroker(name, balance)
	if err := s.store.Append(ctx, brokersFile, broker); err != nil {
		return models.Broker{}, err
	}
	return *broker, nil
}

func (s *BrokerService) Update(ctx context.Context, id string, patch models.BrokerPatch) (models.Broker, error) {
	brokers, err := s.FindAll(ctx)
	if err != nil {
		return models.Broker{}, err
	}

	for i := range brokers {
		if brokers[i].ID != id {
			continue
		}
		patch.Apply(&brokers[i])
		if err := s.store.Save(ctx, brokersFile, brokers); err != nil {
			return models.Broker{}, err
		}
		return brokers[i], nil
	}
	return models.Broker{}, fmt.Errorf("%w: %s", ErrBrokerNotFound, id)
}

func (s *BrokerService) Remove(ctx context.Context, id string) error {
	brokers, err := s.FindAll(ctx)
	if err != nil {
		return err
	}

	for i := range brokers {
		if brokers[i].ID == id {
			brokers = append(brokers[:i], brokers[i+1:]...)
			return s.store.Save(ctx, brokersFile, brokers)
		}
	}
	return fmt.Errorf("%w: %s", ErrBrokerNotFound, id)
}

// ExecuteTrade buys or sells at the stock's current catalog price and
// appends the executed trade to the trade log.
func (s *BrokerService) ExecuteTrade(ctx context.Context, id, symbol, tradeType string, quantity int) (models.Broker, error) {
	if quantity <= 0 {
		return models.Broker{}, fmt.Errorf("quantity must be positive")
	}

	stock, err := s.stocks.FindOne(ctx, symbol)
	if err != nil {
		return models.Broker{}, err
	}
	price, err := models.ParsePrice(stock.CurrentPrice)
	if err != nil {
		return models.Broker{}, err
	}
	priceValue, _ := price.Float64()

	brokers, err := s.FindAll(ctx)
	if err != nil {
		return models.Broker{}, err
	}

	for i := range brokers {
		if brokers[i].ID != id {
			continue
		}
		broker := &brokers[i]

		switch tradeType {
		case "buy":
			if !broker.Buy(symbol, quantity, priceValue) {
				return models.Broker{}, fmt.Errorf("insufficient funds")
			}
		case "sell":
			if !broker.Sell(symbol, quantity, priceValue) {
				return models.Broker{}, fmt.Errorf("insufficient shares")
			}
		default:
			return models.Broker{}, fmt.Errorf("invalid trade type %q", tradeType)
		}

		if err := s.store.Save(ctx, brokersFile, brokers); err != nil {
			return models.Broker{}, err
		}

		trade := models.Trade{
			BrokerID:  id,
			Symbol:    symbol,
			Type:      tradeType,
			Quantity:  quantity,
			Price:     priceValue,
			Timestamp: time.Now(),
		}
		if err := s.store.Append(ctx, tradesFile, trade); err != nil {
			log.Printf("Failed to log trade: %v", err)
		}

		return *broker, nil
	}
	return models.Broker{}, fmt.Errorf("%w: %s", ErrBrokerNotFound, id)
}

// BrokerController handles the broker HTTP endpoints.
type BrokerController struct {
	Brokers *BrokerService
}

func NewBrokerController(brokers *BrokerService) *BrokerController {
	return &BrokerController{Brokers: brokers}
}

type createBrokerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Balance float64 `json:"balance"`
}

func (bc *BrokerController) CreateBrokerHandler(c *gin.Context) {
	var req createBrokerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	broker, err := bc.Brokers.Create(ctx, req.Name, req.Balance)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, broker)
}

func (bc *BrokerController) GetBrokersHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	brokers, err := bc.Brokers.FindAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if brokers == nil {
		brokers = []models.Broker{}
	}
	c.JSON(http.StatusOK, brokers)
}

func (bc *BrokerController) GetBrokerHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	broker, err := bc.Brokers.FindOne(ctx, c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, broker)
}

func (bc *BrokerController) UpdateBrokerHandler(c *gin.Context) {
	var patch models.BrokerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	broker, err := bc.Brokers.Update(ctx, c.Param("id"), patch)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, broker)
}

func (bc *BrokerController) DeleteBrokerHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := bc.Brokers.Remove(ctx, c.Param("id")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type executeTradeRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Type     string `json:"type" binding:"required,oneof=buy sell"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

func (bc *BrokerController) ExecuteTradeHandler(c *gin.Context) {
	var req executeTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	broker, err := bc.Brokers.ExecuteTrade(ctx, c.Param("id"), req.Symbol, req.Type, req.Quantity)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, broker)
}
