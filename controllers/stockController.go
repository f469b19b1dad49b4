package controllers

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"time"

	"paper-exchange/models"
	"paper-exchange/storage"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const stocksFile = "stocks"

// StockService is the catalog of stock reference data, one record per
// symbol, backed by the "stocks" document.
type StockService struct {
	store storage.DocumentStore
}

func NewStockService(store storage.DocumentStore) *StockService {
	return &StockService{store: store}
}

func (s *StockService) loadAll(ctx context.Context) (map[string]models.StockRecord, error) {
	stocks := make(map[string]models.StockRecord)
	if _, err := s.store.Load(ctx, stocksFile, &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

// FindAll returns every catalog record, sorted by symbol.
func (s *StockService) FindAll(ctx context.Context) ([]models.StockRecord, error) {
	stocks, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]models.StockRecord, 0, len(stocks))
	for _, record := range stocks {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Symbol < records[j].Symbol
	})
	return records, nil
}

func (s *StockService) FindOne(ctx context.Context, symbol string) (models.StockRecord, error) {
	stocks, err := s.loadAll(ctx)
	if err != nil {
		return models.StockRecord{}, err
	}

	record, ok := stocks[symbol]
	if !ok {
		return models.StockRecord{}, fmt.Errorf("%w: %s", ErrStockNotFound, symbol)
	}
	return record, nil
}

func (s *StockService) Create(ctx context.Context, record models.StockRecord) (models.StockRecord, error) {
	stocks, err := s.loadAll(ctx)
	if err != nil {
		return models.StockRecord{}, err
	}

	if _, ok := stocks[record.Symbol]; ok {
		return models.StockRecord{}, fmt.Errorf("%w: %s", ErrStockExists, record.Symbol)
	}

	if record.CurrentPrice == "" {
		record.CurrentPrice = "$0.00"
	}
	if record.HistoricalData == nil {
		record.HistoricalData = []models.StockPrice{}
	}

	stocks[record.Symbol] = record
	if err := s.store.Save(ctx, stocksFile, stocks); err != nil {
		return models.StockRecord{}, err
	}
	return record, nil
}

// Update merges the patch over the existing record and persists the whole
// catalog document.
func (s *StockService) Update(ctx context.Context, symbol string, patch models.StockPatch) (models.StockRecord, error) {
	stocks, err := s.loadAll(ctx)
	if err != nil {
		return models.StockRecord{}, err
	}

	record, ok := stocks[symbol]
	if !ok {
		return models.StockRecord{}, fmt.Errorf("%w: %s", ErrStockNotFound, symbol)
	}

	patch.Apply(&record)
	stocks[symbol] = record
	if err := s.store.Save(ctx, stocksFile, stocks); err != nil {
		return models.StockRecord{}, err
	}
	return record, nil
}

func (s *StockService) Remove(ctx context.Context, symbol string) error {
	stocks, err := s.loadAll(ctx)
	if err != nil {
		return err
	}

	if _, ok := stocks[symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrStockNotFound, symbol)
	}

	delete(stocks, symbol)
	return s.store.Save(ctx, stocksFile, stocks)
}

// SetTradingStatus flips only the isActive flag, leaving every other field
// untouched.
func (s *StockService) SetTradingStatus(ctx context.Context, symbol string, isActive bool) (models.StockRecord, error) {
	return s.Update(ctx, symbol, models.StockPatch{IsActive: &isActive})
}

// SaveAll overwrites the whole catalog in one write. The reset path uses
// this to restore every record in a single batch.
func (s *StockService) SaveAll(ctx context.Context, stocks map[string]models.StockRecord) error {
	return s.store.Save(ctx, stocksFile, stocks)
}

// Seed writes the canonical demo catalog when the stocks document is empty.
// Generated history uses YYYY-MM-DD dates; the simulation keys its own
// writes as M/D/YYYY, so seeded entries never replay. Migration of seed
// data is a deliberate separate step.
func (s *StockService) Seed(ctx context.Context) error {
	stocks, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	if len(stocks) > 0 {
		return nil
	}

	seed := []struct {
		symbol  string
		company string
		active  bool
		current string
		base    float64
		min     float64
		max     float64
	}{
		{"AAPL", "Apple, Inc.", true, "$182.52", 180, 120, 200},
		{"SBUX", "Starbucks, Inc.", true, "$91.32", 90, 70, 110},
		{"MSFT", "Microsoft, Inc.", true, "$412.65", 400, 350, 420},
		{"CSCO", "Cisco Systems, Inc.", false, "$47.84", 45, 40, 55},
		{"QCOM", "QUALCOMM Incorporated", false, "$168.42", 160, 140, 180},
		{"AMZN", "Amazon.com, Inc.", true, "$186.34", 180, 140, 200},
		{"TSLA", "Tesla, Inc.", true, "$172.63", 170, 150, 250},
		{"AMD", "Advanced Micro Devices, Inc.", false, "$166.24", 160, 120, 180},
	}

	for _, entry := range seed {
		stocks[entry.symbol] = models.StockRecord{
			Symbol:         entry.symbol,
			CompanyName:    entry.company,
			IsActive:       entry.active,
			CurrentPrice:   entry.current,
			HistoricalData: generateHistoricalData(entry.base, entry.min, entry.max, 30),
		}
	}

	return s.store.Save(ctx, stocksFile, stocks)
}

func generateHistoricalData(basePrice, minPrice, maxPrice float64, days int) []models.StockPrice {
	data := make([]models.StockPrice, 0, days+1)
	today := time.Now().UTC()

	for i := days; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)

		randomFactor := 0.8 + rand.Float64()*0.4
		price := decimal.NewFromFloat(basePrice * randomFactor)
		price = decimal.Max(decimal.NewFromFloat(minPrice), decimal.Min(decimal.NewFromFloat(maxPrice), price))

		data = append(data, models.StockPrice{
			Date: date.Format("2006-01-02"),
			Open: models.FormatPrice(price),
		})
	}

	return data
}

// StockController handles the catalog HTTP endpoints.
type StockController struct {
	Stocks *StockService
}

func NewStockController(stocks *StockService) *StockController {
	return &StockController{Stocks: stocks}
}

type createStockRequest struct {
	Symbol         string              `json:"symbol" binding:"required"`
	CompanyName    string              `json:"companyName" binding:"required"`
	IsActive       bool                `json:"isActive"`
	CurrentPrice   string              `json:"currentPrice"`
	HistoricalData []models.StockPrice `json:"historicalData"`
}

func (sc *StockController) CreateStockHandler(c *gin.Context) {
	var req createStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := sc.Stocks.Create(ctx, models.StockRecord{
		Symbol:         req.Symbol,
		CompanyName:    req.CompanyName,
		IsActive:       req.IsActive,
		CurrentPrice:   req.CurrentPrice,
		HistoricalData: req.HistoricalData,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (sc *StockController) GetStocksHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	records, err := sc.Stocks.FindAll(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (sc *StockController) GetStockHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := sc.Stocks.FindOne(ctx, c.Param("symbol"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (sc *StockController) UpdateStockHandler(c *gin.Context) {
	var patch models.StockPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := sc.Stocks.Update(ctx, c.Param("symbol"), patch)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (sc *StockController) DeleteStockHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := sc.Stocks.Remove(ctx, c.Param("symbol")); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type tradingStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (sc *StockController) SetTradingStatusHandler(c *gin.Context) {
	var req tradingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	record, err := sc.Stocks.SetTradingStatus(ctx, c.Param("symbol"), *req.IsActive)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}
