package controllers

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"paper-exchange/models"
	"paper-exchange/storage"

	"github.com/shopspring/decimal"
)

const (
	settingsFile    = "trading-settings"
	stockBackupFile = "original-stocks-backup"
)

// minimum a synthesized price can fall to
var minPrice = decimal.NewFromFloat(0.01)

// TradingEngine owns the simulation: the running/stopped state machine, the
// tick timer, price resolution, and the status feed. It assumes it is the
// sole writer to the stocks and settings documents while running.
//
// The timer is a single-shot that re-arms itself only after a tick has
// finished, so ticks never overlap even when a tick outlasts the period.
type TradingEngine struct {
	store  storage.DocumentStore
	stocks *StockService
	feed   *models.StatusFeed

	mu          sync.Mutex
	settings    models.TradingSettings
	timer       *time.Timer
	period      time.Duration // captured at start; speed changes apply on the next start
	generation  int           // invalidates callbacks of cancelled timers
	backupTaken bool
}

func NewTradingEngine(store storage.DocumentStore, stocks *StockService) *TradingEngine {
	return &TradingEngine{
		store:  store,
		stocks: stocks,
		feed:   models.NewStatusFeed(),
	}
}

// Subscribe attaches a handler to the status feed and returns its
// unsubscribe function.
func (e *TradingEngine) Subscribe(handler func(models.TradingStatus)) func() {
	return e.feed.Subscribe(handler)
}

// Initialize loads persisted settings, creating defaults when none exist.
// If the simulation was active when the process last stopped, it resumes
// from the persisted current date. A settings load failure is fatal: the
// engine must not run against guessed configuration.
func (e *TradingEngine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var settings models.TradingSettings
	found, err := e.store.Load(ctx, settingsFile, &settings)
	if err != nil {
		return fmt.Errorf("load trading settings: %w", err)
	}

	if !found {
		e.settings = models.TradingSettings{
			StartDate:   time.Now().UTC().Format(time.RFC3339),
			SpeedFactor: 1,
			IsActive:    false,
		}
		return e.saveSettings(ctx)
	}

	e.settings = settings
	if e.settings.IsActive {
		log.Println("Trading was active on shutdown, resuming simulation")
		if _, err := e.startLocked(ctx); err != nil {
			return fmt.Errorf("resume trading: %w", err)
		}
	}
	return nil
}

// Settings returns a copy of the current settings.
func (e *TradingEngine) Settings() models.TradingSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// TradingSettingsUpdate carries a settings change. IsActive is optional;
// leaving it nil keeps the current activity state.
type TradingSettingsUpdate struct {
	StartDate   string  `json:"startDate" binding:"required"`
	SpeedFactor float64 `json:"speedFactor" binding:"required,gt=0"`
	IsActive    *bool   `json:"isActive"`
}

// UpdateSettings persists the change and, when it flips the active flag,
// starts or stops the simulation as a side effect. A speed change while
// running takes effect on the next start.
func (e *TradingEngine) UpdateSettings(ctx context.Context, update TradingSettingsUpdate) (models.TradingSettings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasActive := e.settings.IsActive

	e.settings.StartDate = update.StartDate
	e.settings.SpeedFactor = update.SpeedFactor
	if update.IsActive != nil {
		e.settings.IsActive = *update.IsActive
	}

	if err := e.saveSettings(ctx); err != nil {
		return models.TradingSettings{}, err
	}

	if wasActive && !e.settings.IsActive {
		e.stopLocked(ctx)
	} else if !wasActive && e.settings.IsActive {
		if _, err := e.startLocked(ctx); err != nil {
			return models.TradingSettings{}, err
		}
	}

	return e.settings, nil
}

// Start arms the tick timer and runs the first tick immediately, returning
// its status. Calling Start while running re-arms the timer.
func (e *TradingEngine) Start(ctx context.Context) (models.TradingStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(ctx)
}

func (e *TradingEngine) startLocked(ctx context.Context) (models.TradingStatus, error) {
	e.cancelTimerLocked()

	// One-time baseline snapshot, used by Reset.
	if !e.backupTaken {
		if err := e.saveStockBackup(ctx); err != nil {
			return models.TradingStatus{}, err
		}
		e.backupTaken = true
	}

	e.settings.IsActive = true
	e.settings.CurrentDate = e.settings.StartDate
	if err := e.saveSettings(ctx); err != nil {
		return models.TradingStatus{}, err
	}

	e.period = e.tickPeriod()
	e.scheduleNextTickLocked()

	status, err := e.tickLocked(ctx)
	if err != nil {
		return models.TradingStatus{}, err
	}
	return status, nil
}

// Stop cancels the pending tick and persists the inactive state. A tick
// already in flight finishes and publishes its status; only the next one
// is prevented. Persistence failures are logged, not surfaced.
func (e *TradingEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(context.Background())
}

func (e *TradingEngine) stopLocked(ctx context.Context) {
	e.cancelTimerLocked()
	e.settings.IsActive = false
	if err := e.saveSettings(ctx); err != nil {
		log.Printf("Failed to save trading settings on stop: %v", err)
	}
}

func (e *TradingEngine) cancelTimerLocked() {
	e.generation++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// tickPeriod is the wall-clock time per simulated day.
func (e *TradingEngine) tickPeriod() time.Duration {
	return time.Duration(e.settings.SpeedFactor * float64(time.Second))
}

// scheduleNextTickLocked arms a single-shot timer for the next tick. The
// callback runs the tick and then re-arms, so a slow tick delays the next
// one instead of overlapping it.
func (e *TradingEngine) scheduleNextTickLocked() {
	generation := e.generation
	e.timer = time.AfterFunc(e.period, func() {
		e.mu.Lock()
		if e.generation != generation || !e.settings.IsActive {
			e.mu.Unlock()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := e.tickLocked(ctx); err != nil {
			// A bad tick is not fatal; the schedule keeps going.
			log.Printf("Error in trading simulation: %v", err)
		}
		cancel()

		if e.generation == generation && e.settings.IsActive {
			e.scheduleNextTickLocked()
		}
		e.mu.Unlock()
	})
}

// tickLocked advances the simulation by one day: it moves the current date
// forward, resolves a price for every active stock, persists each record,
// and publishes the resulting status.
func (e *TradingEngine) tickLocked(ctx context.Context) (models.TradingStatus, error) {
	current := e.settings.CurrentDate
	if current == "" {
		current = e.settings.StartDate
	}
	date, err := time.Parse(time.RFC3339, current)
	if err != nil {
		return models.TradingStatus{}, fmt.Errorf("parse current date %q: %w", current, err)
	}

	date = date.AddDate(0, 0, 1)
	e.settings.CurrentDate = date.UTC().Format(time.RFC3339)
	if err := e.saveSettings(ctx); err != nil {
		return models.TradingStatus{}, err
	}

	records, err := e.stocks.FindAll(ctx)
	if err != nil {
		return models.TradingStatus{}, err
	}

	tradingDate := models.TradingDate(date)
	quotes := make([]models.StockQuote, 0, len(records))

	for i := range records {
		stock := &records[i]
		if !stock.IsActive {
			continue
		}

		if err := e.resolvePrice(stock, tradingDate); err != nil {
			return models.TradingStatus{}, err
		}

		_, err := e.stocks.Update(ctx, stock.Symbol, models.StockPatch{
			CurrentPrice:   &stock.CurrentPrice,
			HistoricalData: &stock.HistoricalData,
		})
		if err != nil {
			return models.TradingStatus{}, err
		}

		quotes = append(quotes, models.StockQuote{Symbol: stock.Symbol, Price: stock.CurrentPrice})
	}

	status := models.TradingStatus{
		IsActive:    e.settings.IsActive,
		CurrentDate: tradingDate,
		StockPrices: quotes,
	}
	e.feed.Publish(status)
	return status, nil
}

// resolvePrice replays the historical open when the series already has an
// entry for the trading date; otherwise it synthesizes the next price and
// records it in the series.
func (e *TradingEngine) resolvePrice(stock *models.StockRecord, tradingDate string) error {
	if open := stock.HistoricalOpen(tradingDate); open != "" {
		stock.CurrentPrice = open
		return nil
	}

	price, err := models.ParsePrice(stock.CurrentPrice)
	if err != nil {
		return err
	}

	next := price.Add(randomPriceChange(price)).Round(2)
	if next.LessThan(minPrice) {
		next = minPrice
	}

	stock.CurrentPrice = models.FormatPrice(next)
	stock.HistoricalData = append(stock.HistoricalData, models.StockPrice{
		Date: tradingDate,
		Open: stock.CurrentPrice,
	})
	return nil
}

// randomPriceChange draws a uniform change within ±5% of price.
func randomPriceChange(price decimal.Decimal) decimal.Decimal {
	factor := (rand.Float64()*2 - 1) * 0.05
	return price.Mul(decimal.NewFromFloat(factor))
}

// saveStockBackup snapshots every catalog record for later restoration.
func (e *TradingEngine) saveStockBackup(ctx context.Context) error {
	log.Println("Saving baseline copy of stock data")

	records, err := e.stocks.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("snapshot stocks: %w", err)
	}

	backup := make(map[string]models.StockRecord, len(records))
	for _, record := range records {
		record.HistoricalData = append([]models.StockPrice(nil), record.HistoricalData...)
		backup[record.Symbol] = record
	}

	if err := e.store.Save(ctx, stockBackupFile, backup); err != nil {
		return fmt.Errorf("save stock backup: %w", err)
	}
	return nil
}

// Reset stops the simulation and restores every stock to the baseline
// snapshot, keeping each stock's live isActive flag. Symbols missing from
// the baseline keep their current price and lose their history. The
// current date rolls back to the start date and the resulting status is
// published with prices for all stocks, active or not.
func (e *TradingEngine) Reset(ctx context.Context) (models.TradingStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.stopLocked(ctx)
	}

	log.Println("Resetting simulation data")

	records, err := e.stocks.FindAll(ctx)
	if err != nil {
		return models.TradingStatus{}, err
	}

	baseline := make(map[string]models.StockRecord)
	found, err := e.store.Load(ctx, stockBackupFile, &baseline)
	if err != nil {
		return models.TradingStatus{}, fmt.Errorf("load stock backup: %w", err)
	}
	if !found {
		// No backup was ever taken; fall back to the raw stocks document,
		// bypassing the catalog.
		log.Println("Baseline backup not found, falling back to the stocks document")
		if _, err := e.store.Load(ctx, stocksFile, &baseline); err != nil {
			return models.TradingStatus{}, fmt.Errorf("load fallback stock data: %w", err)
		}
	}

	restored := make(map[string]models.StockRecord, len(records))
	for i := range records {
		stock := &records[i]
		original, ok := baseline[stock.Symbol]
		if !ok {
			log.Printf("No baseline data for stock %s", stock.Symbol)
			stock.HistoricalData = []models.StockPrice{}
			restored[stock.Symbol] = *stock
			continue
		}

		stock.CurrentPrice = original.CurrentPrice
		stock.HistoricalData = append([]models.StockPrice(nil), original.HistoricalData...)
		restored[stock.Symbol] = models.StockRecord{
			Symbol:         stock.Symbol,
			CompanyName:    original.CompanyName,
			IsActive:       stock.IsActive, // live flag survives the reset
			CurrentPrice:   original.CurrentPrice,
			HistoricalData: stock.HistoricalData,
		}
	}

	if err := e.stocks.SaveAll(ctx, restored); err != nil {
		return models.TradingStatus{}, fmt.Errorf("save restored stocks: %w", err)
	}

	e.settings.CurrentDate = e.settings.StartDate
	if err := e.saveSettings(ctx); err != nil {
		return models.TradingStatus{}, err
	}

	startDate, err := time.Parse(time.RFC3339, e.settings.StartDate)
	if err != nil {
		return models.TradingStatus{}, fmt.Errorf("parse start date %q: %w", e.settings.StartDate, err)
	}

	quotes := make([]models.StockQuote, 0, len(records))
	for _, stock := range records {
		quotes = append(quotes, models.StockQuote{Symbol: stock.Symbol, Price: stock.CurrentPrice})
	}

	status := models.TradingStatus{
		IsActive:    false,
		CurrentDate: models.TradingDate(startDate),
		StockPrices: quotes,
	}
	e.feed.Publish(status)

	log.Println("Simulation reset complete")
	return status, nil
}

func (e *TradingEngine) saveSettings(ctx context.Context) error {
	return e.store.Save(ctx, settingsFile, e.settings)
}
