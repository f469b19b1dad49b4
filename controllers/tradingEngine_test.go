package controllers

import (
	"context"
	"reflect"
	"regexp"
	"sync"
	"testing"
	"time"

	"paper-exchange/models"
	"paper-exchange/storage"

	"github.com/shopspring/decimal"
)

func newTestEngine(t *testing.T) (*TradingEngine, *StockService, storage.DocumentStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	stocks := NewStockService(store)
	return NewTradingEngine(store, stocks), stocks, store
}

// configure persists settings without starting the simulation.
func configure(t *testing.T, e *TradingEngine, startDate string, speedFactor float64) {
	t.Helper()
	_, err := e.UpdateSettings(context.Background(), TradingSettingsUpdate{
		StartDate:   startDate,
		SpeedFactor: speedFactor,
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
}

// statusRecorder collects published statuses behind a mutex so tests can
// observe timer-driven ticks.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []models.TradingStatus
}

func (r *statusRecorder) record(status models.TradingStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) snapshot() []models.TradingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TradingStatus(nil), r.statuses...)
}

func (r *statusRecorder) waitFor(t *testing.T, count int, timeout time.Duration) []models.TradingStatus {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := r.snapshot(); len(got) >= count {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d statuses, have %d", count, len(r.snapshot()))
	return nil
}

func TestEngine_InitializeCreatesDefaults(t *testing.T) {
	engine, _, store := newTestEngine(t)

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	settings := engine.Settings()
	if settings.SpeedFactor != 1 || settings.IsActive {
		t.Errorf("unexpected defaults: %+v", settings)
	}
	if settings.StartDate == "" {
		t.Error("default start date should be set")
	}

	// Defaults are written back immediately.
	var persisted models.TradingSettings
	found, err := store.Load(context.Background(), settingsFile, &persisted)
	if err != nil || !found {
		t.Fatalf("expected persisted settings, found=%v err=%v", found, err)
	}
	if persisted.SpeedFactor != 1 {
		t.Errorf("persisted defaults mismatch: %+v", persisted)
	}
}

func TestEngine_StartAdvancesOneDay(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	defer engine.Stop()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$100.00",
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 60)

	status, err := engine.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !status.IsActive {
		t.Error("status should be active after start")
	}
	if status.CurrentDate != "1/2/2023" {
		t.Errorf("status date = %q, want 1/2/2023", status.CurrentDate)
	}
	if len(status.StockPrices) != 1 || status.StockPrices[0].Symbol != "AAPL" {
		t.Errorf("unexpected quotes: %+v", status.StockPrices)
	}

	settings := engine.Settings()
	if settings.CurrentDate != "2023-01-02T00:00:00Z" {
		t.Errorf("settings date = %q, want 2023-01-02T00:00:00Z", settings.CurrentDate)
	}
}

func TestEngine_HistoricalReplay(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	defer engine.Stop()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$149.00",
		HistoricalData: []models.StockPrice{
			{Date: "1/2/2023", Open: "$150.00"},
		},
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 60)

	status, err := engine.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status.StockPrices[0].Price != "$150.00" {
		t.Errorf("expected historical replay of $150.00, got %q", status.StockPrices[0].Price)
	}

	record, err := stocks.FindOne(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if record.CurrentPrice != "$150.00" {
		t.Errorf("current price = %q, want $150.00", record.CurrentPrice)
	}
	if len(record.HistoricalData) != 1 {
		t.Errorf("replay must not append history, got %d entries", len(record.HistoricalData))
	}

	// Replaying the same date again yields the same price, never a fresh
	// random one. A second start rewinds to the start date.
	status, err = engine.Start(context.Background())
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if status.StockPrices[0].Price != "$150.00" {
		t.Errorf("replay not idempotent: got %q", status.StockPrices[0].Price)
	}
}

var priceFormat = regexp.MustCompile(`^\$\d+\.\d{2}$`)

func TestEngine_SynthesizedPrice(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	defer engine.Stop()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$100.00",
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 60)

	if _, err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	record, err := stocks.FindOne(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if !priceFormat.MatchString(record.CurrentPrice) {
		t.Fatalf("synthesized price %q not in $X.XX form", record.CurrentPrice)
	}

	value, err := models.ParsePrice(record.CurrentPrice)
	if err != nil {
		t.Fatalf("ParsePrice: %v", err)
	}
	price, _ := value.Float64()
	if price < 95.00 || price > 105.00 {
		t.Errorf("synthesized price %v outside ±5%% of 100.00", price)
	}

	if len(record.HistoricalData) != 1 {
		t.Fatalf("expected exactly one appended entry, got %d", len(record.HistoricalData))
	}
	entry := record.HistoricalData[0]
	if entry.Date != "1/2/2023" || entry.Open != record.CurrentPrice {
		t.Errorf("unexpected history entry: %+v", entry)
	}
}

func TestEngine_InactiveStocksNotSimulated(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	defer engine.Stop()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$100.00",
	})
	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "CSCO",
		CompanyName:  "Cisco Systems, Inc.",
		IsActive:     false,
		CurrentPrice: "$47.84",
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 60)

	status, err := engine.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(status.StockPrices) != 1 || status.StockPrices[0].Symbol != "AAPL" {
		t.Errorf("tick status should cover active stocks only: %+v", status.StockPrices)
	}

	record, err := stocks.FindOne(context.Background(), "CSCO")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if record.CurrentPrice != "$47.84" || len(record.HistoricalData) != 0 {
		t.Errorf("inactive stock was mutated: %+v", record)
	}
}

func TestEngine_StopCancelsFurtherTicks(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$100.00",
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 0.3)

	recorder := &statusRecorder{}
	engine.Subscribe(recorder.record)

	if _, err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	engine.Stop()

	published := len(recorder.snapshot())
	time.Sleep(800 * time.Millisecond)

	if got := len(recorder.snapshot()); got != published {
		t.Errorf("statuses published after stop: had %d, now %d", published, got)
	}
	if engine.Settings().IsActive {
		t.Error("settings should be inactive after stop")
	}
}

func TestEngine_ResetRestoresBaseline(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	ctx := context.Background()

	history := []models.StockPrice{
		{Date: "12/27/2022", Open: "$396.00"},
		{Date: "12/28/2022", Open: "$397.00"},
		{Date: "12/29/2022", Open: "$398.00"},
		{Date: "12/30/2022", Open: "$399.00"},
		{Date: "12/31/2022", Open: "$400.00"},
	}
	mustCreate(t, stocks, models.StockRecord{
		Symbol:         "MSFT",
		CompanyName:    "Microsoft, Inc.",
		IsActive:       true,
		CurrentPrice:   "$400.00",
		HistoricalData: history,
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 60)

	// First start takes the baseline snapshot; the tick then diverges the
	// live record.
	if _, err := engine.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	engine.Stop()

	diverged, err := stocks.FindOne(ctx, "MSFT")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if len(diverged.HistoricalData) != 6 {
		t.Fatalf("expected simulation to append history, got %d entries", len(diverged.HistoricalData))
	}

	// The live isActive flag changes after the snapshot and must survive
	// the reset.
	if _, err := stocks.SetTradingStatus(ctx, "MSFT", false); err != nil {
		t.Fatalf("SetTradingStatus: %v", err)
	}

	status, err := engine.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if status.IsActive {
		t.Error("reset status should be inactive")
	}
	if status.CurrentDate != "1/1/2023" {
		t.Errorf("reset status date = %q, want 1/1/2023", status.CurrentDate)
	}

	restored, err := stocks.FindOne(ctx, "MSFT")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if restored.CurrentPrice != "$400.00" {
		t.Errorf("restored price = %q, want $400.00", restored.CurrentPrice)
	}
	if !reflect.DeepEqual(restored.HistoricalData, history) {
		t.Errorf("restored history mismatch: %+v", restored.HistoricalData)
	}
	if restored.IsActive {
		t.Error("reset must keep the live isActive flag, not the baseline's")
	}

	if engine.Settings().CurrentDate != "2023-01-01T00:00:00Z" {
		t.Errorf("settings date not rolled back: %q", engine.Settings().CurrentDate)
	}
}

func TestEngine_ResetFallsBackToStocksDocument(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	ctx := context.Background()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$182.52",
		HistoricalData: []models.StockPrice{
			{Date: "1/1/2023", Open: "$180.00"},
		},
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 60)

	// No start has happened, so no backup exists; reset falls back to the
	// raw stocks document and the record survives unchanged.
	status, err := engine.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if status.IsActive || status.CurrentDate != "1/1/2023" {
		t.Errorf("unexpected reset status: %+v", status)
	}

	record, err := stocks.FindOne(ctx, "AAPL")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if record.CurrentPrice != "$182.52" || len(record.HistoricalData) != 1 {
		t.Errorf("fallback reset should leave the record intact: %+v", record)
	}
}

func TestEngine_AutoResume(t *testing.T) {
	engine, stocks, store := newTestEngine(t)
	defer engine.Stop()
	ctx := context.Background()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$100.00",
	})
	persisted := models.TradingSettings{
		StartDate:   "2023-03-01T00:00:00Z",
		SpeedFactor: 60,
		IsActive:    true,
		CurrentDate: "2023-03-15T00:00:00Z",
	}
	if err := store.Save(ctx, settingsFile, persisted); err != nil {
		t.Fatalf("Save settings: %v", err)
	}

	recorder := &statusRecorder{}
	engine.Subscribe(recorder.record)

	if err := engine.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	settings := engine.Settings()
	if !settings.IsActive {
		t.Error("engine should resume the active simulation")
	}
	// Resuming goes through start, which rewinds to the start date and
	// runs one tick immediately.
	if settings.CurrentDate != "2023-03-02T00:00:00Z" {
		t.Errorf("resumed date = %q, want 2023-03-02T00:00:00Z", settings.CurrentDate)
	}
	if got := recorder.snapshot(); len(got) != 1 || got[0].CurrentDate != "3/2/2023" {
		t.Errorf("expected one resumed tick for 3/2/2023, got %+v", got)
	}
}

func TestEngine_UpdateSettingsStartsAndStops(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	defer engine.Stop()
	ctx := context.Background()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "AAPL",
		CompanyName:  "Apple, Inc.",
		IsActive:     true,
		CurrentPrice: "$100.00",
	})

	recorder := &statusRecorder{}
	engine.Subscribe(recorder.record)

	active := true
	if _, err := engine.UpdateSettings(ctx, TradingSettingsUpdate{
		StartDate:   "2023-01-01T00:00:00Z",
		SpeedFactor: 60,
		IsActive:    &active,
	}); err != nil {
		t.Fatalf("UpdateSettings(start): %v", err)
	}

	if !engine.Settings().IsActive {
		t.Error("flipping isActive on should start the simulation")
	}
	if len(recorder.snapshot()) != 1 {
		t.Errorf("expected the start side effect to tick once, got %d", len(recorder.snapshot()))
	}

	inactive := false
	if _, err := engine.UpdateSettings(ctx, TradingSettingsUpdate{
		StartDate:   "2023-01-01T00:00:00Z",
		SpeedFactor: 60,
		IsActive:    &inactive,
	}); err != nil {
		t.Fatalf("UpdateSettings(stop): %v", err)
	}
	if engine.Settings().IsActive {
		t.Error("flipping isActive off should stop the simulation")
	}
}

func TestEngine_DateRollsAcrossBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		startDate string
		want      []string
	}{
		{"month", "2023-01-30T00:00:00Z", []string{"1/31/2023", "2/1/2023", "2/2/2023"}},
		{"year", "2023-12-30T00:00:00Z", []string{"12/31/2023", "1/1/2024", "1/2/2024"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, stocks, _ := newTestEngine(t)
			defer engine.Stop()

			mustCreate(t, stocks, models.StockRecord{
				Symbol:       "AAPL",
				CompanyName:  "Apple, Inc.",
				IsActive:     true,
				CurrentPrice: "$100.00",
			})
			configure(t, engine, tc.startDate, 0.05)

			recorder := &statusRecorder{}
			engine.Subscribe(recorder.record)

			if _, err := engine.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			statuses := recorder.waitFor(t, len(tc.want), 5*time.Second)
			engine.Stop()

			for i, want := range tc.want {
				if statuses[i].CurrentDate != want {
					t.Errorf("tick %d date = %q, want %q", i, statuses[i].CurrentDate, want)
				}
			}
		})
	}
}

func TestEngine_TickErrorOnMalformedPrice(t *testing.T) {
	engine, stocks, _ := newTestEngine(t)
	defer engine.Stop()

	mustCreate(t, stocks, models.StockRecord{
		Symbol:       "BAD",
		CompanyName:  "Broken Corp.",
		IsActive:     true,
		CurrentPrice: "garbage",
	})
	configure(t, engine, "2023-01-01T00:00:00Z", 60)

	if _, err := engine.Start(context.Background()); err == nil {
		t.Fatal("expected start to surface the malformed price")
	}
}

func TestEngine_TickPeriodScalesWithSpeedFactor(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	cases := map[float64]time.Duration{
		0.5: 500 * time.Millisecond,
		1:   time.Second,
		2.5: 2500 * time.Millisecond,
		60:  time.Minute,
	}
	for speedFactor, want := range cases {
		engine.settings.SpeedFactor = speedFactor
		if got := engine.tickPeriod(); got != want {
			t.Errorf("tickPeriod(speedFactor=%v) = %v, want %v", speedFactor, got, want)
		}
	}
}

func TestRandomPriceChange_Bounds(t *testing.T) {
	price := decimal.NewFromInt(100)
	limit := decimal.NewFromInt(5)

	for i := 0; i < 1000; i++ {
		change := randomPriceChange(price)
		if change.Abs().GreaterThan(limit) {
			t.Fatalf("change %s exceeds ±5%% of 100", change)
		}
	}
}

func TestResolvePrice_FloorsAtOneCent(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for i := 0; i < 200; i++ {
		stock := models.StockRecord{Symbol: "PENNY", CurrentPrice: "$0.01"}
		if err := engine.resolvePrice(&stock, "1/2/2023"); err != nil {
			t.Fatalf("resolvePrice: %v", err)
		}
		value, err := models.ParsePrice(stock.CurrentPrice)
		if err != nil {
			t.Fatalf("ParsePrice(%q): %v", stock.CurrentPrice, err)
		}
		if value.LessThan(decimal.NewFromFloat(0.01)) {
			t.Fatalf("price fell below floor: %s", stock.CurrentPrice)
		}
	}
}
