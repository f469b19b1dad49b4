package main

import (
	"context"
	"log"
	"os"

	"paper-exchange/controllers"
	"paper-exchange/db"
	"paper-exchange/models"
	"paper-exchange/routes"
	"paper-exchange/storage"
	"paper-exchange/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func newStore() storage.DocumentStore {
	if os.Getenv("STORAGE_DRIVER") == "file" {
		dir := os.Getenv("STORAGE_DIR")
		if dir == "" {
			dir = "storage-data"
		}
		store, err := storage.NewFileStore(dir)
		if err != nil {
			log.Fatalf("File storage init failed: %v", err)
		}
		log.Println("Using file storage at", dir)
		return store
	}

	db.ConnectDB()
	return storage.NewMongoStore(db.GetDB())
}

func main() {
	godotenv.Load()

	store := newStore()
	ctx := context.Background()

	stocks := controllers.NewStockService(store)
	if err := stocks.Seed(ctx); err != nil {
		log.Fatalf("Stock seeding failed: %v", err)
	}
	brokers := controllers.NewBrokerService(store, stocks)
	engine := controllers.NewTradingEngine(store, stocks)

	// Initialize the WebSocket hub and bridge the status feed into it.
	hub := models.NewHub()
	go hub.Run()
	engine.Subscribe(func(status models.TradingStatus) {
		hub.Broadcast <- models.WSMessage{Event: "tradingStatus", Data: status}
	})

	if err := engine.Initialize(ctx); err != nil {
		log.Fatalf("Trading engine init failed: %v", err)
	}

	// Initialize routes
	r := gin.Default()
	r.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(hub, engine, c.Writer, c.Request)
	})
	routes.StockRoutes(r, controllers.NewStockController(stocks))
	routes.BrokerRoutes(r, controllers.NewBrokerController(brokers))
	routes.TradingRoutes(r, controllers.NewTradingController(engine))

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	log.Println("Server running on port", port)
	r.Run(":" + port)
}
