package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"paper-exchange/controllers"
	"paper-exchange/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for simplicity; adjust in production
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades the connection, attaches the client to the hub, and
// pushes the current trading settings so a fresh client can render state
// before the next tick arrives.
func ServeWs(h *models.Hub, engine *controllers.TradingEngine, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	client := &models.Client{Conn: conn, Send: make(chan models.WSMessage, 256)}
	h.Register <- client

	go client.WritePump()
	go client.ReadPump(h)

	client.Send <- models.WSMessage{
		Event: "tradingSettings",
		Data:  engine.Settings(),
	}
}
