package routes

import (
	"paper-exchange/controllers"

	"github.com/gin-gonic/gin"
)

func StockRoutes(r *gin.Engine, sc *controllers.StockController) {
	r.POST("/api/stocks", sc.CreateStockHandler)
	r.GET("/api/stocks", sc.GetStocksHandler)
	r.GET("/api/stocks/:symbol", sc.GetStockHandler)
	r.PATCH("/api/stocks/:symbol", sc.UpdateStockHandler)
	r.DELETE("/api/stocks/:symbol", sc.DeleteStockHandler)
	r.PATCH("/api/stocks/:symbol/trading", sc.SetTradingStatusHandler)
}
