package routes

import (
	"paper-exchange/controllers"

	"github.com/gin-gonic/gin"
)

func TradingRoutes(r *gin.Engine, tc *controllers.TradingController) {
	r.GET("/api/trading/settings", tc.GetSettingsHandler)
	r.PATCH("/api/trading/settings", tc.UpdateSettingsHandler)
	r.POST("/api/trading/start", tc.StartTradingHandler)
	r.POST("/api/trading/stop", tc.StopTradingHandler)
	r.POST("/api/trading/reset", tc.ResetSimulationHandler)
}
