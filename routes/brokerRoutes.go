package routes

import (
	"paper-exchange/controllers"

	"github.com/gin-gonic/gin"
)

func BrokerRoutes(r *gin.Engine, bc *controllers.BrokerController) {
	r.POST("/api/brokers", bc.CreateBrokerHandler)
	r.GET("/api/brokers", bc.GetBrokersHandler)
	r.GET("/api/brokers/:id", bc.GetBrokerHandler)
	r.PATCH("/api/brokers/:id", bc.UpdateBrokerHandler)
	r.DELETE("/api/brokers/:id", bc.DeleteBrokerHandler)
	r.POST("/api/brokers/:id/trades", bc.ExecuteTradeHandler)
}
