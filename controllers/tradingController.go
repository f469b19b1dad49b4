package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TradingController handles the simulation control endpoints.
type TradingController struct {
	Engine *TradingEngine
}

func NewTradingController(engine *TradingEngine) *TradingController {
	return &TradingController{Engine: engine}
}

func (tc *TradingController) GetSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, tc.Engine.Settings())
}

func (tc *TradingController) UpdateSettingsHandler(c *gin.Context) {
	var update TradingSettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	settings, err := tc.Engine.UpdateSettings(ctx, update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (tc *TradingController) StartTradingHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	status, err := tc.Engine.Start(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (tc *TradingController) StopTradingHandler(c *gin.Context) {
	tc.Engine.Stop()
	c.Status(http.StatusNoContent)
}

func (tc *TradingController) ResetSimulationHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	status, err := tc.Engine.Reset(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}
