package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-cart-service/sensors"
)

type ScaleController struct {
	Monitor *sensors.ScaleMonitor
}

func NewScaleController(monitor *sensors.ScaleMonitor) *ScaleController {
	return &ScaleController{Monitor: monitor}
}

// GetWeight returns the current smoothed weight estimate
func (sc *ScaleController) GetWeight(c *gin.Context) {
	grams := sc.Monitor.ReadWeight()
	c.JSON(http.StatusOK, gin.H{
		"grams": grams,
		"kg":    grams / 1000,
	})
}

// Tare zeroes the scale baseline without stopping the sampling loop
func (sc *ScaleController) Tare(c *gin.Context) {
	if err := sc.Monitor.Tare(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tare failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scale tared"})
}
