package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smart-cart-service/services"
)

type LogController struct {
	Relay *services.ActivityRelay
}

func NewLogController(relay *services.ActivityRelay) *LogController {
	return &LogController{Relay: relay}
}

// GetLogs returns recent activity, merging remote entries with anything
// still sitting in the offline replay queue.
func (lc *LogController) GetLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	activityType := c.Query("type")

	logs := lc.Relay.RecentLogs(c.Request.Context(), limit, activityType)
	c.JSON(http.StatusOK, gin.H{
		"count": len(logs),
		"logs":  logs,
	})
}

// Replay pushes the offline queue to the remote ledger on demand
func (lc *LogController) Replay(c *gin.Context) {
	synced, failed := lc.Relay.ReplayQueued(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"synced": synced,
		"failed": failed,
	})
}
