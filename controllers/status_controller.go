package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smart-cart-service/sensors"
	"smart-cart-service/services"
)

type StatusController struct {
	Ledger   services.Ledger
	Sessions *services.SessionService
	Monitor  *sensors.ScaleMonitor
}

func NewStatusController(ledger services.Ledger, sessions *services.SessionService, monitor *sensors.ScaleMonitor) *StatusController {
	return &StatusController{
		Ledger:   ledger,
		Sessions: sessions,
		Monitor:  monitor,
	}
}

// Status reports connectivity, the active session, and the live weight
func (st *StatusController) Status(c *gin.Context) {
	sessionID := ""
	if session := st.Sessions.GetActiveSession(); session != nil {
		sessionID = session.SessionID
	}

	c.JSON(http.StatusOK, gin.H{
		"online":         st.Ledger.Online(),
		"active_session": sessionID,
		"weight_grams":   st.Monitor.ReadWeight(),
	})
}
