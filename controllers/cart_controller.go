package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smart-cart-service/apperrors"
	"smart-cart-service/logger"
	"smart-cart-service/sensors"
	"smart-cart-service/services"
)

type CartController struct {
	Sessions *services.SessionService
	Monitor  *sensors.ScaleMonitor
}

func NewCartController(sessions *services.SessionService, monitor *sensors.ScaleMonitor) *CartController {
	return &CartController{
		Sessions: sessions,
		Monitor:  monitor,
	}
}

type addItemRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

// StartSession opens a new shopping session and arms change detection on
// the scale.
func (cc *CartController) StartSession(c *gin.Context) {
	session, err := cc.Sessions.StartSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	cc.Monitor.SetChangeDetection(true)
	c.JSON(http.StatusCreated, session)
}

// GetSession returns the in-memory active session
func (cc *CartController) GetSession(c *gin.Context) {
	session := cc.Sessions.GetActiveSession()
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// AddItem scans one item into the active session
func (cc *CartController) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	session, err := cc.Sessions.AddItem(c.Request.Context(), req.ItemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// RemoveItem takes one unit of an item out of the active session
func (cc *CartController) RemoveItem(c *gin.Context) {
	itemID := c.Param("item_id")

	session, err := cc.Sessions.RemoveItem(c.Request.Context(), itemID, 1)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Checkout completes the session and returns the receipt snapshot. The
// scale is re-tared for the next shopper.
func (cc *CartController) Checkout(c *gin.Context) {
	session, err := cc.Sessions.CompleteSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	cc.Monitor.SetChangeDetection(false)
	if err := cc.Monitor.Tare(); err != nil {
		logger.Log.Warn("post-checkout tare failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "checkout complete",
		"session": session,
	})
}

// Abandon terminates the session without checkout
func (cc *CartController) Abandon(c *gin.Context) {
	session, err := cc.Sessions.AbandonSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	cc.Monitor.SetChangeDetection(false)
	c.JSON(http.StatusOK, gin.H{
		"message": "session abandoned",
		"session": session,
	})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
