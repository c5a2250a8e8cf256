package routes

import (
	"github.com/gin-gonic/gin"

	"smart-cart-service/controllers"
	"smart-cart-service/sensors"
	"smart-cart-service/services"
)

func RegisterRoutes(
	r *gin.Engine,
	sessions *services.SessionService,
	relay *services.ActivityRelay,
	monitor *sensors.ScaleMonitor,
	ledger services.Ledger,
) {
	cart := controllers.NewCartController(sessions, monitor)
	scale := controllers.NewScaleController(monitor)
	logs := controllers.NewLogController(relay)
	status := controllers.NewStatusController(ledger, sessions, monitor)

	session := r.Group("/session")
	{
		session.POST("/start", cart.StartSession)
		session.GET("", cart.GetSession)
		session.POST("/items", cart.AddItem)
		session.DELETE("/items/:item_id", cart.RemoveItem)
		session.POST("/checkout", cart.Checkout)
		session.POST("/abandon", cart.Abandon)
	}

	scaleGroup := r.Group("/scale")
	{
		scaleGroup.GET("/weight", scale.GetWeight)
		scaleGroup.POST("/tare", scale.Tare)
	}

	logGroup := r.Group("/logs")
	{
		logGroup.GET("", logs.GetLogs)
		logGroup.POST("/replay", logs.Replay)
	}

	r.GET("/status", status.Status)
}
