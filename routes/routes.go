package routes

import (
	"backend/controllers"
	"backend/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRouter(cc *controllers.CaptureController, hc *controllers.HistoryController, rc *controllers.RealtimeController) *gin.Engine {
	r := gin.Default()

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.GET("/me", middlewares.AuthMiddleware(), controllers.GetProfile)
	}

	// Capture pipeline
	capture := r.Group("/capture")
	capture.Use(middlewares.AuthMiddleware())
	{
		capture.POST("/analyze", cc.Analyze)
		capture.POST("/clarify/:id", cc.Clarify)
		capture.GET("/:id", cc.GetSession)
	}

	// Record history
	records := r.Group("/records")
	records.Use(middlewares.AuthMiddleware())
	{
		records.GET("", hc.GetHistory)
		records.GET("/summary", hc.GetDailySummary)
	}

	// Realtime events
	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware())
	{
		ws.GET("", rc.EventsWS)
	}

	// Dev tooling
	dev := r.Group("/dev")
	dev.Use(middlewares.AuthMiddleware())
	{
		dev.POST("/reference-foods", controllers.DevSeedReferenceFoods)
		dev.POST("/upload-image", controllers.DevUploadImage)
	}

	return r
}
