package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/craftfolio/engine/internal/handlers"
)

type RouterConfig struct {
	EngineHandler   *handlers.EngineHandler
	TrendingHandler *handlers.TrendingHandler
	GrowthHandler   *handlers.GrowthHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		engine := api.Group("/engine")
		{
			engine.POST("/analyze", cfg.EngineHandler.AnalyzeUpload)
			engine.POST("/actions", cfg.EngineHandler.HandleUserAction)
			engine.GET("/recommendations/:userID", cfg.EngineHandler.GetRecommendations)
			engine.POST("/reports", cfg.EngineHandler.HandleReport)
			engine.GET("/status", cfg.EngineHandler.GetStatus)
			engine.PATCH("/config", cfg.EngineHandler.UpdateConfig)
			engine.POST("/shutdown", cfg.EngineHandler.EmergencyShutdown)
			engine.POST("/restart", cfg.EngineHandler.Restart)
		}

		api.GET("/trending", cfg.TrendingHandler.ListTop)
		api.GET("/trending/:artworkID", cfg.TrendingHandler.GetForArtwork)

		users := api.Group("/users")
		{
			users.GET("/:userID/level", cfg.GrowthHandler.GetLevelProgress)
			users.POST("/:userID/achievements/evaluate", cfg.GrowthHandler.EvaluateAchievements)
			users.POST("/:userID/ratings/recompute", cfg.GrowthHandler.RecomputeRatings)
		}
	}

	return router
}
