package app

import (
	"github.com/gin-gonic/gin"

	"github.com/craftfolio/engine/internal/server"
)

func wireRouter(cfg Config, h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		EngineHandler:   h.Engine,
		TrendingHandler: h.Trending,
		GrowthHandler:   h.Growth,
		AllowOrigins:    cfg.AllowOrigins,
	})
}
