package app

import (
	"github.com/craftfolio/engine/internal/handlers"
	"github.com/craftfolio/engine/internal/logger"
)

type Handlers struct {
	Engine   *handlers.EngineHandler
	Trending *handlers.TrendingHandler
	Growth   *handlers.GrowthHandler
}

func wireHandlers(log *logger.Logger, s Services, r Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Engine:   handlers.NewEngineHandler(log, s.Orchestrator),
		Trending: handlers.NewTrendingHandler(log, r.Trending),
		Growth:   handlers.NewGrowthHandler(log, s.Growth),
	}
}
