package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/services"
)

type GrowthHandler struct {
	log    *logger.Logger
	growth services.GrowthService
}

func NewGrowthHandler(log *logger.Logger, growth services.GrowthService) *GrowthHandler {
	return &GrowthHandler{
		log:    log.With("handler", "GrowthHandler"),
		growth: growth,
	}
}

// GET /api/users/:userID/level
func (h *GrowthHandler) GetLevelProgress(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	progress, err := h.growth.LevelProgressFor(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "level_lookup_failed", err)
		return
	}
	RespondOK(c, progress)
}

// POST /api/users/:userID/achievements/evaluate
func (h *GrowthHandler) EvaluateAchievements(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	unlocked, err := h.growth.EvaluateAchievements(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "achievement_check_failed", err)
		return
	}
	RespondOK(c, gin.H{"unlocked": unlocked})
}

// POST /api/users/:userID/ratings/recompute
func (h *GrowthHandler) RecomputeRatings(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	if err := h.growth.RecomputeRatings(c.Request.Context(), userID); err != nil {
		RespondError(c, http.StatusInternalServerError, "rating_recompute_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
