package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/repos"
)

type TrendingHandler struct {
	log      *logger.Logger
	trending repos.TrendingRepo
}

func NewTrendingHandler(log *logger.Logger, trending repos.TrendingRepo) *TrendingHandler {
	return &TrendingHandler{
		log:      log.With("handler", "TrendingHandler"),
		trending: trending,
	}
}

// GET /api/trending
func (h *TrendingHandler) ListTop(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	metrics, err := h.trending.ListTop(c.Request.Context(), nil, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "trending_failed", err)
		return
	}
	RespondOK(c, metrics)
}

// GET /api/trending/:artworkID
func (h *TrendingHandler) GetForArtwork(c *gin.Context) {
	artworkID, err := uuid.Parse(c.Param("artworkID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_artwork_id", err)
		return
	}
	metrics, err := h.trending.Get(c.Request.Context(), nil, artworkID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, metrics)
}
