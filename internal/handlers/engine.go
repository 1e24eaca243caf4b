package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftfolio/engine/internal/logger"
	"github.com/craftfolio/engine/internal/services"
)

type EngineHandler struct {
	log    *logger.Logger
	engine services.Orchestrator
}

func NewEngineHandler(log *logger.Logger, engine services.Orchestrator) *EngineHandler {
	return &EngineHandler{
		log:    log.With("handler", "EngineHandler"),
		engine: engine,
	}
}

type analyzeUploadBody struct {
	UserID    uuid.UUID `json:"user_id" binding:"required"`
	ArtworkID uuid.UUID `json:"artwork_id" binding:"required"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	ImageURLs []string  `json:"image_urls"`
	SessionID string    `json:"session_id"`
}

// POST /api/engine/analyze
func (h *EngineHandler) AnalyzeUpload(c *gin.Context) {
	var body analyzeUploadBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.engine.AnalyzeUpload(c.Request.Context(), services.UploadAnalysisRequest{
		UserID:    body.UserID,
		ArtworkID: body.ArtworkID,
		Title:     body.Title,
		Text:      body.Text,
		ImageURLs: body.ImageURLs,
		SessionID: body.SessionID,
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "analysis_failed", err)
		return
	}
	RespondOK(c, result)
}

type userActionBody struct {
	UserID    uuid.UUID      `json:"user_id" binding:"required"`
	Action    string         `json:"action" binding:"required"`
	TargetID  *uuid.UUID     `json:"target_id"`
	Metadata  map[string]any `json:"metadata"`
	SessionID string         `json:"session_id"`
}

// POST /api/engine/actions
func (h *EngineHandler) HandleUserAction(c *gin.Context) {
	var body userActionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.engine.HandleUserAction(c.Request.Context(), services.UserActionRequest{
		UserID:    body.UserID,
		Action:    body.Action,
		TargetID:  body.TargetID,
		Metadata:  body.Metadata,
		SessionID: body.SessionID,
	}); err != nil {
		RespondError(c, http.StatusInternalServerError, "action_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/engine/recommendations/:userID
func (h *EngineHandler) GetRecommendations(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
		return
	}
	result, err := h.engine.GenerateRecommendations(c.Request.Context(), userID, c.Query("session_id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "recommendations_failed", err)
		return
	}
	RespondOK(c, result)
}

type reportBody struct {
	ReporterID  uuid.UUID `json:"reporter_id" binding:"required"`
	ContentID   uuid.UUID `json:"content_id" binding:"required"`
	ContentType string    `json:"content_type" binding:"required"`
	Reason      string    `json:"reason"`
	Category    string    `json:"category" binding:"required"`
	Evidence    string    `json:"evidence"`
}

// POST /api/engine/reports
func (h *EngineHandler) HandleReport(c *gin.Context) {
	var body reportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	outcome, err := h.engine.HandleReport(c.Request.Context(), services.ReportRequest{
		ReporterID:  body.ReporterID,
		ContentID:   body.ContentID,
		ContentType: body.ContentType,
		Reason:      body.Reason,
		Category:    body.Category,
		Evidence:    body.Evidence,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "report_failed", err)
		return
	}
	RespondOK(c, outcome)
}

// GET /api/engine/status
func (h *EngineHandler) GetStatus(c *gin.Context) {
	RespondOK(c, h.engine.Status())
}

// PATCH /api/engine/config
func (h *EngineHandler) UpdateConfig(c *gin.Context) {
	var patch services.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	h.engine.UpdateConfiguration(patch)
	RespondOK(c, h.engine.Status().Config)
}

type shutdownBody struct {
	Reason string `json:"reason"`
}

// POST /api/engine/shutdown
func (h *EngineHandler) EmergencyShutdown(c *gin.Context) {
	var body shutdownBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Reason == "" {
		RespondError(c, http.StatusBadRequest, "missing_reason", errors.New("shutdown requires a reason"))
		return
	}
	h.engine.EmergencyShutdown(body.Reason)
	c.Status(http.StatusNoContent)
}

// POST /api/engine/restart
func (h *EngineHandler) Restart(c *gin.Context) {
	h.engine.Restart(c.Request.Context())
	c.Status(http.StatusNoContent)
}
