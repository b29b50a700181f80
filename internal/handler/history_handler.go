package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
)

// HistoryHandler serves completed attempts and the stats comparison view.
type HistoryHandler struct {
	historyService *service.HistoryService
	statsService   *service.StatsService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *service.HistoryService, statsService *service.StatsService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		statsService:   statsService,
	}
}

// List godoc
// GET /api/v1/history
// Returns the user's attempt history, newest first.
func (h *HistoryHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	entries, err := h.historyService.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": entries})
}

// Get godoc
// GET /api/v1/history/:attempt_id
// Returns one attempt's full frozen record for review.
func (h *HistoryHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.historyService.Get(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": result})
}

// Stats godoc
// GET /api/v1/history/:attempt_id/stats
// Returns rank and percentile for the attempt's test. Degrades to a local
// estimate when the remote provider is absent.
func (h *HistoryHandler) Stats(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.historyService.Get(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}

	stats, err := h.statsService.GetGlobalStats(c.Request.Context(), result.TestName, result.Summary.Score)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
