package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/runtime"
	"github.com/quizforge/quizforge-backend/internal/service"
	"github.com/quizforge/quizforge-backend/internal/validator"
	"github.com/rs/zerolog"
)

// AttemptHandler handles the attempt runtime endpoints. Every transition
// returns the post-transition attempt state so clients never drift.
type AttemptHandler struct {
	attemptService *service.AttemptService
	statsService   *service.StatsService
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, statsService *service.StatsService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		statsService:   statsService,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/attempts
// Starts an attempt over an open package. One active attempt per user.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Start(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptAlreadyActive):
			response.Fail(c, http.StatusConflict, response.ErrAttemptActive)
		case errors.Is(err, service.ErrPackageNotOpen):
			response.Fail(c, http.StatusNotFound, response.ErrPackageNotOpen)
		default:
			h.log.Error().Err(err).Msg("Start attempt failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": state})
}

// State godoc
// GET /api/v1/attempts/:attempt_id
// Returns the live view of a running attempt.
func (h *AttemptHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Visit godoc
// POST /api/v1/attempts/:attempt_id/visit
// Navigates to a question; time accrues against the question being left.
func (h *AttemptHandler) Visit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	var req model.VisitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Visit(attemptID, claims.UserID, req.Index)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Answer godoc
// POST /api/v1/attempts/:attempt_id/answer
// Records an answer; an empty answer string clears it.
func (h *AttemptHandler) Answer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.Answer(attemptID, claims.UserID, req.QuestionID, req.Answer)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Mark godoc
// POST /api/v1/attempts/:attempt_id/mark
// Toggles the marked-for-review flag.
func (h *AttemptHandler) Mark(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	var req model.MarkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.attemptService.ToggleMark(attemptID, claims.UserID, req.QuestionID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Pause godoc
// POST /api/v1/attempts/:attempt_id/pause
func (h *AttemptHandler) Pause(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.Pause(attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Resume godoc
// POST /api/v1/attempts/:attempt_id/resume
func (h *AttemptHandler) Resume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	state, err := h.attemptService.Resume(attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": state})
}

// Submit godoc
// POST /api/v1/attempts/:attempt_id/submit
// Terminal transition: grades the attempt, queues the result for
// persistence, and reports the score to the stats provider.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	attemptID, ok := parseAttemptID(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failAttempt(c, err)
		return
	}

	// The request context dies with the response; the push gets its own.
	go h.statsService.SubmitAttempt(context.Background(), result.TestName,
		result.Summary.Score, result.Summary.Accuracy, result.UserID)

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// parseAttemptID extracts and validates the attempt id path param. A false
// return means the error response was already written.
func parseAttemptID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failAttempt maps attempt runtime errors onto API error codes.
func failAttempt(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, runtime.ErrSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptSubmitted)
	case errors.Is(err, runtime.ErrUnknownQuestion):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, runtime.ErrIndexOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrIndexOutOfRange)
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"detail": err.Error()})
	}
}
