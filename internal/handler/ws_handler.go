package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/service"
	ws "github.com/quizforge/quizforge-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a running attempt over WebSocket: client actions in,
// state snapshots and countdown ticks out.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Upgrades to WebSocket for real-time attempt interaction. The server
// pushes a countdown tick every second and a full state snapshot after
// every accepted action.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	// The attempt must be alive before we pay for an upgrade.
	if _, err := h.attemptService.State(attemptID, claims.UserID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running attempt"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	userID := claims.UserID
	wsLog := h.log.With().
		Int("user_id", userID).
		Str("attempt_id", attemptID.String()).
		Logger()

	wsLog.Info().Msg("Attempt stream connected")

	// Reader goroutine feeds actions; the main loop owns all writes so the
	// ticker and action responses never interleave on the connection.
	actions := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(actions)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			actions <- raw
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case raw, ok := <-actions:
			if !ok {
				err := <-readErr
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			if done := h.handleAction(c, conn, wsLog, attemptID, userID, raw); done {
				return
			}

		case <-ticker.C:
			state, err := h.attemptService.State(attemptID, userID)
			if err != nil {
				// Reaped by the expiry worker between ticks.
				ws.WriteTyped(conn, ws.DoneResponse{Event: ws.EventDone, Forced: true})
				return
			}
			ws.WriteTyped(conn, ws.TickResponse{
				Event:     ws.EventTick,
				Remaining: state.Remaining,
				Paused:    state.Paused,
			})
		}
	}
}

// handleAction dispatches one client action. Returns true when the stream
// should end (attempt submitted).
func (h *WSHandler) handleAction(c *gin.Context, conn *websocket.Conn, wsLog zerolog.Logger, attemptID uuid.UUID, userID int, raw []byte) bool {
	var envelope ws.RequestEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		ws.WriteError(conn, "malformed message")
		return false
	}

	var (
		state model.AttemptState
		err   error
	)

	switch envelope.Action {
	case ws.ActionPing:
		ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		return false

	case ws.ActionVisit:
		var req ws.VisitRequest
		if e := json.Unmarshal(raw, &req); e != nil {
			ws.WriteError(conn, "malformed visit")
			return false
		}
		state, err = h.attemptService.Visit(attemptID, userID, req.Index)

	case ws.ActionAnswer:
		var req ws.AnswerRequest
		if e := json.Unmarshal(raw, &req); e != nil || req.QID == "" {
			ws.WriteError(conn, "q_id is required")
			return false
		}
		state, err = h.attemptService.Answer(attemptID, userID, req.QID, req.Answer)

	case ws.ActionMark:
		var req ws.MarkRequest
		if e := json.Unmarshal(raw, &req); e != nil || req.QID == "" {
			ws.WriteError(conn, "q_id is required")
			return false
		}
		state, err = h.attemptService.ToggleMark(attemptID, userID, req.QID)

	case ws.ActionPause:
		state, err = h.attemptService.Pause(attemptID, userID)

	case ws.ActionResume:
		state, err = h.attemptService.Resume(attemptID, userID)

	case ws.ActionSubmit:
		result, submitErr := h.attemptService.Submit(c.Request.Context(), attemptID, userID)
		if submitErr != nil {
			ws.WriteError(conn, submitErr.Error())
			return false
		}
		wsLog.Info().Float64("score", result.Summary.Score).Msg("Attempt submitted over stream")
		ws.WriteTyped(conn, ws.DoneResponse{
			Event: ws.EventDone,
			Score: result.Summary.Score,
		})
		return true

	default:
		wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
		ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		return false
	}

	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			ws.WriteError(conn, "attempt no longer running")
			return true
		}
		ws.WriteError(conn, err.Error())
		return false
	}

	ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, State: state})
	return false
}
