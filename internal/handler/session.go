package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fastclick/internal/dto"
	"fastclick/internal/model"
	"fastclick/internal/repository"
	"fastclick/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionController is the part of *service.SessionGate the HTTP layer drives.
type SessionController interface {
	Snapshot() service.GateSnapshot
	Open(ctx context.Context, event string, endsAt time.Time, openedBy *uuid.UUID) (*model.Session, error)
	Close(ctx context.Context) error
}

// Broadcaster serves the live countdown stream.
type Broadcaster interface {
	Serve(w http.ResponseWriter, r *http.Request, initial interface{})
}

type SessionHandler struct {
	gate     SessionController
	sessions repository.SessionRepository
	hub      Broadcaster
}

func NewSessionHandler(gate SessionController, sessions repository.SessionRepository, hub Broadcaster) *SessionHandler {
	return &SessionHandler{gate: gate, sessions: sessions, hub: hub}
}

// SessionStatusFromSnapshot is the wire form of a gate snapshot, shared by the
// status endpoint and the websocket feed.
func SessionStatusFromSnapshot(s service.GateSnapshot) dto.SessionStatusResponse {
	resp := dto.SessionStatusResponse{
		Open:             s.State == service.GateOpen,
		State:            s.State.String(),
		EndsAt:           s.EndsAt,
		RemainingSeconds: int64(s.Remaining / time.Second),
		Remaining:        service.FormatRemaining(s.Remaining),
	}
	if s.SessionID != nil {
		id := s.SessionID.String()
		resp.SessionID = &id
	}
	if s.Event != "" {
		ev := s.Event
		resp.Event = &ev
	}
	return resp
}

func sessionToResponse(s *model.Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:       s.ID.String(),
		Event:    s.Event,
		Status:   s.Status,
		StartsAt: s.StartsAt,
		EndsAt:   s.EndsAt,
		ClosedAt: s.ClosedAt,
	}
}

// Status godoc
// @Summary Current sale session and time remaining
// @Tags session
// @Produce json
// @Success 200 {object} dto.SessionStatusResponse
// @Router /v1/session [get]
func (h *SessionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, SessionStatusFromSnapshot(h.gate.Snapshot()))
}

// WS godoc
// @Summary Live session countdown over WebSocket
// @Tags session
// @Router /v1/session/ws [get]
func (h *SessionHandler) WS(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request, SessionStatusFromSnapshot(h.gate.Snapshot()))
}

// Open godoc
// @Summary Open a sale session
// @Tags session
// @Accept json
// @Produce json
// @Param body body dto.OpenSessionRequest true "Event and end time"
// @Success 201 {object} dto.SessionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/session [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req dto.OpenSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	var openedBy *uuid.UUID
	if id := claims(c).UUID(); id != uuid.Nil {
		openedBy = &id
	}
	sess, err := h.gate.Open(c.Request.Context(), req.Event, req.EndsAt, openedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionToResponse(sess))
}

// Close godoc
// @Summary Close the open session now
// @Tags session
// @Produce json
// @Success 200 {object} dto.SessionStatusResponse
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/session/close [post]
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.gate.Close(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SessionStatusFromSnapshot(h.gate.Snapshot()))
}

// List godoc
// @Summary Recent sessions, newest first
// @Tags session
// @Produce json
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} dto.SessionResponse
// @Security BearerAuth
// @Router /v1/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	rows, err := h.sessions.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dto.SessionResponse, len(rows))
	for i := range rows {
		out[i] = sessionToResponse(&rows[i])
	}
	c.JSON(http.StatusOK, out)
}
