package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"arcadia/game"
	"arcadia/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService     *services.SessionService
	achievementService *services.AchievementService
	hub                *services.Hub
}

func NewSessionHandler(sessionService *services.SessionService, achievementService *services.AchievementService, hub *services.Hub) *SessionHandler {
	return &SessionHandler{
		sessionService:     sessionService,
		achievementService: achievementService,
		hub:                hub,
	}
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	session, err := h.sessionService.CreateSession(userID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusCreated, session)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionService.GetSessionByCode(c.Param("code"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

func (h *SessionHandler) GetSessionState(c *gin.Context) {
	state, err := h.sessionService.GetCurrentSessionState(c.Param("code"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, state)
}

func (h *SessionHandler) JoinSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	player, err := h.sessionService.JoinSession(c.Param("code"), userID, &req, h.hub)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if h.achievementService != nil {
		h.achievementService.RecordSessionJoined(userID)
	}

	respondData(c, http.StatusOK, player)
}

func (h *SessionHandler) LeaveSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.sessionService.LeaveSession(c.Param("code"), userID, h.hub); err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"left": true})
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.StartSession(c.Param("code"), userID, h.hub)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

func (h *SessionHandler) PauseSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.PauseSession(c.Param("code"), userID, h.hub)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

func (h *SessionHandler) ResumeSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.ResumeSession(c.Param("code"), userID, h.hub)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

func (h *SessionHandler) CancelSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.CancelSession(c.Param("code"), userID, h.hub)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

func (h *SessionHandler) MarkCell(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.MarkCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	session, err := h.sessionService.MarkCell(c.Param("code"), userID, &req, h.hub)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if h.achievementService != nil {
		h.achievementService.RecordCellMark(userID)
		if session.Status == game.StatusCompleted && session.WinnerID != nil {
			h.achievementService.RecordSessionWin(session.SessionCode, *session.WinnerID, h.hub)
		}
	}

	respondData(c, http.StatusOK, session)
}

func (h *SessionHandler) UnmarkCell(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.MarkCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	session, err := h.sessionService.UnmarkCell(c.Param("code"), userID, &req, h.hub)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, session)
}

// GetEvents serves the catch-up read for clients that saw a sequence gap.
func (h *SessionHandler) GetEvents(c *gin.Context) {
	since, _ := strconv.ParseInt(c.Query("since"), 10, 64)

	events, err := h.sessionService.GetEventsSince(strings.ToLower(c.Param("code")), since)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, events)
}
