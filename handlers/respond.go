package handlers

import (
	"errors"
	"net/http"

	"arcadia/game"

	"github.com/gin-gonic/gin"
)

// Every response wears the same envelope: {"success": true, "data": ...} or
// {"success": false, "error": ..., "code": ...}.

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
}

// respondDomainError maps domain sentinels onto HTTP statuses and stable
// error codes clients can branch on.
func respondDomainError(c *gin.Context, err error) {
	var validationErr *game.ValidationError

	switch {
	case errors.Is(err, game.ErrVersionConflict):
		respondError(c, http.StatusConflict, "version_conflict", err)
	case errors.Is(err, game.ErrAlreadyMarked):
		respondError(c, http.StatusConflict, "already_marked", err)
	case errors.Is(err, game.ErrNotMarked):
		respondError(c, http.StatusConflict, "not_marked", err)
	case errors.Is(err, game.ErrInvalidPosition):
		respondError(c, http.StatusBadRequest, "invalid_position", err)
	case errors.Is(err, game.ErrNotHost):
		respondError(c, http.StatusForbidden, "not_host", err)
	case errors.Is(err, game.ErrInsufficientPlayers):
		respondError(c, http.StatusConflict, "insufficient_players", err)
	case errors.Is(err, game.ErrSessionPaused):
		respondError(c, http.StatusConflict, "session_paused", err)
	case errors.Is(err, game.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "session_not_found", err)
	case errors.Is(err, game.ErrSessionTerminal):
		respondError(c, http.StatusConflict, "session_over", err)
	case errors.Is(err, game.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "invalid_transition", err)
	case errors.As(err, &validationErr):
		respondError(c, http.StatusUnprocessableEntity, "invalid_board", err)
	default:
		respondError(c, http.StatusBadRequest, "bad_request", err)
	}
}

// currentUserID pulls the authenticated user set by the auth middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "unauthorized", errors.New("user not authenticated"))
		return 0, false
	}
	return userID.(uint), true
}
