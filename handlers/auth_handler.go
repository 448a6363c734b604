package handlers

import (
	"net/http"

	"arcadia/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "registration_failed", err)
		return
	}

	respondData(c, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "invalid_credentials", err)
		return
	}

	respondData(c, http.StatusOK, resp)
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		respondError(c, http.StatusNotFound, "not_found", err)
		return
	}

	respondData(c, http.StatusOK, user)
}
