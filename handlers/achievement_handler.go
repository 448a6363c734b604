package handlers

import (
	"net/http"

	"arcadia/services"

	"github.com/gin-gonic/gin"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
}

func NewAchievementHandler(achievementService *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
	}
}

func (h *AchievementHandler) GetMyAchievements(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	achievements, err := h.achievementService.GetUserAchievements(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	respondData(c, http.StatusOK, achievements)
}

func (h *AchievementHandler) GetCatalogue(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	catalogue, err := h.achievementService.GetCatalogue(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	respondData(c, http.StatusOK, catalogue)
}
