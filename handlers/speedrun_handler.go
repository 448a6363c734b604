package handlers

import (
	"net/http"
	"strconv"

	"arcadia/services"

	"github.com/gin-gonic/gin"
)

type SpeedrunHandler struct {
	speedrunService    *services.SpeedrunService
	achievementService *services.AchievementService
}

func NewSpeedrunHandler(speedrunService *services.SpeedrunService, achievementService *services.AchievementService) *SpeedrunHandler {
	return &SpeedrunHandler{
		speedrunService:    speedrunService,
		achievementService: achievementService,
	}
}

func (h *SpeedrunHandler) SubmitSpeedrun(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.SubmitSpeedrunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	run, err := h.speedrunService.SubmitSpeedrun(userID, &req, h.achievementService)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusCreated, run)
}

func (h *SpeedrunHandler) GetLeaderboard(c *gin.Context) {
	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.speedrunService.GetLeaderboard(boardID, c.Query("category"), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	respondData(c, http.StatusOK, entries)
}

func (h *SpeedrunHandler) GetMySpeedruns(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	runs, err := h.speedrunService.GetUserSpeedruns(userID, limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	respondData(c, http.StatusOK, runs)
}

func (h *SpeedrunHandler) VerifySpeedrun(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	runID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	run, err := h.speedrunService.VerifySpeedrun(runID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, run)
}
