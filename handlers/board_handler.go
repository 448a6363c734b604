package handlers

import (
	"net/http"
	"strconv"

	"arcadia/services"

	"github.com/gin-gonic/gin"
)

type BoardHandler struct {
	boardService       *services.BoardService
	achievementService *services.AchievementService
}

func NewBoardHandler(boardService *services.BoardService, achievementService *services.AchievementService) *BoardHandler {
	return &BoardHandler{
		boardService:       boardService,
		achievementService: achievementService,
	}
}

func (h *BoardHandler) CreateBoard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	board, err := h.boardService.CreateBoard(userID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusCreated, board)
}

func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	var req services.UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	board, err := h.boardService.UpdateBoard(boardID, userID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, board)
}

func (h *BoardHandler) PublishBoard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	board, err := h.boardService.PublishBoard(boardID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if h.achievementService != nil {
		h.achievementService.RecordBoardPublished(userID)
	}

	respondData(c, http.StatusOK, board)
}

func (h *BoardHandler) CloneBoard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	clone, err := h.boardService.CloneBoard(boardID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusCreated, clone)
}

func (h *BoardHandler) ArchiveBoard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.boardService.ArchiveBoard(boardID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"archived": true})
}

func (h *BoardHandler) VoteBoard(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.boardService.VoteBoard(boardID); err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"voted": true})
}

func (h *BoardHandler) BookmarkBoard(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.boardService.BookmarkBoard(boardID); err != nil {
		respondDomainError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"bookmarked": true})
}

func (h *BoardHandler) GetBoardByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := parseID(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	board, err := h.boardService.GetBoardByID(boardID, userID)
	if err != nil {
		respondError(c, http.StatusNotFound, "not_found", err)
		return
	}

	respondData(c, http.StatusOK, board)
}

func (h *BoardHandler) GetUserBoards(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boards, err := h.boardService.GetUserBoards(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	respondData(c, http.StatusOK, boards)
}

func (h *BoardHandler) GetPublicBoards(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	boards, err := h.boardService.GetPublicBoards(c.Query("category"), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}

	respondData(c, http.StatusOK, boards)
}

func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
