package services

import (
	"errors"
	"fmt"

	"arcadia/game"
	"arcadia/models"

	"gorm.io/gorm"
)

type BoardService struct {
	db *gorm.DB
}

func NewBoardService(db *gorm.DB) *BoardService {
	return &BoardService{db: db}
}

type CreateBoardRequest struct {
	Title        string                `json:"title" binding:"required,max=120"`
	Description  string                `json:"description"`
	GameCategory string                `json:"game_category"`
	Difficulty   string                `json:"difficulty"`
	Size         int                   `json:"size" binding:"required,min=3,max=6"`
	CellTexts    []string              `json:"cell_texts" binding:"required"`
	Settings     *models.BoardSettings `json:"settings"`
}

type UpdateBoardRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	GameCategory string                `json:"game_category"`
	Difficulty   string                `json:"difficulty"`
	CellTexts    []string              `json:"cell_texts"`
	Settings     *models.BoardSettings `json:"settings"`
}

func (s *BoardService) CreateBoard(userID uint, req *CreateBoardRequest) (*models.Board, error) {
	grid := game.NewBoard(req.Size, req.CellTexts)
	if err := game.ValidateBoard(grid); err != nil {
		return nil, err
	}
	if len(req.CellTexts) != req.Size*req.Size {
		return nil, &game.ValidationError{Invariant: fmt.Sprintf("expected %d cell texts, got %d", req.Size*req.Size, len(req.CellTexts))}
	}

	board := models.Board{
		Title:        req.Title,
		Description:  req.Description,
		CreatorID:    userID,
		GameCategory: req.GameCategory,
		Difficulty:   req.Difficulty,
		Size:         req.Size,
		Status:       models.BoardStatusDraft,
	}
	if err := board.SetCellGrid(grid); err != nil {
		return nil, err
	}

	settings := models.DefaultBoardSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := board.SetSettings(settings); err != nil {
		return nil, err
	}

	if err := s.db.Create(&board).Error; err != nil {
		return nil, err
	}

	return &board, nil
}

// UpdateBoard edits a board while it is still a draft. Published boards are
// immutable except through cloning.
func (s *BoardService) UpdateBoard(boardID, userID uint, req *UpdateBoardRequest) (*models.Board, error) {
	var board models.Board
	if err := s.db.Where("id = ? AND creator_id = ?", boardID, userID).First(&board).Error; err != nil {
		return nil, errors.New("board not found")
	}

	if board.Status != models.BoardStatusDraft {
		return nil, errors.New("only draft boards can be edited")
	}

	if req.Title != "" {
		board.Title = req.Title
	}
	if req.Description != "" {
		board.Description = req.Description
	}
	if req.GameCategory != "" {
		board.GameCategory = req.GameCategory
	}
	if req.Difficulty != "" {
		board.Difficulty = req.Difficulty
	}

	if req.CellTexts != nil {
		grid := game.NewBoard(board.Size, req.CellTexts)
		if err := game.ValidateBoard(grid); err != nil {
			return nil, err
		}
		if len(req.CellTexts) != board.Size*board.Size {
			return nil, &game.ValidationError{Invariant: fmt.Sprintf("expected %d cell texts, got %d", board.Size*board.Size, len(req.CellTexts))}
		}
		grid.Version = board.Version + 1
		if err := board.SetCellGrid(grid); err != nil {
			return nil, err
		}
	}

	if req.Settings != nil {
		if err := board.SetSettings(*req.Settings); err != nil {
			return nil, err
		}
	}

	if err := s.db.Save(&board).Error; err != nil {
		return nil, err
	}

	return &board, nil
}

// PublishBoard validates the board one last time and makes it visible to
// everyone.
func (s *BoardService) PublishBoard(boardID, userID uint) (*models.Board, error) {
	var board models.Board
	if err := s.db.Where("id = ? AND creator_id = ?", boardID, userID).First(&board).Error; err != nil {
		return nil, errors.New("board not found")
	}

	grid, err := board.CellGrid()
	if err != nil {
		return nil, err
	}
	if err := game.ValidateBoard(grid); err != nil {
		return nil, err
	}

	board.IsPublic = true
	board.Status = models.BoardStatusActive
	if err := s.db.Save(&board).Error; err != nil {
		return nil, err
	}

	return &board, nil
}

// CloneBoard copies a public board into the caller's drafts. cloned_from is
// a back-reference, not an ownership link.
func (s *BoardService) CloneBoard(boardID, userID uint) (*models.Board, error) {
	var source models.Board
	if err := s.db.First(&source, boardID).Error; err != nil {
		return nil, errors.New("board not found")
	}
	if !source.IsPublic && source.CreatorID != userID {
		return nil, errors.New("board is not public")
	}

	sourceID := source.ID
	clone := models.Board{
		Title:        source.Title,
		Description:  source.Description,
		CreatorID:    userID,
		GameCategory: source.GameCategory,
		Difficulty:   source.Difficulty,
		Size:         source.Size,
		BoardState:   source.BoardState,
		Settings:     source.Settings,
		Status:       models.BoardStatusDraft,
		ClonedFrom:   &sourceID,
	}

	if err := s.db.Create(&clone).Error; err != nil {
		return nil, err
	}

	return &clone, nil
}

func (s *BoardService) ArchiveBoard(boardID, userID uint) error {
	result := s.db.Model(&models.Board{}).
		Where("id = ? AND creator_id = ?", boardID, userID).
		Updates(map[string]interface{}{"status": models.BoardStatusArchived, "is_public": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("board not found")
	}
	return nil
}

func (s *BoardService) VoteBoard(boardID uint) error {
	result := s.db.Model(&models.Board{}).Where("id = ? AND is_public = ?", boardID, true).
		Update("votes", gorm.Expr("votes + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("board not found")
	}
	return nil
}

func (s *BoardService) BookmarkBoard(boardID uint) error {
	result := s.db.Model(&models.Board{}).Where("id = ? AND is_public = ?", boardID, true).
		Update("bookmark_count", gorm.Expr("bookmark_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("board not found")
	}
	return nil
}

func (s *BoardService) GetBoardByID(boardID, userID uint) (*models.Board, error) {
	var board models.Board
	if err := s.db.First(&board, boardID).Error; err != nil {
		return nil, errors.New("board not found")
	}
	if !board.IsPublic && board.CreatorID != userID {
		return nil, errors.New("board not found")
	}
	return &board, nil
}

func (s *BoardService) GetUserBoards(userID uint) ([]models.Board, error) {
	var boards []models.Board
	err := s.db.Where("creator_id = ?", userID).Order("updated_at DESC").Find(&boards).Error
	return boards, err
}

func (s *BoardService) GetPublicBoards(category string, limit int) ([]models.Board, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := s.db.Where("is_public = ? AND status = ?", true, models.BoardStatusActive)
	if category != "" {
		query = query.Where("game_category = ?", category)
	}

	var boards []models.Board
	err := query.Order("votes DESC").Limit(limit).Find(&boards).Error
	return boards, err
}
