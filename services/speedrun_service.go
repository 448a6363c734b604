package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"arcadia/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Plausibility floor: a run faster than this per cell is rejected as
// fabricated rather than ranked.
const minSecondsPerCell = 0.15

type SpeedrunService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewSpeedrunService(db *gorm.DB, redis *redis.Client) *SpeedrunService {
	return &SpeedrunService{
		db:    db,
		redis: redis,
	}
}

type SubmitSpeedrunRequest struct {
	BoardID     uint                     `json:"board_id" binding:"required"`
	TimeSeconds float64                  `json:"time_seconds" binding:"required,gt=0"`
	Category    string                   `json:"category"`
	Metadata    *models.SpeedrunMetadata `json:"metadata"`
}

type LeaderboardEntry struct {
	UserID      uint    `json:"user_id"`
	TimeSeconds float64 `json:"time_seconds"`
	Rank        int64   `json:"rank"`
}

// SubmitSpeedrun records a timed run, recomputes the user's personal best
// and updates the per-board redis leaderboard.
func (s *SpeedrunService) SubmitSpeedrun(userID uint, req *SubmitSpeedrunRequest, achievements *AchievementService) (*models.Speedrun, error) {
	var board models.Board
	if err := s.db.First(&board, req.BoardID).Error; err != nil {
		return nil, errors.New("board not found")
	}
	if !board.IsPublic && board.CreatorID != userID {
		return nil, errors.New("board not found")
	}

	floor := minSecondsPerCell * float64(board.Size*board.Size)
	if req.TimeSeconds < floor {
		return nil, fmt.Errorf("time %.2fs is below the plausibility floor of %.2fs for this board", req.TimeSeconds, floor)
	}

	category := req.Category
	if category == "" {
		category = "any"
	}

	run := models.Speedrun{
		UserID:      userID,
		BoardID:     board.ID,
		TimeSeconds: req.TimeSeconds,
		Category:    category,
	}
	if req.Metadata != nil {
		if err := run.SetMetadata(*req.Metadata); err != nil {
			return nil, err
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var best models.Speedrun
		err := tx.Where("user_id = ? AND board_id = ? AND category = ? AND is_personal_best = ?", userID, board.ID, category, true).
			First(&best).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			run.IsPersonalBest = true
		case err != nil:
			return err
		case req.TimeSeconds < best.TimeSeconds:
			run.IsPersonalBest = true
			if err := tx.Model(&best).Update("is_personal_best", false).Error; err != nil {
				return err
			}
		}

		return tx.Create(&run).Error
	})
	if err != nil {
		return nil, err
	}

	if run.IsPersonalBest {
		run.Rank = s.updateLeaderboard(board.ID, category, userID, req.TimeSeconds)
		if run.Rank > 0 {
			s.db.Model(&run).Update("rank", run.Rank)
		}

		if achievements != nil {
			if run.Rank == 1 {
				if _, _, err := achievements.RecordProgress(userID, "world_record", 1); err != nil {
					log.Printf("Failed to record world_record for user %d: %v", userID, err)
				}
			}
			// Sub-minute runs on a full-size board earn speed_demon.
			if board.Size >= 5 && req.TimeSeconds < 60 {
				if _, _, err := achievements.RecordProgress(userID, "speed_demon", 1); err != nil {
					log.Printf("Failed to record speed_demon for user %d: %v", userID, err)
				}
			}
		}
	}

	return &run, nil
}

// GetLeaderboard reads the top runs for a board from redis, falling back to
// the database when the sorted set is cold.
func (s *SpeedrunService) GetLeaderboard(boardID uint, category string, limit int) ([]LeaderboardEntry, error) {
	if category == "" {
		category = "any"
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	ctx := context.Background()
	key := leaderboardKey(boardID, category)

	members, err := s.redis.ZRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err == nil && len(members) > 0 {
		entries := make([]LeaderboardEntry, 0, len(members))
		for i, m := range members {
			var userID uint
			if _, err := fmt.Sscanf(m.Member.(string), "%d", &userID); err != nil {
				continue
			}
			entries = append(entries, LeaderboardEntry{
				UserID:      userID,
				TimeSeconds: m.Score,
				Rank:        int64(i + 1),
			})
		}
		return entries, nil
	}
	if err != nil && err != redis.Nil {
		log.Printf("Redis error reading leaderboard %s, falling back to database: %v", key, err)
	}

	var runs []models.Speedrun
	err = s.db.Where("board_id = ? AND category = ? AND is_personal_best = ?", boardID, category, true).
		Order("time_seconds ASC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(runs))
	for i, run := range runs {
		entries = append(entries, LeaderboardEntry{
			UserID:      run.UserID,
			TimeSeconds: run.TimeSeconds,
			Rank:        int64(i + 1),
		})
		s.redis.ZAdd(ctx, key, redis.Z{
			Score:  run.TimeSeconds,
			Member: fmt.Sprintf("%d", run.UserID),
		})
	}
	return entries, nil
}

func (s *SpeedrunService) GetUserSpeedruns(userID uint, limit int) ([]models.Speedrun, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var runs []models.Speedrun
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// VerifySpeedrun flags a run as reviewed. Only the board creator can verify
// runs on their board.
func (s *SpeedrunService) VerifySpeedrun(runID, reviewerID uint) (*models.Speedrun, error) {
	var run models.Speedrun
	if err := s.db.Preload("Board").First(&run, runID).Error; err != nil {
		return nil, errors.New("speedrun not found")
	}
	if run.Board.CreatorID != reviewerID {
		return nil, errors.New("only the board creator can verify runs")
	}

	if err := s.db.Model(&run).Update("verified", true).Error; err != nil {
		return nil, err
	}
	run.Verified = true
	return &run, nil
}

// updateLeaderboard writes the time into the board's sorted set, keeping
// only the member's best score, and returns the 1-based rank. Rank 0 means
// redis was unavailable.
func (s *SpeedrunService) updateLeaderboard(boardID uint, category string, userID uint, timeSeconds float64) int64 {
	ctx := context.Background()
	key := leaderboardKey(boardID, category)
	member := fmt.Sprintf("%d", userID)

	// ZAdd with GT inverted: lower is better for times, so only overwrite
	// when the new score is smaller.
	current, err := s.redis.ZScore(ctx, key, member).Result()
	if err == nil && current <= timeSeconds {
		rank, rankErr := s.redis.ZRank(ctx, key, member).Result()
		if rankErr != nil {
			return 0
		}
		return rank + 1
	}
	if err != nil && err != redis.Nil {
		log.Printf("Redis error updating leaderboard %s: %v", key, err)
		return 0
	}

	if err := s.redis.ZAdd(ctx, key, redis.Z{Score: timeSeconds, Member: member}).Err(); err != nil {
		log.Printf("Redis error updating leaderboard %s: %v", key, err)
		return 0
	}

	rank, err := s.redis.ZRank(ctx, key, member).Result()
	if err != nil {
		return 0
	}
	return rank + 1
}

func leaderboardKey(boardID uint, category string) string {
	return fmt.Sprintf("leaderboard:%d:%s", boardID, category)
}
