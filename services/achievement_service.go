package services

import (
	"errors"
	"log"
	"time"

	"arcadia/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	db *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{db: db}
}

// RecordProgress advances a user's progress toward a catalogued achievement
// and reports whether this call unlocked it. Progress past an unlock is
// ignored, so redelivered triggers never notify twice.
func (s *AchievementService) RecordProgress(userID uint, name string, delta int) (*models.Achievement, bool, error) {
	def, ok := models.AchievementDefByName(name)
	if !ok {
		return nil, false, errors.New("unknown achievement: " + name)
	}

	var achievement models.Achievement
	var unlockedNow bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND name = ?", userID, name).
			First(&achievement).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			achievement = models.Achievement{
				UserID:      userID,
				Name:        def.Name,
				Category:    def.Category,
				Rarity:      def.Rarity,
				Points:      def.Points,
				MaxProgress: def.MaxProgress,
			}
			if err := tx.Create(&achievement).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		unlockedNow = achievement.ApplyProgress(delta, time.Now().UTC())
		return tx.Save(&achievement).Error
	})
	if err != nil {
		return nil, false, err
	}

	if unlockedNow {
		log.Printf("User %d unlocked achievement '%s' (%s, %d points)", userID, def.Name, def.Rarity, def.Points)
	}
	return &achievement, unlockedNow, nil
}

// RecordSessionWin fires the win-count achievements and announces any new
// unlock into the winner's session.
func (s *AchievementService) RecordSessionWin(sessionCode string, userID uint, hub *Hub) {
	for _, name := range []string{"first_win", "ten_wins", "hundred_wins"} {
		achievement, unlockedNow, err := s.RecordProgress(userID, name, 1)
		if err != nil {
			log.Printf("Failed to record win progress for user %d: %v", userID, err)
			continue
		}
		if unlockedNow && hub != nil {
			hub.broadcastToSession(sessionCode, Message{
				Type: models.EventAchievementUnlock,
				Payload: models.AchievementUnlockedPayload{
					UserID: userID,
					Name:   achievement.Name,
					Points: achievement.Points,
					Rarity: achievement.Rarity,
				},
			})
		}
	}
}

// RecordCellMark fires the mark-count achievements.
func (s *AchievementService) RecordCellMark(userID uint) {
	for _, name := range []string{"first_mark", "marksman"} {
		if _, _, err := s.RecordProgress(userID, name, 1); err != nil {
			log.Printf("Failed to record mark progress for user %d: %v", userID, err)
		}
	}
}

// RecordBoardPublished fires the creator achievements.
func (s *AchievementService) RecordBoardPublished(userID uint) {
	for _, name := range []string{"board_creator", "prolific_creator"} {
		if _, _, err := s.RecordProgress(userID, name, 1); err != nil {
			log.Printf("Failed to record publish progress for user %d: %v", userID, err)
		}
	}
}

// RecordSessionJoined fires the social achievement.
func (s *AchievementService) RecordSessionJoined(userID uint) {
	if _, _, err := s.RecordProgress(userID, "social_butterfly", 1); err != nil {
		log.Printf("Failed to record join progress for user %d: %v", userID, err)
	}
}

func (s *AchievementService) GetUserAchievements(userID uint) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.db.Where("user_id = ?", userID).Order("unlocked_at DESC NULLS LAST, progress DESC").Find(&achievements).Error
	return achievements, err
}

// GetCatalogue merges the static definitions with the user's progress so
// the client can render locked and unlocked entries in one list.
func (s *AchievementService) GetCatalogue(userID uint) ([]models.Achievement, error) {
	owned, err := s.GetUserAchievements(userID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]models.Achievement, len(owned))
	for _, a := range owned {
		byName[a.Name] = a
	}

	result := make([]models.Achievement, 0, len(models.AchievementCatalogue))
	for _, def := range models.AchievementCatalogue {
		if a, ok := byName[def.Name]; ok {
			result = append(result, a)
			continue
		}
		result = append(result, models.Achievement{
			UserID:      userID,
			Name:        def.Name,
			Category:    def.Category,
			Rarity:      def.Rarity,
			Points:      def.Points,
			MaxProgress: def.MaxProgress,
		})
	}
	return result, nil
}
