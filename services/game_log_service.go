package services

import (
	"baghchal-server/models"

	"gorm.io/gorm"
)

// GameLogService appends finished-game records and maintains the per-user
// aggregate stats derived from them.
type GameLogService struct {
	DB *gorm.DB
}

func NewGameLogService(db *gorm.DB) *GameLogService {
	return &GameLogService{DB: db}
}

// LogGame writes the outcome record and bumps both players' stats in one
// transaction. entry.WinnerID nil means a draw.
func (s *GameLogService) LogGame(entry *models.GameLog) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		var tiger, goat models.User
		if err := tx.First(&tiger, entry.TigerPlayerID).Error; err != nil {
			return err
		}
		if err := tx.First(&goat, entry.GoatPlayerID).Error; err != nil {
			return err
		}

		tiger.GamesPlayed++
		goat.GamesPlayed++
		switch {
		case entry.WinnerID == nil:
			tiger.GamesDrawn++
			goat.GamesDrawn++
		case *entry.WinnerID == entry.TigerPlayerID:
			tiger.GamesWon++
			goat.GamesLost++
		default:
			goat.GamesWon++
			tiger.GamesLost++
		}
		tiger.GoatsCapturedTotal += entry.GoatsCaptured

		if err := tx.Save(&tiger).Error; err != nil {
			return err
		}
		return tx.Save(&goat).Error
	})
}

// GamesByUser returns the user's game history, newest first.
func (s *GameLogService) GamesByUser(userID uint, offset, limit int) ([]models.GameLog, error) {
	var logs []models.GameLog
	err := s.DB.
		Where("tiger_player_id = ? OR goat_player_id = ?", userID, userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&logs).Error
	return logs, err
}
