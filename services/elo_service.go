package services

import (
	"errors"
	"math"

	"baghchal-server/models"

	"gorm.io/gorm"
)

// KFactor is the Elo sensitivity constant.
const KFactor = 32

// ExpectedScore is the logistic win expectancy of a player rated ratingA
// against one rated ratingB (base 10, scale 400).
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/400.0))
}

// NewRating applies one Elo update step.
func NewRating(current, expected, actual float64) float64 {
	return current + KFactor*(actual-expected)
}

// RatingChange holds a single player's rating before and after settlement.
type RatingChange struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

// EloResult reports both sides of a settled game.
type EloResult struct {
	Winner RatingChange `json:"winner"`
	Loser  RatingChange `json:"loser"`
}

// EloService applies pairwise rating updates to user records.
type EloService struct {
	DB *gorm.DB
}

func NewEloService(db *gorm.DB) *EloService {
	return &EloService{DB: db}
}

// UpdateRatings settles a finished game between two users in one
// transaction. For a draw both actual scores are 0.5; winner/loser ordering
// is then arbitrary. If either user record is missing the whole update is a
// no-op and the result is nil.
func (s *EloService) UpdateRatings(winnerID, loserID uint, isDraw bool) (*EloResult, error) {
	var result *EloResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var winner, loser models.User
		if err := tx.First(&winner, winnerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.First(&loser, loserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		winnerActual, loserActual := 1.0, 0.0
		if isDraw {
			winnerActual, loserActual = 0.5, 0.5
		}

		winnerBefore := winner.EloRating
		loserBefore := loser.EloRating
		winner.EloRating = NewRating(winnerBefore, ExpectedScore(winnerBefore, loserBefore), winnerActual)
		loser.EloRating = NewRating(loserBefore, ExpectedScore(loserBefore, winnerBefore), loserActual)

		if err := tx.Model(&models.User{}).Where("id = ?", winner.ID).
			Update("elo_rating", winner.EloRating).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", loser.ID).
			Update("elo_rating", loser.EloRating).Error; err != nil {
			return err
		}

		result = &EloResult{
			Winner: RatingChange{Before: winnerBefore, After: winner.EloRating},
			Loser:  RatingChange{Before: loserBefore, After: loser.EloRating},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
