package services

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"baghchal-server/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ReplayService persists and serves finished-game move lists.
type ReplayService struct {
	DB *gorm.DB
}

func NewReplayService(db *gorm.DB) *ReplayService {
	return &ReplayService{DB: db}
}

// SaveReplay stores the accumulated move list for a finished match.
func (s *ReplayService) SaveReplay(gameID string, player1, player2, winnerID uint, moves []json.RawMessage) error {
	raw, err := json.Marshal(moves)
	if err != nil {
		return err
	}
	return s.DB.Create(&models.Replay{
		GameID:    gameID,
		Player1ID: player1,
		Player2ID: player2,
		WinnerID:  winnerID,
		MovesJSON: string(raw),
	}).Error
}

// GetReplay handles GET /replay/:game_id.
func (s *ReplayService) GetReplay(c *fiber.Ctx) error {
	gameID := c.Params("game_id")

	var replay models.Replay
	if err := s.DB.First(&replay, "game_id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "replay not found"})
		}
		log.Printf("[REPLAY] DB error fetching %s: %v", gameID, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	var moves []json.RawMessage
	if err := json.Unmarshal([]byte(replay.MovesJSON), &moves); err != nil {
		moves = nil
	}
	return c.JSON(fiber.Map{
		"game_id":    replay.GameID,
		"player1_id": replay.Player1ID,
		"player2_id": replay.Player2ID,
		"winner_id":  replay.WinnerID,
		"moves":      moves,
		"created_at": replay.CreatedAt,
	})
}

// GetUserReplays handles GET /replay/user/:user_id.
func (s *ReplayService) GetUserReplays(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("user_id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid user id"})
	}
	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var replays []models.Replay
	if err := s.DB.
		Where("player1_id = ? OR player2_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&replays).Error; err != nil {
		log.Printf("[REPLAY] DB error listing for user %d: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	out := make([]fiber.Map, len(replays))
	for i, r := range replays {
		out[i] = fiber.Map{
			"game_id":    r.GameID,
			"player1_id": r.Player1ID,
			"player2_id": r.Player2ID,
			"winner_id":  r.WinnerID,
			"created_at": r.CreatedAt,
		}
	}
	return c.JSON(out)
}
