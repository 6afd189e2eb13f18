package services

import (
	"errors"
	"log"
	"math"
	"strconv"

	"baghchal-server/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserService serves player profiles, stats and the rating leaderboard.
type UserService struct {
	DB   *gorm.DB
	Logs *GameLogService
}

func NewUserService(db *gorm.DB, logs *GameLogService) *UserService {
	return &UserService{DB: db, Logs: logs}
}

type userStats struct {
	GamesPlayed        int     `json:"games_played"`
	GamesWon           int     `json:"games_won"`
	GamesLost          int     `json:"games_lost"`
	GamesDrawn         int     `json:"games_drawn"`
	GoatsCapturedTotal int     `json:"goats_captured_total"`
	WinRate            float64 `json:"win_rate"`
}

func statsOf(u *models.User) userStats {
	winRate := 0.0
	if u.GamesPlayed > 0 {
		winRate = math.Round(float64(u.GamesWon)/float64(u.GamesPlayed)*10000) / 100
	}
	return userStats{
		GamesPlayed:        u.GamesPlayed,
		GamesWon:           u.GamesWon,
		GamesLost:          u.GamesLost,
		GamesDrawn:         u.GamesDrawn,
		GoatsCapturedTotal: u.GoatsCapturedTotal,
		WinRate:            winRate,
	}
}

func (s *UserService) findUser(c *fiber.Ctx) (*models.User, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return nil, c.Status(400).JSON(fiber.Map{"error": "invalid user id"})
	}
	var user models.User
	if err := s.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(404).JSON(fiber.Map{"error": "user not found"})
		}
		log.Printf("[USERS] DB error fetching user %d: %v", id, err)
		return nil, c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	return &user, nil
}

// Leaderboard handles GET /users/all: all users ordered by rating.
func (s *UserService) Leaderboard(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 50)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	if err := s.DB.Order("elo_rating DESC").Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		log.Printf("[USERS] DB error listing users: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	out := make([]fiber.Map, len(users))
	for i, u := range users {
		out[i] = fiber.Map{
			"id":         u.ID,
			"username":   u.Username,
			"elo_rating": u.EloRating,
		}
	}
	return c.JSON(out)
}

// Profile handles GET /users/:id.
func (s *UserService) Profile(c *fiber.Ctx) error {
	user, err := s.findUser(c)
	if user == nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"elo_rating": user.EloRating,
		"created_at": user.CreatedAt,
		"stats":      statsOf(user),
	})
}

// Stats handles GET /users/:id/stats.
func (s *UserService) Stats(c *fiber.Ctx) error {
	user, err := s.findUser(c)
	if user == nil {
		return err
	}
	return c.JSON(statsOf(user))
}

// Games handles GET /users/:id/games: the user's game-log history.
func (s *UserService) Games(c *fiber.Ctx) error {
	user, err := s.findUser(c)
	if user == nil {
		return err
	}
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 20)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	logs, err := s.Logs.GamesByUser(user.ID, skip, limit)
	if err != nil {
		log.Printf("[USERS] DB error fetching games for user %d: %v", user.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}
	return c.JSON(logs)
}
