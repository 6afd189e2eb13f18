package models

import "time"

// User is a player account. EloRating is mutated only inside the two-party
// rating transaction at game end.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	HashedPassword string    `gorm:"not null" json:"-"`
	EloRating      float64   `gorm:"default:1200" json:"elo_rating"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`

	// Aggregate stats, maintained by the game log service.
	GamesPlayed        int `gorm:"default:0" json:"games_played"`
	GamesWon           int `gorm:"default:0" json:"games_won"`
	GamesLost          int `gorm:"default:0" json:"games_lost"`
	GamesDrawn         int `gorm:"default:0" json:"games_drawn"`
	GoatsCapturedTotal int `gorm:"default:0" json:"goats_captured_total"`
}
