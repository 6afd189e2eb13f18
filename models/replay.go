package models

import "time"

// Replay stores the full accepted-move list of a finished match as JSON.
type Replay struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GameID    string    `gorm:"uniqueIndex;not null" json:"game_id"`
	Player1ID uint      `gorm:"index;not null" json:"player1_id"` // goat side
	Player2ID uint      `gorm:"index;not null" json:"player2_id"` // tiger side
	WinnerID  uint      `json:"winner_id"`
	MovesJSON string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
