package models

import "time"

// GameLog is the immutable outcome record of one finished match.
type GameLog struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	MatchID string `gorm:"index;not null" json:"match_id"`

	TigerPlayerID uint  `gorm:"index;not null" json:"tiger_player_id"`
	GoatPlayerID  uint  `gorm:"index;not null" json:"goat_player_id"`
	WinnerID      *uint `json:"winner_id,omitempty"` // nil for a draw

	Result          string `gorm:"type:varchar(16);not null" json:"result"` // tiger_win / goat_win / draw
	GoatsCaptured   int    `gorm:"default:0" json:"goats_captured"`
	TotalMoves      int    `gorm:"default:0" json:"total_moves"`
	GameDurationSec int    `gorm:"default:0" json:"game_duration_sec"`

	TigerEloBefore float64 `json:"tiger_elo_before"`
	TigerEloAfter  float64 `json:"tiger_elo_after"`
	GoatEloBefore  float64 `json:"goat_elo_before"`
	GoatEloAfter   float64 `json:"goat_elo_after"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
