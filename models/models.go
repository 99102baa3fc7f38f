// models/models.go
package models

import (
	"time"
)

// MatchRecord is the persisted summary of one finished game.
type MatchRecord struct {
	RoomCode  string        `json:"room_code"`
	Winner    string        `json:"winner"` // team name or "draw"
	Rounds    int           `json:"rounds"`
	Players   []MatchPlayer `json:"players"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// MatchPlayer is one participant's line in a match record.
type MatchPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Team     string `json:"team"`
	Outcome  string `json:"outcome"` // win/lose/draw
	HPLeft   int    `json:"hp_left"`
}

// PlayerStats is the aggregate of one display name across matches.
type PlayerStats struct {
	TotalGames int `json:"total_games"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Draws      int `json:"draws"`
}
