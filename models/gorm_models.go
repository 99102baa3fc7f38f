// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormMatchRecord is the persisted match summary row.
type GormMatchRecord struct {
	gorm.Model
	RoomCode   string            `gorm:"index;not null"`
	Winner     string            `gorm:"not null"`
	Rounds     int               `gorm:"default:0"`
	DurationMs int64             `gorm:"default:0"`
	Players    []GormMatchPlayer `gorm:"foreignKey:MatchID"`
}

// GormMatchPlayer is one participant row of a match record.
type GormMatchPlayer struct {
	gorm.Model
	MatchID  uint   `gorm:"index;not null"`
	PlayerID string `gorm:"index;not null"`
	Name     string `gorm:"index;not null"`
	Team     string `gorm:"not null"`
	Outcome  string `gorm:"not null"` // win/lose/draw
	HPLeft   int    `gorm:"default:0"`
}
