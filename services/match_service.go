// services/match_service.go
package services

import (
	"github.com/wfunc/showdown/models"
	"github.com/wfunc/showdown/persistence"
)

// MatchService sits between rooms and storage: it implements
// room.Recorder and answers the query side for the RPC surface.
type MatchService struct {
	db persistence.Database
}

func NewMatchService(db persistence.Database) *MatchService {
	return &MatchService{db: db}
}

// RecordMatch persists a finished game.
func (s *MatchService) RecordMatch(record *models.MatchRecord) error {
	return s.db.SaveMatchRecord(record)
}

// History returns the most recent matches played under a room code.
func (s *MatchService) History(roomCode string, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.db.MatchHistory(roomCode, limit)
}

// StatsFor aggregates one display name's outcomes across matches.
func (s *MatchService) StatsFor(playerName string) (*models.PlayerStats, error) {
	return s.db.PlayerStats(playerName)
}
