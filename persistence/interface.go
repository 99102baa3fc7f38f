// persistence/interface.go
package persistence

import (
	"errors"

	"github.com/wfunc/showdown/models"
)

// Database stores finished-match records. Live game state never goes
// through here; rooms are memory-only.
type Database interface {
	SaveMatchRecord(record *models.MatchRecord) error
	MatchHistory(roomCode string, limit int) ([]models.MatchRecord, error)
	PlayerStats(playerName string) (*models.PlayerStats, error)
	Close() error
}

var ErrRecordNotFound = errors.New("record not found")
