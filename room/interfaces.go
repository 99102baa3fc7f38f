package room

import (
	"time"

	"github.com/wfunc/showdown/models"
)

// Broadcaster delivers a message to every session routed to a room.
// Defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, data []byte) error
}

// Recorder persists finished matches. Implementations must tolerate
// being called from room goroutines; failures are the implementation's
// to log, rooms never block on them.
type Recorder interface {
	RecordMatch(record *models.MatchRecord) error
}

// Metrics receives room lifecycle and resolution observations.
type Metrics interface {
	RoomOpened()
	RoomClosed()
	RoundResolved(elapsed time.Duration)
}
