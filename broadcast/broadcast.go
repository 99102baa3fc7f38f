// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/showdown/session"
)

var ErrNoRecipients = errors.New("no sessions in room")

// Broadcaster fans messages out to rooms or individual sessions.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, msgID uint16, data []byte) error
	SendToSession(sessionID string, msgID uint16, data []byte) error
}

// SessionBroadcaster routes by the session manager's room bindings. A
// send failure skips the session; the read loop notices the dead
// connection and cleans it up.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{
		sessionManager: sessionManager,
	}
}

func (b *SessionBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	sessions := b.sessionManager.GetByRoom(roomCode)
	if len(sessions) == 0 {
		return ErrNoRecipients
	}

	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) SendToSession(sessionID string, msgID uint16, data []byte) error {
	s, exists := b.sessionManager.Get(sessionID)
	if !exists {
		return errors.New("session not found")
	}
	return s.Send(msgID, data)
}
