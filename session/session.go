// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/showdown/network"
)

// Session is one live connection. PlayerID and HostID bind the
// connection to the identities it authenticated as (opaque,
// client-supplied); RoomCode routes room broadcasts to it.
type Session struct {
	ID         string
	Conn       network.Connection
	PlayerID   string
	HostID     string
	RoomCode   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

// BindPlayer attaches a player identity and room to the session.
func (s *Session) BindPlayer(playerID, roomCode string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.PlayerID = playerID
	s.RoomCode = roomCode
}

// BindHost attaches a host identity and room to the session.
func (s *Session) BindHost(hostID, roomCode string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.HostID = hostID
	s.RoomCode = roomCode
}

// Identity returns the participant id the session is bound to, host id
// taking precedence, and the room code.
func (s *Session) Identity() (participantID, roomCode string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.HostID != "" {
		return s.HostID, s.RoomCode
	}
	return s.PlayerID, s.RoomCode
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager tracks live sessions and answers room-wide lookups for the
// broadcaster.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByRoom returns every session currently routed to the room.
func (m *Manager) GetByRoom(roomCode string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, s := range m.sessions {
		_, code := s.Identity()
		if code == roomCode {
			result = append(result, s)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
