// room/manager.go
package room

import (
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/showdown/game"
	"github.com/wfunc/showdown/logger"
	"github.com/wfunc/showdown/network"
	"github.com/wfunc/showdown/timer"
)

// Room codes avoid I and O so they survive being read off a screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"
const codeLength = 4

// Manager is the process-wide registry: room code -> Room and
// participant id (player or host) -> room code. Registry maps have
// their own lock; room mutation goes through each room's own mutex, so
// one room's resolution never stalls another room's join.
type Manager struct {
	rooms        map[string]*Room
	participants map[string]string
	mutex        sync.RWMutex

	bounds      Bounds
	broadcaster Broadcaster
	recorder    Recorder
	metrics     Metrics
	timers      *timer.Manager
	rng         *rand.Rand // guarded by mutex
}

func NewManager(bounds Bounds, broadcaster Broadcaster, recorder Recorder,
	metrics Metrics, timers *timer.Manager) *Manager {
	return &Manager{
		rooms:        make(map[string]*Room),
		participants: make(map[string]string),
		bounds:       bounds,
		broadcaster:  broadcaster,
		recorder:     recorder,
		metrics:      metrics,
		timers:       timers,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom mints a unique code, creates the room and routes the host
// to it.
func (m *Manager) CreateRoom(hostID string, cfg game.Config) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	code := m.generateCode()
	roomRNG := rand.New(rand.NewSource(m.rng.Int63()))
	r := newRoom(code, hostID, cfg, m.bounds, m.broadcaster, m.recorder, m.metrics, m.timers, roomRNG)
	m.rooms[code] = r
	m.participants[hostID] = code

	if m.metrics != nil {
		m.metrics.RoomOpened()
	}
	logger.Log.Infow("room created", "room", code, "host", hostID)
	return r
}

// generateCode draws codes until one is free. Caller holds the lock.
func (m *Manager) generateCode() string {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeAlphabet[m.rng.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}

// GetRoom returns the room with the given code.
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	r, exists := m.rooms[code]
	return r, exists
}

// RoomByParticipant resolves a player or host id to its room.
func (m *Manager) RoomByParticipant(id string) (*Room, bool) {
	m.mutex.RLock()
	code, ok := m.participants[id]
	if !ok {
		m.mutex.RUnlock()
		return nil, false
	}
	r, exists := m.rooms[code]
	m.mutex.RUnlock()
	return r, exists
}

// Join routes the player into the room and adds the registry mapping.
func (m *Manager) Join(playerID, code, name string) (network.ClientPlayer, error) {
	r, exists := m.GetRoom(code)
	if !exists {
		return network.ClientPlayer{}, ErrRoomNotFound
	}

	player, err := r.Join(playerID, name)
	if err != nil {
		return network.ClientPlayer{}, err
	}

	m.mutex.Lock()
	m.participants[playerID] = code
	m.mutex.Unlock()
	return player, nil
}

// ResumeHost reattaches a host to its room after a reconnect.
func (m *Manager) ResumeHost(code, hostID string) (*game.State, error) {
	r, exists := m.GetRoom(code)
	if !exists {
		return nil, ErrRoomNotFound
	}

	snapshot, err := r.ResumeHost(hostID)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	m.participants[hostID] = code
	m.mutex.Unlock()
	return snapshot, nil
}

// Detach drops a participant's routing entry only. The player record
// stays in the room for reconnection.
func (m *Manager) Detach(participantID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.participants, participantID)
}

// EndSession tears down the room and every routing entry pointing at
// it.
func (m *Manager) EndSession(code string) error {
	m.mutex.Lock()
	r, exists := m.rooms[code]
	if !exists {
		m.mutex.Unlock()
		return ErrRoomNotFound
	}
	delete(m.rooms, code)
	m.mutex.Unlock()

	r.close()

	m.mutex.Lock()
	for _, id := range r.PlayerIDs() {
		if m.participants[id] == code {
			delete(m.participants, id)
		}
	}
	if m.participants[r.HostID] == code {
		delete(m.participants, r.HostID)
	}
	m.mutex.Unlock()

	if m.metrics != nil {
		m.metrics.RoomClosed()
	}
	logger.Log.Infow("room ended", "room", code)
	return nil
}

// RoomCount returns the number of live rooms.
func (m *Manager) RoomCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}
