package network

import (
	"github.com/wfunc/showdown/game"
)

// Wire payloads. Every packet body is JSON; field names match the
// canonical GameState serialization so clients can reuse one decoder.

type CreateRoomRequest struct {
	HostID string      `json:"hostId"`
	Config game.Config `json:"config"`
}

type ResumeHostRequest struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

type SelectTeamRequest struct {
	Team game.Team `json:"team"`
}

type LockActionRequest struct {
	Action game.ActionType `json:"action"`
}

// UpdateConfigRequest is a partial config edit; nil fields are left
// unchanged.
type UpdateConfigRequest struct {
	TickDuration *int `json:"tickDuration,omitempty"`
	SlotsPerSide *int `json:"slotsPerSide,omitempty"`
}

type ErrorReply struct {
	Message string `json:"message"`
}

type RoomCreatedReply struct {
	RoomCode string `json:"roomCode"`
}

// ClientPlayer is the slice of a player record a controller needs
// about itself.
type ClientPlayer struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Team game.Team `json:"team"`
	Slot int       `json:"slot"`
}

type JoinedReply struct {
	Player   ClientPlayer `json:"player"`
	RoomCode string       `json:"roomCode"`
}

type ActionLockedEvent struct {
	PlayerID string `json:"playerId"`
}

type RoundStartEvent struct {
	Tick      int   `json:"tick"`
	Duration  int   `json:"duration"` // ms
	StartTime int64 `json:"startTime"`
}

type RoundEndEvent struct {
	Tick    int           `json:"tick"`
	Bullets []game.Bullet `json:"bullets"`
	State   *game.State   `json:"state"`
}

type GameEndedEvent struct {
	Winner string `json:"winner"`
}
