package network

import (
	"errors"
	"regexp"
)

// Boundary validation: malformed payloads are rejected here before any
// command reaches a room.

var (
	ErrBadRoomCode = errors.New("invalid room code")
	ErrBadName     = errors.New("player name must be 1-20 characters")
	ErrBadPlayerID = errors.New("invalid player id")
	ErrBadAction   = errors.New("unknown action")
	ErrBadTeam     = errors.New("unknown team")
)

// Room codes are 4 letters from an alphabet without I and O.
var roomCodePattern = regexp.MustCompile(`^[A-HJ-NP-Z]{4}$`)

const MaxNameLength = 20

func ValidateRoomCode(code string) error {
	if !roomCodePattern.MatchString(code) {
		return ErrBadRoomCode
	}
	return nil
}

func (r *JoinRoomRequest) Validate() error {
	if err := ValidateRoomCode(r.RoomCode); err != nil {
		return err
	}
	if len(r.PlayerName) < 1 || len(r.PlayerName) > MaxNameLength {
		return ErrBadName
	}
	if r.PlayerID == "" {
		return ErrBadPlayerID
	}
	return nil
}

func (r *ResumeHostRequest) Validate() error {
	if err := ValidateRoomCode(r.RoomCode); err != nil {
		return err
	}
	if r.HostID == "" {
		return ErrBadPlayerID
	}
	return nil
}

func (r *SelectTeamRequest) Validate() error {
	if !r.Team.Valid() {
		return ErrBadTeam
	}
	return nil
}

func (r *LockActionRequest) Validate() error {
	if !r.Action.Valid() {
		return ErrBadAction
	}
	return nil
}
