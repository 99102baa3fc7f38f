package game

// Team identifies one of the two sides of the arena.
type Team string

const (
	TeamSheriffs Team = "sheriffs"
	TeamOutlaws  Team = "outlaws"
)

// Opponent returns the opposing team.
func (t Team) Opponent() Team {
	if t == TeamSheriffs {
		return TeamOutlaws
	}
	return TeamSheriffs
}

// Valid reports whether t names a real team.
func (t Team) Valid() bool {
	return t == TeamSheriffs || t == TeamOutlaws
}

// ActionType is a player's chosen action for one round.
type ActionType string

const (
	ActionMoveUp        ActionType = "MOVE_UP"
	ActionMoveDown      ActionType = "MOVE_DOWN"
	ActionCover         ActionType = "COVER"
	ActionShootStraight ActionType = "SHOOT_STRAIGHT"
	ActionShootUp       ActionType = "SHOOT_UP"
	ActionShootDown     ActionType = "SHOOT_DOWN"
	ActionReload        ActionType = "RELOAD"
	ActionNone          ActionType = "NONE"
)

// Valid reports whether a names a known action.
func (a ActionType) Valid() bool {
	switch a {
	case ActionMoveUp, ActionMoveDown, ActionCover, ActionShootStraight,
		ActionShootUp, ActionShootDown, ActionReload, ActionNone:
		return true
	}
	return false
}

// IsShoot reports whether a fires a bullet.
func (a ActionType) IsShoot() bool {
	return a == ActionShootStraight || a == ActionShootUp || a == ActionShootDown
}

// IsMove reports whether a changes slots.
func (a ActionType) IsMove() bool {
	return a == ActionMoveUp || a == ActionMoveDown
}

// Phase is a room's lifecycle phase.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhasePlanning   Phase = "planning"
	PhaseResolution Phase = "resolution"
	PhaseEnded      Phase = "ended"
)

// Trajectory describes the lane a bullet travels relative to its shooter.
type Trajectory string

const (
	TrajectoryStraight Trajectory = "straight"
	TrajectoryUp       Trajectory = "up"
	TrajectoryDown     Trajectory = "down"
)

// HitKind is the resolved outcome of a bullet.
type HitKind string

const (
	HitPlayer HitKind = "player"
	HitBarrel HitKind = "barrel"
	HitBullet HitKind = "bullet"
	HitMiss   HitKind = "miss"
)

// SlotUnassigned is the slot value of a player who joined the room but
// is not placed on a team lane.
const SlotUnassigned = -1

// Combat constants.
const (
	MaxHP       = 3
	MaxAmmo     = 3
	StartAmmo   = 1
	BarrelMaxHP = 3
)

// Player is one participant's full game record. It lives for the whole
// room lifetime; combat fields are reset on game start and play-again.
type Player struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Team          Team       `json:"team"`
	Slot          int        `json:"slot"`
	HP            int        `json:"hp"`
	Ammo          int        `json:"ammo"`
	IsAlive       bool       `json:"isAlive"`
	ActionLocked  bool       `json:"actionLocked"`
	CurrentAction ActionType `json:"currentAction"`
	IsCovered     bool       `json:"isCovered"`
}

// InPlay reports whether p takes part in resolution this round.
func (p *Player) InPlay() bool {
	return p.IsAlive && p.Slot >= 0
}

// Barrel is the destructible cover object of one (team, slot) lane.
type Barrel struct {
	Team Team `json:"team"`
	Slot int  `json:"slot"`
	HP   int  `json:"hp"`
}

// Bullet is an ephemeral record of one resolved shot, consumed by
// renderers for the shot animation. It never outlives the round after
// the one it was produced in.
type Bullet struct {
	ID         string     `json:"id"`
	FromTeam   Team       `json:"fromTeam"`
	FromSlot   int        `json:"fromSlot"`
	ToSlot     int        `json:"toSlot"`
	Trajectory Trajectory `json:"trajectory"`
	Hit        HitKind    `json:"hit"`
}

// PendingAction is an audit entry of one accepted action lock. The
// resolver reads CurrentAction off the player records directly; this
// queue exists for observers.
type PendingAction struct {
	PlayerID string     `json:"playerId"`
	Action   ActionType `json:"action"`
}

// Config is a room's tunable settings.
type Config struct {
	TickDuration int `json:"tickDuration"` // ms
	SlotsPerSide int `json:"slotsPerSide"`
}

// State is the aggregate game state of one room. It is owned by the
// room; the resolver receives it as a snapshot and returns a fresh one.
type State struct {
	RoomCode        string          `json:"roomCode"`
	Phase           Phase           `json:"phase"`
	Tick            int             `json:"tick"`
	Config          Config          `json:"config"`
	Players         []*Player       `json:"players"`
	Barrels         []*Barrel       `json:"barrels"`
	Winner          string          `json:"winner,omitempty"` // team name, "draw" or empty
	TickStartTime   int64           `json:"tickStartTime,omitempty"`
	PendingActions  []PendingAction `json:"pendingActions"`
	LastTickBullets []Bullet        `json:"lastTickBullets"`

	// NextBulletID seeds bullet ids for the coming resolution. Keeping
	// the counter in the state keeps Resolve deterministic while ids
	// stay unique across rounds.
	NextBulletID uint64 `json:"nextBulletId"`
}

// WinnerDraw is the Winner value of a drawn game.
const WinnerDraw = "draw"

// NewState builds the initial lobby state for a room, including the
// full barrel set for both sides.
func NewState(roomCode string, cfg Config) *State {
	return &State{
		RoomCode:        roomCode,
		Phase:           PhaseLobby,
		Config:          cfg,
		Players:         []*Player{},
		Barrels:         NewBarrels(cfg.SlotsPerSide),
		PendingActions:  []PendingAction{},
		LastTickBullets: []Bullet{},
		NextBulletID:    1,
	}
}

// NewBarrels builds fresh full-health barrels for every (team, slot)
// pair on both sides.
func NewBarrels(slotsPerSide int) []*Barrel {
	barrels := make([]*Barrel, 0, 2*slotsPerSide)
	for slot := 0; slot < slotsPerSide; slot++ {
		barrels = append(barrels, &Barrel{Team: TeamSheriffs, Slot: slot, HP: BarrelMaxHP})
		barrels = append(barrels, &Barrel{Team: TeamOutlaws, Slot: slot, HP: BarrelMaxHP})
	}
	return barrels
}

// PlayerByID returns the player record with the given id, or nil.
func (s *State) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerAt returns the living player assigned to (team, slot), or nil.
func (s *State) PlayerAt(team Team, slot int) *Player {
	for _, p := range s.Players {
		if p.Team == team && p.Slot == slot && p.IsAlive {
			return p
		}
	}
	return nil
}

// BarrelAt returns the barrel of (team, slot), or nil.
func (s *State) BarrelAt(team Team, slot int) *Barrel {
	for _, b := range s.Barrels {
		if b.Team == team && b.Slot == slot {
			return b
		}
	}
	return nil
}

// AliveCount counts living slot-assigned players on team.
func (s *State) AliveCount(team Team) int {
	n := 0
	for _, p := range s.Players {
		if p.Team == team && p.InPlay() {
			n++
		}
	}
	return n
}

// AssignedCount counts slot-assigned players on team, dead or alive.
func (s *State) AssignedCount(team Team) int {
	n := 0
	for _, p := range s.Players {
		if p.Team == team && p.Slot >= 0 {
			n++
		}
	}
	return n
}

// FreeSlot returns the first unoccupied slot index on team, or
// SlotUnassigned when the team is full.
func (s *State) FreeSlot(team Team) int {
	for slot := 0; slot < s.Config.SlotsPerSide; slot++ {
		taken := false
		for _, p := range s.Players {
			if p.Team == team && p.Slot == slot {
				taken = true
				break
			}
		}
		if !taken {
			return slot
		}
	}
	return SlotUnassigned
}
