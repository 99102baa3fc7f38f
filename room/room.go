// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/showdown/game"
	"github.com/wfunc/showdown/logger"
	"github.com/wfunc/showdown/models"
	"github.com/wfunc/showdown/network"
	"github.com/wfunc/showdown/state"
	"github.com/wfunc/showdown/timer"
)

// Guard failures. All of them leave the room state untouched.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrGameInProgress = errors.New("game already in progress")
	ErrWrongPhase     = errors.New("not allowed in current phase")
	ErrTeamFull       = errors.New("team is full")
	ErrNotHost        = errors.New("invalid host")
	ErrPlayerDead     = errors.New("player is not alive")
	ErrNotAssigned    = errors.New("player has no slot")
	ErrAlreadyLocked  = errors.New("action already locked")
	ErrNoAmmo         = errors.New("no ammo to shoot")
	ErrAmmoFull       = errors.New("ammo already full")
	ErrTeamsNotReady  = errors.New("both teams need at least one player")
	ErrTooManyPlayers = errors.New("too many players for available slots")
)

// Bounds clamp host-supplied room settings.
type Bounds struct {
	MinTickDuration int
	MaxTickDuration int
	MinSlotsPerSide int
	MaxSlotsPerSide int
}

// interRoundDelay gives clients time to play the shot animations
// before the next planning window opens.
const interRoundDelay = 500 * time.Millisecond

// Room owns one game. Every inbound event for the room, including its
// own timer fires, takes the mutex, so all mutation is serialized while
// rooms stay independent of each other.
type Room struct {
	Code   string
	HostID string

	state       *game.State
	machine     *state.Machine
	bounds      Bounds
	broadcaster Broadcaster
	recorder    Recorder
	metrics     Metrics
	timers      *timer.Manager
	rng         *rand.Rand

	// tickTimerID/scheduledTick identify the pending transition so a
	// timer that outlives a reset is recognized as stale when it fires.
	tickTimerID   int64
	scheduledTick int
	startedAt     time.Time
	closed        bool

	mutex sync.Mutex
}

func newRoom(code, hostID string, cfg game.Config, bounds Bounds, broadcaster Broadcaster,
	recorder Recorder, metrics Metrics, timers *timer.Manager, rng *rand.Rand) *Room {
	cfg = clampConfig(cfg, bounds)
	return &Room{
		Code:        code,
		HostID:      hostID,
		state:       game.NewState(code, cfg),
		machine:     state.NewRoomMachine(),
		bounds:      bounds,
		broadcaster: broadcaster,
		recorder:    recorder,
		metrics:     metrics,
		timers:      timers,
		rng:         rng,
	}
}

func clampConfig(cfg game.Config, b Bounds) game.Config {
	cfg.TickDuration = clamp(cfg.TickDuration, b.MinTickDuration, b.MaxTickDuration)
	cfg.SlotsPerSide = clamp(cfg.SlotsPerSide, b.MinSlotsPerSide, b.MaxSlotsPerSide)
	return cfg
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Snapshot returns a deep copy of the current state for callers outside
// the room's lock.
func (r *Room) Snapshot() *game.State {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.state.Clone()
}

// Phase returns the room's current phase.
func (r *Room) Phase() game.Phase {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.state.Phase
}

// Join adds a new player or reattaches an existing one (reconnection).
// New players are only admitted in the lobby and are auto-assigned to
// the least-occupied team's first free slot, ties going to sheriffs. A
// full arena still admits the player, unassigned.
func (r *Room) Join(playerID, name string) (network.ClientPlayer, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if p := r.state.PlayerByID(playerID); p != nil {
		if name != "" {
			p.Name = name
		}
		r.broadcastState()
		return clientPlayer(p), nil
	}

	if r.state.Phase != game.PhaseLobby {
		return network.ClientPlayer{}, ErrGameInProgress
	}

	p := &game.Player{
		ID:            playerID,
		Name:          name,
		Team:          game.TeamSheriffs,
		Slot:          game.SlotUnassigned,
		HP:            game.MaxHP,
		Ammo:          game.StartAmmo,
		IsAlive:       true,
		CurrentAction: game.ActionNone,
	}
	r.state.Players = append(r.state.Players, p)

	team := game.TeamSheriffs
	if r.state.AssignedCount(game.TeamOutlaws) < r.state.AssignedCount(game.TeamSheriffs) {
		team = game.TeamOutlaws
	}
	if slot := r.state.FreeSlot(team); slot != game.SlotUnassigned {
		p.Team = team
		p.Slot = slot
	}

	r.broadcastState()
	return clientPlayer(p), nil
}

// ResumeHost reattaches the host identity and returns the live state.
func (r *Room) ResumeHost(hostID string) (*game.State, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if hostID != r.HostID {
		return nil, ErrNotHost
	}
	return r.state.Clone(), nil
}

// SelectTeam moves the player to the requested team's first free slot,
// vacating any previous slot. A full team rejects the request.
func (r *Room) SelectTeam(playerID string, team game.Team) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p := r.state.PlayerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}

	slot := r.state.FreeSlot(team)
	if slot == game.SlotUnassigned {
		return ErrTeamFull
	}

	p.Team = team
	p.Slot = slot
	r.broadcastState()
	return nil
}

// LeaveTeam vacates the player's slot without removing the record.
func (r *Room) LeaveTeam(playerID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p := r.state.PlayerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	p.Slot = game.SlotUnassigned
	r.broadcastState()
	return nil
}

// LockAction accepts one action for the round during planning. The
// resolver reads CurrentAction off the player record; the pending queue
// is an audit log for observers.
func (r *Room) LockAction(playerID string, action game.ActionType) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state.Phase != game.PhasePlanning {
		return ErrWrongPhase
	}
	p := r.state.PlayerByID(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if !p.IsAlive {
		return ErrPlayerDead
	}
	if p.Slot == game.SlotUnassigned {
		return ErrNotAssigned
	}
	if p.ActionLocked {
		return ErrAlreadyLocked
	}
	if action.IsShoot() && p.Ammo <= 0 {
		return ErrNoAmmo
	}
	if action == game.ActionReload && p.Ammo >= game.MaxAmmo {
		return ErrAmmoFull
	}

	p.ActionLocked = true
	p.CurrentAction = action
	r.state.PendingActions = append(r.state.PendingActions,
		game.PendingAction{PlayerID: playerID, Action: action})

	r.broadcastEvent(network.MsgTypeActionLocked, network.ActionLockedEvent{PlayerID: playerID})
	r.broadcastState()
	return nil
}

// StartGame launches the first round. Both teams need at least one
// assigned player and neither may exceed the slot count. Combat fields
// and barrels are reset and each team's slots are reshuffled so
// starting positions differ every game.
func (r *Room) StartGame() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state.Phase != game.PhaseLobby {
		return ErrGameInProgress
	}

	sheriffs := r.assignedPlayers(game.TeamSheriffs)
	outlaws := r.assignedPlayers(game.TeamOutlaws)
	if len(sheriffs) == 0 || len(outlaws) == 0 {
		return ErrTeamsNotReady
	}
	if len(sheriffs) > r.state.Config.SlotsPerSide || len(outlaws) > r.state.Config.SlotsPerSide {
		return ErrTooManyPlayers
	}

	for _, p := range r.state.Players {
		if p.Slot >= 0 {
			resetCombat(p)
		}
	}
	for _, b := range r.state.Barrels {
		b.HP = game.BarrelMaxHP
	}
	r.state.Tick = 0
	r.state.Winner = ""
	r.state.LastTickBullets = []game.Bullet{}
	r.startedAt = time.Now()

	r.shuffleSlots(sheriffs)
	r.shuffleSlots(outlaws)

	r.startPlanning()
	return nil
}

func (r *Room) assignedPlayers(team game.Team) []*game.Player {
	var out []*game.Player
	for _, p := range r.state.Players {
		if p.Team == team && p.Slot >= 0 {
			out = append(out, p)
		}
	}
	return out
}

// shuffleSlots runs a Fisher-Yates shuffle over the team's players and
// re-assigns slots 0..n-1 in shuffled order.
func (r *Room) shuffleSlots(players []*game.Player) {
	for i := len(players) - 1; i > 0; i-- {
		j := r.rng.Intn(i + 1)
		players[i], players[j] = players[j], players[i]
	}
	for i, p := range players {
		p.Slot = i
	}
}

func resetCombat(p *game.Player) {
	p.HP = game.MaxHP
	p.Ammo = game.StartAmmo
	p.IsAlive = true
	p.ActionLocked = false
	p.CurrentAction = game.ActionNone
	p.IsCovered = false
}

// startPlanning opens the next planning window. Caller holds the lock
// and guarantees the transition is legal (lobby or resolution).
func (r *Room) startPlanning() {
	if err := r.machine.Transition(game.PhasePlanning); err != nil {
		logger.Log.Errorf("room %s: planning transition rejected: %v", r.Code, err)
		return
	}
	r.state.Phase = game.PhasePlanning
	r.state.Tick++
	r.state.PendingActions = []game.PendingAction{}
	r.state.TickStartTime = time.Now().UnixMilli()
	for _, p := range r.state.Players {
		p.ActionLocked = false
		p.CurrentAction = game.ActionNone
	}

	r.broadcastEvent(network.MsgTypeRoundStart, network.RoundStartEvent{
		Tick:      r.state.Tick,
		Duration:  r.state.Config.TickDuration,
		StartTime: r.state.TickStartTime,
	})
	r.broadcastState()

	// The round always runs its full duration; locking early never
	// shortens it.
	tick := r.state.Tick
	r.scheduledTick = tick
	r.tickTimerID = r.timers.After(
		time.Duration(r.state.Config.TickDuration)*time.Millisecond,
		func() { r.resolveTick(tick) },
	)
}

// resolveTick is the planning timer's callback. A stale fire (room
// reset, ended or torn down since scheduling) is a no-op.
func (r *Room) resolveTick(tick int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || r.state.Phase != game.PhasePlanning || r.state.Tick != tick {
		return
	}

	if err := r.machine.Transition(game.PhaseResolution); err != nil {
		logger.Log.Errorf("room %s: resolution transition rejected: %v", r.Code, err)
		return
	}
	r.state.Phase = game.PhaseResolution

	started := time.Now()
	newState, bullets := game.Resolve(r.state)
	r.state = newState
	r.state.LastTickBullets = bullets
	if r.metrics != nil {
		r.metrics.RoundResolved(time.Since(started))
	}

	r.broadcastEvent(network.MsgTypeRoundEnd, network.RoundEndEvent{
		Tick:    r.state.Tick,
		Bullets: bullets,
		State:   r.state,
	})

	r.evaluateRound()
}

// evaluateRound decides win/draw or schedules the next planning window.
func (r *Room) evaluateRound() {
	sheriffsAlive := r.state.AliveCount(game.TeamSheriffs)
	outlawsAlive := r.state.AliveCount(game.TeamOutlaws)

	var winner string
	switch {
	case sheriffsAlive == 0 && outlawsAlive == 0:
		winner = game.WinnerDraw
	case sheriffsAlive == 0:
		winner = string(game.TeamOutlaws)
	case outlawsAlive == 0:
		winner = string(game.TeamSheriffs)
	}

	if winner == "" {
		r.broadcastState()
		tick := r.state.Tick
		r.scheduledTick = tick
		r.tickTimerID = r.timers.After(interRoundDelay, func() { r.nextRound(tick) })
		return
	}

	if err := r.machine.Transition(game.PhaseEnded); err != nil {
		logger.Log.Errorf("room %s: ended transition rejected: %v", r.Code, err)
		return
	}
	r.state.Phase = game.PhaseEnded
	r.state.Winner = winner

	logger.Log.Infow("game ended", "room", r.Code, "winner", winner, "rounds", r.state.Tick)
	r.broadcastEvent(network.MsgTypeGameEnded, network.GameEndedEvent{Winner: winner})
	r.broadcastState()
	r.saveRecord(winner)
}

// nextRound is the inter-round delay callback; stale fires are no-ops.
func (r *Room) nextRound(tick int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.closed || r.state.Phase != game.PhaseResolution || r.state.Tick != tick {
		return
	}
	r.startPlanning()
}

// PlayAgain returns an ended game to the lobby. Team and slot
// assignments survive; combat fields, barrels and round bookkeeping
// are reset. Unlike StartGame there is no reshuffle.
func (r *Room) PlayAgain() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.machine.Transition(game.PhaseLobby); err != nil {
		return ErrWrongPhase
	}
	r.cancelTimer()

	r.state.Phase = game.PhaseLobby
	r.state.Tick = 0
	r.state.Winner = ""
	r.state.PendingActions = []game.PendingAction{}
	r.state.LastTickBullets = []game.Bullet{}
	r.state.TickStartTime = 0
	for _, p := range r.state.Players {
		resetCombat(p)
	}
	for _, b := range r.state.Barrels {
		b.HP = game.BarrelMaxHP
	}

	r.broadcastState()
	return nil
}

// UpdateConfig applies a host's partial config edit in the lobby.
// Values are clamped to the room bounds; a slot count change rebuilds
// the whole barrel set.
func (r *Room) UpdateConfig(hostID string, patch network.UpdateConfigRequest) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if hostID != r.HostID {
		return ErrNotHost
	}
	if r.state.Phase != game.PhaseLobby {
		return ErrWrongPhase
	}

	if patch.TickDuration != nil {
		r.state.Config.TickDuration = clamp(*patch.TickDuration,
			r.bounds.MinTickDuration, r.bounds.MaxTickDuration)
	}
	if patch.SlotsPerSide != nil {
		slots := clamp(*patch.SlotsPerSide, r.bounds.MinSlotsPerSide, r.bounds.MaxSlotsPerSide)
		if slots != r.state.Config.SlotsPerSide {
			r.state.Config.SlotsPerSide = slots
			r.state.Barrels = game.NewBarrels(slots)
		}
	}

	r.broadcastState()
	return nil
}

// close cancels pending timers and marks the room dead so any timer
// already in flight becomes a no-op.
func (r *Room) close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.closed = true
	r.cancelTimer()
}

func (r *Room) cancelTimer() {
	if r.tickTimerID != 0 {
		r.timers.Cancel(r.tickTimerID)
		r.tickTimerID = 0
	}
}

// PlayerIDs returns every player id known to the room.
func (r *Room) PlayerIDs() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ids := make([]string, 0, len(r.state.Players))
	for _, p := range r.state.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *Room) saveRecord(winner string) {
	if r.recorder == nil {
		return
	}

	record := &models.MatchRecord{
		RoomCode:  r.Code,
		Winner:    winner,
		Rounds:    r.state.Tick,
		Duration:  time.Since(r.startedAt),
		CreatedAt: time.Now(),
	}
	for _, p := range r.state.Players {
		if p.Slot == game.SlotUnassigned {
			continue
		}
		outcome := "lose"
		switch {
		case winner == game.WinnerDraw:
			outcome = "draw"
		case winner == string(p.Team):
			outcome = "win"
		}
		record.Players = append(record.Players, models.MatchPlayer{
			PlayerID: p.ID,
			Name:     p.Name,
			Team:     string(p.Team),
			Outcome:  outcome,
			HPLeft:   p.HP,
		})
	}

	// Persistence must never stall the room.
	go func() {
		if err := r.recorder.RecordMatch(record); err != nil {
			logger.Log.Errorf("room %s: failed to record match: %v", r.Code, err)
		}
	}()
}

// broadcastState pushes the full state to the room. Caller holds the
// lock.
func (r *Room) broadcastState() {
	r.broadcastEvent(network.MsgTypeGameState, r.state)
}

func (r *Room) broadcastEvent(msgID uint16, payload interface{}) {
	if r.broadcaster == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("room %s: marshal broadcast %d: %v", r.Code, msgID, err)
		return
	}
	if err := r.broadcaster.BroadcastToRoom(r.Code, msgID, data); err != nil {
		logger.Log.Warnf("room %s: broadcast %d: %v", r.Code, msgID, err)
	}
}

func clientPlayer(p *game.Player) network.ClientPlayer {
	return network.ClientPlayer{ID: p.ID, Name: p.Name, Team: p.Team, Slot: p.Slot}
}
