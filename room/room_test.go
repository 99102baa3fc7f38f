package room

import (
	"os"
	"testing"

	"github.com/wfunc/showdown/game"
	"github.com/wfunc/showdown/logger"
	"github.com/wfunc/showdown/network"
	"github.com/wfunc/showdown/timer"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

// MockBroadcaster is a test double for the Broadcaster interface.
type MockBroadcaster struct {
	messages []uint16
}

func (m *MockBroadcaster) BroadcastToRoom(roomCode string, msgID uint16, data []byte) error {
	m.messages = append(m.messages, msgID)
	return nil
}

func testBounds() Bounds {
	return Bounds{
		MinTickDuration: 1000,
		MaxTickDuration: 10000,
		MinSlotsPerSide: 2,
		MaxSlotsPerSide: 8,
	}
}

func testConfig() game.Config {
	return game.Config{TickDuration: 4000, SlotsPerSide: 5}
}

func newTestManager() *Manager {
	return NewManager(testBounds(), &MockBroadcaster{}, nil, nil, timer.NewManager())
}

// newActiveRoom creates a room with one player per team and starts the
// game, leaving it in planning tick 1.
func newActiveRoom(t *testing.T, m *Manager) (*Room, *game.Player, *game.Player) {
	t.Helper()

	r := m.CreateRoom("host-1", testConfig())
	if _, err := m.Join("p-sheriff", r.Code, "Wyatt"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := m.Join("p-outlaw", r.Code, "Ringo"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := r.SelectTeam("p-outlaw", game.TeamOutlaws); err != nil {
		t.Fatalf("SelectTeam failed: %v", err)
	}
	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	return r, r.state.PlayerByID("p-sheriff"), r.state.PlayerByID("p-outlaw")
}

func TestManager_CreateRoomCodeShape(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())

	if len(r.Code) != codeLength {
		t.Fatalf("Expected a %d-char code, got %q", codeLength, r.Code)
	}
	for _, c := range r.Code {
		if c == 'I' || c == 'O' {
			t.Errorf("Code alphabet must exclude I and O, got %q", r.Code)
		}
	}

	if got, ok := m.RoomByParticipant("host-1"); !ok || got != r {
		t.Error("Host should be routed to the created room")
	}
}

func TestManager_CreateRoomClampsConfig(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", game.Config{TickDuration: 100, SlotsPerSide: 50})

	snap := r.Snapshot()
	if snap.Config.TickDuration != 1000 {
		t.Errorf("Expected tick duration clamped to 1000, got %d", snap.Config.TickDuration)
	}
	if snap.Config.SlotsPerSide != 8 {
		t.Errorf("Expected slots clamped to 8, got %d", snap.Config.SlotsPerSide)
	}
	if got := len(snap.Barrels); got != 16 {
		t.Errorf("Expected 2x8 barrels, got %d", got)
	}
}

func TestRoom_JoinAutoAssignBalancesTeams(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())

	first, err := m.Join("p1", r.Code, "A")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if first.Team != game.TeamSheriffs || first.Slot != 0 {
		t.Errorf("First join should land on sheriffs slot 0, got %s/%d", first.Team, first.Slot)
	}

	second, err := m.Join("p2", r.Code, "B")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if second.Team != game.TeamOutlaws || second.Slot != 0 {
		t.Errorf("Second join should balance onto outlaws slot 0, got %s/%d", second.Team, second.Slot)
	}

	// Tie again: back to sheriffs.
	third, err := m.Join("p3", r.Code, "C")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if third.Team != game.TeamSheriffs || third.Slot != 1 {
		t.Errorf("Tie should favor sheriffs, got %s/%d", third.Team, third.Slot)
	}
}

func TestRoom_JoinDuringGameOnlyForReconnection(t *testing.T) {
	m := newTestManager()
	r, _, _ := newActiveRoom(t, m)

	if _, err := m.Join("stranger", r.Code, "New"); err != ErrGameInProgress {
		t.Errorf("New players must be rejected mid-game, got: %v", err)
	}

	// A known id reattaches regardless of phase.
	rejoined, err := m.Join("p-sheriff", r.Code, "Wyatt Earp")
	if err != nil {
		t.Fatalf("Reconnection failed: %v", err)
	}
	if rejoined.Name != "Wyatt Earp" {
		t.Errorf("Reconnection should refresh the name, got %q", rejoined.Name)
	}
}

func TestRoom_SelectTeamFullRejected(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", game.Config{TickDuration: 4000, SlotsPerSide: 2})

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		if _, err := m.Join(id, r.Code, id); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	// Auto-assignment filled both teams (2 slots each).
	if err := r.SelectTeam("p1", game.TeamOutlaws); err != ErrTeamFull {
		t.Errorf("Expected ErrTeamFull, got: %v", err)
	}
}

func TestRoom_LeaveTeamKeepsRecord(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())
	m.Join("p1", r.Code, "A")

	if err := r.LeaveTeam("p1"); err != nil {
		t.Fatalf("LeaveTeam failed: %v", err)
	}

	p := r.state.PlayerByID("p1")
	if p == nil {
		t.Fatal("Leaving a team must not remove the player record")
	}
	if p.Slot != game.SlotUnassigned {
		t.Errorf("Expected unassigned slot, got %d", p.Slot)
	}
}

func TestRoom_StartGameGuards(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())

	if err := r.StartGame(); err != ErrTeamsNotReady {
		t.Errorf("Empty room should not start, got: %v", err)
	}

	m.Join("p1", r.Code, "A") // sheriffs only
	if err := r.StartGame(); err != ErrTeamsNotReady {
		t.Errorf("One-sided room should not start, got: %v", err)
	}
}

func TestRoom_StartGameTooManyPlayersAfterShrink(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())

	// Fill three sheriff slots and one outlaw slot, then shrink the
	// arena under them.
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		if _, err := m.Join(id, r.Code, id); err != nil {
			t.Fatalf("Join %d failed: %v", i, err)
		}
	}
	for _, id := range []string{"p1", "p3", "p5"} {
		if err := r.SelectTeam(id, game.TeamSheriffs); err != nil {
			t.Fatalf("SelectTeam failed: %v", err)
		}
	}

	slots := 2
	if err := r.UpdateConfig("host-1", network.UpdateConfigRequest{SlotsPerSide: &slots}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if err := r.StartGame(); err != ErrTooManyPlayers {
		t.Errorf("Expected ErrTooManyPlayers, got: %v", err)
	}
}

func TestRoom_StartGameResetsAndShuffles(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())

	ids := []string{"s1", "s2", "s3", "o1", "o2", "o3"}
	for _, id := range ids {
		m.Join(id, r.Code, id)
	}
	for _, id := range []string{"o1", "o2", "o3"} {
		if err := r.SelectTeam(id, game.TeamOutlaws); err != nil {
			t.Fatalf("SelectTeam failed: %v", err)
		}
	}
	// Dirty some combat state.
	r.state.PlayerByID("s1").HP = 1
	r.state.PlayerByID("o2").Ammo = 3
	r.state.BarrelAt(game.TeamSheriffs, 0).HP = 0

	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	if r.state.Phase != game.PhasePlanning {
		t.Fatalf("Expected planning phase, got %s", r.state.Phase)
	}
	if r.state.Tick != 1 {
		t.Errorf("Expected tick 1, got %d", r.state.Tick)
	}

	for _, team := range []game.Team{game.TeamSheriffs, game.TeamOutlaws} {
		seen := map[int]bool{}
		for _, p := range r.assignedPlayers(team) {
			if p.HP != game.MaxHP || p.Ammo != game.StartAmmo || !p.IsAlive {
				t.Errorf("Player %s combat state not reset: %+v", p.ID, p)
			}
			if p.ActionLocked || p.CurrentAction != game.ActionNone || p.IsCovered {
				t.Errorf("Player %s round state not reset: %+v", p.ID, p)
			}
			seen[p.Slot] = true
		}
		// Shuffle must still produce a permutation of 0..n-1.
		for slot := 0; slot < 3; slot++ {
			if !seen[slot] {
				t.Errorf("Team %s missing a player at slot %d after shuffle", team, slot)
			}
		}
	}

	for _, b := range r.state.Barrels {
		if b.HP != game.BarrelMaxHP {
			t.Errorf("Barrel (%s,%d) not reset, hp %d", b.Team, b.Slot, b.HP)
		}
	}
}

func TestRoom_LockActionGuards(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())
	m.Join("p1", r.Code, "A")

	if err := r.LockAction("p1", game.ActionCover); err != ErrWrongPhase {
		t.Errorf("Locking in lobby must fail, got: %v", err)
	}

	m.Join("p2", r.Code, "B")
	r.SelectTeam("p2", game.TeamOutlaws)
	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	if err := r.LockAction("ghost", game.ActionCover); err != ErrPlayerNotFound {
		t.Errorf("Expected ErrPlayerNotFound, got: %v", err)
	}

	p1 := r.state.PlayerByID("p1")
	p1.Ammo = 0
	if err := r.LockAction("p1", game.ActionShootStraight); err != ErrNoAmmo {
		t.Errorf("Shooting dry must be rejected, got: %v", err)
	}
	p1.Ammo = game.MaxAmmo
	if err := r.LockAction("p1", game.ActionReload); err != ErrAmmoFull {
		t.Errorf("Reloading full must be rejected, got: %v", err)
	}

	if err := r.LockAction("p1", game.ActionCover); err != nil {
		t.Fatalf("Valid lock failed: %v", err)
	}
	if err := r.LockAction("p1", game.ActionReload); err != ErrAlreadyLocked {
		t.Errorf("Second lock must be rejected, got: %v", err)
	}

	if len(r.state.PendingActions) != 1 {
		t.Fatalf("Expected 1 pending action, got %d", len(r.state.PendingActions))
	}
	if got := r.state.PendingActions[0]; got.PlayerID != "p1" || got.Action != game.ActionCover {
		t.Errorf("Pending audit entry wrong: %+v", got)
	}

	p2 := r.state.PlayerByID("p2")
	p2.IsAlive = false
	if err := r.LockAction("p2", game.ActionCover); err != ErrPlayerDead {
		t.Errorf("Dead players must not lock, got: %v", err)
	}
}

func TestRoom_RoundFlow(t *testing.T) {
	m := newTestManager()
	r, _, _ := newActiveRoom(t, m)

	tick := r.state.Tick
	r.resolveTick(tick)

	if r.state.Phase != game.PhaseResolution {
		t.Fatalf("Expected resolution after timer fire, got %s", r.state.Phase)
	}

	// Nobody died; the inter-round delay takes us back to planning.
	r.nextRound(tick)
	if r.state.Phase != game.PhasePlanning {
		t.Fatalf("Expected planning, got %s", r.state.Phase)
	}
	if r.state.Tick != tick+1 {
		t.Errorf("Expected tick %d, got %d", tick+1, r.state.Tick)
	}
	for _, p := range r.state.Players {
		if p.ActionLocked || p.CurrentAction != game.ActionNone {
			t.Errorf("Player %s lock not cleared for the new round", p.ID)
		}
	}
}

func TestRoom_WinConditionEndsGame(t *testing.T) {
	m := newTestManager()
	r, sheriff, outlaw := newActiveRoom(t, m)

	// One player per team, so both sit at slot 0.
	outlaw.HP = 1
	if err := r.LockAction(sheriff.ID, game.ActionShootStraight); err != nil {
		t.Fatalf("LockAction failed: %v", err)
	}

	r.resolveTick(r.state.Tick)

	if r.state.Phase != game.PhaseEnded {
		t.Fatalf("Expected ended phase, got %s", r.state.Phase)
	}
	if r.state.Winner != string(game.TeamSheriffs) {
		t.Errorf("Expected sheriffs to win, got %q", r.state.Winner)
	}
	if len(r.state.LastTickBullets) != 1 || r.state.LastTickBullets[0].Hit != game.HitPlayer {
		t.Errorf("Expected one lethal hit-player event, got %+v", r.state.LastTickBullets)
	}
}

func TestRoom_DrawWhenBothTeamsDie(t *testing.T) {
	m := newTestManager()
	r, sheriff, outlaw := newActiveRoom(t, m)

	// Mutual straight shots at the same slot cancel, so a kill
	// cannot take both last players in one round. Force the state.
	sheriff.HP = 0
	sheriff.IsAlive = false
	outlaw.HP = 0
	outlaw.IsAlive = false

	r.resolveTick(r.state.Tick)

	if r.state.Phase != game.PhaseEnded {
		t.Fatalf("Expected ended phase, got %s", r.state.Phase)
	}
	if r.state.Winner != game.WinnerDraw {
		t.Errorf("Expected draw, got %q", r.state.Winner)
	}
}

func TestRoom_PlayAgainSoftReset(t *testing.T) {
	m := newTestManager()
	r, sheriff, outlaw := newActiveRoom(t, m)

	outlaw.HP = 1
	r.LockAction(sheriff.ID, game.ActionShootStraight)
	r.resolveTick(r.state.Tick)
	if r.state.Phase != game.PhaseEnded {
		t.Fatalf("Setup failed: expected ended, got %s", r.state.Phase)
	}

	sheriffTeam := r.state.PlayerByID(sheriff.ID).Team
	sheriffSlot := r.state.PlayerByID(sheriff.ID).Slot

	if err := r.PlayAgain(); err != nil {
		t.Fatalf("PlayAgain failed: %v", err)
	}

	if r.state.Phase != game.PhaseLobby {
		t.Fatalf("Expected lobby, got %s", r.state.Phase)
	}
	if r.state.Tick != 0 || r.state.Winner != "" || r.state.TickStartTime != 0 {
		t.Errorf("Round bookkeeping not cleared: tick=%d winner=%q", r.state.Tick, r.state.Winner)
	}
	if len(r.state.PendingActions) != 0 || len(r.state.LastTickBullets) != 0 {
		t.Error("Pending actions and last bullets must be cleared")
	}

	p := r.state.PlayerByID(sheriff.ID)
	if p.Team != sheriffTeam || p.Slot != sheriffSlot {
		t.Errorf("PlayAgain must keep team/slot, got %s/%d", p.Team, p.Slot)
	}
	dead := r.state.PlayerByID(outlaw.ID)
	if !dead.IsAlive || dead.HP != game.MaxHP {
		t.Errorf("Combat fields must be reset, got alive=%v hp=%d", dead.IsAlive, dead.HP)
	}
}

func TestRoom_PlayAgainOnlyFromEnded(t *testing.T) {
	m := newTestManager()
	r, _, _ := newActiveRoom(t, m)

	if err := r.PlayAgain(); err != ErrWrongPhase {
		t.Errorf("PlayAgain during planning must fail, got: %v", err)
	}
}

func TestRoom_StaleTimerIsNoOp(t *testing.T) {
	m := newTestManager()
	r, sheriff, outlaw := newActiveRoom(t, m)

	outlaw.HP = 1
	r.LockAction(sheriff.ID, game.ActionShootStraight)
	staleTick := r.state.Tick
	r.resolveTick(staleTick)
	if err := r.PlayAgain(); err != nil {
		t.Fatalf("PlayAgain failed: %v", err)
	}

	// The planning timer scheduled before the reset fires late.
	r.resolveTick(staleTick)
	if r.state.Phase != game.PhaseLobby {
		t.Errorf("Stale timer must not move the room out of lobby, got %s", r.state.Phase)
	}

	// Same for an inter-round delay firing after teardown.
	r.nextRound(staleTick)
	if r.state.Phase != game.PhaseLobby {
		t.Errorf("Stale delay must be ignored, got %s", r.state.Phase)
	}
}

func TestRoom_UpdateConfigGuards(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())

	duration := 2000
	if err := r.UpdateConfig("impostor", network.UpdateConfigRequest{TickDuration: &duration}); err != ErrNotHost {
		t.Errorf("Expected ErrNotHost, got: %v", err)
	}

	huge := 99999
	if err := r.UpdateConfig("host-1", network.UpdateConfigRequest{TickDuration: &huge}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if got := r.state.Config.TickDuration; got != 10000 {
		t.Errorf("Expected clamp to 10000, got %d", got)
	}

	slots := 3
	if err := r.UpdateConfig("host-1", network.UpdateConfigRequest{SlotsPerSide: &slots}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if got := len(r.state.Barrels); got != 6 {
		t.Errorf("Slot change must rebuild barrels, got %d", got)
	}
	for _, b := range r.state.Barrels {
		if b.HP != game.BarrelMaxHP {
			t.Errorf("Rebuilt barrel (%s,%d) should be full health", b.Team, b.Slot)
		}
	}

	m.Join("p1", r.Code, "A")
	m.Join("p2", r.Code, "B")
	r.SelectTeam("p2", game.TeamOutlaws)
	if err := r.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if err := r.UpdateConfig("host-1", network.UpdateConfigRequest{TickDuration: &duration}); err != ErrWrongPhase {
		t.Errorf("Config edits outside lobby must fail, got: %v", err)
	}
}

func TestManager_EndSessionTearsDown(t *testing.T) {
	m := newTestManager()
	r, _, _ := newActiveRoom(t, m)

	if err := m.EndSession(r.Code); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	if _, exists := m.GetRoom(r.Code); exists {
		t.Error("Room must be removed")
	}
	for _, id := range []string{"host-1", "p-sheriff", "p-outlaw"} {
		if _, ok := m.RoomByParticipant(id); ok {
			t.Errorf("Participant %s routing must be torn down", id)
		}
	}

	if err := m.EndSession(r.Code); err != ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound on double teardown, got: %v", err)
	}
}

func TestManager_DetachKeepsPlayerRecord(t *testing.T) {
	m := newTestManager()
	r := m.CreateRoom("host-1", testConfig())
	m.Join("p1", r.Code, "A")

	m.Detach("p1")

	if _, ok := m.RoomByParticipant("p1"); ok {
		t.Error("Detached participant must not be routed")
	}
	if r.state.PlayerByID("p1") == nil {
		t.Error("Disconnect must not remove the game-state record")
	}
}

func TestRoom_BroadcastsOnMutation(t *testing.T) {
	mb := &MockBroadcaster{}
	m := NewManager(testBounds(), mb, nil, nil, timer.NewManager())
	r := m.CreateRoom("host-1", testConfig())

	before := len(mb.messages)
	m.Join("p1", r.Code, "A")
	if len(mb.messages) <= before {
		t.Error("Join must broadcast the new state")
	}

	found := false
	for _, id := range mb.messages {
		if id == network.MsgTypeGameState {
			found = true
		}
	}
	if !found {
		t.Error("Expected a gameState broadcast")
	}
}
