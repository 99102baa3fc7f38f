package game

import (
	"fmt"
)

// pendingBullet is a shot that has been fired but not yet resolved
// against the other side's bullets, barrels and players.
type pendingBullet struct {
	id         string
	shooter    *Player
	targetSlot int
	trajectory Trajectory
}

// Resolve applies every player's locked action to a fresh copy of the
// state and returns the new state plus the ordered bullet events of the
// round. The input is never mutated and no randomness is involved, so
// resolving the same snapshot twice yields identical results.
//
// Phases run in a fixed order over living, slot-assigned players, and
// within a phase players are processed in player-list order; that list
// order is the tie-break for every first-come-first-served rule below.
func Resolve(s *State) (*State, []Bullet) {
	ns := s.Clone()
	bullets := []Bullet{}

	resolveMoves(ns)
	resolveCover(ns)
	resolveReloads(ns)
	pending := resolveShots(ns)
	pending, bullets = resolveBulletCollisions(pending, bullets)
	bullets = resolveImpacts(ns, pending, bullets)

	return ns, bullets
}

// resolveMoves grants move attempts on a first-come-first-served basis.
// Stationary players reserve their slots first, then movers claim
// targets in player-list order; a taken target leaves the mover where
// it was. Moving breaks cover.
func resolveMoves(ns *State) {
	type moveAttempt struct {
		player     *Player
		targetSlot int
	}
	var attempts []moveAttempt

	for _, p := range ns.Players {
		if !p.InPlay() {
			continue
		}
		switch p.CurrentAction {
		case ActionMoveUp:
			if target := p.Slot - 1; target >= 0 {
				attempts = append(attempts, moveAttempt{p, target})
			}
		case ActionMoveDown:
			if target := p.Slot + 1; target < ns.Config.SlotsPerSide {
				attempts = append(attempts, moveAttempt{p, target})
			}
		}
	}

	moving := make(map[string]bool, len(attempts))
	for _, m := range attempts {
		moving[m.player.ID] = true
	}

	occupied := make(map[Team]map[int]bool)
	occupied[TeamSheriffs] = make(map[int]bool)
	occupied[TeamOutlaws] = make(map[int]bool)
	for _, p := range ns.Players {
		if p.InPlay() && !moving[p.ID] {
			occupied[p.Team][p.Slot] = true
		}
	}

	for _, m := range attempts {
		if occupied[m.player.Team][m.targetSlot] {
			continue // taken, stay put
		}
		occupied[m.player.Team][m.targetSlot] = true
		m.player.Slot = m.targetSlot
		m.player.IsCovered = false
	}
}

// resolveCover raises cover for players who chose it and drops it for
// everyone else who neither covered nor moved. This runs before any
// bullet lands, so cover chosen this round already protects against
// this round's shots.
func resolveCover(ns *State) {
	for _, p := range ns.Players {
		if !p.InPlay() {
			continue
		}
		switch {
		case p.CurrentAction == ActionCover:
			p.IsCovered = true
		case !p.CurrentAction.IsMove():
			p.IsCovered = false
		}
	}
}

func resolveReloads(ns *State) {
	for _, p := range ns.Players {
		if !p.InPlay() {
			continue
		}
		if p.CurrentAction == ActionReload && p.Ammo < MaxAmmo {
			p.Ammo++
		}
	}
}

// resolveShots collects pending bullets from every player with ammo and
// a shoot action. A shot aimed out of the lane range fires nothing and
// keeps the ammo.
func resolveShots(ns *State) []pendingBullet {
	var pending []pendingBullet
	for _, p := range ns.Players {
		if !p.InPlay() || p.Ammo <= 0 {
			continue
		}

		var (
			targetSlot int
			trajectory Trajectory
		)
		switch p.CurrentAction {
		case ActionShootStraight:
			targetSlot, trajectory = p.Slot, TrajectoryStraight
		case ActionShootUp:
			targetSlot, trajectory = p.Slot-1, TrajectoryUp
		case ActionShootDown:
			targetSlot, trajectory = p.Slot+1, TrajectoryDown
		default:
			continue
		}
		if targetSlot < 0 || targetSlot >= ns.Config.SlotsPerSide {
			continue
		}

		p.Ammo--
		pending = append(pending, pendingBullet{
			id:         fmt.Sprintf("bullet-%d", ns.NextBulletID),
			shooter:    p,
			targetSlot: targetSlot,
			trajectory: trajectory,
		})
		ns.NextBulletID++
	}
	return pending
}

// resolveBulletCollisions cancels pairs of opposing bullets that are
// aimed at each other's origin slot. Each bullet pairs at most once;
// the pairing condition is symmetric, so walking sheriff bullets first
// is only a deterministic-iteration choice, not a bias. All collisions
// are recorded before any impact is applied.
func resolveBulletCollisions(pending []pendingBullet, bullets []Bullet) ([]pendingBullet, []Bullet) {
	var sheriffBullets, outlawBullets []*pendingBullet
	for i := range pending {
		if pending[i].shooter.Team == TeamSheriffs {
			sheriffBullets = append(sheriffBullets, &pending[i])
		} else {
			outlawBullets = append(outlawBullets, &pending[i])
		}
	}

	collided := make(map[string]bool)
	for _, sb := range sheriffBullets {
		for _, ob := range outlawBullets {
			if collided[sb.id] || collided[ob.id] {
				continue
			}
			if sb.shooter.Slot == ob.targetSlot && ob.shooter.Slot == sb.targetSlot {
				collided[sb.id] = true
				collided[ob.id] = true
				bullets = append(bullets, bulletEvent(sb, HitBullet), bulletEvent(ob, HitBullet))
			}
		}
	}

	var remaining []pendingBullet
	for _, b := range pending {
		if !collided[b.id] {
			remaining = append(remaining, b)
		}
	}
	return remaining, bullets
}

// resolveImpacts lands every surviving bullet: a miss when no living
// opponent holds the target slot, a barrel hit when the target is
// covered behind a standing barrel, a player hit otherwise.
func resolveImpacts(ns *State, pending []pendingBullet, bullets []Bullet) []Bullet {
	for i := range pending {
		b := &pending[i]
		targetTeam := b.shooter.Team.Opponent()

		target := ns.PlayerAt(targetTeam, b.targetSlot)
		if target == nil {
			bullets = append(bullets, bulletEvent(b, HitMiss))
			continue
		}

		barrel := ns.BarrelAt(targetTeam, b.targetSlot)
		if target.IsCovered && barrel != nil && barrel.HP > 0 {
			barrel.HP--
			bullets = append(bullets, bulletEvent(b, HitBarrel))
			continue
		}

		if target.HP > 0 {
			target.HP--
		}
		if target.HP <= 0 {
			target.IsAlive = false
		}
		bullets = append(bullets, bulletEvent(b, HitPlayer))
	}
	return bullets
}

func bulletEvent(b *pendingBullet, hit HitKind) Bullet {
	return Bullet{
		ID:         b.id,
		FromTeam:   b.shooter.Team,
		FromSlot:   b.shooter.Slot,
		ToSlot:     b.targetSlot,
		Trajectory: b.trajectory,
		Hit:        hit,
	}
}
