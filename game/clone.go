package game

// Clone returns a deep copy of the state. The resolver mutates a clone
// so the caller's snapshot stays readable during resolution.
func (s *State) Clone() *State {
	out := *s

	out.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		out.Players[i] = &cp
	}

	out.Barrels = make([]*Barrel, len(s.Barrels))
	for i, b := range s.Barrels {
		cb := *b
		out.Barrels[i] = &cb
	}

	out.PendingActions = make([]PendingAction, len(s.PendingActions))
	copy(out.PendingActions, s.PendingActions)

	out.LastTickBullets = make([]Bullet, len(s.LastTickBullets))
	copy(out.LastTickBullets, s.LastTickBullets)

	return &out
}
