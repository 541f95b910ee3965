package battle

// MonRequest describes the legal choices available for one active Mon
// slot, as sent to the owning player (spec.md §4.4 "emit request", §4.5).
type MonRequest struct {
	Mon            MonHandle
	Position       int
	MustPass       bool
	LegalMoves     []int // move slot indices with PP > 0 and not disabled
	LegalTargets   map[int][]MonHandle
	LegalSwitches  []MonHandle
	CanMega        bool
	CanDyna        bool
	CanTera        bool
	LegalItems     []string
	TeamPreview    bool
	PickedTeamSize int
	LearnMoveSlots []int // non-nil only when a forget-move request is pending
}

// Request is the full per-turn prompt sent to one player: one MonRequest
// per slot the format requires input for (spec.md §4.4 step 1).
type Request struct {
	Player PlayerHandle
	Slots  []MonRequest
}

// BuildRequest computes the legal-choice set for player (spec.md §4.5).
// During team preview it returns a single team-selection slot; otherwise
// one slot per active field position the player controls.
func (b *Battle) BuildRequest(player PlayerHandle) (*Request, error) {
	p, err := b.player(player)
	if err != nil {
		return nil, err
	}

	if b.TeamPreview {
		return &Request{
			Player: player,
			Slots: []MonRequest{{
				TeamPreview:    true,
				PickedTeamSize: b.PickedTeamSize,
			}},
		}, nil
	}

	req := &Request{Player: player}
	for _, mh := range p.Active {
		m, err := b.mon(mh)
		if err != nil {
			continue
		}
		req.Slots = append(req.Slots, b.buildMonRequest(p, m))
	}
	return req, nil
}

func (b *Battle) buildMonRequest(p *Player, m *Mon) MonRequest {
	slot := MonRequest{Mon: m.Handle, Position: m.Position}

	if !m.Conscious() {
		slot.MustPass = true
		slot.LegalSwitches = b.legalSwitches(p)
		return slot
	}

	slot.LegalTargets = make(map[int][]MonHandle)
	for i, mv := range m.Moves {
		if mv.Disabled || mv.PP <= 0 {
			continue
		}
		slot.LegalMoves = append(slot.LegalMoves, i)
		slot.LegalTargets[i] = b.legalTargets(m, mv)
	}

	if !m.Trapped {
		slot.LegalSwitches = b.legalSwitches(p)
	}

	slot.CanMega = !p.UsedGimmick["mega"]
	slot.CanDyna = !p.UsedGimmick["dyna"]
	slot.CanTera = !p.UsedGimmick["tera"]

	for item := range p.Bag {
		slot.LegalItems = append(slot.LegalItems, item)
	}
	return slot
}

// legalSwitches returns the handles of the player's team members that are
// conscious and not already on the field (spec.md §4.5 "Switch(slot)
// legal iff...").
func (b *Battle) legalSwitches(p *Player) []MonHandle {
	active := make(map[MonHandle]bool, len(p.Active))
	for _, h := range p.Active {
		active[h] = true
	}
	var out []MonHandle
	for _, h := range p.Team {
		m, err := b.mon(h)
		if err != nil || !m.Conscious() || active[h] {
			continue
		}
		out = append(out, h)
	}
	return out
}

// legalTargets enumerates the Mons in range for mv's MoveTarget class
// (spec.md §4.5). Self/ally/field-wide targets that don't name a Mon
// resolve implicitly at execution time and return no explicit targets
// here.
func (b *Battle) legalTargets(user *Mon, mv Move) []MonHandle {
	userPlayer, err := b.player(user.Player)
	if err != nil {
		return nil
	}
	userSide, err := b.side(userPlayer.Side)
	if err != nil {
		return nil
	}
	foeSide, err := b.foeSide(userSide.Handle)
	if err != nil {
		return nil
	}

	switch mv.Target {
	case TargetUser, TargetAllySide, TargetFoeSide, TargetAll, TargetAllies, TargetAllAdjacent, TargetAllAdjacentFoes:
		return nil
	case TargetAdjacentFoe, TargetNormal, TargetAny, TargetRandomNormal:
		return b.activeMonsOnSide(foeSide)
	case TargetAdjacentAlly:
		return b.activeAlliesExcluding(userSide, user.Handle)
	case TargetAdjacentAllyOrUser:
		return append(b.activeAlliesExcluding(userSide, user.Handle), user.Handle)
	default:
		return nil
	}
}

func (b *Battle) activeMonsOnSide(s *Side) []MonHandle {
	var out []MonHandle
	for _, ph := range s.Players {
		p, err := b.player(ph)
		if err != nil {
			continue
		}
		for _, mh := range p.Active {
			if m, err := b.mon(mh); err == nil && m.Conscious() {
				out = append(out, mh)
			}
		}
	}
	return out
}

func (b *Battle) activeAlliesExcluding(s *Side, exclude MonHandle) []MonHandle {
	var out []MonHandle
	for _, h := range b.activeMonsOnSide(s) {
		if h != exclude {
			out = append(out, h)
		}
	}
	return out
}

// TODO(multi-pairing): §4.5's team-preview pairing for Multi battles
// (which of the two players on a Multi side previews/picks first, and
// how their two picks interleave into one side's active slots) is left
// undecided upstream (Open Question (b)); BuildRequest currently treats
// every player on a side identically and relies on the caller to
// serialize Multi-format team preview one player at a time.
