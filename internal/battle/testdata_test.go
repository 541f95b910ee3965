package battle

// newTestBattle builds a minimal one-v-one singles battle with one Mon
// per side, used across queue/request/validate/turn/context tests so
// each test doesn't have to re-wire sides/players/mons by hand.
func newTestBattle() (*Battle, *Mon, *Mon) {
	b := NewBattle(FormatSingles, 1, TiebreakKeep, 1)
	b.TeamPreview = false

	b.Sides = []*Side{
		{Handle: 0, Index: 0, Name: "P1 side", Conditions: map[string]int{}},
		{Handle: 1, Index: 1, Name: "P2 side", Conditions: map[string]int{}},
	}

	attacker := &Mon{
		Handle: 1, Name: "Attacker", Species: "Attacker", Level: 50,
		Player: 0, Position: 0, HP: 100, MaxHP: 100,
		Stats:  map[string]int{"atk": 100, "def": 80, "spe": 90},
		Boosts: map[string]int{},
		Moves:  []Move{{Name: "tackle", Power: 40, PP: 10, MaxPP: 10, Target: TargetNormal}},
	}
	defender := &Mon{
		Handle: 2, Name: "Defender", Species: "Defender", Level: 50,
		Player: 1, Position: 0, HP: 100, MaxHP: 100,
		Stats:  map[string]int{"atk": 60, "def": 70, "spe": 40},
		Boosts: map[string]int{},
		Moves:  []Move{{Name: "tackle", Power: 40, PP: 10, MaxPP: 10, Target: TargetNormal}},
	}
	b.Mons = map[MonHandle]*Mon{1: attacker, 2: defender}

	b.Players = []*Player{
		{Handle: 0, ID: "p1", Name: "P1", Side: 0, Team: []MonHandle{1}, Active: []MonHandle{1}, Bag: map[string]int{"potion": 1}, UsedGimmick: map[string]bool{}},
		{Handle: 1, ID: "p2", Name: "P2", Side: 1, Team: []MonHandle{2}, Active: []MonHandle{2}, Bag: map[string]int{}, UsedGimmick: map[string]bool{}},
	}
	return b, attacker, defender
}
