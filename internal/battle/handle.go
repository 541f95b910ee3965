package battle

import "github.com/nmxmxh/battlerealm/internal/numeric"

// MonHandle, PlayerHandle, and SideHandle are stable identifiers for battle
// entities. The engine addresses entities by handle rather than by pointer;
// a context (see context.go) looks an entity up from its handle when the
// context is created (spec.md §4.4 "handles, not pointers").
type MonHandle int

// PlayerHandle identifies a player within a battle.
type PlayerHandle int

// SideHandle identifies a side within a battle.
type SideHandle int

// BattleFormat determines the number of simultaneously active Mons per
// side and how team-preview pairing works (spec.md §4.4, §4.5).
type BattleFormat int

const (
	FormatSingles BattleFormat = iota
	FormatDoubles
	FormatTriples
	FormatMulti
)

// ActiveSlots returns the number of Mons a side fields at once in this
// format.
func (f BattleFormat) ActiveSlots() int {
	switch f {
	case FormatDoubles:
		return 2
	case FormatTriples, FormatMulti:
		return 3
	default:
		return 1
	}
}

// TiebreakMode resolves queue ordering ties (spec.md §4.4 step 4).
type TiebreakMode int

const (
	TiebreakKeep TiebreakMode = iota
	TiebreakReverse
	TiebreakRandom
)

// MoveTarget is the targeting class of a move, used during choice
// validation to check whether a requested target is in range (spec.md
// §4.5).
type MoveTarget int

const (
	TargetUser MoveTarget = iota
	TargetAdjacentAlly
	TargetAdjacentAllyOrUser
	TargetAdjacentFoe
	TargetAllAdjacent
	TargetAllAdjacentFoes
	TargetAllies
	TargetAny
	TargetNormal
	TargetRandomNormal
	TargetAll
	TargetAllySide
	TargetFoeSide
)

// Move is one of a Mon's known moves.
type Move struct {
	Name     string
	Power    int
	PP       int
	MaxPP    int
	Disabled bool
	Target   MoveTarget
	Priority int
}

// Mon is one creature under a player's control.
type Mon struct {
	Handle   MonHandle
	Name     string
	Species  string
	Level    int
	Player   PlayerHandle
	Position int // -1 when not on the field
	HP       int
	MaxHP    int
	Fainted  bool
	Trapped  bool
	Stats    map[string]int
	Boosts   map[string]int
	Moves    []Move
	Status   string
	Item     string
	Ability  string
}

// Conscious reports whether the Mon can still be sent out.
func (m *Mon) Conscious() bool { return !m.Fainted && m.HP > 0 }

// Speed returns the Mon's effective speed including stage boosts, as a
// Fraction so downstream ordering math stays consistent with the rest of
// the engine's rational arithmetic.
func (m *Mon) Speed() numeric.Fraction[int64] {
	base := int64(m.Stats["spe"])
	stage := m.Boosts["spe"]
	mult := boostMultiplier(stage)
	return mult.MulInt(base)
}

// boostMultiplier converts a stat-stage boost (-6..+6) into its
// multiplier, matching the standard 2-and-stage/2-minus-stage ratio.
func boostMultiplier(stage int) numeric.Fraction[int64] {
	switch {
	case stage > 6:
		stage = 6
	case stage < -6:
		stage = -6
	}
	if stage >= 0 {
		return numeric.NewFraction(int64(2+stage), 2)
	}
	return numeric.NewFraction(2, int64(2-stage))
}

// Player is one participant controlling a team.
type Player struct {
	Handle      PlayerHandle
	ID          string
	Name        string
	Side        SideHandle
	Team        []MonHandle
	Picked      []MonHandle
	Active      []MonHandle
	Bag         map[string]int
	UsedGimmick map[string]bool
}

// Side is one team-facing half of the battle, holding one or more players
// (more than one in Multi battles).
type Side struct {
	Handle     SideHandle
	Index      int
	Name       string
	Players    []PlayerHandle
	Conditions map[string]int
}
