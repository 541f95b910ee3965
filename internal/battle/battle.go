package battle

import (
	"fmt"
	"math/rand"

	"github.com/nmxmxh/battlerealm/internal/battle/effect"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
)

// Battle is the root of one contiguous state machine, advanced by exactly
// one goroutine at a time (spec.md §5 "a battle is a contiguous state
// machine advanced by one task at a time"). Go has no borrow checker to
// enforce that discipline at compile time the way the original engine's
// context hierarchy does; it is upheld by convention here instead, via the
// Context wrapper in context.go, which every mutation is expected to go
// through.
type Battle struct {
	Sides             []*Side
	Players           []*Player
	Mons              map[MonHandle]*Mon
	Queue             []Action
	Log               *Log
	Turn              int
	Format            BattleFormat
	TeamPreview       bool
	PickedTeamSize    int
	Tiebreak          TiebreakMode
	UsedGimmickGlobal map[string]bool
	Bus               *effect.Bus
	rng               *rand.Rand
}

// NewBattle constructs an empty battle ready to have sides/players/mons
// added before the turn loop starts. seed makes the PRNG sequence
// reproducible across implementations (spec.md §5).
func NewBattle(format BattleFormat, pickedTeamSize int, tiebreak TiebreakMode, seed int64) *Battle {
	log, _ := NewLog(nil)
	return &Battle{
		Mons:           make(map[MonHandle]*Mon),
		Log:            log,
		Format:         format,
		TeamPreview:    true,
		PickedTeamSize: pickedTeamSize,
		Tiebreak:       tiebreak,
		Bus:            effect.NewBus(),
		rng:            rand.New(rand.NewSource(seed)),
	}
}

func (b *Battle) side(h SideHandle) (*Side, error) {
	for _, s := range b.Sides {
		if s.Handle == h {
			return s, nil
		}
	}
	return nil, fmt.Errorf("side %d: %w", h, pkgerrors.ErrInvalidChoice)
}

func (b *Battle) foeSide(h SideHandle) (*Side, error) {
	return b.side(h ^ 1)
}

func (b *Battle) player(h PlayerHandle) (*Player, error) {
	for _, p := range b.Players {
		if p.Handle == h {
			return p, nil
		}
	}
	return nil, fmt.Errorf("player %d: %w", h, pkgerrors.ErrInvalidChoice)
}

func (b *Battle) mon(h MonHandle) (*Mon, error) {
	m, ok := b.Mons[h]
	if !ok {
		return nil, fmt.Errorf("mon %d: %w", h, pkgerrors.ErrInvalidChoice)
	}
	return m, nil
}

// SideWon reports whether every Mon belonging to every player on side has
// fainted or is otherwise unable to continue (spec.md §4.4 "win check").
func (b *Battle) SideWon(foe SideHandle) bool {
	s, err := b.side(foe)
	if err != nil {
		return false
	}
	for _, ph := range s.Players {
		p, err := b.player(ph)
		if err != nil {
			continue
		}
		for _, mh := range p.Team {
			if m, err := b.mon(mh); err == nil && m.Conscious() {
				return false
			}
		}
	}
	return true
}
