package battle

// Context is the battle-scoped handle brokering access to a Battle's
// state. The original engine's context hierarchy (Context, SideContext,
// PlayerContext, MonContext) exists to let the borrow checker prove a
// mutation touches only the subregion it claims to; Go has no such
// checker, so here the hierarchy instead exists to keep call sites
// expressing "I need the Mon at this handle, scoped to its player and
// side" the same way the original does. Each lookup is resolved from
// Battle's maps when the context is created; the context then holds the
// resolved pointers (spec.md §4.4, §9).
type Context struct {
	battle *Battle
}

// NewContext creates a Context over a battle.
func NewContext(b *Battle) *Context { return &Context{battle: b} }

// Battle returns the underlying battle.
func (c *Context) Battle() *Battle { return c.battle }

// SideContext scopes this context to one side and its opposing side.
func (c *Context) SideContext(side SideHandle) (*SideContext, error) {
	s, err := c.battle.side(side)
	if err != nil {
		return nil, err
	}
	foe, err := c.battle.foeSide(side)
	if err != nil {
		return nil, err
	}
	return &SideContext{battle: c, side: s, foeSide: foe}, nil
}

// PlayerContext scopes this context to one player and, transitively, their
// side.
func (c *Context) PlayerContext(player PlayerHandle) (*PlayerContext, error) {
	p, err := c.battle.player(player)
	if err != nil {
		return nil, err
	}
	sc, err := c.SideContext(p.Side)
	if err != nil {
		return nil, err
	}
	return &PlayerContext{side: sc, player: p}, nil
}

// MonContext scopes this context to one Mon and, transitively, its player
// and side.
func (c *Context) MonContext(mon MonHandle) (*MonContext, error) {
	m, err := c.battle.mon(mon)
	if err != nil {
		return nil, err
	}
	pc, err := c.PlayerContext(m.Player)
	if err != nil {
		return nil, err
	}
	return &MonContext{player: pc, handle: mon, mon: m}, nil
}

// SideContext scopes a Context to one Side and caches a reference to the
// opposing Side for fast foe lookups.
type SideContext struct {
	battle  *Context
	side    *Side
	foeSide *Side
}

// BattleContext returns the enclosing battle-scoped context.
func (sc *SideContext) BattleContext() *Context { return sc.battle }

// Battle returns the underlying battle.
func (sc *SideContext) Battle() *Battle { return sc.battle.Battle() }

// Side returns the scoped side.
func (sc *SideContext) Side() *Side { return sc.side }

// FoeSide returns the opposing side.
func (sc *SideContext) FoeSide() *Side { return sc.foeSide }

// FoeSideContext creates a new SideContext scoped to the opposing side.
func (sc *SideContext) FoeSideContext() (*SideContext, error) {
	return sc.battle.SideContext(sc.foeSide.Handle)
}

// PlayerContext scopes a SideContext to one Player on that side.
type PlayerContext struct {
	side   *SideContext
	player *Player
}

// BattleContext returns the enclosing battle-scoped context.
func (pc *PlayerContext) BattleContext() *Context { return pc.side.BattleContext() }

// Battle returns the underlying battle.
func (pc *PlayerContext) Battle() *Battle { return pc.side.Battle() }

// SideContext returns the enclosing side-scoped context.
func (pc *PlayerContext) SideContext() *SideContext { return pc.side }

// Side returns the player's side.
func (pc *PlayerContext) Side() *Side { return pc.side.Side() }

// FoeSide returns the opposing side.
func (pc *PlayerContext) FoeSide() *Side { return pc.side.FoeSide() }

// Player returns the scoped player.
func (pc *PlayerContext) Player() *Player { return pc.player }

// FoeSideContext creates a SideContext scoped to the opposing side.
func (pc *PlayerContext) FoeSideContext() (*SideContext, error) { return pc.side.FoeSideContext() }

// PickSideContext returns a SideContext for the player's own side
// (sameSide true) or the opposing side (sameSide false).
func (pc *PlayerContext) PickSideContext(sameSide bool) (*SideContext, error) {
	if sameSide {
		return pc.BattleContext().SideContext(pc.Side().Handle)
	}
	return pc.FoeSideContext()
}

// MonContext scopes a PlayerContext to one Mon belonging to that player.
type MonContext struct {
	player *PlayerContext
	handle MonHandle
	mon    *Mon
}

// BattleContext returns the enclosing battle-scoped context.
func (mc *MonContext) BattleContext() *Context { return mc.player.BattleContext() }

// Battle returns the underlying battle.
func (mc *MonContext) Battle() *Battle { return mc.player.Battle() }

// PlayerContext returns the enclosing player-scoped context.
func (mc *MonContext) PlayerContext() *PlayerContext { return mc.player }

// SideContext returns the enclosing side-scoped context.
func (mc *MonContext) SideContext() *SideContext { return mc.player.SideContext() }

// Side returns the Mon's side.
func (mc *MonContext) Side() *Side { return mc.player.Side() }

// FoeSide returns the opposing side.
func (mc *MonContext) FoeSide() *Side { return mc.player.FoeSide() }

// Player returns the Mon's player.
func (mc *MonContext) Player() *Player { return mc.player.Player() }

// Handle returns the Mon's stable handle.
func (mc *MonContext) Handle() MonHandle { return mc.handle }

// Mon returns the scoped Mon.
func (mc *MonContext) Mon() *Mon { return mc.mon }

// FoeSideContext creates a SideContext scoped to the opposing side.
func (mc *MonContext) FoeSideContext() (*SideContext, error) { return mc.player.FoeSideContext() }

// PickSideContext returns a SideContext for the Mon's own side (sameSide
// true) or the opposing side (sameSide false).
func (mc *MonContext) PickSideContext(sameSide bool) (*SideContext, error) {
	return mc.player.PickSideContext(sameSide)
}
