package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHierarchyResolvesScopedEntities(t *testing.T) {
	b, attacker, defender := newTestBattle()
	ctx := NewContext(b)

	mc, err := ctx.MonContext(attacker.Handle)
	require.NoError(t, err)
	assert.Equal(t, attacker, mc.Mon())
	assert.Equal(t, PlayerHandle(0), mc.Player().Handle)
	assert.Equal(t, SideHandle(0), mc.Side().Handle)
	assert.Equal(t, SideHandle(1), mc.FoeSide().Handle)

	foeCtx, err := mc.FoeSideContext()
	require.NoError(t, err)
	assert.Equal(t, SideHandle(1), foeCtx.Side().Handle)

	defMC, err := ctx.MonContext(defender.Handle)
	require.NoError(t, err)
	assert.Equal(t, defender, defMC.Mon())
}

func TestContextMonContextUnknownHandleErrors(t *testing.T) {
	b, _, _ := newTestBattle()
	ctx := NewContext(b)
	_, err := ctx.MonContext(999)
	assert.Error(t, err)
}

func TestPlayerContextPickSideContext(t *testing.T) {
	b, attacker, _ := newTestBattle()
	ctx := NewContext(b)
	pc, err := ctx.PlayerContext(attacker.Player)
	require.NoError(t, err)

	own, err := pc.PickSideContext(true)
	require.NoError(t, err)
	assert.Equal(t, SideHandle(0), own.Side().Handle)

	foe, err := pc.PickSideContext(false)
	require.NoError(t, err)
	assert.Equal(t, SideHandle(1), foe.Side().Handle)
}
