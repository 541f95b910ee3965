package battle

import (
	"testing"

	"github.com/nmxmxh/battlerealm/internal/battle/effect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTurnExecutesMoveAndAppliesDamage(t *testing.T) {
	b, attacker, defender := newTestBattle()

	action := Action{
		Kind: ActionMove, Mon: attacker.Handle, Player: 0, Move: "tackle",
		Target: defender.Handle, HasTarget: true,
	}
	startHP := defender.HP
	require.NoError(t, b.RunTurn([]Action{action}))
	assert.Less(t, defender.HP, startHP)
	assert.Equal(t, 1, b.Turn)
}

func TestRunTurnFaintsMonAtZeroHP(t *testing.T) {
	b, attacker, defender := newTestBattle()
	defender.HP = 1

	action := Action{
		Kind: ActionMove, Mon: attacker.Handle, Player: 0, Move: "tackle",
		Target: defender.Handle, HasTarget: true,
	}
	require.NoError(t, b.RunTurn([]Action{action}))
	assert.True(t, defender.Fainted)
	assert.True(t, b.SideWon(1))
}

func TestDispatchRunsRegisteredListenerAndHostDamageFunc(t *testing.T) {
	b, attacker, defender := newTestBattle()

	prog, err := effect.ParseProgram(effect.LeafProgram("damage: $target 10"))
	require.NoError(t, err)
	b.Bus.Register("AfterHit", effect.Listener{Name: "recoil", Program: prog})

	startHP := attacker.HP
	_, err = b.Dispatch("AfterHit", map[string]interface{}{"mon": defender, "target": attacker})
	require.NoError(t, err)
	assert.Equal(t, startHP-10, attacker.HP)
}

func TestExecuteSwitchUpdatesActiveSlotAndPosition(t *testing.T) {
	b, attacker, _ := newTestBattle()
	bench := &Mon{Handle: 3, Name: "Bench", Player: 0, Position: -1, HP: 50, MaxHP: 50, Stats: map[string]int{}, Boosts: map[string]int{}}
	b.Mons[3] = bench
	p, err := b.player(0)
	require.NoError(t, err)
	p.Team = append(p.Team, 3)

	action := Action{Kind: ActionSwitch, Mon: attacker.Handle, Player: 0, SwitchTo: 3}
	require.NoError(t, b.executeAction(action))

	assert.Equal(t, MonHandle(3), p.Active[0])
	assert.Equal(t, -1, attacker.Position)
	assert.Equal(t, 0, bench.Position)
}
