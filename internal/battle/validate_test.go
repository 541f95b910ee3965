package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChoicesAcceptsLegalMove(t *testing.T) {
	b, _, defender := newTestBattle()
	req, err := b.BuildRequest(0)
	require.NoError(t, err)

	target := int(defender.Handle)
	choice := Choice{Kind: ChoiceMove, Move: MoveChoice{Slot: 0, Target: &target}}
	assert.NoError(t, b.ValidateChoices(req, []Choice{choice}))
}

func TestValidateChoicesRejectsIllegalMoveSlot(t *testing.T) {
	b, _, _ := newTestBattle()
	req, err := b.BuildRequest(0)
	require.NoError(t, err)

	choice := Choice{Kind: ChoiceMove, Move: MoveChoice{Slot: 9}}
	err = b.ValidateChoices(req, []Choice{choice})
	assert.ErrorContains(t, err, "choice 0")
}

func TestValidateChoicesRejectsMegaAfterAlreadyUsed(t *testing.T) {
	b, attacker, defender := newTestBattle()
	p, _ := b.player(attacker.Player)
	p.UsedGimmick["mega"] = true

	req, err := b.BuildRequest(0)
	require.NoError(t, err)

	target := int(defender.Handle)
	choice := Choice{Kind: ChoiceMove, Move: MoveChoice{Slot: 0, Target: &target, Mega: true}}
	assert.Error(t, b.ValidateChoices(req, []Choice{choice}))
}

func TestValidateChoicesBatchIsAtomic(t *testing.T) {
	b, _, _ := newTestBattle()
	req, err := b.BuildRequest(0)
	require.NoError(t, err)

	choices := []Choice{{Kind: ChoicePass}, {Kind: ChoicePass}}
	err = b.ValidateChoices(req, choices)
	assert.Error(t, err, "request has only one slot; a two-choice batch must be rejected wholesale")
}

func TestValidateSwitchChoiceRejectsAlreadyActiveMon(t *testing.T) {
	b, attacker, _ := newTestBattle()
	req, err := b.BuildRequest(0)
	require.NoError(t, err)

	target := int(attacker.Handle)
	choice := Choice{Kind: ChoiceSwitch, Switch: SwitchChoice{Mon: &target}}
	assert.Error(t, b.ValidateChoices(req, []Choice{choice}))
}
