package battle

import (
	"testing"

	"github.com/nmxmxh/battlerealm/internal/numeric"
	"github.com/stretchr/testify/assert"
)

func TestCalculateDamageAppliesFixedFormulaOrder(t *testing.T) {
	b, _, _ := newTestBattle()

	in := DamageInput{
		Level:             50,
		Power:             40,
		Attack:            100,
		Defense:           70,
		STAB:              numeric.NewFraction[int64](3, 2),
		TypeEffectiveness: oneOne(),
		Weather:           oneOne(),
		Crit:              oneOne(),
	}
	random := numeric.NewFraction[int64](100, 100)

	dmg := b.CalculateDamage(in, random)
	assert.Greater(t, dmg, int64(0))

	noStab := in
	noStab.STAB = oneOne()
	dmgNoStab := b.CalculateDamage(noStab, random)
	assert.Greater(t, dmg, dmgNoStab, "stab multiplier increases damage")
}

func TestCalculateDamageNeverReturnsLessThanOne(t *testing.T) {
	b, _, _ := newTestBattle()
	in := DamageInput{
		Level:             1,
		Power:             1,
		Attack:            1,
		Defense:           999999,
		STAB:              oneOne(),
		TypeEffectiveness: oneOne(),
		Weather:           oneOne(),
		Crit:              oneOne(),
	}
	dmg := b.CalculateDamage(in, numeric.NewFraction[int64](85, 100))
	assert.Equal(t, int64(1), dmg)
}

func TestRandomDamageRollStaysInSpecRange(t *testing.T) {
	b, _, _ := newTestBattle()
	for i := 0; i < 50; i++ {
		roll := b.RandomDamageRoll()
		assert.GreaterOrEqual(t, roll.Compare(numeric.NewFraction[int64](85, 100)), 0)
		assert.LessOrEqual(t, roll.Compare(numeric.NewFraction[int64](100, 100)), 0)
	}
}
