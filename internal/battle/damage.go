package battle

import "github.com/nmxmxh/battlerealm/internal/numeric"

// DamageInput carries every value the damage formula needs, already
// resolved by the caller (move base power, the attacker/defender's
// relevant offense/defense stats, and modifier fractions produced by the
// ModifyDamage event listeners). The formula itself never looks anything
// up; it only does the arithmetic (spec.md §4.6 "Damage formula").
type DamageInput struct {
	Level             int
	Power             int64
	Attack            int64
	Defense           int64
	STAB              numeric.Fraction[int64]
	TypeEffectiveness numeric.Fraction[int64]
	Weather           numeric.Fraction[int64]
	Crit              numeric.Fraction[int64]
	OtherMods         []numeric.Fraction[int64]
}

// oneOne is the multiplicative identity fraction, used as the default
// for modifiers callers leave zero-valued.
func oneOne() numeric.Fraction[int64] { return numeric.NewFraction[int64](1, 1) }

func orOne(f numeric.Fraction[int64]) numeric.Fraction[int64] {
	if f.Denominator() == 0 {
		return oneOne()
	}
	return f
}

// RandomDamageRoll returns a uniformly distributed fraction in
// [85/100, 100/100] using the battle's seeded PRNG (spec.md §4.6 "random
// is a fraction in [85/100, 100/100] chosen by the engine's PRNG").
func (b *Battle) RandomDamageRoll() numeric.Fraction[int64] {
	n := int64(85 + b.rng.Intn(16))
	return numeric.NewFraction[int64](n, 100)
}

// CalculateDamage applies spec.md §4.6's fixed-order damage formula,
// using Fraction arithmetic throughout so the result is reproducible
// across implementations sharing a PRNG seed:
//
//	base = floor((((2*level)/5 + 2) * power * atk / def) / 50) + 2
//	base = base * stab * type_effectiveness * weather * crit * random * other_mods
func (b *Battle) CalculateDamage(in DamageInput, random numeric.Fraction[int64]) int64 {
	levelTerm := numeric.NewFraction[int64](int64(2*in.Level), 5).AddInt(2)
	numerator := levelTerm.MulInt(in.Power).MulInt(in.Attack)
	if in.Defense == 0 {
		in.Defense = 1
	}
	preDiv := numerator.DivInt(in.Defense)
	base := preDiv.DivInt(50).Floor() + 2

	result := numeric.FractionFromInt[int64](base)
	result = result.Mul(orOne(in.STAB))
	result = result.Mul(orOne(in.TypeEffectiveness))
	result = result.Mul(orOne(in.Weather))
	result = result.Mul(orOne(in.Crit))
	result = result.Mul(orOne(random))
	for _, mod := range in.OtherMods {
		result = result.Mul(orOne(mod))
	}

	final := result.Floor()
	if final < 1 {
		final = 1
	}
	return final
}
