package battle

import (
	"fmt"

	"github.com/nmxmxh/battlerealm/internal/battle/effect"
	"github.com/nmxmxh/battlerealm/internal/numeric"
)

// hostFuncs builds the table of functions fxlang programs may call,
// bound to this battle so effects can mutate real Mons/Sides through the
// same path the turn loop uses (spec.md §4.6 "all modifications... go
// through a uniform effect mechanism"). A fresh table is built for each
// listener evaluation. Every function takes the Mon it acts on as an
// explicit argument; env is not read.
func (b *Battle) hostFuncs(env *effect.MapEnv) map[string]effect.HostFunc {
	return map[string]effect.HostFunc{
		"damage": func(args []interface{}) (interface{}, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("damage: expected target, amount")
			}
			target, ok := args[0].(*Mon)
			if !ok {
				return nil, fmt.Errorf("damage: first argument must be a mon")
			}
			amount, ok := asInt(args[1])
			if !ok {
				return nil, fmt.Errorf("damage: second argument must be numeric")
			}
			b.applyDamage(target, amount)
			return nil, nil
		},
		"heal": func(args []interface{}) (interface{}, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("heal: expected target, amount")
			}
			target, ok := args[0].(*Mon)
			if !ok {
				return nil, fmt.Errorf("heal: first argument must be a mon")
			}
			amount, ok := asInt(args[1])
			if !ok {
				return nil, fmt.Errorf("heal: second argument must be numeric")
			}
			b.applyHeal(target, amount)
			return nil, nil
		},
		"boost": func(args []interface{}) (interface{}, error) {
			if len(args) < 3 {
				return nil, fmt.Errorf("boost: expected target, stat, stages")
			}
			target, ok := args[0].(*Mon)
			if !ok {
				return nil, fmt.Errorf("boost: first argument must be a mon")
			}
			stat, ok := args[1].(string)
			if !ok {
				return nil, fmt.Errorf("boost: second argument must be a stat name")
			}
			stages, ok := asInt(args[2])
			if !ok {
				return nil, fmt.Errorf("boost: third argument must be numeric")
			}
			b.applyBoost(target, stat, int(stages))
			return nil, nil
		},
		"status": func(args []interface{}) (interface{}, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("status: expected target, status")
			}
			target, ok := args[0].(*Mon)
			if !ok {
				return nil, fmt.Errorf("status: first argument must be a mon")
			}
			status, ok := args[1].(string)
			if !ok {
				return nil, fmt.Errorf("status: second argument must be a status name")
			}
			if target.Status == "" {
				target.Status = status
			}
			return nil, nil
		},
		"rand": func(args []interface{}) (interface{}, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("rand: expected low, high")
			}
			lo, ok1 := asInt(args[0])
			hi, ok2 := asInt(args[1])
			if !ok1 || !ok2 || hi < lo {
				return nil, fmt.Errorf("rand: invalid bounds")
			}
			n := lo + int64(b.rng.Intn(int(hi-lo+1)))
			return numeric.FractionFromInt(n), nil
		},
	}
}

// fractionMods converts the return values of a ModifyDamage dispatch
// into the OtherMods fractions CalculateDamage multiplies in, skipping
// any listener that returned nothing or a non-numeric value.
func fractionMods(results []interface{}) []numeric.Fraction[int64] {
	var mods []numeric.Fraction[int64]
	for _, r := range results {
		if f, ok := r.(numeric.Fraction[int64]); ok {
			mods = append(mods, f)
		}
	}
	return mods
}

func asInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case numeric.Fraction[int64]:
		return t.Floor(), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	default:
		return 0, false
	}
}

func (b *Battle) applyDamage(m *Mon, amount int64) {
	m.HP -= amount
	if m.HP <= 0 {
		m.HP = 0
		m.Fainted = true
	}
}

func (b *Battle) applyHeal(m *Mon, amount int64) {
	m.HP += amount
	if m.HP > m.MaxHP {
		m.HP = m.MaxHP
	}
}

func (b *Battle) applyBoost(m *Mon, stat string, stages int) {
	if m.Boosts == nil {
		m.Boosts = make(map[string]int)
	}
	next := m.Boosts[stat] + stages
	if next > 6 {
		next = 6
	}
	if next < -6 {
		next = -6
	}
	m.Boosts[stat] = next
}

// Dispatch fires event against every registered listener, binding each
// listener's fxlang program against an environment seeded with vars
// (typically {"mon": m, "target": t, ...}) plus host functions reaching
// back into this battle (spec.md §4.6 "event bus").
func (b *Battle) Dispatch(event effect.EventName, vars map[string]interface{}) ([]interface{}, error) {
	return b.Bus.Dispatch(event, func(effect.Listener) *effect.Evaluator {
		env := effect.NewMapEnv(vars)
		return effect.NewEvaluator(env, b.hostFuncs(env))
	})
}
