package battle

import (
	"fmt"
)

// RunTurn advances the battle through one full turn (spec.md §4.4 steps
// 2-5): build the speed-ordered queue, execute actions highest-priority
// first, emit log entries, and run faint checks after each action. Speeds
// are snapshotted once at queue-build time; stat changes mid-turn do not
// retroactively reorder actions already queued, matching the teacher's
// own "Execute" step semantics.
func (b *Battle) RunTurn(actions []Action) error {
	b.Turn++
	if err := b.Log.Add(b.Log.Len(), fmt.Sprintf("turn|turn:%d", b.Turn)); err != nil {
		return err
	}

	queue := b.BuildQueue(actions)
	for _, action := range queue {
		if err := b.executeAction(action); err != nil {
			return err
		}
		b.runFaintChecks()
	}
	return nil
}

func (b *Battle) executeAction(a Action) error {
	mon, err := b.mon(a.Mon)
	if err != nil {
		return err
	}
	if !mon.Conscious() && a.Kind != ActionSwitch {
		return nil
	}

	switch a.Kind {
	case ActionSwitch:
		return b.executeSwitch(a)
	case ActionMove:
		return b.executeMove(a, mon)
	case ActionItem:
		return b.executeItem(a, mon)
	case ActionMega:
		return nil
	case ActionResidual:
		return b.executeResidual(a, mon)
	default:
		return nil
	}
}

func (b *Battle) executeSwitch(a Action) error {
	m, err := b.mon(a.Mon)
	if err != nil {
		return err
	}
	in, err := b.mon(a.SwitchTo)
	if err != nil {
		return err
	}
	p, err := b.player(m.Player)
	if err != nil {
		return err
	}
	for i, h := range p.Active {
		if h == a.Mon {
			p.Active[i] = a.SwitchTo
		}
	}
	in.Position = m.Position
	m.Position = -1

	if _, err := b.Dispatch("SwitchIn", map[string]interface{}{"mon": in}); err != nil {
		return err
	}
	return b.Log.Extend([]string{fmt.Sprintf("switch|mon:%d", in.Handle)})
}

func (b *Battle) executeMove(a Action, user *Mon) error {
	if _, err := b.Dispatch("BeforeMove", map[string]interface{}{"mon": user}); err != nil {
		return err
	}

	targets := b.resolveMoveTargets(a, user)
	for _, targetHandle := range targets {
		target, err := b.mon(targetHandle)
		if err != nil {
			continue
		}
		if err := b.resolveHit(a, user, target); err != nil {
			return err
		}
	}
	return b.Log.Extend([]string{fmt.Sprintf("move|mon:%d|move:%s", user.Handle, a.Move)})
}

func (b *Battle) resolveMoveTargets(a Action, user *Mon) []MonHandle {
	if a.HasTarget {
		return []MonHandle{a.Target}
	}
	p, err := b.player(user.Player)
	if err != nil {
		return nil
	}
	side, err := b.side(p.Side)
	if err != nil {
		return nil
	}
	foe, err := b.foeSide(side.Handle)
	if err != nil {
		return nil
	}
	return b.activeMonsOnSide(foe)
}

func (b *Battle) resolveHit(a Action, user, target *Mon) error {
	var move Move
	for _, mv := range user.Moves {
		if mv.Name == a.Move {
			move = mv
			break
		}
	}

	mods, err := b.Dispatch("ModifyDamage", map[string]interface{}{"mon": user, "target": target})
	if err != nil {
		return err
	}

	power := int64(move.Power)
	if power == 0 {
		power = 50
	}

	in := DamageInput{
		Level:             user.Level,
		Power:             power,
		Attack:            int64(user.Stats["atk"]),
		Defense:           int64(target.Stats["def"]),
		STAB:              oneOne(),
		TypeEffectiveness: oneOne(),
		Weather:           oneOne(),
		Crit:              oneOne(),
		OtherMods:         fractionMods(mods),
	}

	dmg := b.CalculateDamage(in, b.RandomDamageRoll())
	b.applyDamage(target, dmg)

	_, err = b.Dispatch("AfterHit", map[string]interface{}{"mon": user, "target": target})
	return err
}

func (b *Battle) executeItem(a Action, user *Mon) error {
	_, err := b.Dispatch("UseItem", map[string]interface{}{"mon": user, "item": a.Item})
	return err
}

func (b *Battle) executeResidual(a Action, mon *Mon) error {
	_, err := b.Dispatch("Residual", map[string]interface{}{"mon": mon})
	return err
}

// runFaintChecks fires the Faint event for any Mon that just hit zero HP
// (spec.md §4.4 "faint checks run after each action").
func (b *Battle) runFaintChecks() {
	for _, m := range b.Mons {
		if m.Fainted && m.HP <= 0 {
			b.Dispatch("Faint", map[string]interface{}{"mon": m})
		}
	}
}
