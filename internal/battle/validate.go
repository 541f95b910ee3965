package battle

import (
	"fmt"

	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
)

// ValidateChoices checks one player's full batch of submitted choices
// against the request just computed for them (spec.md §4.5, §8
// "submission is atomic: a batch is validated as a whole and either
// fully admitted or fully rejected"). On the first illegal choice it
// returns its index and a wrapped ErrInvalidChoice; nothing is admitted
// on error.
func (b *Battle) ValidateChoices(req *Request, choices []Choice) error {
	if len(choices) != len(req.Slots) {
		return fmt.Errorf("%w: expected %d choices, got %d", pkgerrors.ErrInvalidChoice, len(req.Slots), len(choices))
	}
	for i, c := range choices {
		if err := b.validateChoice(req.Slots[i], c); err != nil {
			return fmt.Errorf("choice %d: %w", i, err)
		}
	}
	return nil
}

func (b *Battle) validateChoice(slot MonRequest, c Choice) error {
	switch c.Kind {
	case ChoicePass:
		return nil
	case ChoiceRandom, ChoiceRandomAll, ChoiceEscape, ChoiceForfeit, ChoiceShift:
		return nil
	case ChoiceTeam:
		return b.validateTeamChoice(slot, c.Team)
	case ChoiceSwitch:
		return b.validateSwitchChoice(slot, c.Switch)
	case ChoiceMove:
		return b.validateMoveChoice(slot, c.Move)
	case ChoiceItem:
		return b.validateItemChoice(slot, c.Item)
	case ChoiceLearnMove:
		return b.validateLearnMoveChoice(slot, c.LearnMove)
	default:
		return fmt.Errorf("%w: unknown choice kind", pkgerrors.ErrInvalidChoice)
	}
}

// validateTeamChoice accepts a team choice only during team preview and
// rejects negative positions. Positions are not compared against the size
// of the player's stored team, and the order is not padded or truncated
// to the picked team size.
func (b *Battle) validateTeamChoice(slot MonRequest, t TeamSelectionChoice) error {
	if !slot.TeamPreview {
		return fmt.Errorf("%w: team choice outside team preview", pkgerrors.ErrInvalidChoice)
	}
	for _, pos := range t.Mons {
		if pos < 0 {
			return fmt.Errorf("%w: negative team position %d", pkgerrors.ErrInvalidChoice, pos)
		}
	}
	return nil
}

// validateSwitchChoice enforces spec.md §4.5 "Switch(slot) legal iff
// slot's Mon is conscious, not already on the field, and the active Mon
// is not trapped."
func (b *Battle) validateSwitchChoice(slot MonRequest, s SwitchChoice) error {
	if s.Mon == nil {
		return nil
	}
	for _, h := range slot.LegalSwitches {
		if int(h) == *s.Mon {
			return nil
		}
	}
	return fmt.Errorf("%w: switch target %d is not legal", pkgerrors.ErrInvalidChoice, *s.Mon)
}

// validateMoveChoice enforces spec.md §4.5 "Move(slot, target, flags)
// legal iff the slot exists, PP > 0 ..., the move is not disabled, the
// target is in range..., and requested gimmicks are allowed exactly once
// per battle per player."
func (b *Battle) validateMoveChoice(slot MonRequest, m MoveChoice) error {
	found := false
	for _, s := range slot.LegalMoves {
		if s == m.Slot {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: move slot %d is not legal", pkgerrors.ErrInvalidChoice, m.Slot)
	}

	if m.Target != nil && !m.RandomTarget {
		targets, ok := slot.LegalTargets[m.Slot]
		if ok && len(targets) > 0 {
			legal := false
			for _, t := range targets {
				if int(t) == *m.Target {
					legal = true
					break
				}
			}
			if !legal {
				return fmt.Errorf("%w: target %d out of range for move slot %d", pkgerrors.ErrInvalidChoice, *m.Target, m.Slot)
			}
		}
	}

	switch {
	case m.Mega && !slot.CanMega:
		return fmt.Errorf("%w: mega already used this battle", pkgerrors.ErrInvalidChoice)
	case m.Dyna && !slot.CanDyna:
		return fmt.Errorf("%w: dyna already used this battle", pkgerrors.ErrInvalidChoice)
	case m.Tera && !slot.CanTera:
		return fmt.Errorf("%w: tera already used this battle", pkgerrors.ErrInvalidChoice)
	}
	return nil
}

// validateItemChoice accepts an item choice when the item is one of the
// request's LegalItems (the items in the player's bag). Whether the item
// has a use handler and whether the choice's target is valid are not
// checked.
func (b *Battle) validateItemChoice(slot MonRequest, it ItemChoice) error {
	for _, item := range slot.LegalItems {
		if item == it.Item {
			return nil
		}
	}
	return fmt.Errorf("%w: item %q is not usable", pkgerrors.ErrInvalidChoice, it.Item)
}

// validateLearnMoveChoice enforces spec.md §4.5 "LearnMove(forget_slot)
// legal only when the engine has asked a player to choose a move to
// forget; slot must be < 4."
func (b *Battle) validateLearnMoveChoice(slot MonRequest, lm LearnMoveChoice) error {
	if slot.LearnMoveSlots == nil {
		return fmt.Errorf("%w: no pending learn-move request", pkgerrors.ErrInvalidChoice)
	}
	if lm.ForgetMoveSlot < 0 || lm.ForgetMoveSlot >= 4 {
		return fmt.Errorf("%w: forget-move slot %d out of range", pkgerrors.ErrInvalidChoice, lm.ForgetMoveSlot)
	}
	return nil
}
