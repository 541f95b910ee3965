package battle

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
)

// MoveChoice selects a move slot, its target, and any one-per-battle
// gimmicks to activate alongside it (spec.md §3 "Choice").
type MoveChoice struct {
	Slot         int
	Target       *int
	Mega         bool
	Dyna         bool
	Tera         bool
	RandomTarget bool
}

func (c MoveChoice) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", c.Slot)
	if c.Target != nil {
		fmt.Fprintf(&b, ",%d", *c.Target)
	}
	if c.Mega {
		b.WriteString(",mega")
	}
	if c.Dyna {
		b.WriteString(",dyna")
	}
	if c.Tera {
		b.WriteString(",tera")
	}
	if c.RandomTarget {
		b.WriteString(",randomtarget")
	}
	return b.String()
}

func parseMoveChoice(s string) (MoveChoice, error) {
	args := splitTrimmed(s, ",")
	if len(args) == 0 {
		return MoveChoice{}, fmt.Errorf("%w: missing move slot", pkgerrors.ErrInvalidChoice)
	}
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return MoveChoice{}, fmt.Errorf("%w: invalid move slot: %v", pkgerrors.ErrInvalidChoice, err)
	}
	choice := MoveChoice{Slot: slot}
	args = args[1:]

	if len(args) > 0 {
		if target, err := strconv.Atoi(args[0]); err == nil {
			choice.Target = &target
			args = args[1:]
		}
	}

	for _, arg := range args {
		switch arg {
		case "mega":
			choice.Mega = true
		case "dyna":
			choice.Dyna = true
		case "tera":
			choice.Tera = true
		case "randomtarget":
			choice.RandomTarget = true
		default:
			return MoveChoice{}, fmt.Errorf("%w: invalid option in move choice: %s", pkgerrors.ErrInvalidChoice, arg)
		}
	}
	return choice, nil
}

// ItemChoice selects an item to use, its target, and any additional
// input the item's use handler requires (e.g. the move slot for a
// PP-restoring item).
type ItemChoice struct {
	Item            string
	Target          *int
	AdditionalInput []string
}

func (c ItemChoice) String() string {
	var b strings.Builder
	b.WriteString(c.Item)
	if c.Target != nil {
		fmt.Fprintf(&b, ",%d", *c.Target)
	}
	for _, v := range c.AdditionalInput {
		b.WriteString(",")
		b.WriteString(v)
	}
	return b.String()
}

func parseItemChoice(s string) (ItemChoice, error) {
	args := splitTrimmed(s, ",")
	if len(args) == 0 || args[0] == "" {
		return ItemChoice{}, fmt.Errorf("%w: missing item", pkgerrors.ErrInvalidChoice)
	}
	choice := ItemChoice{Item: args[0]}
	args = args[1:]

	if len(args) > 0 {
		if target, err := strconv.Atoi(args[0]); err == nil {
			choice.Target = &target
			args = args[1:]
		}
	}
	choice.AdditionalInput = append([]string(nil), args...)
	return choice, nil
}

// TeamSelectionChoice orders the Mons a player picks for the battle
// during team preview.
type TeamSelectionChoice struct {
	Mons []int
}

func (c TeamSelectionChoice) String() string {
	parts := make([]string, len(c.Mons))
	for i, m := range c.Mons {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, " ")
}

func parseTeamSelectionChoice(s string) (TeamSelectionChoice, error) {
	if s == "" {
		return TeamSelectionChoice{Mons: nil}, nil
	}
	fields := strings.Fields(s)
	mons := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return TeamSelectionChoice{}, fmt.Errorf("%w: invalid team member index: %v", pkgerrors.ErrInvalidChoice, err)
		}
		mons = append(mons, n)
	}
	return TeamSelectionChoice{Mons: mons}, nil
}

// SwitchChoice names the Mon to switch in; a nil Mon means the engine
// picks at random.
type SwitchChoice struct {
	Mon *int
}

func (c SwitchChoice) String() string {
	if c.Mon == nil {
		return ""
	}
	return strconv.Itoa(*c.Mon)
}

func parseSwitchChoice(s string) (SwitchChoice, error) {
	if s == "" {
		return SwitchChoice{}, nil
	}
	mon, err := strconv.Atoi(s)
	if err != nil {
		return SwitchChoice{}, fmt.Errorf("%w: invalid switch target: %v", pkgerrors.ErrInvalidChoice, err)
	}
	return SwitchChoice{Mon: &mon}, nil
}

// LearnMoveChoice names the move slot to forget when the engine asks a
// player to make room for a newly learned move.
type LearnMoveChoice struct {
	ForgetMoveSlot int
}

func (c LearnMoveChoice) String() string {
	return strconv.Itoa(c.ForgetMoveSlot)
}

func parseLearnMoveChoice(s string) (LearnMoveChoice, error) {
	slot, err := strconv.Atoi(s)
	if err != nil {
		return LearnMoveChoice{}, fmt.Errorf("%w: invalid forget-move slot: %v", pkgerrors.ErrInvalidChoice, err)
	}
	return LearnMoveChoice{ForgetMoveSlot: slot}, nil
}

// ChoiceKind discriminates Choice's tagged-union variant.
type ChoiceKind int

const (
	ChoicePass ChoiceKind = iota
	ChoiceRandom
	ChoiceRandomAll
	ChoiceEscape
	ChoiceForfeit
	ChoiceShift
	ChoiceTeam
	ChoiceSwitch
	ChoiceMove
	ChoiceItem
	ChoiceLearnMove
)

// Choice is a player's single response to one request slot (spec.md §3
// "Choice"). Exactly one of the payload fields is meaningful, selected
// by Kind.
type Choice struct {
	Kind      ChoiceKind
	Team      TeamSelectionChoice
	Switch    SwitchChoice
	Move      MoveChoice
	Item      ItemChoice
	LearnMove LearnMoveChoice
}

func (c Choice) String() string {
	switch c.Kind {
	case ChoicePass:
		return "pass"
	case ChoiceRandom:
		return "random"
	case ChoiceRandomAll:
		return "randomall"
	case ChoiceEscape:
		return "escape"
	case ChoiceForfeit:
		return "forfeit"
	case ChoiceShift:
		return "shift"
	case ChoiceTeam:
		return "team " + c.Team.String()
	case ChoiceSwitch:
		return "switch " + c.Switch.String()
	case ChoiceMove:
		return "move " + c.Move.String()
	case ChoiceItem:
		return "item " + c.Item.String()
	case ChoiceLearnMove:
		return "learnmove " + c.LearnMove.String()
	default:
		return "pass"
	}
}

// ParseChoice parses one choice's canonical textual form: a variant
// tag, an optional space, then variant-specific fields (spec.md §3,
// §6 "Choice syntax").
func ParseChoice(s string) (Choice, error) {
	tag, data, _ := strings.Cut(s, " ")
	data = strings.TrimSpace(data)

	switch tag {
	case "pass":
		return Choice{Kind: ChoicePass}, nil
	case "random":
		return Choice{Kind: ChoiceRandom}, nil
	case "randomall":
		return Choice{Kind: ChoiceRandomAll}, nil
	case "escape":
		return Choice{Kind: ChoiceEscape}, nil
	case "forfeit":
		return Choice{Kind: ChoiceForfeit}, nil
	case "shift":
		return Choice{Kind: ChoiceShift}, nil
	case "team":
		team, err := parseTeamSelectionChoice(data)
		if err != nil {
			return Choice{}, err
		}
		return Choice{Kind: ChoiceTeam, Team: team}, nil
	case "switch":
		sw, err := parseSwitchChoice(data)
		if err != nil {
			return Choice{}, err
		}
		return Choice{Kind: ChoiceSwitch, Switch: sw}, nil
	case "move":
		mv, err := parseMoveChoice(data)
		if err != nil {
			return Choice{}, err
		}
		return Choice{Kind: ChoiceMove, Move: mv}, nil
	case "item":
		it, err := parseItemChoice(data)
		if err != nil {
			return Choice{}, err
		}
		return Choice{Kind: ChoiceItem, Item: it}, nil
	case "learnmove":
		lm, err := parseLearnMoveChoice(data)
		if err != nil {
			return Choice{}, err
		}
		return Choice{Kind: ChoiceLearnMove, LearnMove: lm}, nil
	default:
		return Choice{}, fmt.Errorf("%w: %s", pkgerrors.ErrInvalidChoice, tag)
	}
}

// ChoicesToString serializes multiple choices, `;`-joined.
func ChoicesToString(choices []Choice) string {
	parts := make([]string, len(choices))
	for i, c := range choices {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

// ChoicesFromString deserializes a `;`-joined choice batch, failing the
// whole batch on the first malformed element.
func ChoicesFromString(s string) ([]Choice, error) {
	parts := splitTrimmed(s, ";")
	choices := make([]Choice, 0, len(parts))
	for _, part := range parts {
		c, err := ParseChoice(part)
		if err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, nil
}

// ChoiceResultsFromString deserializes a `;`-joined choice batch,
// returning the individual parse result for each element so that one
// malformed choice does not poison the rest (spec.md §3 "a malformed
// element in a batch must not poison the rest").
func ChoiceResultsFromString(s string) []struct {
	Choice Choice
	Err    error
} {
	parts := splitTrimmed(s, ";")
	out := make([]struct {
		Choice Choice
		Err    error
	}, len(parts))
	for i, part := range parts {
		c, err := ParseChoice(part)
		out[i].Choice = c
		out[i].Err = err
	}
	return out
}

func splitTrimmed(s, sep string) []string {
	raw := strings.Split(s, sep)
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
