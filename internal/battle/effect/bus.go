package effect

import "sort"

// EventName identifies a named moment in battle execution that listeners
// can hook (spec.md §4.6), e.g. "BeforeMove", "ModifyDamage", "AfterHit".
type EventName string

// Listener is one effect hook attached to a Mon, side, the field, or a
// global condition. Its Program is evaluated with the environment and
// function table the caller builds for this dispatch; the value of the
// program's `return` statement (nil if none) is the listener's result.
type Listener struct {
	Name        string
	Order       int
	Priority    int
	SubPriority int
	Program     *ParsedProgram
}

// Bus dispatches named events to the listeners registered against them, in
// the fixed order spec.md §4.6 requires: priority (higher first), then
// order (lower first), then sub-priority (higher first) as the final
// tiebreak.
type Bus struct {
	listeners map[EventName][]Listener
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventName][]Listener)}
}

// Register attaches a listener to an event.
func (b *Bus) Register(event EventName, l Listener) {
	b.listeners[event] = append(b.listeners[event], l)
}

// Listeners returns the listeners for an event, sorted for dispatch.
func (b *Bus) Listeners(event EventName) []Listener {
	ls := append([]Listener(nil), b.listeners[event]...)
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].Priority != ls[j].Priority {
			return ls[i].Priority > ls[j].Priority
		}
		if ls[i].Order != ls[j].Order {
			return ls[i].Order < ls[j].Order
		}
		return ls[i].SubPriority > ls[j].SubPriority
	})
	return ls
}

// Dispatch runs every listener attached to event, in sorted order, using
// makeEvaluator to build a fresh Evaluator per listener invocation (each
// listener typically needs its own variable bindings, e.g. $mon bound to
// the listener's owner). Dispatch stops and returns the first error any
// listener produces.
func (b *Bus) Dispatch(event EventName, makeEvaluator func(Listener) *Evaluator) ([]interface{}, error) {
	var results []interface{}
	for _, l := range b.Listeners(event) {
		if l.Program == nil {
			continue
		}
		ev := makeEvaluator(l)
		v, err := ev.Run(l.Program)
		if err != nil {
			return results, err
		}
		results = append(results, v)
	}
	return results, nil
}
