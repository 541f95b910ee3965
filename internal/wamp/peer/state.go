// Package peer implements the peer-side WAMP session (spec.md §4.2):
// the state machine, outbound correlation tables, and reconnection
// loop shared by every client of a realm.
package peer

import (
	"fmt"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
)

// stateKind names the four session states (spec.md §3 "Session state").
type stateKind int

const (
	stateClosed stateKind = iota
	stateEstablishing
	stateEstablished
	stateClosing
)

func (s stateKind) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateEstablishing:
		return "establishing"
	case stateEstablished:
		return "established"
	case stateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

type establishingState struct {
	realm wamp.URI
}

type establishedState struct {
	sessionID     wamp.ID
	realm         wamp.URI
	subscriptions map[wamp.ID]*subscription
	registrations map[wamp.ID]*registration
}

// sessionState is the FSM's current payload. Only one of the typed
// fields is meaningful, selected by kind.
type sessionState struct {
	kind        stateKind
	establish   *establishingState
	established *establishedState
}

func closedState() sessionState { return sessionState{kind: stateClosed} }

func (s sessionState) sameKind(other stateKind) bool { return s.kind == other }

// allowedTransition mirrors the teacher's allowed_state_transition table
// (battler-wamp/src/peer/session.rs), generalized to this system's four
// states.
func allowedTransition(from, to stateKind) bool {
	switch {
	case from == stateClosed && to == stateEstablishing:
		return true
	case from == stateEstablishing && to == stateClosed:
		return true
	case from == stateEstablishing && to == stateEstablished:
		return true
	case from == stateEstablished && to == stateClosing:
		return true
	case from == stateEstablished && to == stateClosed:
		return true
	case from == stateClosing && to == stateClosed:
		return true
	default:
		return false
	}
}

func invalidTransitionErr(from, to stateKind) error {
	return fmt.Errorf("%w: from %s to %s", pkgerrors.ErrIllegalTransition, from, to)
}
