package errors

import "errors"

// Format/protocol errors (spec.md §7 kind 1): never retried, always fatal
// to the session.
var (
	// ErrProtocolViolation is returned when a message arrives outside its legal state.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrUnknownMessageTag is returned when the codec encounters an unrecognized tag.
	ErrUnknownMessageTag = errors.New("unknown message tag")
	// ErrMalformedMessage is returned when a message has the wrong arity or field types.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrMalformedURI is returned when a URI fails strict or wildcard syntax.
	ErrMalformedURI = errors.New("malformed uri")
	// ErrIllegalTransition is returned when a session FSM transition is not legal from the current state.
	ErrIllegalTransition = errors.New("illegal state transition")
)

// Application errors (kind 2): returned to the caller as a typed ERROR.
var (
	// ErrApplicationError wraps an application-defined error URI returned by a callee.
	ErrApplicationError = errors.New("application error")
	// ErrUnknownApplicationError is surfaced when the error URI does not match a known enum.
	ErrUnknownApplicationError = errors.New("unknown application error")
)

// Transport errors (kind 3). The first three are the retryable set reported by
// IsRetryable; ErrNoCalleeAvailable is not in it.
var (
	// ErrPeerNotConnected is returned when an operation requires an active transport.
	ErrPeerNotConnected = errors.New("peer not connected")
	// ErrChannelClosed is returned when a send targets a closed outgoing channel.
	ErrChannelClosed = errors.New("channel closed")
	// ErrInteractionCanceled is returned when a pending call is abandoned mid-flight.
	ErrInteractionCanceled = errors.New("interaction canceled")
	// ErrNoCalleeAvailable is returned when a CALL has no active registration to route to.
	ErrNoCalleeAvailable = errors.New("no callee available")
)

// Logic errors (kind 4): returned directly to the requesting caller, never retried.
var (
	// ErrInvalidChoice is returned when a submitted choice set fails validation.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrProposalNotFound is returned when a proposed battle UUID has no matching manager.
	ErrProposalNotFound = errors.New("proposed battle not found")
	// ErrNotParticipant is returned when a caller is not a participant in a proposed battle.
	ErrNotParticipant = errors.New("not a participant")
	// ErrAlreadyResponded is returned when a player repeats their accept/reject response.
	ErrAlreadyResponded = errors.New("player already responded")
	// ErrBattleAlreadyStarted is returned when a proposal can no longer accept responses.
	ErrBattleAlreadyStarted = errors.New("battle already started")
	// ErrNoSuchRealm is returned when HELLO names a realm the router does not host.
	ErrNoSuchRealm = errors.New("no such realm")
	// ErrProcedureAlreadyExists is returned when REGISTER targets a URI with an active registration.
	ErrProcedureAlreadyExists = errors.New("procedure already exists")
	// ErrNoSuchSubscription is returned when UNSUBSCRIBE names an unknown subscription ID.
	ErrNoSuchSubscription = errors.New("no such subscription")
	// ErrNoSuchRegistration is returned when UNREGISTER names an unknown registration ID.
	ErrNoSuchRegistration = errors.New("no such registration")
)

// retryable collects the transport errors IsRetryable reports as retryable.
var retryable = map[error]bool{
	ErrPeerNotConnected:     true,
	ErrChannelClosed:        true,
	ErrInteractionCanceled:  true,
}

// IsRetryable reports whether err wraps one of the retryable transport
// errors. It only classifies: the peer package does not retry Publish or
// Call, and those return transport errors to their caller unchanged.
func IsRetryable(err error) bool {
	for sentinel, ok := range retryable {
		if ok && errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
