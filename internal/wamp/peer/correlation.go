package peer

import "github.com/nmxmxh/battlerealm/internal/wamp"

// Event is one inbound EVENT's payload, handed to a subscription's
// listener (spec.md §4.2 "Events").
type Event struct {
	Topic  wamp.URI
	Args   wamp.List
	Kwargs wamp.Dictionary
}

// subscription tracks one active SUBSCRIBE and fans its EVENTs out to a
// buffered channel. The channel is never closed: sending UNSUBSCRIBE
// drops the record so no further EVENTs reach it, and session close
// leaves it open.
type subscription struct {
	requestID wamp.ID
	topic     wamp.URI
	events    chan Event
}

// registration tracks one active REGISTER. INVOCATIONs for it are
// delivered to Invocations for the owning application to answer with
// Yield.
type registration struct {
	requestID wamp.ID
	procedure wamp.URI
	invoke    chan *Invocation
}

// Invocation is one inbound INVOCATION awaiting a YIELD or ERROR from
// the registered procedure's handler.
type Invocation struct {
	Request ID
	Args    wamp.List
	Kwargs  wamp.Dictionary
	// Progress is true when the caller requested progressive results
	// (CALL option receive_progress=true).
	Progress bool
}

// ID is a WAMP request ID, re-exported for callers that do not want to
// import internal/wamp directly for this one type.
type ID = wamp.ID

// callKind distinguishes the two pending-call shapes named in spec.md
// §4.2 "Pending call kinds".
type callKind int

const (
	callSimple callKind = iota
	callProgressive
)

// CallResult is one delivered RESULT (or the terminal ERROR) for a
// pending call.
type CallResult struct {
	Args     wamp.List
	Kwargs   wamp.Dictionary
	Progress bool
	Err      error
}

// pendingCall is the correlation-table entry for an outstanding CALL.
// Simple calls deliver exactly one CallResult on results and are then
// removed; progressive calls deliver zero or more progress results
// before a final non-progress result or error.
type pendingCall struct {
	kind    callKind
	results chan CallResult
	// killed is set by Kill; handleMessage drops further YIELDs/RESULTs
	// for a killed call instead of delivering them.
	killed bool
}

// pendingSubscribe/pendingUnsubscribe/pendingPublish/pendingRegister/
// pendingUnregister each resolve exactly once, matching the Rust
// peer_session_message::Result<T> one-shot channels.
type pendingSubscribe struct {
	done chan subscribeResult
}

type subscribeResult struct {
	sub *subscription
	err error
}

type pendingUnsubscribe struct {
	done chan error
}

type pendingPublish struct {
	done chan error
}

type pendingRegister struct {
	done chan registerResult
}

type registerResult struct {
	reg *registration
	err error
}

type pendingUnregister struct {
	done chan error
}
