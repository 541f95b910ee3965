package peer

import (
	"fmt"
	"sync"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
	"github.com/nmxmxh/battlerealm/pkg/logger"
)

// Sender writes one outbound WAMP message to the underlying transport.
// The concrete implementation (websocket frame, in-process pipe, ...) is
// supplied through New or SetSender, e.g. by the reconnect loop with the
// sender transport.DialClient returns; Session itself never touches a
// socket.
type Sender interface {
	Send(msg wamp.Message) error
}

// EstablishResult reports the outcome of a HELLO: either the realm the
// session joined, or the error that aborted establishment.
type EstablishResult struct {
	Realm wamp.URI
	Err   error
}

// Session drives one peer-side WAMP session end to end: the FSM from
// spec.md §3 "Session state", outgoing request correlation, and
// incoming EVENT/INVOCATION fan-out. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	name   string
	sender Sender
	log    logger.Logger
	idGen  *wamp.IDGenerator
	state  sessionState

	pendingCalls        map[wamp.ID]*pendingCall
	pendingSubscribes   map[wamp.ID]*pendingSubscribe
	pendingUnsubscribes map[wamp.ID]*pendingUnsubscribe
	pendingPublishes    map[wamp.ID]*pendingPublish
	pendingRegisters    map[wamp.ID]*pendingRegister
	pendingUnregisters  map[wamp.ID]*pendingUnregister

	established *broadcaster[EstablishResult]
	closed      *broadcaster[struct{}]
}

// New creates a peer session named for logging purposes. sender may be
// nil at construction time and set later via SetSender once a transport
// is dialed (the reconnect loop does exactly this).
func New(name string, sender Sender, log logger.Logger) *Session {
	return &Session{
		name:                name,
		sender:              sender,
		log:                 log,
		idGen:               wamp.NewIDGenerator(),
		state:               closedState(),
		pendingCalls:        make(map[wamp.ID]*pendingCall),
		pendingSubscribes:   make(map[wamp.ID]*pendingSubscribe),
		pendingUnsubscribes: make(map[wamp.ID]*pendingUnsubscribe),
		pendingPublishes:    make(map[wamp.ID]*pendingPublish),
		pendingRegisters:    make(map[wamp.ID]*pendingRegister),
		pendingUnregisters:  make(map[wamp.ID]*pendingUnregister),
		established:         newBroadcaster[EstablishResult](16),
		closed:              newBroadcaster[struct{}](16),
	}
}

// SetSender swaps in a new transport sender, used after a reconnect.
func (s *Session) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// Name returns the session's log-friendly identifier.
func (s *Session) Name() string { return s.name }

// Closed reports whether the session is in the Closed state.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.kind == stateClosed
}

// Established subscribes to future establish/abort notifications.
func (s *Session) Established() <-chan EstablishResult { return s.established.Subscribe() }

// ClosedNotify subscribes to future session-closed notifications.
func (s *Session) ClosedNotify() <-chan struct{} { return s.closed.Subscribe() }

// nextID allocates the next sequential request ID for this session.
func (s *Session) nextID() wamp.ID { return s.idGen.Next() }

// SendMessage serializes the legality of the outgoing message against
// the FSM, then hands it to the sender (spec.md §4.2 "send_message").
func (s *Session) SendMessage(msg wamp.Message) error {
	s.mu.Lock()
	if err := s.transitionFromSending(msg); err != nil {
		s.mu.Unlock()
		if _, ok := msg.(wamp.HelloMessage); ok {
			s.established.Publish(EstablishResult{Err: err})
		}
		return err
	}
	sender := s.sender
	s.mu.Unlock()

	if sender == nil {
		return fmt.Errorf("peer %s: %w", s.name, pkgerrors.ErrPeerNotConnected)
	}
	return sender.Send(msg)
}

// transitionFromSending mirrors the Rust
// transition_state_from_sending_message match: HELLO moves to
// Establishing, ABORT moves to Closed, GOODBYE moves Established->
// Closing or Closing->Closed, UNSUBSCRIBE drops the local subscription
// record optimistically.
func (s *Session) transitionFromSending(msg wamp.Message) error {
	switch m := msg.(type) {
	case wamp.HelloMessage:
		return s.transitionLocked(sessionState{kind: stateEstablishing, establish: &establishingState{realm: m.Realm}})
	case wamp.AbortMessage:
		return s.transitionLocked(closedState())
	case wamp.GoodbyeMessage:
		next := stateClosing
		if s.state.kind == stateClosing {
			next = stateClosed
		}
		return s.transitionLocked(sessionState{kind: next})
	case wamp.UnsubscribeMessage:
		if s.state.established != nil {
			delete(s.state.established.subscriptions, m.Subscription)
		}
		return nil
	default:
		return nil
	}
}

// transitionLocked must be called with s.mu held.
func (s *Session) transitionLocked(next sessionState) error {
	if s.state.sameKind(next.kind) {
		return nil
	}
	if !allowedTransition(s.state.kind, next.kind) {
		return invalidTransitionErr(s.state.kind, next.kind)
	}
	prev := s.state.kind
	s.state = next
	if s.log != nil {
		s.log.Debug(fmt.Sprintf("peer %s transitioned from %s to %s", s.name, prev, next.kind))
	}

	switch next.kind {
	case stateEstablished:
		s.idGen.Reset()
		realm := next.established.realm
		if s.log != nil {
			s.log.Info(fmt.Sprintf("peer %s established session %d on realm %s", s.name, next.established.sessionID, realm))
		}
		s.established.Publish(EstablishResult{Realm: realm})
	case stateClosed:
		s.failAllPending(fmt.Errorf("peer %s: %w", s.name, pkgerrors.ErrInteractionCanceled))
		s.closed.Publish(struct{}{})
	}
	return nil
}

// failAllPending completes every outstanding correlation with a
// cancellation error when the session closes; must be called with
// s.mu held.
func (s *Session) failAllPending(err error) {
	for id, p := range s.pendingCalls {
		if !p.killed {
			p.results <- CallResult{Err: err}
			close(p.results)
		}
		delete(s.pendingCalls, id)
	}
	for id, p := range s.pendingSubscribes {
		p.done <- subscribeResult{err: err}
		delete(s.pendingSubscribes, id)
	}
	for id, p := range s.pendingUnsubscribes {
		p.done <- err
		delete(s.pendingUnsubscribes, id)
	}
	for id, p := range s.pendingPublishes {
		p.done <- err
		delete(s.pendingPublishes, id)
	}
	for id, p := range s.pendingRegisters {
		p.done <- registerResult{err: err}
		delete(s.pendingRegisters, id)
	}
	for id, p := range s.pendingUnregisters {
		p.done <- err
		delete(s.pendingUnregisters, id)
	}
}
