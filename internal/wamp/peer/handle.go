package peer

import (
	"fmt"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
)

// HandleMessage dispatches an inbound WAMP message to the per-state
// handler; on protocol violation it sends ABORT and surfaces the error
// (spec.md §4.2 "handle_message").
func (s *Session) HandleMessage(msg wamp.Message) error {
	if s.log != nil {
		s.log.Debug(fmt.Sprintf("peer %s received message: %s", s.name, msg.Tag()))
	}
	if err := s.handleOnStateMachine(msg); err != nil {
		abortErr := s.SendMessage(wamp.AbortMessage{
			Details: wamp.Dictionary{},
			Reason:  "protocol_violation",
			Args:    wamp.List{err.Error()},
		})
		if abortErr != nil && s.log != nil {
			s.log.Warn(fmt.Sprintf("peer %s failed to send ABORT: %v", s.name, abortErr))
		}
		return err
	}
	return nil
}

func (s *Session) handleOnStateMachine(msg wamp.Message) error {
	s.mu.Lock()
	kind := s.state.kind
	s.mu.Unlock()

	switch kind {
	case stateClosed:
		return fmt.Errorf("%w: received %s message on a closed session", pkgerrors.ErrProtocolViolation, msg.Tag())
	case stateEstablishing:
		return s.handleEstablishing(msg)
	case stateEstablished:
		return s.handleEstablished(msg)
	case stateClosing:
		return s.handleClosing(msg)
	default:
		return fmt.Errorf("%w: unknown session state", pkgerrors.ErrProtocolViolation)
	}
}

func (s *Session) handleEstablishing(msg wamp.Message) error {
	switch m := msg.(type) {
	case wamp.WelcomeMessage:
		s.mu.Lock()
		realm := s.state.establish.realm
		s.mu.Unlock()
		return s.transitionLockedPublic(sessionState{
			kind: stateEstablished,
			established: &establishedState{
				sessionID:     m.SessionID,
				realm:         realm,
				subscriptions: make(map[wamp.ID]*subscription),
				registrations: make(map[wamp.ID]*registration),
			},
		})
	case wamp.AbortMessage:
		if err := s.transitionLockedPublic(closedState()); err != nil {
			return err
		}
		s.established.Publish(EstablishResult{Err: applicationErrorFromAbort(m)})
		return nil
	default:
		return fmt.Errorf("%w: received %s message on an establishing session", pkgerrors.ErrProtocolViolation, msg.Tag())
	}
}

func (s *Session) handleEstablished(msg wamp.Message) error {
	switch m := msg.(type) {
	case wamp.AbortMessage:
		if s.log != nil {
			s.log.Warn(fmt.Sprintf("peer session for %s aborted by peer: %s", s.name, m.Reason))
		}
		return s.transitionLockedPublic(closedState())

	case wamp.GoodbyeMessage:
		if err := s.transitionLockedPublic(sessionState{kind: stateClosing}); err != nil {
			return err
		}
		return s.SendMessage(wamp.GoodbyeMessage{Details: wamp.Dictionary{}, Reason: "wamp.close.goodbye_and_out"})

	case wamp.ErrorMessage:
		return s.routeError(m)

	case wamp.SubscribedMessage:
		return s.completeSubscribe(m)

	case wamp.UnsubscribedMessage:
		return s.completeUnsubscribe(m)

	case wamp.PublishedMessage:
		return s.completePublish(m)

	case wamp.RegisteredMessage:
		return s.completeRegister(m)

	case wamp.UnregisteredMessage:
		return s.completeUnregister(m)

	case wamp.ResultMessage:
		return s.completeCall(m)

	case wamp.EventMessage:
		return s.dispatchEvent(m)

	case wamp.InvocationMessage:
		return s.dispatchInvocation(m)

	default:
		return fmt.Errorf("%w: received %s message on an established session", pkgerrors.ErrProtocolViolation, msg.Tag())
	}
}

func (s *Session) handleClosing(msg wamp.Message) error {
	switch msg.(type) {
	case wamp.GoodbyeMessage:
		return s.transitionLockedPublic(closedState())
	default:
		return fmt.Errorf("%w: received %s message on a closing session", pkgerrors.ErrProtocolViolation, msg.Tag())
	}
}

// transitionLockedPublic acquires the lock and performs the transition;
// handle.go calls this instead of transitionLocked directly since its
// callers are not already holding s.mu.
func (s *Session) transitionLockedPublic(next sessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(next)
}

func applicationErrorFromAbort(m wamp.AbortMessage) error {
	return fmt.Errorf("%w: %s", pkgerrors.ErrApplicationError, m.Reason)
}

// routeError correlates an incoming ERROR to whichever pending table
// matches its RequestType, per spec.md §4.2 "Correlation": unknown IDs
// are dropped with a warning, not fatal.
func (s *Session) routeError(m wamp.ErrorMessage) error {
	err := fmt.Errorf("%w: %s", pkgerrors.ErrApplicationError, m.Error)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch m.RequestType {
	case wamp.TagSubscribe:
		if p, ok := s.pendingSubscribes[m.Request]; ok {
			p.done <- subscribeResult{err: err}
			delete(s.pendingSubscribes, m.Request)
		} else {
			s.warnUnknownCorrelation(m.Request, m.RequestType)
		}
	case wamp.TagUnsubscribe:
		if p, ok := s.pendingUnsubscribes[m.Request]; ok {
			p.done <- err
			delete(s.pendingUnsubscribes, m.Request)
		} else {
			s.warnUnknownCorrelation(m.Request, m.RequestType)
		}
	case wamp.TagPublish:
		if p, ok := s.pendingPublishes[m.Request]; ok {
			p.done <- err
			delete(s.pendingPublishes, m.Request)
		} else {
			s.warnUnknownCorrelation(m.Request, m.RequestType)
		}
	case wamp.TagRegister:
		if p, ok := s.pendingRegisters[m.Request]; ok {
			p.done <- registerResult{err: err}
			delete(s.pendingRegisters, m.Request)
		} else {
			s.warnUnknownCorrelation(m.Request, m.RequestType)
		}
	case wamp.TagUnregister:
		if p, ok := s.pendingUnregisters[m.Request]; ok {
			p.done <- err
			delete(s.pendingUnregisters, m.Request)
		} else {
			s.warnUnknownCorrelation(m.Request, m.RequestType)
		}
	case wamp.TagCall:
		if p, ok := s.pendingCalls[m.Request]; ok {
			if !p.killed {
				p.results <- CallResult{Err: err}
				close(p.results)
			}
			delete(s.pendingCalls, m.Request)
		} else {
			s.warnUnknownCorrelation(m.Request, m.RequestType)
		}
	default:
		return fmt.Errorf("%w: invalid request type %s in ERROR message", pkgerrors.ErrProtocolViolation, m.RequestType)
	}
	return nil
}

func (s *Session) warnUnknownCorrelation(id wamp.ID, requestType wamp.Tag) {
	if s.log != nil {
		s.log.Warn(fmt.Sprintf("peer %s: dropped %s correlation for unknown request %d", s.name, requestType, id))
	}
}

func (s *Session) completeSubscribe(m wamp.SubscribedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pendingSubscribes[m.SubscribeRequest]
	if !ok {
		s.warnUnknownCorrelation(m.SubscribeRequest, wamp.TagSubscribe)
		return nil
	}
	delete(s.pendingSubscribes, m.SubscribeRequest)

	sub := &subscription{requestID: m.SubscribeRequest, events: make(chan Event, 32)}
	if s.state.established != nil {
		s.state.established.subscriptions[m.Subscription] = sub
	}
	p.done <- subscribeResult{sub: sub}
	return nil
}

func (s *Session) completeUnsubscribe(m wamp.UnsubscribedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendingUnsubscribes[m.UnsubscribeRequest]
	if !ok {
		s.warnUnknownCorrelation(m.UnsubscribeRequest, wamp.TagUnsubscribe)
		return nil
	}
	delete(s.pendingUnsubscribes, m.UnsubscribeRequest)
	p.done <- nil
	return nil
}

func (s *Session) completePublish(m wamp.PublishedMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendingPublishes[m.PublishRequest]
	if !ok {
		s.warnUnknownCorrelation(m.PublishRequest, wamp.TagPublish)
		return nil
	}
	delete(s.pendingPublishes, m.PublishRequest)
	p.done <- nil
	return nil
}

func (s *Session) completeRegister(m wamp.RegisteredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendingRegisters[m.RegisterRequest]
	if !ok {
		s.warnUnknownCorrelation(m.RegisterRequest, wamp.TagRegister)
		return nil
	}
	delete(s.pendingRegisters, m.RegisterRequest)

	reg := &registration{requestID: m.RegisterRequest, invoke: make(chan *Invocation, 32)}
	if s.state.established != nil {
		s.state.established.registrations[m.Registration] = reg
	}
	p.done <- registerResult{reg: reg}
	return nil
}

func (s *Session) completeUnregister(m wamp.UnregisteredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendingUnregisters[m.UnregisterRequest]
	if !ok {
		s.warnUnknownCorrelation(m.UnregisterRequest, wamp.TagUnregister)
		return nil
	}
	delete(s.pendingUnregisters, m.UnregisterRequest)
	p.done <- nil
	return nil
}

// completeCall delivers a RESULT to its pending call, respecting the
// simple/progressive distinction in spec.md §4.2 "Pending call kinds".
func (s *Session) completeCall(m wamp.ResultMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pendingCalls[m.CallRequest]
	if !ok {
		s.warnUnknownCorrelation(m.CallRequest, wamp.TagCall)
		return nil
	}

	progress, _ := m.Details["progress"].(bool)
	if !p.killed {
		p.results <- CallResult{Args: m.Args, Kwargs: m.Kwargs, Progress: progress}
	}

	if p.kind == callSimple || !progress {
		close(p.results)
		delete(s.pendingCalls, m.CallRequest)
	}
	return nil
}

func (s *Session) dispatchEvent(m wamp.EventMessage) error {
	s.mu.Lock()
	var sub *subscription
	if s.state.established != nil {
		sub = s.state.established.subscriptions[m.Subscription]
	}
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	select {
	case sub.events <- Event{Args: m.Args, Kwargs: m.Kwargs}:
	default:
		if s.log != nil {
			s.log.Warn(fmt.Sprintf("peer %s: dropped event for subscription %d, listener too slow", s.name, m.Subscription))
		}
	}
	return nil
}

func (s *Session) dispatchInvocation(m wamp.InvocationMessage) error {
	s.mu.Lock()
	var reg *registration
	if s.state.established != nil {
		reg = s.state.established.registrations[m.Registration]
	}
	s.mu.Unlock()

	if reg == nil {
		return fmt.Errorf("%w: invocation for unknown registration %d", pkgerrors.ErrProtocolViolation, m.Registration)
	}
	progress, _ := m.Details["receive_progress"].(bool)
	select {
	case reg.invoke <- &Invocation{Request: m.Request, Args: m.Args, Kwargs: m.Kwargs, Progress: progress}:
	default:
		if s.log != nil {
			s.log.Warn(fmt.Sprintf("peer %s: dropped invocation for registration %d, handler too slow", s.name, m.Registration))
		}
	}
	return nil
}
