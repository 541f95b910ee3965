package router

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
	"github.com/nmxmxh/battlerealm/pkg/logger"
)

type sessionKind int

const (
	sessionClosed sessionKind = iota
	sessionEstablished
	sessionClosing
)

func (k sessionKind) String() string {
	switch k {
	case sessionClosed:
		return "closed"
	case sessionEstablished:
		return "established"
	case sessionClosing:
		return "closing"
	default:
		return "unknown"
	}
}

func allowedSessionTransition(from, to sessionKind) bool {
	switch {
	case from == sessionClosed && to == sessionEstablished:
		return true
	case from == sessionEstablished && to == sessionClosing:
		return true
	case from == sessionEstablished && to == sessionClosed:
		return true
	case from == sessionClosing && to == sessionClosed:
		return true
	default:
		return false
	}
}

// pendingInvocation correlates one outstanding CALL routed to a callee
// with the caller awaiting its RESULT/ERROR, indexed by the invocation
// request ID allocated on the callee's session.
type pendingInvocation struct {
	callRequest wamp.ID
	caller      *Session
	progressive bool
}

// Session is the router-side mirror of peer.Session (spec.md §4.3):
// it welcomes peers into realms, routes PUBLISH/SUBSCRIBE/CALL/REGISTER
// traffic, and cleans up on disconnect.
type Session struct {
	router *Router
	id     wamp.ID
	sender Sender
	log    logger.Logger
	idGen  *wamp.IDGenerator

	mu            sync.Mutex
	kind          sessionKind
	realm         *Realm
	subscriptions map[wamp.ID]wamp.URI
	registrations map[wamp.ID]wamp.URI

	invocations map[wamp.ID]*pendingInvocation
}

func newSession(router *Router, id wamp.ID, sender Sender, log logger.Logger) *Session {
	return &Session{
		router:      router,
		id:          id,
		sender:      sender,
		log:         log,
		idGen:       wamp.NewIDGenerator(),
		kind:        sessionClosed,
		invocations: make(map[wamp.ID]*pendingInvocation),
	}
}

// ID returns the session's router-assigned identifier.
func (s *Session) ID() wamp.ID { return s.id }

// Closed reports whether the session has finished closing.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind == sessionClosed
}

func (s *Session) send(msg wamp.Message) error {
	return s.sender.Send(msg)
}

func (s *Session) transition(to sessionKind) error {
	if s.kind == to {
		return nil
	}
	if !allowedSessionTransition(s.kind, to) {
		return fmt.Errorf("%w: router session from %s to %s", pkgerrors.ErrIllegalTransition, s.kind, to)
	}
	s.kind = to
	if to == sessionEstablished {
		s.idGen.Reset()
	}
	return nil
}

// HandleMessage dispatches an inbound message to the per-state handler,
// sending ABORT on protocol violation (spec.md §4.3, mirroring §4.2's
// handle_message).
func (s *Session) HandleMessage(msg wamp.Message) error {
	if s.log != nil {
		s.log.Debug(fmt.Sprintf("router session %d received message: %s", s.id, msg.Tag()))
	}

	s.mu.Lock()
	kind := s.kind
	s.mu.Unlock()

	var err error
	switch kind {
	case sessionClosed:
		err = s.handleClosed(msg)
	case sessionEstablished:
		err = s.handleEstablished(msg)
	case sessionClosing:
		err = s.handleClosing(msg)
	}
	if err != nil {
		_ = s.send(wamp.AbortMessage{Details: wamp.Dictionary{}, Reason: "protocol_violation", Args: wamp.List{err.Error()}})
		return err
	}
	return nil
}

// handleClosed only accepts HELLO (spec.md §4.3 "Join").
func (s *Session) handleClosed(msg wamp.Message) error {
	hello, ok := msg.(wamp.HelloMessage)
	if !ok {
		return fmt.Errorf("%w: received %s message on a closed session", pkgerrors.ErrProtocolViolation, msg.Tag())
	}

	realm, err := s.router.Realm(hello.Realm)
	if err != nil {
		_ = s.send(wamp.AbortMessage{Details: wamp.Dictionary{}, Reason: "no_such_realm"})
		return err
	}

	s.mu.Lock()
	s.realm = realm
	s.subscriptions = make(map[wamp.ID]wamp.URI)
	s.registrations = make(map[wamp.ID]wamp.URI)
	if err := s.transition(sessionEstablished); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	realm.addSession(s)
	SessionsEstablished.WithLabelValues(string(realm.URI())).Inc()

	roles := wamp.Dictionary{}
	for _, role := range s.router.roles {
		roles[role] = wamp.Dictionary{}
	}
	details := wamp.Dictionary{"agent": s.router.agent, "roles": roles}

	return s.send(wamp.WelcomeMessage{SessionID: s.id, Details: details})
}

func (s *Session) handleEstablished(msg wamp.Message) error {
	switch m := msg.(type) {
	case wamp.AbortMessage:
		if s.log != nil {
			s.log.Warn(fmt.Sprintf("router session %d aborted by peer: %s", s.id, m.Reason))
		}
		return s.closeAndCleanUp()

	case wamp.GoodbyeMessage:
		s.mu.Lock()
		_ = s.transition(sessionClosing)
		s.mu.Unlock()
		if err := s.send(wamp.GoodbyeMessage{Details: wamp.Dictionary{}, Reason: "wamp.close.goodbye_and_out"}); err != nil {
			return err
		}
		return s.closeAndCleanUp()

	case wamp.SubscribeMessage:
		if err := s.handleSubscribe(m); err != nil {
			return s.send(errorForRequest(wamp.TagSubscribe, m.Request, err))
		}
		return nil

	case wamp.UnsubscribeMessage:
		if err := s.handleUnsubscribe(m); err != nil {
			return s.send(errorForRequest(wamp.TagUnsubscribe, m.Request, err))
		}
		return nil

	case wamp.PublishMessage:
		if err := s.handlePublish(m); err != nil {
			return s.send(errorForRequest(wamp.TagPublish, m.Request, err))
		}
		return nil

	case wamp.RegisterMessage:
		if err := s.handleRegister(m); err != nil {
			return s.send(errorForRequest(wamp.TagRegister, m.Request, err))
		}
		return nil

	case wamp.UnregisterMessage:
		if err := s.handleUnregister(m); err != nil {
			return s.send(errorForRequest(wamp.TagUnregister, m.Request, err))
		}
		return nil

	case wamp.CallMessage:
		if err := s.handleCall(m); err != nil {
			return s.send(errorForRequest(wamp.TagCall, m.Request, err))
		}
		return nil

	case wamp.YieldMessage:
		return s.handleYield(m)

	case wamp.ErrorMessage:
		return s.routeInvocationError(m)

	default:
		return fmt.Errorf("%w: received %s message on an established session", pkgerrors.ErrProtocolViolation, msg.Tag())
	}
}

func (s *Session) handleClosing(msg wamp.Message) error {
	if _, ok := msg.(wamp.GoodbyeMessage); ok {
		s.mu.Lock()
		err := s.transition(sessionClosed)
		s.mu.Unlock()
		return err
	}
	return nil
}

func errorForRequest(requestType wamp.Tag, request wamp.ID, err error) wamp.ErrorMessage {
	return wamp.ErrorMessage{
		RequestType: requestType,
		Request:     request,
		Details:     wamp.Dictionary{},
		Error:       wamp.URI("com.battlerealm.error." + errorSlug(err)),
		Args:        wamp.List{err.Error()},
	}
}

// errorSlug maps a sentinel error to the reason URI's final segment;
// unrecognized errors fall back to a generic slug rather than leaking
// Go error text into the URI itself.
func errorSlug(err error) string {
	switch {
	case errors.Is(err, pkgerrors.ErrNoSuchSubscription):
		return "no_such_subscription"
	case errors.Is(err, pkgerrors.ErrNoSuchRegistration):
		return "no_such_registration"
	case errors.Is(err, pkgerrors.ErrNoCalleeAvailable):
		return "no_callee_available"
	case errors.Is(err, pkgerrors.ErrProcedureAlreadyExists):
		return "procedure_already_exists"
	case errors.Is(err, pkgerrors.ErrMalformedURI):
		return "malformed_uri"
	default:
		return "application_error"
	}
}

func (s *Session) handleSubscribe(m wamp.SubscribeMessage) error {
	if err := m.Topic.ValidateWildcard(); err != nil {
		return err
	}
	matchStyle := matchStyleFromOptions(m.Options)

	s.mu.Lock()
	realm := s.realm
	s.mu.Unlock()
	if realm == nil {
		return fmt.Errorf("%w: session not established", pkgerrors.ErrProtocolViolation)
	}

	subID := realm.Topics.Subscribe(s.id, m.Topic, matchStyle)

	s.mu.Lock()
	s.subscriptions[subID] = m.Topic
	s.mu.Unlock()

	if err := s.send(wamp.SubscribedMessage{SubscribeRequest: m.Request, Subscription: subID}); err != nil {
		return err
	}
	// Activate only after SUBSCRIBED is sent, so the peer cannot receive
	// an EVENT before the confirmation (spec.md §4.3 "Subscribe path").
	realm.Topics.Activate(subID)
	SubscriptionsActive.WithLabelValues(string(realm.URI())).Set(float64(realm.Topics.ActiveCount()))
	return nil
}

func (s *Session) handleUnsubscribe(m wamp.UnsubscribeMessage) error {
	s.mu.Lock()
	_, ok := s.subscriptions[m.Subscription]
	if ok {
		delete(s.subscriptions, m.Subscription)
	}
	realm := s.realm
	s.mu.Unlock()

	if !ok {
		return pkgerrors.ErrNoSuchSubscription
	}
	realm.Topics.Unsubscribe(m.Subscription)
	SubscriptionsActive.WithLabelValues(string(realm.URI())).Set(float64(realm.Topics.ActiveCount()))
	return s.send(wamp.UnsubscribedMessage{UnsubscribeRequest: m.Request})
}

func (s *Session) handlePublish(m wamp.PublishMessage) error {
	s.mu.Lock()
	realm := s.realm
	s.mu.Unlock()
	if realm == nil {
		return fmt.Errorf("%w: session not established", pkgerrors.ErrProtocolViolation)
	}

	pubID, matched := realm.Topics.Publish(context.Background(), m.Topic, m.Args, m.Kwargs, realm.sender)
	if matched > 0 {
		PublicationsRouted.WithLabelValues(string(realm.URI())).Inc()
	}

	acknowledge, _ := m.Options["acknowledge"].(bool)
	if !acknowledge {
		return nil
	}
	return s.send(wamp.PublishedMessage{PublishRequest: m.Request, Publication: pubID})
}

func (s *Session) handleRegister(m wamp.RegisterMessage) error {
	if err := m.Procedure.ValidateWildcard(); err != nil {
		return err
	}
	matchStyle := matchStyleFromOptions(m.Options)

	s.mu.Lock()
	realm := s.realm
	s.mu.Unlock()
	if realm == nil {
		return fmt.Errorf("%w: session not established", pkgerrors.ErrProtocolViolation)
	}

	regID, err := realm.Procedures.Register(s.id, m.Procedure, matchStyle)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.registrations[regID] = m.Procedure
	s.mu.Unlock()

	if err := s.send(wamp.RegisteredMessage{RegisterRequest: m.Request, Registration: regID}); err != nil {
		return err
	}
	realm.Procedures.Activate(regID)
	ProceduresActive.WithLabelValues(string(realm.URI())).Set(float64(realm.Procedures.ActiveCount()))
	return nil
}

func (s *Session) handleUnregister(m wamp.UnregisterMessage) error {
	s.mu.Lock()
	_, ok := s.registrations[m.Registration]
	if ok {
		delete(s.registrations, m.Registration)
	}
	realm := s.realm
	s.mu.Unlock()

	if !ok {
		return pkgerrors.ErrNoSuchRegistration
	}
	realm.Procedures.Unregister(m.Registration)
	ProceduresActive.WithLabelValues(string(realm.URI())).Set(float64(realm.Procedures.ActiveCount()))
	return s.send(wamp.UnregisteredMessage{UnregisterRequest: m.Request})
}

// handleCall locates the callee, allocates an invocation ID on the
// callee's own session, and records the correlation so handleYield can
// relay the eventual RESULT back (spec.md §4.3 "Call path").
func (s *Session) handleCall(m wamp.CallMessage) error {
	s.mu.Lock()
	realm := s.realm
	s.mu.Unlock()
	if realm == nil {
		return fmt.Errorf("%w: session not established", pkgerrors.ErrProtocolViolation)
	}

	registrationID, calleeID, ok := realm.Procedures.Resolve(m.Procedure)
	if !ok {
		return fmt.Errorf("%w: %s", pkgerrors.ErrNoCalleeAvailable, m.Procedure)
	}

	realm.mu.RLock()
	callee, ok := realm.sessions[calleeID]
	realm.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: callee session gone", pkgerrors.ErrNoCalleeAvailable)
	}

	progressive, _ := m.Options["receive_progress"].(bool)
	invocationID := callee.idGen.Next()

	callee.mu.Lock()
	callee.invocations[invocationID] = &pendingInvocation{callRequest: m.Request, caller: s, progressive: progressive}
	callee.mu.Unlock()

	details := wamp.Dictionary{}
	if progressive {
		details["receive_progress"] = true
	}
	return callee.send(wamp.InvocationMessage{
		Request:      invocationID,
		Registration: registrationID,
		Details:      details,
		Args:         m.Args,
		Kwargs:       m.Kwargs,
	})
}

// handleYield relays a callee's YIELD back to the original caller as a
// RESULT, respecting the progressive-call relay rule in spec.md §4.3
// "Call path".
func (s *Session) handleYield(m wamp.YieldMessage) error {
	s.mu.Lock()
	inv, ok := s.invocations[m.InvocationRequest]
	progress, _ := m.Options["progress"].(bool)
	final := !progress
	if ok && final {
		delete(s.invocations, m.InvocationRequest)
	}
	s.mu.Unlock()

	if !ok {
		if s.log != nil {
			s.log.Warn(fmt.Sprintf("router session %d: dropped YIELD for unknown invocation %d", s.id, m.InvocationRequest))
		}
		return nil
	}

	details := wamp.Dictionary{}
	if inv.progressive && !final {
		details["progress"] = true
	}
	return inv.caller.send(wamp.ResultMessage{
		CallRequest: inv.callRequest,
		Details:     details,
		Args:        m.Args,
		Kwargs:      m.Kwargs,
	})
}

// routeInvocationError relays a callee's ERROR for an INVOCATION back
// to the caller as an ERROR of the original CALL.
func (s *Session) routeInvocationError(m wamp.ErrorMessage) error {
	if m.RequestType != wamp.TagInvocation {
		return fmt.Errorf("%w: invalid request type %s in ERROR message", pkgerrors.ErrProtocolViolation, m.RequestType)
	}

	s.mu.Lock()
	inv, ok := s.invocations[m.Request]
	if ok {
		delete(s.invocations, m.Request)
	}
	s.mu.Unlock()

	if !ok {
		if s.log != nil {
			s.log.Warn(fmt.Sprintf("router session %d: dropped ERROR for unknown invocation %d", s.id, m.Request))
		}
		return nil
	}

	return inv.caller.send(wamp.ErrorMessage{
		RequestType: wamp.TagCall,
		Request:     inv.callRequest,
		Details:     wamp.Dictionary{},
		Error:       m.Error,
		Args:        m.Args,
		Kwargs:      m.Kwargs,
	})
}

// closeAndCleanUp transitions to Closed and runs clean_up: unsubscribe
// every subscription, unregister every procedure, remove the session
// from its realm (spec.md §4.3 "Close and cleanup").
func (s *Session) closeAndCleanUp() error {
	s.mu.Lock()
	_ = s.transition(sessionClosed)
	realm := s.realm
	subs := s.subscriptions
	regs := s.registrations
	s.subscriptions = nil
	s.registrations = nil
	s.mu.Unlock()

	if realm == nil {
		return nil
	}
	for id := range subs {
		realm.Topics.Unsubscribe(id)
	}
	for id := range regs {
		realm.Procedures.Unregister(id)
	}
	realm.removeSession(s.id)
	SubscriptionsActive.WithLabelValues(string(realm.URI())).Set(float64(realm.Topics.ActiveCount()))
	ProceduresActive.WithLabelValues(string(realm.URI())).Set(float64(realm.Procedures.ActiveCount()))
	return nil
}

// CleanUp is the exported entry point for transport-close cleanup
// (spec.md §4.3 "On transport close, run clean_up").
func (s *Session) CleanUp() { _ = s.closeAndCleanUp() }

func matchStyleFromOptions(options wamp.Dictionary) wamp.MatchStyle {
	switch v, _ := options["match"].(string); v {
	case "prefix":
		return wamp.MatchPrefix
	case "wildcard":
		return wamp.MatchWildcard
	default:
		return wamp.MatchExact
	}
}
