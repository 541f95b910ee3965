package peer

import (
	"context"
	"fmt"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
)

// Hello sends HELLO for realm and returns once the resulting
// Establishing transition either succeeds (WELCOME) or fails (ABORT).
func (s *Session) Hello(ctx context.Context, realm wamp.URI, details wamp.Dictionary) error {
	established := s.Established()
	if err := s.SendMessage(wamp.HelloMessage{Realm: realm, Details: details}); err != nil {
		return err
	}
	select {
	case res := <-established:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Goodbye sends GOODBYE and waits for the session to finish closing.
func (s *Session) Goodbye(ctx context.Context, reason wamp.URI) error {
	closedCh := s.ClosedNotify()
	if err := s.SendMessage(wamp.GoodbyeMessage{Details: wamp.Dictionary{}, Reason: reason}); err != nil {
		return err
	}
	select {
	case <-closedCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe issues SUBSCRIBE and blocks for SUBSCRIBED/ERROR.
func (s *Session) Subscribe(ctx context.Context, topic wamp.URI, options wamp.Dictionary) (*subscription, error) {
	id := s.nextID()
	done := make(chan subscribeResult, 1)

	s.mu.Lock()
	s.pendingSubscribes[id] = &pendingSubscribe{done: done}
	s.mu.Unlock()

	if err := s.SendMessage(wamp.SubscribeMessage{Request: id, Options: options, Topic: topic}); err != nil {
		s.mu.Lock()
		delete(s.pendingSubscribes, id)
		s.mu.Unlock()
		return nil, err
	}

	select {
	case res := <-done:
		return res.sub, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Events returns the channel a subscription's EVENTs are delivered on.
func (sub *subscription) Events() <-chan Event { return sub.events }

// Unsubscribe issues UNSUBSCRIBE and blocks for UNSUBSCRIBED/ERROR.
func (s *Session) Unsubscribe(ctx context.Context, subscriptionID wamp.ID) error {
	id := s.nextID()
	done := make(chan error, 1)

	s.mu.Lock()
	s.pendingUnsubscribes[id] = &pendingUnsubscribe{done: done}
	s.mu.Unlock()

	if err := s.SendMessage(wamp.UnsubscribeMessage{Request: id, Subscription: subscriptionID}); err != nil {
		s.mu.Lock()
		delete(s.pendingUnsubscribes, id)
		s.mu.Unlock()
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish issues PUBLISH. When acknowledge is false it returns as soon
// as the message is sent, matching spec.md §4.3's "otherwise no reply".
func (s *Session) Publish(ctx context.Context, topic wamp.URI, args wamp.List, kwargs wamp.Dictionary, acknowledge bool) error {
	id := s.nextID()
	options := wamp.Dictionary{}
	if acknowledge {
		options["acknowledge"] = true
	}

	var done chan error
	if acknowledge {
		done = make(chan error, 1)
		s.mu.Lock()
		s.pendingPublishes[id] = &pendingPublish{done: done}
		s.mu.Unlock()
	}

	if err := s.SendMessage(wamp.PublishMessage{Request: id, Options: options, Topic: topic, Args: args, Kwargs: kwargs}); err != nil {
		if acknowledge {
			s.mu.Lock()
			delete(s.pendingPublishes, id)
			s.mu.Unlock()
		}
		return err
	}

	if !acknowledge {
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register issues REGISTER and blocks for REGISTERED/ERROR.
func (s *Session) Register(ctx context.Context, procedure wamp.URI, options wamp.Dictionary) (*registration, error) {
	id := s.nextID()
	done := make(chan registerResult, 1)

	s.mu.Lock()
	s.pendingRegisters[id] = &pendingRegister{done: done}
	s.mu.Unlock()

	if err := s.SendMessage(wamp.RegisterMessage{Request: id, Options: options, Procedure: procedure}); err != nil {
		s.mu.Lock()
		delete(s.pendingRegisters, id)
		s.mu.Unlock()
		return nil, err
	}

	select {
	case res := <-done:
		return res.reg, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invocations returns the channel this registration's INVOCATIONs
// arrive on.
func (reg *registration) Invocations() <-chan *Invocation { return reg.invoke }

// Unregister issues UNREGISTER and blocks for UNREGISTERED/ERROR.
func (s *Session) Unregister(ctx context.Context, registrationID wamp.ID) error {
	id := s.nextID()
	done := make(chan error, 1)

	s.mu.Lock()
	s.pendingUnregisters[id] = &pendingUnregister{done: done}
	s.mu.Unlock()

	if err := s.SendMessage(wamp.UnregisterMessage{Request: id, Registration: registrationID}); err != nil {
		s.mu.Lock()
		delete(s.pendingUnregisters, id)
		s.mu.Unlock()
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Yield answers one INVOCATION. final must be true on the last YIELD of
// a progressive call, or on the single YIELD of a simple call.
func (s *Session) Yield(invocationRequest wamp.ID, args wamp.List, kwargs wamp.Dictionary, final bool) error {
	options := wamp.Dictionary{}
	if !final {
		options["progress"] = true
	}
	return s.SendMessage(wamp.YieldMessage{InvocationRequest: invocationRequest, Options: options, Args: args, Kwargs: kwargs})
}

// Call issues CALL and returns a channel of CallResult. Simple calls
// deliver exactly one result before the channel closes; progressive
// calls (progressive=true) may deliver several progress results before
// a final one, per spec.md §4.2 "Pending call kinds".
func (s *Session) Call(ctx context.Context, procedure wamp.URI, args wamp.List, kwargs wamp.Dictionary, progressive bool) (wamp.ID, <-chan CallResult, error) {
	id := s.nextID()
	kind := callSimple
	options := wamp.Dictionary{}
	if progressive {
		kind = callProgressive
		options["receive_progress"] = true
	}

	results := make(chan CallResult, 4)
	pc := &pendingCall{kind: kind, results: results}

	s.mu.Lock()
	s.pendingCalls[id] = pc
	s.mu.Unlock()

	if err := s.SendMessage(wamp.CallMessage{Request: id, Options: options, Procedure: procedure, Args: args, Kwargs: kwargs}); err != nil {
		s.mu.Lock()
		delete(s.pendingCalls, id)
		s.mu.Unlock()
		return 0, nil, err
	}
	return id, results, nil
}

// Cancel is the soft counterpart of Kill. It reports ErrInteractionCanceled
// when callRequest is not a call in flight, and nil otherwise. It sends
// no message and does not change the pending call: the callee is not
// notified, and later RESULTs are delivered as before.
func (s *Session) Cancel(ctx context.Context, callRequest wamp.ID) error {
	s.mu.Lock()
	_, ok := s.pendingCalls[callRequest]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("peer %s: %w", s.name, pkgerrors.ErrInteractionCanceled)
	}
	// WAMP has no standalone CANCEL message in this tag table, and this
	// package sends none.
	return nil
}

// Kill hard-cancels a progressive call: the client stops consuming
// further results immediately, and any later YIELD for callRequest is
// dropped with a warning instead of delivered.
func (s *Session) Kill(callRequest wamp.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pc, ok := s.pendingCalls[callRequest]; ok {
		pc.killed = true
		close(pc.results)
		delete(s.pendingCalls, callRequest)
		if s.log != nil {
			s.log.Warn(fmt.Sprintf("peer %s: killed call %d", s.name, callRequest))
		}
	}
}
