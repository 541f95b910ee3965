package peer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/pkg/logger"
)

// fakeSender records every message sent through it and lets a test
// script canned responses back into the session under test.
type fakeSender struct {
	sent    []wamp.Message
	session *Session
}

func (f *fakeSender) Send(msg wamp.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func newTestLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Environment: "development", LogLevel: "debug", ServiceName: "peer-test"})
	require.NoError(t, err)
	return log
}

func newTestSession(t *testing.T) (*Session, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	s := New("test-peer", sender, newTestLogger(t))
	sender.session = s
	return s, sender
}

func TestHelloWelcomeEstablishes(t *testing.T) {
	s, sender := newTestSession(t)

	established := s.Established()

	go func() {
		time.Sleep(5 * time.Millisecond)
		require.NoError(t, s.HandleMessage(wamp.WelcomeMessage{SessionID: 7, Details: wamp.Dictionary{}}))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Hello(ctx, "com.battlerealm.realm", wamp.Dictionary{})
	require.NoError(t, err)
	assert.False(t, s.Closed())

	select {
	case res := <-established:
		assert.NoError(t, res.Err)
		assert.Equal(t, wamp.URI("com.battlerealm.realm"), res.Realm)
	case <-time.After(time.Second):
		t.Fatal("expected establish notification")
	}

	require.Len(t, sender.sent, 1)
	_, ok := sender.sent[0].(wamp.HelloMessage)
	assert.True(t, ok)
}

func TestHelloAbortFailsEstablish(t *testing.T) {
	s, _ := newTestSession(t)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = s.HandleMessage(wamp.AbortMessage{Details: wamp.Dictionary{}, Reason: "no_such_realm"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.Hello(ctx, "com.battlerealm.missing", wamp.Dictionary{})
	assert.Error(t, err)
	assert.True(t, s.Closed())
}

func TestHandleMessageOnClosedSessionIsProtocolViolation(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.HandleMessage(wamp.WelcomeMessage{SessionID: 1})
	assert.Error(t, err)
}

func establish(t *testing.T, s *Session) {
	t.Helper()
	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = s.HandleMessage(wamp.WelcomeMessage{SessionID: 1, Details: wamp.Dictionary{}})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Hello(ctx, "com.battlerealm.realm", wamp.Dictionary{}))
}

func TestSubscribeRoundTrip(t *testing.T) {
	s, sender := newTestSession(t)
	establish(t, s)

	go func() {
		time.Sleep(5 * time.Millisecond)
		last := sender.sent[len(sender.sent)-1].(wamp.SubscribeMessage)
		_ = s.HandleMessage(wamp.SubscribedMessage{SubscribeRequest: last.Request, Subscription: 99})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := s.Subscribe(ctx, "com.battlerealm.ping", wamp.Dictionary{})
	require.NoError(t, err)
	require.NotNil(t, sub)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = s.HandleMessage(wamp.EventMessage{Subscription: 99, Publication: 1, Details: wamp.Dictionary{}, Args: wamp.List{"hi"}})
	}()

	select {
	case ev := <-sub.Events():
		assert.Equal(t, wamp.List{"hi"}, ev.Args)
	case <-time.After(time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestCallSimpleRoundTrip(t *testing.T) {
	s, sender := newTestSession(t)
	establish(t, s)

	go func() {
		time.Sleep(5 * time.Millisecond)
		last := sender.sent[len(sender.sent)-1].(wamp.CallMessage)
		_ = s.HandleMessage(wamp.ResultMessage{CallRequest: last.Request, Details: wamp.Dictionary{}, Args: wamp.List{float64(42)}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, results, err := s.Call(ctx, "com.battlerealm.echo", wamp.List{float64(42)}, nil, false)
	require.NoError(t, err)

	select {
	case res := <-results:
		require.NoError(t, res.Err)
		assert.Equal(t, wamp.List{float64(42)}, res.Args)
	case <-time.After(time.Second):
		t.Fatal("expected call result")
	}
}

func TestCallProgressiveThenKill(t *testing.T) {
	s, _ := newTestSession(t)
	establish(t, s)

	id, results, err := s.Call(context.Background(), "com.battlerealm.stream", nil, nil, true)
	require.NoError(t, err)

	require.NoError(t, s.HandleMessage(wamp.ResultMessage{CallRequest: id, Details: wamp.Dictionary{"progress": true}, Args: wamp.List{float64(1)}}))

	select {
	case res := <-results:
		assert.True(t, res.Progress)
	case <-time.After(time.Second):
		t.Fatal("expected progress result")
	}

	s.Kill(id)
	// A YIELD/RESULT arriving after Kill is dropped, not delivered.
	err = s.HandleMessage(wamp.ResultMessage{CallRequest: id, Details: wamp.Dictionary{}, Args: wamp.List{float64(2)}})
	require.NoError(t, err)
}

func TestUnknownCorrelationIsDroppedNotFatal(t *testing.T) {
	s, _ := newTestSession(t)
	establish(t, s)

	err := s.HandleMessage(wamp.SubscribedMessage{SubscribeRequest: 12345, Subscription: 1})
	assert.NoError(t, err)
}

func TestGoodbyeTransitionsToClosed(t *testing.T) {
	s, sender := newTestSession(t)
	establish(t, s)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = s.HandleMessage(wamp.GoodbyeMessage{Details: wamp.Dictionary{}, Reason: "wamp.close.normal"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Goodbye(ctx, "wamp.close.normal"))
	assert.True(t, s.Closed())

	var sawGoodbye int
	for _, m := range sender.sent {
		if _, ok := m.(wamp.GoodbyeMessage); ok {
			sawGoodbye++
		}
	}
	assert.Equal(t, 1, sawGoodbye) // only our outbound GOODBYE; the router's GOODBYE reply needs no echo
}
