package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/pkg/logger"
)

type fakeSender struct {
	sent []wamp.Message
}

func (f *fakeSender) Send(msg wamp.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) last() wamp.Message {
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	log, err := logger.New(logger.Config{Environment: "development", LogLevel: "debug", ServiceName: "router-test"})
	require.NoError(t, err)
	rt := New(Config{Agent: "battlerealm-test", Roles: []string{"broker", "dealer"}}, log)
	require.NoError(t, rt.Bootstrap([]wamp.URI{"com.battlerealm.realm"}))
	return rt
}

func joinSession(t *testing.T, rt *Router) (*Session, *fakeSender) {
	t.Helper()
	sender := &fakeSender{}
	s := rt.NewSession(sender, nil)
	require.NoError(t, s.HandleMessage(wamp.HelloMessage{Realm: "com.battlerealm.realm", Details: wamp.Dictionary{}}))
	_, ok := sender.last().(wamp.WelcomeMessage)
	require.True(t, ok)
	return s, sender
}

func TestHelloUnknownRealmAborts(t *testing.T) {
	rt := newTestRouter(t)
	sender := &fakeSender{}
	s := rt.NewSession(sender, nil)
	err := s.HandleMessage(wamp.HelloMessage{Realm: "com.battlerealm.missing"})
	assert.Error(t, err)
	_, ok := sender.last().(wamp.AbortMessage)
	assert.True(t, ok)
}

func TestHelloWelcomesIntoRealm(t *testing.T) {
	rt := newTestRouter(t)
	s, sender := joinSession(t, rt)
	assert.False(t, s.Closed())

	welcome := sender.last().(wamp.WelcomeMessage)
	assert.Equal(t, s.ID(), welcome.SessionID)
	assert.Equal(t, "battlerealm-test", welcome.Details["agent"])
}

func TestSubscribePublishDeliversEvent(t *testing.T) {
	rt := newTestRouter(t)
	subscriber, subSender := joinSession(t, rt)
	publisher, _ := joinSession(t, rt)

	require.NoError(t, subscriber.HandleMessage(wamp.SubscribeMessage{Request: 1, Options: wamp.Dictionary{}, Topic: "com.battlerealm.ping"}))
	subscribed := subSender.last().(wamp.SubscribedMessage)
	assert.Equal(t, wamp.ID(1), subscribed.SubscribeRequest)

	require.NoError(t, publisher.HandleMessage(wamp.PublishMessage{
		Request: 2, Options: wamp.Dictionary{"acknowledge": true}, Topic: "com.battlerealm.ping", Args: wamp.List{"hi"},
	}))

	var event wamp.EventMessage
	var found bool
	for _, m := range subSender.sent {
		if ev, ok := m.(wamp.EventMessage); ok {
			event = ev
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, subscribed.Subscription, event.Subscription)
	assert.Equal(t, wamp.List{"hi"}, event.Args)
}

func TestPublishNoSubscribersStillAcknowledges(t *testing.T) {
	rt := newTestRouter(t)
	publisher, pubSender := joinSession(t, rt)

	require.NoError(t, publisher.HandleMessage(wamp.PublishMessage{
		Request: 1, Options: wamp.Dictionary{"acknowledge": true}, Topic: "com.battlerealm.nobody",
	}))
	published, ok := pubSender.last().(wamp.PublishedMessage)
	require.True(t, ok)
	assert.Equal(t, wamp.ID(1), published.PublishRequest)
}

func TestRegisterDuplicateRejected(t *testing.T) {
	rt := newTestRouter(t)
	callee1, sender1 := joinSession(t, rt)
	callee2, sender2 := joinSession(t, rt)

	require.NoError(t, callee1.HandleMessage(wamp.RegisterMessage{Request: 1, Options: wamp.Dictionary{}, Procedure: "com.battlerealm.echo"}))
	_, ok := sender1.last().(wamp.RegisteredMessage)
	require.True(t, ok)

	require.NoError(t, callee2.HandleMessage(wamp.RegisterMessage{Request: 1, Options: wamp.Dictionary{}, Procedure: "com.battlerealm.echo"}))
	errMsg, ok := sender2.last().(wamp.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, wamp.TagRegister, errMsg.RequestType)
}

func TestCallRoutesToCalleeAndBackToCaller(t *testing.T) {
	rt := newTestRouter(t)
	callee, calleeSender := joinSession(t, rt)
	caller, callerSender := joinSession(t, rt)

	require.NoError(t, callee.HandleMessage(wamp.RegisterMessage{Request: 1, Options: wamp.Dictionary{}, Procedure: "com.battlerealm.echo"}))

	require.NoError(t, caller.HandleMessage(wamp.CallMessage{Request: 5, Options: wamp.Dictionary{}, Procedure: "com.battlerealm.echo", Args: wamp.List{"ping"}}))

	invocation := calleeSender.last().(wamp.InvocationMessage)
	assert.Equal(t, wamp.List{"ping"}, invocation.Args)

	require.NoError(t, callee.HandleMessage(wamp.YieldMessage{InvocationRequest: invocation.Request, Options: wamp.Dictionary{}, Args: wamp.List{"pong"}}))

	result := callerSender.last().(wamp.ResultMessage)
	assert.Equal(t, wamp.ID(5), result.CallRequest)
	assert.Equal(t, wamp.List{"pong"}, result.Args)
}

func TestCallNoCalleeAvailableErrors(t *testing.T) {
	rt := newTestRouter(t)
	caller, callerSender := joinSession(t, rt)

	require.NoError(t, caller.HandleMessage(wamp.CallMessage{Request: 1, Options: wamp.Dictionary{}, Procedure: "com.battlerealm.missing"}))
	errMsg, ok := callerSender.last().(wamp.ErrorMessage)
	require.True(t, ok)
	assert.Equal(t, wamp.TagCall, errMsg.RequestType)
}

func TestCleanUpRemovesSessionFromRealm(t *testing.T) {
	rt := newTestRouter(t)
	s, _ := joinSession(t, rt)

	realm, err := rt.Realm("com.battlerealm.realm")
	require.NoError(t, err)
	assert.Equal(t, 1, realm.SessionCount())

	s.CleanUp()
	assert.Equal(t, 0, realm.SessionCount())
}

func TestGoodbyeClosesSession(t *testing.T) {
	rt := newTestRouter(t)
	s, sender := joinSession(t, rt)

	require.NoError(t, s.HandleMessage(wamp.GoodbyeMessage{Details: wamp.Dictionary{}, Reason: "wamp.close.normal"}))
	assert.True(t, s.Closed())

	_, ok := sender.last().(wamp.GoodbyeMessage)
	assert.True(t, ok)
}
