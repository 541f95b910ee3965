package matchmaking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/internal/wamp/peer"
	"github.com/nmxmxh/battlerealm/internal/wamp/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// messageHandler is the shape both router.Session and peer.Session
// share, letting one bridgeSender type wire either side's outbound
// messages straight into the other's inbound handling without a real
// socket.
type messageHandler interface {
	HandleMessage(msg wamp.Message) error
}

type bridgeSender struct{ target messageHandler }

func (b *bridgeSender) Send(msg wamp.Message) error {
	go b.target.HandleMessage(msg)
	return nil
}

const testRealm = wamp.URI("com.battlerealm.realm")

func joinPeer(t *testing.T, rt *router.Router, name string) *peer.Session {
	t.Helper()
	log := noopLogger(t)
	p := peer.New(name, nil, log)
	rs := rt.NewSession(&bridgeSender{target: p}, log)
	p.SetSender(&bridgeSender{target: rs})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Hello(ctx, testRealm, wamp.Dictionary{}))
	return p
}

func newTestService(t *testing.T) (*router.Router, *Service, *fakeBattle) {
	t.Helper()
	log := noopLogger(t)
	rt := router.New(router.Config{Agent: "test-router", Roles: []string{"broker", "dealer"}}, log)
	require.NoError(t, rt.Bootstrap([]wamp.URI{testRealm}))

	fb := newFakeBattle()
	factory := func(opts BattleOptions, players []string) (BattleHandle, error) { return fb, nil }

	svcPeer := joinPeer(t, rt, "matchmaking-service")
	svc := NewService(svcPeer, factory, log, nil, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Register(ctx))
	svc.cron.Stop() // tests drive ticks explicitly via tickAll

	return rt, svc, fb
}

func callAndWait(t *testing.T, caller *peer.Session, procedure wamp.URI, kwargs wamp.Dictionary) peer.CallResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, results, err := caller.Call(ctx, procedure, nil, kwargs, false)
	require.NoError(t, err)
	select {
	case res := <-results:
		return res
	case <-ctx.Done():
		t.Fatal("timed out waiting for call result")
		return peer.CallResult{}
	}
}

func TestServicePropseRespondAndTickFulfillsBattle(t *testing.T) {
	rt, svc, fb := newTestService(t)
	caller := joinPeer(t, rt, "caller")

	res := callAndWait(t, caller, ProcedurePropose, wamp.Dictionary{
		"creator":         "alice",
		"players":         []interface{}{"alice", "bob"},
		"timeout_seconds": float64(60),
	})
	require.Nil(t, res.Err)
	require.Len(t, res.Args, 1)
	proposalID, err := uuid.Parse(res.Args[0].(string))
	require.NoError(t, err)

	respondRes := callAndWait(t, caller, ProcedureRespond, wamp.Dictionary{
		"proposal_uuid": proposalID.String(),
		"player":        "bob",
		"accept":        true,
	})
	assert.Nil(t, respondRes.Err)

	svc.tickAll(context.Background())

	svc.mu.Lock()
	mgr, ok := svc.managers[proposalID]
	svc.mu.Unlock()
	require.True(t, ok)
	require.NotNil(t, mgr.battle)

	fb.setReady(true)
	svc.tickAll(context.Background())
	assert.True(t, fb.Started())

	require.Eventually(t, func() bool { return fb.subscriberCount() > 0 }, time.Second, time.Millisecond)
	fb.publish(startedMarker)
	assert.Eventually(t, func() bool {
		mgr.mu.Lock()
		defer mgr.mu.Unlock()
		return mgr.proposal.DeletionReason == DeletionFulfilled
	}, time.Second, time.Millisecond)
}

func TestServiceListReturnsLiveProposals(t *testing.T) {
	rt, _, _ := newTestService(t)
	caller := joinPeer(t, rt, "caller")

	_ = callAndWait(t, caller, ProcedurePropose, wamp.Dictionary{
		"creator": "alice",
		"players": []interface{}{"alice"},
	})

	listRes := callAndWait(t, caller, ProcedureList, wamp.Dictionary{})
	assert.Nil(t, listRes.Err)
	assert.Len(t, listRes.Args, 1)
}

func TestServiceRespondUnknownProposalErrors(t *testing.T) {
	rt, _, _ := newTestService(t)
	caller := joinPeer(t, rt, "caller")

	res := callAndWait(t, caller, ProcedureRespond, wamp.Dictionary{
		"proposal_uuid": uuid.New().String(),
		"player":        "alice",
		"accept":        true,
	})
	assert.NotNil(t, res.Err)
}
