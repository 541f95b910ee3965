package router

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/pkg/logger"
)

// topicSubscription is one SUBSCRIBE's router-side bookkeeping. It
// starts inactive and is flipped to active only after SUBSCRIBED has
// been transmitted (spec.md §4.3 "Subscribe path").
type topicSubscription struct {
	id         wamp.ID
	sessionID  wamp.ID
	topic      wamp.URI
	matchStyle wamp.MatchStyle
	active     bool
}

// TopicManager owns one realm's subscription table and the publish
// fan-out (spec.md §4.3 "Publish path").
type TopicManager struct {
	mu            sync.Mutex
	log           logger.Logger
	idGen         *wamp.IDGenerator
	publicationID *wamp.IDGenerator
	subscriptions map[wamp.ID]*topicSubscription
}

// NewTopicManager creates an empty topic manager for one realm.
func NewTopicManager(log logger.Logger) *TopicManager {
	return &TopicManager{
		log:           log,
		idGen:         wamp.NewIDGenerator(),
		publicationID: wamp.NewIDGenerator(),
		subscriptions: make(map[wamp.ID]*topicSubscription),
	}
}

// Subscribe allocates a subscription ID and records it inactive.
func (tm *TopicManager) Subscribe(sessionID wamp.ID, topic wamp.URI, matchStyle wamp.MatchStyle) wamp.ID {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	id := tm.idGen.Next()
	tm.subscriptions[id] = &topicSubscription{id: id, sessionID: sessionID, topic: topic, matchStyle: matchStyle}
	return id
}

// Activate flips a subscription active; called only after SUBSCRIBED
// has been sent to the subscriber.
func (tm *TopicManager) Activate(id wamp.ID) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if sub, ok := tm.subscriptions[id]; ok {
		sub.active = true
	}
}

// Unsubscribe removes a subscription entirely.
func (tm *TopicManager) Unsubscribe(id wamp.ID) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.subscriptions, id)
}

// ActiveCount reports the number of active subscriptions, for the
// SubscriptionsActive gauge.
func (tm *TopicManager) ActiveCount() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	n := 0
	for _, sub := range tm.subscriptions {
		if sub.active {
			n++
		}
	}
	return n
}

// matchedSubscriber is one subscription this publication must fan out
// to, along with the session that owns it.
type matchedSubscriber struct {
	subscriptionID wamp.ID
	sessionID      wamp.ID
}

// matched returns every active subscription whose topic matches per its
// recorded match style, plus a fresh publication ID.
func (tm *TopicManager) matched(topic wamp.URI) (wamp.ID, []matchedSubscriber) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	pubID := tm.publicationID.Next()
	var out []matchedSubscriber
	for _, sub := range tm.subscriptions {
		if !sub.active {
			continue
		}
		if ok, _ := sub.topic.Matches(topic, sub.matchStyle); ok {
			out = append(out, matchedSubscriber{subscriptionID: sub.id, sessionID: sub.sessionID})
		}
	}
	return pubID, out
}

// Publish fans an EVENT out to every matching active subscriber
// concurrently via errgroup (SPEC_FULL.md §4.9 domain stack:
// golang.org/x/sync/errgroup). sessionSender resolves a session ID to
// its outbound Sender; a session that has since disconnected is
// skipped rather than failing the whole publish.
func (tm *TopicManager) Publish(ctx context.Context, topic wamp.URI, args wamp.List, kwargs wamp.Dictionary, sessionSender func(wamp.ID) (Sender, bool)) (wamp.ID, int) {
	pubID, subs := tm.matched(topic)

	g, _ := errgroup.WithContext(ctx)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			sender, ok := sessionSender(sub.sessionID)
			if !ok {
				return nil
			}
			err := sender.Send(wamp.EventMessage{
				Subscription: sub.subscriptionID,
				Publication:  pubID,
				Details:      wamp.Dictionary{},
				Args:         args,
				Kwargs:       kwargs,
			})
			if err != nil && tm.log != nil {
				tm.log.Warn("router: failed to deliver EVENT to subscriber")
			}
			return nil
		})
	}
	_ = g.Wait()
	return pubID, len(subs)
}
