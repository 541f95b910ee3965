package peer

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
	"github.com/nmxmxh/battlerealm/pkg/logger"
)

// Dialer establishes a fresh transport connection, used by the
// reconnect loop each time it needs to re-dial after a disconnect.
type Dialer func(ctx context.Context) (Sender, error)

// Reconnector continually re-establishes a Session after disconnect,
// then rejoins the realm, resubscribes every topic recorded with
// PresubscribeTopic and re-registers every procedure recorded with
// PreregisterProcedure (spec.md §5 "Reconnection"). Subscriptions and
// registrations made directly on the Session are not restored, and the
// handles of the restored ones are not returned to the application.
type Reconnector struct {
	session *Session
	dial    Dialer
	log     logger.Logger

	realm   wamp.URI
	details wamp.Dictionary

	delay       time.Duration
	maxFailures int
	breaker     *gobreaker.CircuitBreaker

	procedures    []wamp.URI
	subscriptions []wamp.URI
}

// ReconnectorConfig mirrors the teacher's flat-struct config idiom.
type ReconnectorConfig struct {
	Realm                wamp.URI
	Details              wamp.Dictionary
	ReconnectDelay       time.Duration
	ReconnectMaxFailures int
}

// NewReconnector wires a breaker around the dialer so a downed router
// does not get hammered by every retrying peer (spec.md §4.9 domain
// stack: gobreaker wraps outbound retries).
func NewReconnector(session *Session, dial Dialer, log logger.Logger, cfg ReconnectorConfig) *Reconnector {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	maxFailures := cfg.ReconnectMaxFailures
	if maxFailures <= 0 {
		maxFailures = 3
	}

	settings := gobreaker.Settings{
		Name:        "peer-reconnect",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     delay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warn(fmt.Sprintf("%s circuit breaker state change: %s -> %s", name, from, to))
			}
		},
	}

	return &Reconnector{
		session:     session,
		dial:        dial,
		log:         log,
		realm:       cfg.Realm,
		details:     cfg.Details,
		delay:       delay,
		maxFailures: maxFailures,
		breaker:     gobreaker.NewCircuitBreaker(settings),
	}
}

// PreregisterProcedure records a procedure URI to automatically
// re-register on every future reconnect. Call before Run, or from within an
// application's own established-notification loop.
func (r *Reconnector) PreregisterProcedure(uri wamp.URI) { r.procedures = append(r.procedures, uri) }

// PresubscribeTopic records a topic to automatically resubscribe.
func (r *Reconnector) PresubscribeTopic(uri wamp.URI) { r.subscriptions = append(r.subscriptions, uri) }

// Run drives the reconnect loop until ctx is cancelled. Each attempt is
// governed by an exponential backoff (cenkalti/backoff), capped by the
// circuit breaker opening after maxFailures consecutive failures.
func (r *Reconnector) Run(ctx context.Context) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = r.delay
	expBackoff.MaxElapsedTime = 0 // bounded by ctx, not elapsed time
	expBackoff.Reset()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, r.connectOnce(ctx)
		})
		if err == nil {
			expBackoff.Reset()
			// Connected and established; wait for this session to close
			// before attempting the next reconnect.
			select {
			case <-r.session.ClosedNotify():
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if r.log != nil {
			r.log.Warn(fmt.Sprintf("peer reconnect attempt failed: %v", err))
		}

		wait := expBackoff.NextBackOff()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reconnector) connectOnce(ctx context.Context) error {
	sender, err := r.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrPeerNotConnected, err)
	}
	r.session.SetSender(sender)

	if err := r.session.Hello(ctx, r.realm, r.details); err != nil {
		return err
	}

	for _, uri := range r.subscriptions {
		if _, err := r.session.Subscribe(ctx, uri, wamp.Dictionary{}); err != nil {
			if r.log != nil {
				r.log.Warn(fmt.Sprintf("peer reconnect: failed to resubscribe %s: %v", uri, err))
			}
		}
	}
	for _, uri := range r.procedures {
		if _, err := r.session.Register(ctx, uri, wamp.Dictionary{}); err != nil {
			if r.log != nil {
				r.log.Warn(fmt.Sprintf("peer reconnect: failed to re-register %s: %v", uri, err))
			}
		}
	}
	return nil
}
