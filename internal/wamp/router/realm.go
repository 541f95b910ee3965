package router

import (
	"fmt"
	"sync"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
	"github.com/nmxmxh/battlerealm/pkg/logger"
)

// Sender writes one WAMP message down the wire to a joined peer. The
// concrete implementation (websocket frame writer, in-process pipe) is
// supplied by cmd/router; it has the same shape as peer.Sender but
// router code never imports the peer package, to keep the two sides
// decoupled per spec.md §4.3's "router-side mirror" framing.
type Sender interface {
	Send(msg wamp.Message) error
}

// Realm is one WAMP realm's shared state: its joined sessions, topic
// table, and procedure table (spec.md §3 "Realm state (router)").
// Mutation of the topic/procedure tables is serialized by a
// realm-scoped lock (spec.md §5 "Shared resources").
type Realm struct {
	uri wamp.URI
	log logger.Logger

	mu       sync.RWMutex
	sessions map[wamp.ID]*Session

	Topics     *TopicManager
	Procedures *ProcedureManager
}

func newRealm(uri wamp.URI, log logger.Logger) *Realm {
	return &Realm{
		uri:        uri,
		log:        log,
		sessions:   make(map[wamp.ID]*Session),
		Topics:     NewTopicManager(log),
		Procedures: NewProcedureManager(),
	}
}

// URI returns the realm's own identifying URI.
func (r *Realm) URI() wamp.URI { return r.uri }

func (r *Realm) addSession(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
}

func (r *Realm) removeSession(id wamp.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Realm) sender(id wamp.ID) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return s.sender, true
}

// SessionCount reports how many sessions are currently joined.
func (r *Realm) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Router owns the realm registry: resolving HELLO's realm URI, and
// bootstrapping the realms named in config at startup (spec.md §4.3
// "Join"; SPEC_FULL.md §4.10 "Realm bootstrap").
type Router struct {
	agent string
	roles []string

	mu     sync.RWMutex
	realms map[wamp.URI]*Realm
	log    logger.Logger
	idGen  *wamp.IDGenerator
}

// Config configures a Router's WELCOME details and realm bootstrap
// list.
type Config struct {
	Agent string
	Roles []string
}

// New creates a router with no realms yet bootstrapped.
func New(cfg Config, log logger.Logger) *Router {
	return &Router{
		agent:  cfg.Agent,
		roles:  cfg.Roles,
		realms: make(map[wamp.URI]*Realm),
		log:    log,
		idGen:  wamp.NewIDGenerator(),
	}
}

// Bootstrap pre-creates every realm URI named in config at startup,
// the way the teacher's cmd/server wires static service registrations
// at boot (SPEC_FULL.md §4.10).
func (rt *Router) Bootstrap(realms []wamp.URI) error {
	for _, uri := range realms {
		if err := uri.ValidateStrict(); err != nil {
			return fmt.Errorf("router bootstrap: %w", err)
		}
		rt.ensureRealm(uri)
	}
	return nil
}

func (rt *Router) ensureRealm(uri wamp.URI) *Realm {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if r, ok := rt.realms[uri]; ok {
		return r
	}
	r := newRealm(uri, rt.log)
	rt.realms[uri] = r
	return r
}

// Realm resolves a realm by URI, failing with ErrNoSuchRealm when it
// has not been bootstrapped (spec.md §4.3 "Join").
func (rt *Router) Realm(uri wamp.URI) (*Realm, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	r, ok := rt.realms[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pkgerrors.ErrNoSuchRealm, uri)
	}
	return r, nil
}

// NewSession allocates a fresh router-side session bound to this
// router, not yet joined to any realm.
func (rt *Router) NewSession(sender Sender, log logger.Logger) *Session {
	return newSession(rt, rt.idGen.Next(), sender, log)
}
