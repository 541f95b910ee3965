package router

import (
	"fmt"
	"sync"

	"github.com/nmxmxh/battlerealm/internal/wamp"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
)

// procedureRegistration is one REGISTER's router-side bookkeeping,
// symmetric with topicSubscription (spec.md §4.3 "Register path").
type procedureRegistration struct {
	id         wamp.ID
	sessionID  wamp.ID
	procedure  wamp.URI
	matchStyle wamp.MatchStyle
	active     bool
}

// ProcedureManager owns one realm's registration table and CALL
// routing.
type ProcedureManager struct {
	mu            sync.Mutex
	idGen         *wamp.IDGenerator
	registrations map[wamp.ID]*procedureRegistration
	byURI         map[wamp.URI]wamp.ID
}

// NewProcedureManager creates an empty procedure manager for one realm.
func NewProcedureManager() *ProcedureManager {
	return &ProcedureManager{
		idGen:         wamp.NewIDGenerator(),
		registrations: make(map[wamp.ID]*procedureRegistration),
		byURI:         make(map[wamp.URI]wamp.ID),
	}
}

// Register allocates a registration ID for procedure, rejecting a
// duplicate *active* registration for the same exact URI (spec.md §4.3
// "Duplicate active registrations are rejected").
func (pm *ProcedureManager) Register(sessionID wamp.ID, procedure wamp.URI, matchStyle wamp.MatchStyle) (wamp.ID, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if existingID, ok := pm.byURI[procedure]; ok {
		if existing, ok := pm.registrations[existingID]; ok && existing.active {
			return 0, fmt.Errorf("%w: %s", pkgerrors.ErrProcedureAlreadyExists, procedure)
		}
	}

	id := pm.idGen.Next()
	pm.registrations[id] = &procedureRegistration{id: id, sessionID: sessionID, procedure: procedure, matchStyle: matchStyle}
	pm.byURI[procedure] = id
	return id, nil
}

// Activate flips a registration active; called only after REGISTERED
// has been sent to the registrant.
func (pm *ProcedureManager) Activate(id wamp.ID) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if reg, ok := pm.registrations[id]; ok {
		reg.active = true
	}
}

// Unregister removes a registration entirely.
func (pm *ProcedureManager) Unregister(id wamp.ID) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if reg, ok := pm.registrations[id]; ok {
		delete(pm.byURI, reg.procedure)
		delete(pm.registrations, id)
	}
}

// ActiveCount reports the number of active registrations, for the
// ProceduresActive gauge.
func (pm *ProcedureManager) ActiveCount() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	n := 0
	for _, reg := range pm.registrations {
		if reg.active {
			n++
		}
	}
	return n
}

// Resolve locates the active registration whose procedure matches the
// called URI exactly, or via its stored match style for
// pattern-matched registrations.
func (pm *ProcedureManager) Resolve(procedure wamp.URI) (wamp.ID, wamp.ID, bool) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if id, ok := pm.byURI[procedure]; ok {
		if reg := pm.registrations[id]; reg != nil && reg.active {
			return reg.id, reg.sessionID, true
		}
	}
	for _, reg := range pm.registrations {
		if !reg.active || reg.matchStyle == wamp.MatchExact {
			continue
		}
		if ok, _ := reg.procedure.Matches(procedure, reg.matchStyle); ok {
			return reg.id, reg.sessionID, true
		}
	}
	return 0, 0, false
}
