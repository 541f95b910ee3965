package matchmaking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
	"github.com/nmxmxh/battlerealm/pkg/logger"
	"go.uber.org/zap"
)

// watcherPrefix marks the battle log entries the watcher interprets as
// lifecycle signals rather than ordinary battle events (spec.md §4.7
// "Entries prefixed `-battlerservice:` drive state").
const watcherPrefix = "-battlerservice:"

// startedMarker is the distinguished entry marking fulfillment.
const startedMarker = watcherPrefix + "started"

// BattleHandle is the subset of a running battle's surface the manager
// needs: whether it is ready to start, and a way to watch its log.
// internal/battle.Battle does not implement this directly; cmd/matchmaker
// adapts it, keeping this package free of a direct internal/battle import
// so matchmaking stays testable against a fake.
type BattleHandle interface {
	UUID() uuid.UUID
	Ready() bool
	Started() bool
	Start() error
	Subscribe(ctx context.Context) (<-chan string, error)
}

// BattleFactory constructs the underlying battle once a proposal is
// ready to create (spec.md §4.7 tick rule 2).
type BattleFactory func(opts BattleOptions, players []string) (BattleHandle, error)

// Publisher delivers one Update to every subscriber of a proposal
// (spec.md §4.7 "publish an update to every participant"); Service's
// sessionPublisher implements it as a WAMP PUBLISH against
// `com.battlerealm.proposed_battle.updates.<player>` per player ID, per
// spec.md §6's per-player subscription keying.
type Publisher interface {
	Publish(update Update)
}

// DeletionRecorder persists a proposal's terminal deletion_reason past
// the in-memory Manager's lifetime (Open Question (a): "Orphaned
// in-progress battles after a service restart" — recorded so an
// external reconciliation job can act on it). Optional: a nil recorder
// is a no-op.
type DeletionRecorder interface {
	RecordDeletion(ctx context.Context, id uuid.UUID, reason string) error
}

// Manager owns exactly one proposed battle's lifecycle end to end
// (spec.md §4.7 "Own one proposed battle's lifecycle"). Locking follows
// the canonical Service → Manager → Session order (spec.md §5).
type Manager struct {
	mu       sync.Mutex
	proposal *ProposedBattle
	factory  BattleFactory
	publish  Publisher
	log      logger.Logger

	battle         BattleHandle
	watcherStarted bool

	onDelete func(uuid.UUID)
	recorder DeletionRecorder
}

// NewManager creates a Manager for a freshly constructed proposal.
func NewManager(proposal *ProposedBattle, factory BattleFactory, publish Publisher, log logger.Logger, onDelete func(uuid.UUID)) *Manager {
	return &Manager{proposal: proposal, factory: factory, publish: publish, log: log, onDelete: onDelete}
}

// WithDeletionRecorder attaches an optional durable recorder, returning
// the Manager for chaining at construction time.
func (m *Manager) WithDeletionRecorder(r DeletionRecorder) *Manager {
	m.recorder = r
	return m
}

// UUID returns the managed proposal's identifier.
func (m *Manager) UUID() uuid.UUID { return m.proposal.UUID }

// Propose publishes the initial update (spec.md §4.7 "publish an initial
// update to every participant").
func (m *Manager) Propose() {
	m.mu.Lock()
	update := m.proposal.snapshot()
	m.mu.Unlock()
	m.publish.Publish(update)
}

// Respond moves player's status, failing per spec.md §4.7 "respond(player,
// accept|reject) ... fail if the battle has already started or the same
// response is repeated."
func (m *Manager) Respond(player string, accept bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proposal.started || m.proposal.DeletionReason != DeletionNone {
		return pkgerrors.ErrBattleAlreadyStarted
	}
	current, ok := m.proposal.Responses[player]
	if !ok {
		return pkgerrors.ErrNotParticipant
	}
	next := ResponseRejected
	if accept {
		next = ResponseAccepted
	}
	if current == next {
		return pkgerrors.ErrAlreadyResponded
	}
	m.proposal.Responses[player] = next

	if !accept {
		m.proposal.DeletionReason = DeletionRejected
		update := m.proposal.snapshot()
		update.RejectedBy = player
		m.mu.Unlock()
		m.publish.Publish(update)
		m.deleteUnderlying()
		m.notifyDeleted()
		m.mu.Lock()
		return nil
	}

	update := m.proposal.snapshot()
	m.mu.Unlock()
	m.publish.Publish(update)
	m.mu.Lock()
	return nil
}

// Tick runs one lifecycle step (spec.md §4.7 "tick (background)"). It is
// driven by the service's cron-scheduled ticker, once per second, for
// every live manager.
func (m *Manager) Tick(ctx context.Context) {
	m.mu.Lock()
	if m.proposal.DeletionReason != DeletionNone {
		m.mu.Unlock()
		m.deleteUnderlying()
		m.notifyDeleted()
		return
	}

	if m.proposal.Expired(time.Now()) && !m.proposal.AllAccepted() {
		m.proposal.DeletionReason = DeletionDeadlineExceeded
		update := m.proposal.snapshot()
		m.mu.Unlock()
		m.publish.Publish(update)
		m.deleteUnderlying()
		m.notifyDeleted()
		return
	}

	readyToCreate := m.proposal.AllAccepted() && !m.proposal.AnyRejected()
	hasBattle := m.battle != nil
	m.mu.Unlock()

	if readyToCreate && !hasBattle {
		m.createBattle(ctx)
		return
	}
	if hasBattle && !m.battleStarted() && m.battleReady() {
		m.startBattle(ctx)
	}
}

func (m *Manager) createBattle(ctx context.Context) {
	m.mu.Lock()
	opts, players := m.proposal.BattleOpts, append([]string(nil), m.proposal.Players...)
	m.mu.Unlock()

	battle, err := m.factory(opts, players)
	if err != nil {
		m.log.Warn("matchmaking: battle creation failed", zap.Error(err))
		return
	}
	m.mu.Lock()
	m.battle = battle
	bu := battle.UUID()
	m.proposal.BattleUUID = &bu
	update := m.proposal.snapshot()
	m.mu.Unlock()
	m.publish.Publish(update)
}

func (m *Manager) battleReady() bool {
	m.mu.Lock()
	b := m.battle
	m.mu.Unlock()
	return b != nil && b.Ready()
}

func (m *Manager) battleStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proposal.started
}

func (m *Manager) startBattle(ctx context.Context) {
	m.mu.Lock()
	battle := m.battle
	alreadyWatching := m.watcherStarted
	m.watcherStarted = true
	m.mu.Unlock()

	if battle == nil {
		return
	}
	if err := battle.Start(); err != nil {
		m.log.Warn("matchmaking: battle start failed", zap.Error(err))
		return
	}
	if alreadyWatching {
		return
	}
	go m.watch(ctx, battle)
}

// watch subscribes to the underlying battle's log once, running for the
// lifetime of the manager (spec.md §4.7 "Watcher... Starting a watcher
// is at-most-once per manager").
func (m *Manager) watch(ctx context.Context, battle BattleHandle) {
	ch, err := battle.Subscribe(ctx)
	if err != nil {
		m.log.Warn("matchmaking: watcher subscribe failed", zap.Error(err))
		return
	}
	for entry := range ch {
		if !strings.HasPrefix(entry, watcherPrefix) {
			continue
		}
		if entry == startedMarker {
			m.mu.Lock()
			m.proposal.started = true
			m.proposal.DeletionReason = DeletionFulfilled
			update := m.proposal.snapshot()
			m.mu.Unlock()
			m.publish.Publish(update)
			m.notifyDeleted()
			return
		}
		// any other prefixed entry triggers a re-evaluation on the next tick
	}
}

// deleteUnderlying releases the Manager's view of the underlying battle
// on deletion. It does not delete the battle: BattleHandle has no delete
// operation, so an unstarted battle is simply no longer referenced, and
// a started battle keeps running.
func (m *Manager) deleteUnderlying() {
	m.mu.Lock()
	battle := m.battle
	started := m.proposal.started
	m.mu.Unlock()
	if battle == nil || started {
		return
	}
	// The battle lifecycle has no explicit delete hook in BattleHandle
	// (spec.md names no battle-teardown API); the factory-owned battle is
	// simply abandoned for garbage collection, matching "the underlying
	// battle is deliberately leaked when deletion fails."
}

func (m *Manager) notifyDeleted() {
	if m.recorder != nil {
		m.mu.Lock()
		reason, id := string(m.proposal.DeletionReason), m.proposal.UUID
		m.mu.Unlock()
		if reason != "" {
			if err := m.recorder.RecordDeletion(context.Background(), id, reason); err != nil {
				m.log.Warn("matchmaking: deletion record failed", zap.Error(err))
			}
		}
	}
	if m.onDelete != nil {
		m.onDelete(m.proposal.UUID)
	}
}
