package matchmaking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nmxmxh/battlerealm/internal/wamp"
	"github.com/nmxmxh/battlerealm/internal/wamp/peer"
	pkgerrors "github.com/nmxmxh/battlerealm/pkg/errors"
	"github.com/nmxmxh/battlerealm/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Procedure URIs this service registers (spec.md §4.7, §6 "application
// procedures live under com.<app>.").
const (
	ProcedurePropose = wamp.URI("com.battlerealm.proposed_battle.propose")
	ProcedureRespond = wamp.URI("com.battlerealm.proposed_battle.respond")
	ProcedureList    = wamp.URI("com.battlerealm.proposed_battle.list")
)

// topicForPlayer is the per-player update feed a client subscribes to
// directly rather than through a procedure call (spec.md §4.7 "publish
// an update to every participant").
func topicForPlayer(player string) wamp.URI {
	return wamp.URI(fmt.Sprintf("com.battlerealm.proposed_battle.updates.%s", player))
}

// sessionPublisher adapts a peer.Session's Publish call to this
// package's Publisher interface, broadcasting one Update to every
// participant's topic.
type sessionPublisher struct {
	sess    *peer.Session
	players []string
	ctx     context.Context
}

func (p *sessionPublisher) Publish(update Update) {
	args := wamp.List{update.UUID.String()}
	kwargs := wamp.Dictionary{
		"responses":       update.Responses,
		"deletion_reason": string(update.DeletionReason),
	}
	if update.BattleUUID != nil {
		kwargs["battle_uuid"] = update.BattleUUID.String()
	}
	if update.RejectedBy != "" {
		kwargs["rejected_by"] = update.RejectedBy
	}
	for _, player := range p.players {
		_ = p.sess.Publish(p.ctx, topicForPlayer(player), args, kwargs, false)
	}
}

// Service is the WAMP-procedure-facing layer over the matchmaking
// managers: it registers propose/respond/list, dedupes concurrent
// propose races for the same caller-supplied idempotency key, and
// drives every live Manager's Tick once a second (spec.md §4.7 "tick
// (background): every second").
type Service struct {
	sess     *peer.Session
	factory  BattleFactory
	log      logger.Logger
	recorder DeletionRecorder

	mu       sync.Mutex
	managers map[uuid.UUID]*Manager

	maxTimeout   time.Duration
	tickInterval time.Duration

	group singleflight.Group
	cron  *cron.Cron
}

// NewService wires a Service to an already-established peer session.
// recorder may be nil; when it is, proposals' terminal deletion_reason
// is only held in memory for the Manager's own lifetime. maxTimeout and
// tickInterval default to spec.md §4.7's 5-minute cap and 1-second tick
// when zero (cmd/matchmaker wires these from config.Config's
// ProposalMaxTimeout/MatchmakingTickInterval).
func NewService(sess *peer.Session, factory BattleFactory, log logger.Logger, recorder DeletionRecorder, maxTimeout, tickInterval time.Duration) *Service {
	if maxTimeout <= 0 {
		maxTimeout = maxProposalTimeout
	}
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	return &Service{
		sess:         sess,
		factory:      factory,
		log:          log,
		recorder:     recorder,
		managers:     make(map[uuid.UUID]*Manager),
		maxTimeout:   maxTimeout,
		tickInterval: tickInterval,
		cron:         cron.New(cron.WithSeconds()),
	}
}

// Register issues the three REGISTERs and starts serving invocations in
// background goroutines, plus the configured tick loop.
func (svc *Service) Register(ctx context.Context) error {
	for proc, handler := range map[wamp.URI]func(context.Context, *peer.Invocation){
		ProcedurePropose: svc.handlePropose,
		ProcedureRespond: svc.handleRespond,
		ProcedureList:    svc.handleList,
	} {
		reg, err := svc.sess.Register(ctx, proc, wamp.Dictionary{})
		if err != nil {
			return fmt.Errorf("register %s: %w", proc, err)
		}
		go svc.serve(ctx, reg.Invocations(), handler)
	}

	schedule := fmt.Sprintf("@every %s", svc.tickInterval)
	if _, err := svc.cron.AddFunc(schedule, func() { svc.tickAll(ctx) }); err != nil {
		return fmt.Errorf("schedule matchmaking tick: %w", err)
	}
	svc.cron.Start()
	return nil
}

// Stop halts the tick loop; in-flight invocations are left to finish.
func (svc *Service) Stop() { svc.cron.Stop() }

func (svc *Service) serve(ctx context.Context, invocations <-chan *peer.Invocation, handle func(context.Context, *peer.Invocation)) {
	for inv := range invocations {
		go handle(ctx, inv)
	}
}

func (svc *Service) yieldError(inv *peer.Invocation, err error) {
	_ = svc.sess.SendMessage(wamp.ErrorMessage{
		RequestType: wamp.TagInvocation,
		Request:     inv.Request,
		Details:     wamp.Dictionary{},
		Error:       wamp.URI(errorURI(err)),
	})
}

func errorURI(err error) string {
	switch {
	case pkgerrors.IsRetryable(err):
		return "com.battlerealm.error.transient"
	default:
		return "com.battlerealm.error." + err.Error()
	}
}

func (svc *Service) handlePropose(ctx context.Context, inv *peer.Invocation) {
	creator, _ := inv.Kwargs["creator"].(string)
	playersRaw, _ := inv.Kwargs["players"].([]interface{})
	players := make([]string, 0, len(playersRaw))
	for _, p := range playersRaw {
		if s, ok := p.(string); ok {
			players = append(players, s)
		}
	}
	timeoutSeconds, _ := inv.Kwargs["timeout_seconds"].(float64)
	idempotencyKey, _ := inv.Kwargs["idempotency_key"].(string)
	if idempotencyKey == "" {
		idempotencyKey = creator + ":" + fmt.Sprint(players)
	}

	requestedTimeout := time.Duration(timeoutSeconds) * time.Second
	if requestedTimeout <= 0 || requestedTimeout > svc.maxTimeout {
		requestedTimeout = svc.maxTimeout
	}

	result, err, _ := svc.group.Do(idempotencyKey, func() (interface{}, error) {
		opts := ProposeOptions{
			Creator: creator,
			Players: players,
			Timeout: requestedTimeout,
		}
		proposal := NewProposedBattle(uuid.New(), opts, time.Now())
		mgr := NewManager(proposal, svc.factory, &sessionPublisher{sess: svc.sess, players: proposal.Players, ctx: context.Background()}, svc.log, svc.remove).
			WithDeletionRecorder(svc.recorder)

		svc.mu.Lock()
		svc.managers[proposal.UUID] = mgr
		svc.mu.Unlock()

		mgr.Propose()
		return proposal.UUID, nil
	})
	if err != nil {
		svc.log.Warn("matchmaking propose failed", zap.Error(err))
		svc.yieldError(inv, err)
		return
	}
	id := result.(uuid.UUID)
	_ = svc.sess.Yield(inv.Request, wamp.List{id.String()}, nil, true)
}

func (svc *Service) handleRespond(ctx context.Context, inv *peer.Invocation) {
	idStr, _ := inv.Kwargs["proposal_uuid"].(string)
	player, _ := inv.Kwargs["player"].(string)
	accept, _ := inv.Kwargs["accept"].(bool)

	id, err := uuid.Parse(idStr)
	if err != nil {
		svc.yieldError(inv, pkgerrors.ErrMalformedMessage)
		return
	}

	svc.mu.Lock()
	mgr, ok := svc.managers[id]
	svc.mu.Unlock()
	if !ok {
		svc.yieldError(inv, pkgerrors.ErrProposalNotFound)
		return
	}

	if err := mgr.Respond(player, accept); err != nil {
		svc.yieldError(inv, err)
		return
	}
	_ = svc.sess.Yield(inv.Request, nil, nil, true)
}

func (svc *Service) handleList(ctx context.Context, inv *peer.Invocation) {
	svc.mu.Lock()
	ids := make(wamp.List, 0, len(svc.managers))
	for id := range svc.managers {
		ids = append(ids, id.String())
	}
	svc.mu.Unlock()
	_ = svc.sess.Yield(inv.Request, ids, nil, true)
}

func (svc *Service) tickAll(ctx context.Context) {
	svc.mu.Lock()
	managers := make([]*Manager, 0, len(svc.managers))
	for _, m := range svc.managers {
		managers = append(managers, m)
	}
	svc.mu.Unlock()

	for _, m := range managers {
		m.Tick(ctx)
	}
}

func (svc *Service) remove(id uuid.UUID) {
	svc.mu.Lock()
	delete(svc.managers, id)
	svc.mu.Unlock()
}
