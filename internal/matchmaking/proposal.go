package matchmaking

import (
	"time"

	"github.com/google/uuid"
)

// ResponseState is one invited player's current stance on a proposal
// (spec.md §4.7 "respond(player, accept|reject)").
type ResponseState int

const (
	ResponsePending ResponseState = iota
	ResponseAccepted
	ResponseRejected
)

// DeletionReason records why a proposal left the table, carried on the
// final update publication before deletion (spec.md §4.7 "Deletion").
type DeletionReason string

const (
	DeletionNone             DeletionReason = ""
	DeletionFulfilled        DeletionReason = "fulfilled"
	DeletionRejected         DeletionReason = "rejected"
	DeletionDeadlineExceeded DeletionReason = "deadline exceeded"
)

// maxProposalTimeout is the hard cap on a requested proposal deadline
// (spec.md §4.7 "deadline = now + min(options.timeout, 5 minutes)").
const maxProposalTimeout = 5 * time.Minute

// ProposeOptions is the caller-supplied input to propose().
type ProposeOptions struct {
	Creator    string
	Players    []string
	Timeout    time.Duration
	BattleOpts BattleOptions
}

// BattleOptions carries the format/seed parameters forwarded to the
// underlying battle once the proposal is fulfilled; this package does
// not interpret them beyond passing them to the BattleFactory.
type BattleOptions struct {
	Format         int
	PickedTeamSize int
	Seed           int64
}

// ProposedBattle is one proposal's full lifecycle state (spec.md §3
// "Proposed battle state", §4.7).
type ProposedBattle struct {
	UUID           uuid.UUID
	Creator        string
	Players        []string
	Responses      map[string]ResponseState
	Deadline       time.Time
	BattleOpts     BattleOptions
	BattleUUID     *uuid.UUID
	DeletionReason DeletionReason
	started        bool
}

// NewProposedBattle constructs a proposal with the creator auto-accepted
// and every other invited player pending (spec.md §4.7 "propose(options)
// ... auto-accept the creator").
func NewProposedBattle(id uuid.UUID, opts ProposeOptions, now time.Time) *ProposedBattle {
	timeout := opts.Timeout
	if timeout <= 0 || timeout > maxProposalTimeout {
		timeout = maxProposalTimeout
	}
	responses := make(map[string]ResponseState, len(opts.Players))
	for _, p := range opts.Players {
		responses[p] = ResponsePending
	}
	responses[opts.Creator] = ResponseAccepted

	return &ProposedBattle{
		UUID:       id,
		Creator:    opts.Creator,
		Players:    opts.Players,
		Responses:  responses,
		Deadline:   now.Add(timeout),
		BattleOpts: opts.BattleOpts,
	}
}

// AllAccepted reports whether every invited player has accepted.
func (p *ProposedBattle) AllAccepted() bool {
	for _, r := range p.Responses {
		if r != ResponseAccepted {
			return false
		}
	}
	return true
}

// AnyRejected reports whether any invited player has rejected.
func (p *ProposedBattle) AnyRejected() bool {
	for _, r := range p.Responses {
		if r == ResponseRejected {
			return true
		}
	}
	return false
}

// Expired reports whether the proposal's deadline has passed as of now.
func (p *ProposedBattle) Expired(now time.Time) bool {
	return now.After(p.Deadline)
}

// Update is the payload published to subscribers on every state change
// (spec.md §4.7 "publish an initial/final update").
type Update struct {
	UUID           uuid.UUID
	Responses      map[string]ResponseState
	BattleUUID     *uuid.UUID
	DeletionReason DeletionReason
	RejectedBy     string
}

func (p *ProposedBattle) snapshot() Update {
	responses := make(map[string]ResponseState, len(p.Responses))
	for k, v := range p.Responses {
		responses[k] = v
	}
	return Update{
		UUID:           p.UUID,
		Responses:      responses,
		BattleUUID:     p.BattleUUID,
		DeletionReason: p.DeletionReason,
	}
}
