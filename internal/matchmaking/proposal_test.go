package matchmaking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewProposedBattleAutoAcceptsCreator(t *testing.T) {
	now := time.Now()
	p := NewProposedBattle(uuid.New(), ProposeOptions{
		Creator: "alice",
		Players: []string{"alice", "bob"},
		Timeout: time.Minute,
	}, now)

	assert.Equal(t, ResponseAccepted, p.Responses["alice"])
	assert.Equal(t, ResponsePending, p.Responses["bob"])
	assert.Equal(t, now.Add(time.Minute), p.Deadline)
}

func TestNewProposedBattleClampsTimeoutToFiveMinutes(t *testing.T) {
	now := time.Now()
	p := NewProposedBattle(uuid.New(), ProposeOptions{
		Creator: "alice",
		Players: []string{"alice"},
		Timeout: time.Hour,
	}, now)

	assert.Equal(t, now.Add(maxProposalTimeout), p.Deadline)
}

func TestNewProposedBattleDefaultsUnsetTimeoutToMax(t *testing.T) {
	now := time.Now()
	p := NewProposedBattle(uuid.New(), ProposeOptions{Creator: "alice", Players: []string{"alice"}}, now)
	assert.Equal(t, now.Add(maxProposalTimeout), p.Deadline)
}

func TestAllAcceptedRequiresEveryPlayer(t *testing.T) {
	p := NewProposedBattle(uuid.New(), ProposeOptions{Creator: "a", Players: []string{"a", "b"}}, time.Now())
	assert.False(t, p.AllAccepted())
	p.Responses["b"] = ResponseAccepted
	assert.True(t, p.AllAccepted())
}

func TestAnyRejectedDetectsASingleRejection(t *testing.T) {
	p := NewProposedBattle(uuid.New(), ProposeOptions{Creator: "a", Players: []string{"a", "b"}}, time.Now())
	assert.False(t, p.AnyRejected())
	p.Responses["b"] = ResponseRejected
	assert.True(t, p.AnyRejected())
}

func TestExpiredComparesAgainstDeadline(t *testing.T) {
	now := time.Now()
	p := NewProposedBattle(uuid.New(), ProposeOptions{Creator: "a", Players: []string{"a"}, Timeout: time.Minute}, now)
	assert.False(t, p.Expired(now))
	assert.True(t, p.Expired(now.Add(2*time.Minute)))
}

func TestSnapshotDeepCopiesResponses(t *testing.T) {
	p := NewProposedBattle(uuid.New(), ProposeOptions{Creator: "a", Players: []string{"a", "b"}}, time.Now())
	update := p.snapshot()
	update.Responses["b"] = ResponseAccepted
	assert.Equal(t, ResponsePending, p.Responses["b"])
}
