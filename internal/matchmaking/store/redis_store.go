// Package store holds the optional durable side-table recording each
// proposed battle's terminal deletion_reason, keyed by proposal UUID
// (spec.md §4.7 "Deletion"). Managers work fully in-memory; this store
// only exists so an operator can audit why a proposal left the table
// after the in-memory Manager is gone.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "battlerealm:proposed_battle:"

const retentionTTL = 24 * time.Hour

// DeletionStore records the reason a proposed battle left the table.
type DeletionStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewDeletionStore wraps an already-configured redis client.
func NewDeletionStore(client *redis.Client, log *zap.Logger) *DeletionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeletionStore{client: client, log: log.With(zap.String("module", "matchmaking_store"))}
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// RecordDeletion persists reason for id with a bounded retention window,
// so the key set does not grow unbounded across the table's lifetime.
func (s *DeletionStore) RecordDeletion(ctx context.Context, id uuid.UUID, reason string) error {
	if err := s.client.Set(ctx, key(id), reason, retentionTTL).Err(); err != nil {
		return fmt.Errorf("record deletion for %s: %w", id, err)
	}
	return nil
}

// DeletionReason looks up a previously recorded reason, returning
// ("", false) if none was recorded or it has expired.
func (s *DeletionStore) DeletionReason(ctx context.Context, id uuid.UUID) (string, bool) {
	v, err := s.client.Get(ctx, key(id)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.log.Warn("deletion reason lookup failed", zap.String("proposal", id.String()), zap.Error(err))
		return "", false
	}
	return v, true
}
