package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayurkosh/plantsearch/internal/db"
	"github.com/ayurkosh/plantsearch/internal/domain"
)

var snapshotKey = domain.KeyPrefix + "snapshot"

// kvStore is the consumer interface for the Valkey-backed store (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KVStore keeps the snapshot document under a single Valkey/Redis key.
// SET replaces the value atomically.
type KVStore struct {
	store kvStore
	key   string
}

// NewKVStore creates a Valkey-backed store. An empty key selects the default.
func NewKVStore(s kvStore, key string) *KVStore {
	if key == "" {
		key = snapshotKey
	}
	return &KVStore{store: s, key: key}
}

// Load reads the snapshot. A missing key yields ErrSnapshotNotFound.
func (k *KVStore) Load(ctx context.Context) (Snapshot, error) {
	data, err := k.store.Get(ctx, k.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// Save writes the snapshot document.
func (k *KVStore) Save(ctx context.Context, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := k.store.Set(ctx, k.key, data); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}
