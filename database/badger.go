package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "dialog-agent/errors"
	"dialog-agent/metric"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const snapshotPrefix = "snapshot/"

var _ metric.SnapshotStore = (*BadgerStore)(nil)

// BadgerStore keeps weariness snapshots in an embedded badger database, for
// deployments without Postgres. Values are JSON encoded snapshots keyed by
// "snapshot/<relationship key>".
type BadgerStore struct {
	db     *badger.DB
	logger *zap.Logger
}

// NewBadgerStore opens the database at path. An empty path opens an
// in-memory database.
func NewBadgerStore(path string, logger *zap.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, apperrors.WrapCause(apperrors.ErrServiceUnavailable, err, fmt.Sprintf("open badger at %q", path))
	}
	logger.Info("Opened snapshot store", zap.String("backend", "badger"), zap.String("path", path))
	return &BadgerStore{db: db, logger: logger}, nil
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) SaveSnapshot(ctx context.Context, snap metric.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.Key, err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotPrefix+snap.Key), data)
	})
	if err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "save snapshot %s: %v", snap.Key, err)
	}
	return nil
}

func (b *BadgerStore) LoadSnapshot(ctx context.Context, key string) (metric.Snapshot, error) {
	var snap metric.Snapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return metric.Snapshot{Key: key}, apperrors.WrapErrorf(apperrors.ErrNotFound, "snapshot %s", key)
	}
	if err != nil {
		return metric.Snapshot{Key: key}, apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "load snapshot %s: %v", key, err)
	}
	return snap, nil
}

func (b *BadgerStore) DeleteSnapshot(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(snapshotPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "delete snapshot %s: %v", key, err)
	}
	return nil
}

// Keys lists the relationship keys with a saved snapshot.
func (b *BadgerStore) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(snapshotPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), snapshotPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.WrapCause(apperrors.ErrDatabaseOperation, err, "list snapshots")
	}
	return keys, nil
}
