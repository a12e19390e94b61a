package web

import (
	"context"
	"time"

	"dialog-agent/dialog"
	"dialog-agent/metric"

	"go.uber.org/zap"
)

// SnapshotService persists weariness so relationships survive restarts and
// evicts relationships that have gone quiet.
type SnapshotService struct {
	engine *dialog.Engine
	store  metric.SnapshotStore
	logger *zap.Logger
}

func NewSnapshotService(engine *dialog.Engine, store metric.SnapshotStore, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

// SaveAll writes a snapshot of every live relationship and returns how many
// were saved. A failed save is logged and does not stop the others.
func (s *SnapshotService) SaveAll(ctx context.Context) (int, error) {
	keys := s.engine.Metrics().Keys()
	saved := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if err := s.save(ctx, key); err != nil {
			s.logger.Error("Failed to save weariness snapshot",
				zap.Error(err),
				zap.String("relationship", key))
			continue
		}
		saved++
	}

	s.logger.Debug("Weariness snapshots saved",
		zap.Int("saved", saved),
		zap.Int("failed", len(keys)-saved))
	return saved, nil
}

func (s *SnapshotService) save(ctx context.Context, key string) error {
	snap, ok := s.engine.Metrics().Snapshot(key)
	if !ok {
		return nil
	}
	return s.store.SaveSnapshot(ctx, snap)
}

// PruneIdle saves and forgets relationships unused for longer than maxIdle.
// A relationship whose save fails is kept so its state is not lost.
func (s *SnapshotService) PruneIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxIdle)
	idle := s.engine.Metrics().IdleSince(cutoff)
	if len(idle) == 0 {
		return 0, nil
	}

	s.logger.Info("Found idle relationships to prune",
		zap.Int("count", len(idle)),
		zap.Time("cutoff_time", cutoff))

	pruned := 0
	for _, key := range idle {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		if err := s.save(ctx, key); err != nil {
			s.logger.Error("Failed to save idle relationship, keeping it",
				zap.Error(err),
				zap.String("relationship", key))
			continue
		}
		if !s.engine.ForgetIdle(key, cutoff) {
			s.logger.Debug("Relationship became active again, keeping it",
				zap.String("relationship", key))
			continue
		}
		pruned++
	}

	s.logger.Info("Idle relationship pruning completed",
		zap.Int("pruned", pruned),
		zap.Int("kept", len(idle)-pruned))
	return pruned, nil
}

// Run saves every interval, pruning when maxIdle is positive, until ctx is
// done. Everything is saved once more on the way out.
func (s *SnapshotService) Run(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if maxIdle > 0 {
				if _, err := s.PruneIdle(ctx, maxIdle); err != nil {
					s.logger.Warn("Pruning interrupted", zap.Error(err))
				}
			}
			if _, err := s.SaveAll(ctx); err != nil {
				s.logger.Warn("Snapshot save interrupted", zap.Error(err))
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			saved, err := s.SaveAll(shutdownCtx)
			cancel()
			if err != nil {
				s.logger.Error("Final snapshot save incomplete", zap.Error(err), zap.Int("saved", saved))
				return
			}
			s.logger.Info("Saved weariness snapshots on shutdown", zap.Int("relationships", saved))
			return
		}
	}
}
