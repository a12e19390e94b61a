package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dialog-agent/dialog"
	apperrors "dialog-agent/errors"
	"dialog-agent/metric"

	"github.com/google/uuid"
)

var _ metric.SnapshotStore = (*PostgresStore)(nil)

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap metric.Snapshot) error {
	rel, err := dialog.ParseRelationshipKey(snap.Key)
	if err != nil {
		return err
	}
	entries, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.Key, err)
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	query := `
		INSERT INTO metric_snapshots (relationship_key, player_id, partner_id, entries, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (relationship_key) DO UPDATE
		SET entries = EXCLUDED.entries, saved_at = EXCLUDED.saved_at
	`
	_, err = s.DB.ExecContext(ctx, query, snap.Key, rel.PlayerID, rel.PartnerID, entries, snap.SavedAt)
	if err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "save snapshot %s: %v", snap.Key, err)
	}
	return nil
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, key string) (metric.Snapshot, error) {
	snap := metric.Snapshot{Key: key}
	var raw []byte
	query := `SELECT entries, saved_at FROM metric_snapshots WHERE relationship_key = $1`
	err := s.DB.QueryRowContext(ctx, query, key).Scan(&raw, &snap.SavedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, apperrors.WrapErrorf(apperrors.ErrNotFound, "snapshot %s", key)
		}
		return snap, apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "load snapshot %s: %v", key, err)
	}
	if err := json.Unmarshal(raw, &snap.Entries); err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snap, nil
}

func (s *PostgresStore) DeleteSnapshot(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM metric_snapshots WHERE relationship_key = $1`, key); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "delete snapshot %s: %v", key, err)
	}
	return nil
}

// DeletePlayerSnapshots drops every snapshot of one player and returns how
// many were removed.
func (s *PostgresStore) DeletePlayerSnapshots(ctx context.Context, playerID uuid.UUID) (int64, error) {
	result, err := s.DB.ExecContext(ctx, `DELETE FROM metric_snapshots WHERE player_id = $1`, playerID)
	if err != nil {
		return 0, apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "delete snapshots of %s: %v", playerID, err)
	}
	return result.RowsAffected()
}
