package database

import (
	"context"
	"database/sql"

	apperrors "dialog-agent/errors"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PostgresStore keeps the knowledge corpus and weariness snapshots in Postgres.
type PostgresStore struct {
	DB     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(connStr string, logger *zap.Logger) (*PostgresStore, error) {
	if connStr == "" {
		return nil, apperrors.WrapError(apperrors.ErrConfigurationMissing, "DATABASE_URL is empty")
	}
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.WrapCause(apperrors.ErrServiceUnavailable, err, "ping database")
	}
	logger.Info("Successfully connected to the database")
	return &PostgresStore{DB: db, logger: logger}, nil
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

// EnsureSchema creates the required tables if they do not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS corpus_tables (
            id TEXT PRIMARY KEY,
            is_default BOOLEAN NOT NULL DEFAULT FALSE,
            position INTEGER NOT NULL DEFAULT 0,
            updated_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS corpus_rows (
            table_id TEXT NOT NULL REFERENCES corpus_tables(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            position INTEGER NOT NULL,
            ask TEXT NOT NULL DEFAULT '',
            keywords TEXT[] DEFAULT '{}'::TEXT[],
            min_keywords_match INTEGER NOT NULL,
            answers JSONB NOT NULL DEFAULT '[]'::jsonb,
            table_actions JSONB NOT NULL DEFAULT '[]'::jsonb,
            tasks TEXT[] DEFAULT '{}'::TEXT[],
            PRIMARY KEY (table_id, name)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_corpus_rows_table_position ON corpus_rows(table_id, position)`,
		`CREATE TABLE IF NOT EXISTS partner_tables (
            partner_id TEXT PRIMARY KEY,
            table_ids TEXT[] NOT NULL DEFAULT '{}'::TEXT[]
        )`,
		`CREATE TABLE IF NOT EXISTS metric_snapshots (
            relationship_key TEXT PRIMARY KEY,
            player_id UUID NOT NULL,
            partner_id TEXT NOT NULL,
            entries JSONB NOT NULL DEFAULT '[]'::jsonb,
            saved_at TIMESTAMPTZ DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_metric_snapshots_player ON metric_snapshots(player_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return apperrors.WrapCause(apperrors.ErrDatabaseOperation, err, "failed to execute schema statement")
		}
	}
	return nil
}
