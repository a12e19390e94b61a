package commands

import (
	"context"
	"fmt"
	"io"

	"dialog-agent/config"
	"dialog-agent/corpus"
	"dialog-agent/database"
	"dialog-agent/dialog"
	apperrors "dialog-agent/errors"
	"dialog-agent/metric"

	"go.uber.org/zap"
)

const (
	corpusSourceYAML     = "yaml"
	corpusSourcePostgres = "postgres"

	backendNone     = "none"
	backendPostgres = "postgres"
	backendBadger   = "badger"
)

// runtime is the engine plus whatever it needs closed on exit.
type runtime struct {
	engine    *dialog.Engine
	snapshots metric.SnapshotStore
	closers   []io.Closer
}

func (r *runtime) Close() {
	if r.engine != nil {
		r.engine.Close()
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i].Close()
	}
}

// buildRuntime loads the corpus, opens the snapshot backend and creates the engine.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	rt := &runtime{}

	var pg *database.PostgresStore
	needsPostgres := cfg.CorpusSource == corpusSourcePostgres || cfg.PersistenceBackend == backendPostgres
	if needsPostgres {
		store, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		pg = store
		rt.closers = append(rt.closers, store)
	}

	catalog, err := loadCatalog(ctx, cfg, pg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	switch cfg.PersistenceBackend {
	case backendNone, "":
	case backendPostgres:
		rt.snapshots = pg
	case backendBadger:
		store, err := database.NewBadgerStore(cfg.BadgerPath, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.snapshots = store
		rt.closers = append(rt.closers, store)
	default:
		rt.Close()
		return nil, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "unknown PERSISTENCE_BACKEND %q", cfg.PersistenceBackend)
	}

	opts := dialog.OptionsFromConfig(cfg, logger)
	opts.Snapshots = rt.snapshots
	engine, err := dialog.NewEngine(catalog, opts, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.engine = engine
	return rt, nil
}

func openPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.PostgresStore, error) {
	store, err := database.NewPostgresStore(cfg.DatabaseURL, logger)
	if apperrors.IsConfigurationMissing(err) {
		return nil, fmt.Errorf("postgres selected by CORPUS_SOURCE or PERSISTENCE_BACKEND: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensuring database schema: %w", err)
	}
	return store, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, pg *database.PostgresStore, logger *zap.Logger) (*corpus.Catalog, error) {
	defaultID := corpus.TableID(cfg.DefaultResponsesTable)
	switch cfg.CorpusSource {
	case corpusSourceYAML, "":
		return corpus.LoadDir(cfg.CorpusPath, defaultID, logger)
	case corpusSourcePostgres:
		return pg.LoadCatalog(ctx, defaultID)
	default:
		return nil, apperrors.WrapErrorf(apperrors.ErrInvalidInput, "unknown CORPUS_SOURCE %q", cfg.CorpusSource)
	}
}
