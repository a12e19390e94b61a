package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"dialog-agent/corpus"
	apperrors "dialog-agent/errors"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ImportCatalog upserts every table and partner of the catalog in one
// transaction. Rows of an imported table are replaced wholesale.
func (s *PostgresStore) ImportCatalog(ctx context.Context, catalog *corpus.Catalog) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.WrapCause(apperrors.ErrDatabaseOperation, err, "begin import")
	}
	defer tx.Rollback()

	for pos, table := range catalog.Tables() {
		if err := upsertTable(ctx, tx, table, pos); err != nil {
			return err
		}
	}
	for _, partner := range catalog.Partners() {
		if err := setPartnerTables(ctx, tx, partner, catalog.InitialTables(partner)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.WrapCause(apperrors.ErrDatabaseOperation, err, "commit import")
	}
	s.logger.Info("Corpus imported",
		zap.Int("tables", catalog.Len()),
		zap.Int("partners", len(catalog.Partners())))
	return nil
}

func upsertTable(ctx context.Context, tx *sql.Tx, table *corpus.Table, position int) error {
	query := `
		INSERT INTO corpus_tables (id, is_default, position, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET is_default = EXCLUDED.is_default, position = EXCLUDED.position, updated_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, query, string(table.ID), table.Default, position); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "upsert table %s: %v", table.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_rows WHERE table_id = $1`, string(table.ID)); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "clear rows of %s: %v", table.ID, err)
	}

	insert := `
		INSERT INTO corpus_rows (table_id, name, position, ask, keywords, min_keywords_match, answers, table_actions, tasks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i, row := range table.Rows {
		answers, err := json.Marshal(row.Answers)
		if err != nil {
			return fmt.Errorf("marshal answers of %s/%s: %w", table.ID, row.Name, err)
		}
		actions := row.TableActions
		if actions == nil {
			actions = []corpus.TableAction{}
		}
		actionsJSON, err := json.Marshal(actions)
		if err != nil {
			return fmt.Errorf("marshal table actions of %s/%s: %w", table.ID, row.Name, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			string(table.ID), row.Name, i, row.Ask,
			pq.Array(row.Keywords), row.MinKeywordsMatch,
			answers, actionsJSON, pq.Array(row.Tasks))
		if err != nil {
			return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "insert row %s/%s: %v", table.ID, row.Name, err)
		}
	}
	return nil
}

func setPartnerTables(ctx context.Context, tx *sql.Tx, partner string, tables []corpus.TableID) error {
	ids := make([]string, len(tables))
	for i, id := range tables {
		ids[i] = string(id)
	}
	query := `
		INSERT INTO partner_tables (partner_id, table_ids)
		VALUES ($1, $2)
		ON CONFLICT (partner_id) DO UPDATE SET table_ids = EXCLUDED.table_ids
	`
	if _, err := tx.ExecContext(ctx, query, partner, pq.Array(ids)); err != nil {
		return apperrors.WrapErrorf(apperrors.ErrDatabaseOperation, "set tables of partner %s: %v", partner, err)
	}
	return nil
}

// LoadCatalog reads every table and partner back into a Catalog, keeping the
// imported table and row order.
func (s *PostgresStore) LoadCatalog(ctx context.Context, defaultID corpus.TableID) (*corpus.Catalog, error) {
	catalog := corpus.NewCatalog(defaultID)

	tables, err := s.loadTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		if err := catalog.Add(t); err != nil {
			return nil, err
		}
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT partner_id, table_ids FROM partner_tables ORDER BY partner_id`)
	if err != nil {
		return nil, apperrors.WrapCause(apperrors.ErrDatabaseOperation, err, "query partners")
	}
	defer rows.Close()

	for rows.Next() {
		var partner string
		var ids pq.StringArray
		if err := rows.Scan(&partner, &ids); err != nil {
			return nil, err
		}
		tableIDs := make([]corpus.TableID, len(ids))
		for i, id := range ids {
			tableIDs[i] = corpus.TableID(id)
		}
		catalog.SetInitialTables(partner, tableIDs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := catalog.Check(); err != nil {
		return nil, err
	}
	if _, ok := catalog.DefaultTable(); !ok {
		s.logger.Warn("Default responses table not found in database",
			zap.String("table", string(defaultID)))
	}
	s.logger.Info("Corpus loaded from database",
		zap.Int("tables", catalog.Len()),
		zap.Int("partners", len(catalog.Partners())))
	return catalog, nil
}

func (s *PostgresStore) loadTables(ctx context.Context) ([]*corpus.Table, error) {
	query := `
		SELECT t.id, t.is_default, r.name, r.ask, r.keywords, r.min_keywords_match, r.answers, r.table_actions, r.tasks
		FROM corpus_tables t
		LEFT JOIN corpus_rows r ON r.table_id = t.id
		ORDER BY t.position, t.id, r.position
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.WrapCause(apperrors.ErrDatabaseOperation, err, "query corpus")
	}
	defer rows.Close()

	var tables []*corpus.Table
	var current *corpus.Table
	for rows.Next() {
		var (
			id, rowName, ask       sql.NullString
			isDefault              bool
			keywords, tasks        pq.StringArray
			minMatch               sql.NullInt64
			answersRaw, actionsRaw []byte
		)
		if err := rows.Scan(&id, &isDefault, &rowName, &ask, &keywords, &minMatch, &answersRaw, &actionsRaw, &tasks); err != nil {
			return nil, err
		}
		if current == nil || string(current.ID) != id.String {
			current = &corpus.Table{ID: corpus.TableID(id.String), Default: isDefault}
			tables = append(tables, current)
		}
		// A table without rows comes back as a single NULL row.
		if !rowName.Valid {
			continue
		}

		row := corpus.Row{
			Name:             rowName.String,
			Ask:              ask.String,
			Keywords:         []string(keywords),
			MinKeywordsMatch: int(minMatch.Int64),
			Tasks:            []string(tasks),
		}
		if err := json.Unmarshal(answersRaw, &row.Answers); err != nil {
			s.logger.Warn("Skipping row with unreadable answers",
				zap.String("table", id.String), zap.String("row", rowName.String), zap.Error(err))
			continue
		}
		if len(actionsRaw) > 0 {
			if err := json.Unmarshal(actionsRaw, &row.TableActions); err != nil {
				s.logger.Warn("Ignoring unreadable table actions",
					zap.String("table", id.String), zap.String("row", rowName.String), zap.Error(err))
			}
		}
		if len(row.TableActions) == 0 {
			row.TableActions = nil
		}
		if len(row.Tasks) == 0 {
			row.Tasks = nil
		}
		current.Rows = append(current.Rows, row)
	}
	return tables, rows.Err()
}
