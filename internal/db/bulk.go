// Package db provides shared Postgres helpers for the store backends.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes a bulk upsert target.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // columns in row order
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns rewritten on conflict; nil means every non-key column
}

// BulkUpsert loads rows into a temp table with COPY and merges them into the
// target with INSERT ... ON CONFLICT DO UPDATE, all in one transaction.
// Returns the number of rows written.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	staging := "_staging_" + strings.ReplaceAll(cfg.Table, ".", "_")
	create := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{staging}.Sanitize(),
		sanitizeTable(cfg.Table),
	)
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create staging table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into staging table for %s", cfg.Table)
	}

	tag, err := tx.Exec(ctx, mergeSQL(cfg, staging))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// mergeSQL builds the INSERT ... ON CONFLICT statement moving staged rows
// into the target table.
func mergeSQL(cfg UpsertConfig, staging string) string {
	update := cfg.UpdateCols
	if update == nil {
		keys := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			keys[k] = true
		}
		for _, c := range cfg.Columns {
			if !keys[c] {
				update = append(update, c)
			}
		}
	}

	sets := make([]string, len(update))
	for i, col := range update {
		q := pgx.Identifier{col}.Sanitize()
		sets[i] = q + " = EXCLUDED." + q
	}

	cols := quoteAndJoin(cfg.Columns)
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(cfg.Table), cols, cols,
		pgx.Identifier{staging}.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(sets, ", "),
	)
}

// sanitizeTable quotes a table name, handling schema qualification.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
