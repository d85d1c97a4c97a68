package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "sites",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "sites",
		ConflictKeys: []string{"id"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "sites",
		Columns: []string{"id", "name"},
	}, [][]any{{1, "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_StagesAndMerges(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_staging_sites"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_sites"}, []string{"id", "name"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "sites" \("id", "name"\) SELECT "id", "name" FROM "_staging_sites" ON CONFLICT \("id"\) DO UPDATE SET "name" = EXCLUDED\."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "sites",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, [][]any{{"a", "Basalt Cliff"}, {"b", "Fossil Bed"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeSQL_ExplicitUpdateCols(t *testing.T) {
	sql := mergeSQL(UpsertConfig{
		Table:        "public.sites",
		Columns:      []string{"id", "name", "updated_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"name"},
	}, "_staging_public_sites")

	assert.Contains(t, sql, `INSERT INTO "public"."sites"`)
	assert.Contains(t, sql, `ON CONFLICT ("id")`)
	assert.Contains(t, sql, `DO UPDATE SET "name" = EXCLUDED."name"`)
	assert.NotContains(t, sql, `"updated_at" = EXCLUDED`)
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"sites"`, sanitizeTable("sites"))
	assert.Equal(t, `"public"."sites"`, sanitizeTable("public.sites"))
}
