package dml

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assembly-hub/dml/dbtype"
)

func newMockExecutor(t *testing.T, dbType int, log zerolog.Logger) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewExecutor(db, newTestBuilder(t, dbType), log), mock
}

func buildBatch(t *testing.T, b QueryBuilder, table string, columns []string, rows [][]any) Statement {
	t.Helper()
	params := NewParams()
	sql, err := b.BatchInsert(context.Background(), table, columns, slices.Values(rows), params)
	require.NoError(t, err)
	return Statement{SQL: sql, Params: params}
}

func TestExecutor_ExecBatchCommit(t *testing.T) {
	ex, mock := newMockExecutor(t, dbtype.Oracle, zerolog.Nop())
	st := buildBatch(t, ex.Builder(), "tags", []string{"id", "label"}, [][]any{{1, "a"}, {2, "b"}})

	mock.ExpectBegin()
	mock.ExpectExec(st.SQL).WithArgs(int64(1), "a", int64(2), "b").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := ex.ExecBatch(context.Background(), []Statement{st}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ExecBatchRollback(t *testing.T) {
	var buf bytes.Buffer
	ex, mock := newMockExecutor(t, dbtype.Oracle, zerolog.New(&buf))
	first := buildBatch(t, ex.Builder(), "tags", []string{"id", "label"}, [][]any{{1, "a"}})
	second := buildBatch(t, ex.Builder(), "tags", []string{"id", "label"}, [][]any{{1, "a"}})

	mock.ExpectBegin()
	mock.ExpectExec(first.SQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(second.SQL).WillReturnError(errors.New("ORA-00001: unique constraint violated"))
	mock.ExpectRollback()

	n, err := ex.ExecBatch(context.Background(), []Statement{first, second}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORA-00001")
	assert.Zero(t, n)
	assert.Contains(t, buf.String(), "batch rolled back")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ExpressionArgsFollowText(t *testing.T) {
	ctx := context.Background()
	ex, mock := newMockExecutor(t, dbtype.Oracle, zerolog.Nop())
	params := NewParams()
	cols := NewColumns().Set("id", 7).Set("label", ExprWith(":b || :a", map[string]any{"a": "x", "b": "y"}))
	sql, err := ex.Builder().Insert(ctx, "tags", cols, params)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "tags" ("id", "label") VALUES (:qp0, :qp1 || :qp2)`, sql)

	mock.ExpectExec(sql).WithArgs(int64(7), "y", "x").WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := ex.Exec(ctx, Statement{SQL: sql, Params: params})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ExecBatchWithoutTransaction(t *testing.T) {
	ex, mock := newMockExecutor(t, dbtype.MySQL, zerolog.Nop())
	st := buildBatch(t, ex.Builder(), "tags", []string{"id", "label"}, [][]any{{1, "a"}})

	mock.ExpectExec(st.SQL).WithArgs(int64(1), "a").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(st.SQL).WithArgs(int64(1), "a").WillReturnError(errors.New("duplicate"))

	n, err := ex.ExecBatch(context.Background(), []Statement{st, st}, false)
	assert.EqualError(t, err, "duplicate")
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_BatchInsertChunks(t *testing.T) {
	ex, mock := newMockExecutor(t, dbtype.Postgres, zerolog.Nop())
	rows := [][]any{{1, "a"}, {2, "b"}, {3, "c"}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "tags" ("id", "label") VALUES ($1, $2), ($3, $4)`).
		WithArgs(int64(1), "a", int64(2), "b").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO "tags" ("id", "label") VALUES ($1, $2)`).
		WithArgs(int64(3), "c").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := ex.BatchInsert(context.Background(), "tags", []string{"id", "label"}, rows, 2, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = ex.BatchInsert(context.Background(), "tags", []string{"id"}, nil, 2, true)
	assert.Error(t, err)
}

func TestExecutor_Args(t *testing.T) {
	params := NewParams()
	params.Add(1)

	oracle := NewExecutor(nil, newTestBuilder(t, dbtype.Oracle), zerolog.Nop())
	assert.Equal(t, []any{1}, oracle.Args(params))
	assert.Nil(t, oracle.Args(nil))

	sqlite := NewExecutor(nil, newTestBuilder(t, dbtype.SQLite3), zerolog.Nop())
	assert.Len(t, sqlite.Args(params), 1)

	_, err := oracle.Exec(context.Background(), Statement{SQL: "SELECT 1 FROM DUAL"})
	assert.ErrorIs(t, err, ErrClient)
}
