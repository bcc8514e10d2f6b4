package dml

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assembly-hub/dml/dbtype"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// 内存库每个连接独立
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL UNIQUE,
		qty INTEGER
	)`)
	require.NoError(t, err)
	return db
}

func sqliteItems() *Reference {
	ref := NewReference(dbtype.SQLite3)
	id := NewColumn("id", "INTEGER")
	id.AutoIncrement = true
	ref.AddTable(&TableSchema{
		Name:       "items",
		Columns:    []*ColumnSchema{id, NewColumn("title", "TEXT"), NewColumn("qty", "INTEGER")},
		PrimaryKey: []string{"id"},
		Uniques:    []Constraint{{Name: "items_title_uk", Columns: []string{"title"}}},
	})
	return ref
}

func TestSQLiteExecution(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	b, err := NewBuilder(dbtype.SQLite3, sqliteItems())
	require.NoError(t, err)
	ex := NewExecutor(db, b, zerolog.Nop())

	qty := func(title string) int64 {
		var n int64
		require.NoError(t, db.QueryRowContext(ctx, `SELECT qty FROM items WHERE title = ?`, title).Scan(&n))
		return n
	}

	n, err := ex.BatchInsert(ctx, "items", []string{"title", "qty"},
		[][]any{{"a", 1}, {"b", "2"}, {"c", 3}}, 2, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(2), qty("b"))

	t.Run("upsert updates", func(t *testing.T) {
		params := NewParams()
		sqlStr, err := b.Upsert(ctx, "items", NewColumns().Set("title", "a").Set("qty", 10), UpdateAll(), params)
		require.NoError(t, err)
		assert.Contains(t, sqlStr, `ON CONFLICT ("title") DO UPDATE SET "qty"=EXCLUDED."qty"`)
		_, err = ex.Exec(ctx, Statement{SQL: sqlStr, Params: params})
		require.NoError(t, err)
		assert.Equal(t, int64(10), qty("a"))
	})

	t.Run("upsert ignores", func(t *testing.T) {
		params := NewParams()
		sqlStr, err := b.Upsert(ctx, "items", NewColumns().Set("title", "b").Set("qty", 99), NoUpdate(), params)
		require.NoError(t, err)
		affected, err := ex.Exec(ctx, Statement{SQL: sqlStr, Params: params})
		require.NoError(t, err)
		assert.Zero(t, affected)
		assert.Equal(t, int64(2), qty("b"))
	})

	t.Run("reset sequence then insert returning", func(t *testing.T) {
		sqlStr, err := b.ResetSequenceTo(ctx, "items", 100)
		require.NoError(t, err)
		_, err = ex.Exec(ctx, Statement{SQL: sqlStr})
		require.NoError(t, err)

		params := NewParams()
		sqlStr, err = b.InsertWithReturningPks(ctx, "items", NewColumns().Set("title", "d").Set("qty", 4), params)
		require.NoError(t, err)
		var id int64
		require.NoError(t, db.QueryRowContext(ctx, sqlStr, ex.Args(params)...).Scan(&id))
		assert.Equal(t, int64(100), id)
	})

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 4, count)
}
