package dml

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assembly-hub/dml/dbtype"
)

func TestMySQLBuilder(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(t, dbtype.MySQL)

	t.Run("insert", func(t *testing.T) {
		sql, err := b.Insert(ctx, "users", NewColumns().Set("name", "a"), NewParams())
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `users` (`name`) VALUES (?)", sql)
	})

	t.Run("empty insert uses DEFAULT", func(t *testing.T) {
		sql, err := b.Insert(ctx, "users", NewColumns(), NewParams())
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `users` (`id`) VALUES (DEFAULT)", sql)
	})

	t.Run("batch insert", func(t *testing.T) {
		sql, err := b.BatchInsert(ctx, "tags", []string{"id", "label"},
			slices.Values([][]any{{1, "a"}, {2, "b"}}), NewParams())
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `tags` (`id`, `label`) VALUES (?, ?), (?, ?)", sql)
	})

	t.Run("upsert update all", func(t *testing.T) {
		sql, err := b.Upsert(ctx, "users", NewColumns().Set("id", 1).Set("name", "a"), UpdateAll(), NewParams())
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `users` (`id`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `name`=VALUES(`name`)", sql)
	})

	t.Run("upsert no update", func(t *testing.T) {
		sql, err := b.Upsert(ctx, "users", NewColumns().Set("id", 1).Set("name", "a"), NoUpdate(), NewParams())
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `users` (`id`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `id`=`users`.`id`", sql)
	})

	t.Run("upsert explicit columns", func(t *testing.T) {
		params := NewParams()
		update := UpdateColumns(NewColumns().Set("age", 4))
		sql, err := b.Upsert(ctx, "users", NewColumns().Set("id", 1), update, params)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `users` (`id`) VALUES (?) ON DUPLICATE KEY UPDATE `age`=?", sql)
		assert.Equal(t, []any{int64(1), int64(4)}, params.Args())
	})

	t.Run("returning pks", func(t *testing.T) {
		_, err := b.InsertWithReturningPks(ctx, "users", NewColumns().Set("name", "a"), NewParams())
		assert.True(t, IsNotSupported(err))
	})

	t.Run("reset sequence", func(t *testing.T) {
		sql, err := b.ResetSequenceTo(ctx, "users", 100)
		require.NoError(t, err)
		assert.Equal(t, "ALTER TABLE `users` AUTO_INCREMENT=100", sql)

		_, err = b.ResetSequence(ctx, "users")
		assert.True(t, IsNotSupported(err))

		_, err = b.ResetSequence(ctx, "missing")
		assert.ErrorIs(t, err, ErrTableNotFound)
	})
}

func TestMariaDBUsesMySQLBuilder(t *testing.T) {
	b := newTestBuilder(t, dbtype.MariaDB)
	assert.Equal(t, dbtype.MariaDB, b.DBType())
	_, ok := b.(*mysqlBuilder)
	assert.True(t, ok)
}
