package dml

import (
	"context"
	"iter"
	"strconv"

	"github.com/assembly-hub/basics/util"

	"github.com/assembly-hub/dml/dbtype"
)

// mysqlBuilder covers MySQL and MariaDB.
type mysqlBuilder struct {
	*baseBuilder
}

func (b *mysqlBuilder) prepare(ctx context.Context, op, table string, src InsertSource,
	params *Params) (*InsertValues, error) {
	iv, err := prepareInsertValues(ctx, b.baseBuilder, op, table, src, params)
	if err != nil {
		return nil, err
	}
	// INSERT INTO t DEFAULT VALUES 在 MySQL 中不可用
	return defaultValuesFallback(ctx, b.baseBuilder, op, table, src, iv)
}

func (b *mysqlBuilder) PrepareInsertValues(ctx context.Context, table string, src InsertSource,
	params *Params) (iv *InsertValues, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opPrepareInsert, table); err != nil {
		return nil, err
	}
	return b.prepare(ctx, opPrepareInsert, table, src, params)
}

func (b *mysqlBuilder) Insert(ctx context.Context, table string, src InsertSource,
	params *Params) (sql string, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opInsert, table); err != nil {
		return "", err
	}
	iv, err := b.prepare(ctx, opInsert, table, src, params)
	if err != nil {
		return "", err
	}
	sql = insertSQL(b.quoter, table, iv)
	b.logSQL(opInsert, table, sql, params)
	return sql, nil
}

func (b *mysqlBuilder) BatchInsert(ctx context.Context, table string, columns []string, rows iter.Seq[[]any],
	params *Params) (sql string, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opBatchInsert, table); err != nil {
		return "", err
	}
	br, err := prepareBatch(ctx, b.baseBuilder, opBatchInsert, table, columns, rows, params)
	if err != nil || br == nil {
		return "", err
	}
	sql = multiRowInsert(b.quoter, table, br)
	b.logSQL(opBatchInsert, table, sql, params)
	return sql, nil
}

func (b *mysqlBuilder) Upsert(ctx context.Context, table string, src InsertSource, update UpdateSpec,
	params *Params) (sql string, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opUpsert, table); err != nil {
		return "", err
	}
	sql, err = duplicateKeyUpsert(ctx, b.baseBuilder, b.prepare, table, src, update, params)
	if err != nil {
		return "", err
	}
	b.logSQL(opUpsert, table, sql, params)
	return sql, nil
}

// duplicateKeyUpsert renders INSERT ... ON DUPLICATE KEY UPDATE, shared by
// MySQL and openGauss.
func duplicateKeyUpsert(ctx context.Context, b *baseBuilder, prepare prepareFunc, table string,
	src InsertSource, update UpdateSpec, params *Params) (string, error) {
	op := opUpsert
	iv, err := prepare(ctx, op, table, src, params)
	if err != nil {
		return "", err
	}
	insert := insertSQL(b.quoter, table, iv)

	uc, err := prepareUpsertColumns(ctx, b, op, table, src, update)
	if err != nil {
		return "", err
	}
	if len(uc.unique) == 0 {
		return insert, nil
	}
	if uc.update != nil && len(uc.update) == 0 {
		update = NoUpdate()
	}

	var cols *Columns
	switch update.mode {
	case updateAll:
		cols = NewColumns()
		for _, name := range uc.update {
			cols.Set(name, Expr("VALUES("+name+")"))
		}
	case updateColumns:
		cols = update.columns
	default:
		if b.conf.DBType == dbtype.OpenGauss {
			return insert + " ON DUPLICATE KEY UPDATE NOTHING", nil
		}
		// 自赋值，相当于忽略冲突行
		name := uc.unique[0]
		cols = NewColumns().Set(name, Expr(b.quoter.QuoteTableName(table)+"."+name))
	}

	sets, err := prepareUpdateSets(ctx, b, op, table, cols, b.binder(params))
	if err != nil {
		return "", err
	}
	return insert + " ON DUPLICATE KEY UPDATE " + util.JoinArr(sets, ", "), nil
}

func (b *mysqlBuilder) InsertWithReturningPks(_ context.Context, table string, _ InsertSource,
	_ *Params) (string, error) {
	return "", unsupported(opInsertReturning, table, "mysql has no clause returning generated keys from insert")
}

func (b *mysqlBuilder) ResetSequence(ctx context.Context, table string) (string, error) {
	if _, _, err := sequenceTarget(ctx, b.baseBuilder, opResetSequence, table, false, true); err != nil {
		return "", err
	}
	return "", unsupported(opResetSequence, table, "mysql can only reset AUTO_INCREMENT to an explicit value")
}

func (b *mysqlBuilder) ResetSequenceTo(ctx context.Context, table string, value int64) (string, error) {
	ts, _, err := sequenceTarget(ctx, b.baseBuilder, opResetSequence, table, true, true)
	if err != nil {
		return "", err
	}
	sql := "ALTER TABLE " + b.quoter.QuoteTableName(ts.Name) + " AUTO_INCREMENT=" + strconv.FormatInt(value, 10)
	b.logSQL(opResetSequence, table, sql, nil)
	return sql, nil
}
