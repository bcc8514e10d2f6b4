package dml

import (
	"context"
	"iter"
	"strconv"
)

type sqlserverBuilder struct {
	*baseBuilder
}

func (b *sqlserverBuilder) prepare(ctx context.Context, op, table string, src InsertSource,
	params *Params) (*InsertValues, error) {
	return prepareInsertValues(ctx, b.baseBuilder, op, table, src, params)
}

func (b *sqlserverBuilder) PrepareInsertValues(ctx context.Context, table string, src InsertSource,
	params *Params) (iv *InsertValues, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opPrepareInsert, table); err != nil {
		return nil, err
	}
	return b.prepare(ctx, opPrepareInsert, table, src, params)
}

func (b *sqlserverBuilder) Insert(ctx context.Context, table string, src InsertSource,
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

func (b *sqlserverBuilder) BatchInsert(ctx context.Context, table string, columns []string, rows iter.Seq[[]any],
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

// Upsert renders MERGE ... WITH (HOLDLOCK) terminated by ";".
func (b *sqlserverBuilder) Upsert(ctx context.Context, table string, src InsertSource, update UpdateSpec,
	params *Params) (sql string, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opUpsert, table); err != nil {
		return "", err
	}
	sql, err = mergeUpsert(ctx, b.baseBuilder, b.prepare, table, src, update, params)
	if err != nil {
		return "", err
	}
	b.logSQL(opUpsert, table, sql, params)
	return sql, nil
}

func (b *sqlserverBuilder) InsertWithReturningPks(_ context.Context, table string, _ InsertSource,
	_ *Params) (string, error) {
	return "", unsupported(opInsertReturning, table, "sqlserver generated keys are read with OUTPUT, not supported here")
}

func (b *sqlserverBuilder) ResetSequence(ctx context.Context, table string) (string, error) {
	ts, _, err := sequenceTarget(ctx, b.baseBuilder, opResetSequence, table, false, true)
	if err != nil {
		return "", err
	}
	// 不带新值时按当前最大标识值重置
	sql := "DBCC CHECKIDENT (" + quoteValue(b.quoter.QuoteTableName(ts.Name), b.conf.StrEsc) + ", RESEED)"
	b.logSQL(opResetSequence, table, sql, nil)
	return sql, nil
}

func (b *sqlserverBuilder) ResetSequenceTo(ctx context.Context, table string, value int64) (string, error) {
	ts, _, err := sequenceTarget(ctx, b.baseBuilder, opResetSequence, table, true, true)
	if err != nil {
		return "", err
	}
	sql := "DBCC CHECKIDENT (" + quoteValue(b.quoter.QuoteTableName(ts.Name), b.conf.StrEsc) +
		", RESEED, " + strconv.FormatInt(value-1, 10) + ")"
	b.logSQL(opResetSequence, table, sql, nil)
	return sql, nil
}
