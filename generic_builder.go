package dml

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/assembly-hub/basics/util"

	"github.com/assembly-hub/dml/dbtype"
)

// genericBuilder covers the dialects with multi-row VALUES, DEFAULT VALUES and
// RETURNING: Postgres, openGauss and SQLite.
type genericBuilder struct {
	*baseBuilder
}

func (b *genericBuilder) prepare(ctx context.Context, op, table string, src InsertSource,
	params *Params) (*InsertValues, error) {
	return prepareInsertValues(ctx, b.baseBuilder, op, table, src, params)
}

func (b *genericBuilder) PrepareInsertValues(ctx context.Context, table string, src InsertSource,
	params *Params) (iv *InsertValues, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opPrepareInsert, table); err != nil {
		return nil, err
	}
	return b.prepare(ctx, opPrepareInsert, table, src, params)
}

func (b *genericBuilder) Insert(ctx context.Context, table string, src InsertSource,
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

func (b *genericBuilder) BatchInsert(ctx context.Context, table string, columns []string, rows iter.Seq[[]any],
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

// Upsert renders INSERT ... ON CONFLICT for Postgres and SQLite. openGauss has
// no ON CONFLICT and uses ON DUPLICATE KEY UPDATE instead.
func (b *genericBuilder) Upsert(ctx context.Context, table string, src InsertSource, update UpdateSpec,
	params *Params) (sql string, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opUpsert, table); err != nil {
		return "", err
	}
	if b.conf.DBType == dbtype.OpenGauss {
		sql, err = duplicateKeyUpsert(ctx, b.baseBuilder, b.prepare, table, src, update, params)
	} else {
		sql, err = b.onConflictUpsert(ctx, table, src, update, params)
	}
	if err != nil {
		return "", err
	}
	b.logSQL(opUpsert, table, sql, params)
	return sql, nil
}

func (b *genericBuilder) onConflictUpsert(ctx context.Context, table string, src InsertSource, update UpdateSpec,
	params *Params) (string, error) {
	op := opUpsert
	uc, err := prepareUpsertColumns(ctx, b.baseBuilder, op, table, src, update)
	if err != nil {
		return "", err
	}
	iv, err := b.prepare(ctx, op, table, src, params)
	if err != nil {
		return "", err
	}
	insert := insertSQL(b.quoter, table, iv)
	if len(uc.unique) == 0 {
		return insert, nil
	}
	if uc.update != nil && len(uc.update) == 0 {
		update = NoUpdate()
	}
	if !update.enabled() {
		return insert + " ON CONFLICT DO NOTHING", nil
	}

	cols := update.columns
	if update.mode == updateAll {
		cols = NewColumns()
		for _, name := range uc.update {
			cols.Set(name, Expr("EXCLUDED."+name))
		}
	}
	sets, err := prepareUpdateSets(ctx, b.baseBuilder, op, table, cols, b.binder(params))
	if err != nil {
		return "", err
	}

	// ON CONFLICT 只能指定一个唯一约束
	target := make([]string, 0, len(uc.constraints[0].Columns))
	for _, col := range uc.constraints[0].Columns {
		target = append(target, b.quoter.QuoteColumnName(col))
	}
	return insert + " ON CONFLICT (" + util.JoinArr(target, ", ") + ") DO UPDATE SET " +
		util.JoinArr(sets, ", "), nil
}

func (b *genericBuilder) InsertWithReturningPks(ctx context.Context, table string, src InsertSource,
	params *Params) (sql string, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opInsertReturning, table); err != nil {
		return "", err
	}
	pks, err := returningColumns(ctx, b.baseBuilder, opInsertReturning, table)
	if err != nil {
		return "", err
	}
	iv, err := b.prepare(ctx, opInsertReturning, table, src, params)
	if err != nil {
		return "", err
	}
	sql = insertSQL(b.quoter, table, iv) + " RETURNING " + util.JoinArr(pks, ", ")
	b.logSQL(opInsertReturning, table, sql, params)
	return sql, nil
}

func (b *genericBuilder) ResetSequence(ctx context.Context, table string) (string, error) {
	return b.resetSequence(ctx, table, nil)
}

func (b *genericBuilder) ResetSequenceTo(ctx context.Context, table string, value int64) (string, error) {
	return b.resetSequence(ctx, table, &value)
}

func (b *genericBuilder) resetSequence(ctx context.Context, table string, value *int64) (string, error) {
	isSQLite := b.conf.DBType == dbtype.SQLite2 || b.conf.DBType == dbtype.SQLite3
	ts, seq, err := sequenceTarget(ctx, b.baseBuilder, opResetSequence, table, value != nil, isSQLite)
	if err != nil {
		return "", err
	}
	qt := b.quoter.QuoteTableName(ts.Name)

	var s strings.Builder
	s.Grow(100)
	if isSQLite {
		// sqlite_sequence.seq 保存最后一次分配的值
		s.WriteString("UPDATE sqlite_sequence SET seq=")
		if value != nil {
			s.WriteString(strconv.FormatInt(*value-1, 10))
		} else {
			s.WriteString("(SELECT COALESCE(MAX(")
			s.WriteString(b.quoter.QuoteColumnName(ts.PrimaryKey[0]))
			s.WriteString("),0) FROM ")
			s.WriteString(qt)
			s.WriteString(")")
		}
		s.WriteString(" WHERE name=")
		s.WriteString(quoteValue(ts.Name, b.conf.StrEsc))
	} else {
		s.WriteString("SELECT SETVAL(")
		s.WriteString(quoteValue(b.quoter.QuoteTableName(seq), b.conf.StrEsc))
		s.WriteString(", ")
		if value != nil {
			s.WriteString(strconv.FormatInt(*value, 10))
		} else {
			s.WriteString("(SELECT COALESCE(MAX(")
			s.WriteString(b.quoter.QuoteColumnName(ts.PrimaryKey[0]))
			s.WriteString("),0) FROM ")
			s.WriteString(qt)
			s.WriteString(")+1")
		}
		s.WriteString(", false)")
	}

	sql := s.String()
	b.logSQL(opResetSequence, table, sql, nil)
	return sql, nil
}
