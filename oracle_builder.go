package dml

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/assembly-hub/basics/util"
)

// oracleBuilder 没有多行 VALUES 与原生 UPSERT，分别用 INSERT ALL 和 MERGE 实现
type oracleBuilder struct {
	*baseBuilder
}

func (b *oracleBuilder) prepare(ctx context.Context, op, table string, src InsertSource,
	params *Params) (*InsertValues, error) {
	iv, err := prepareInsertValues(ctx, b.baseBuilder, op, table, src, params)
	if err != nil {
		return nil, err
	}
	return defaultValuesFallback(ctx, b.baseBuilder, op, table, src, iv)
}

func (b *oracleBuilder) PrepareInsertValues(ctx context.Context, table string, src InsertSource,
	params *Params) (iv *InsertValues, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opPrepareInsert, table); err != nil {
		return nil, err
	}
	return b.prepare(ctx, opPrepareInsert, table, src, params)
}

func (b *oracleBuilder) Insert(ctx context.Context, table string, src InsertSource,
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

// BatchInsert renders
// INSERT ALL INTO "t" ("a", "b") VALUES (:qp0, :qp1) INTO ... SELECT 1 FROM SYS.DUAL.
func (b *oracleBuilder) BatchInsert(ctx context.Context, table string, columns []string, rows iter.Seq[[]any],
	params *Params) (sql string, err error) {
	defer rollbackOnErr(params, params.Len(), &err)
	if err = b.checkTable(opBatchInsert, table); err != nil {
		return "", err
	}
	br, err := prepareBatch(ctx, b.baseBuilder, opBatchInsert, table, columns, rows, params)
	if err != nil || br == nil {
		return "", err
	}

	prefix := " INTO " + b.quoter.QuoteTableName(table) + " (" + util.JoinArr(br.columns, ", ") + ") VALUES "
	var s strings.Builder
	s.Grow(len("INSERT ALL") + len(br.tuples)*(len(prefix)+8*len(br.columns)) + 30)
	s.WriteString("INSERT ALL")
	s.WriteString(connectStrArr(br.tuples, "", prefix, ""))
	s.WriteString(" SELECT 1 FROM ")
	s.WriteString(b.conf.Dual)

	sql = s.String()
	b.logSQL(opBatchInsert, table, sql, params)
	return sql, nil
}

func (b *oracleBuilder) Upsert(ctx context.Context, table string, src InsertSource, update UpdateSpec,
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

func (b *oracleBuilder) InsertWithReturningPks(_ context.Context, table string, _ InsertSource,
	_ *Params) (string, error) {
	return "", unsupported(opInsertReturning, table, "oracle has no clause returning generated keys from insert")
}

func (b *oracleBuilder) ResetSequence(ctx context.Context, table string) (string, error) {
	return b.resetSequence(ctx, table, nil)
}

func (b *oracleBuilder) ResetSequenceTo(ctx context.Context, table string, value int64) (string, error) {
	return b.resetSequence(ctx, table, &value)
}

// resetSequence drops and recreates the sequence; Oracle cannot set the next
// value in place.
func (b *oracleBuilder) resetSequence(ctx context.Context, table string, value *int64) (string, error) {
	ts, seq, err := sequenceTarget(ctx, b.baseBuilder, opResetSequence, table, value != nil, false)
	if err != nil {
		return "", err
	}
	qs := b.quoter.QuoteTableName(seq)
	// 在 execute immediate 的字符串字面量中
	qsLit := strings.ReplaceAll(qs, b.conf.StrEsc, b.conf.StrEsc+b.conf.StrEsc)

	var s strings.Builder
	s.Grow(300)
	s.WriteString("declare\n    lastSeq number")
	if value != nil {
		s.WriteString(" := ")
		s.WriteString(strconv.FormatInt(*value, 10))
	}
	s.WriteString(";\nbegin\n")
	if value == nil {
		s.WriteString("    SELECT MAX(")
		s.WriteString(b.quoter.QuoteColumnName(ts.PrimaryKey[0]))
		s.WriteString(") + 1 INTO lastSeq FROM ")
		s.WriteString(b.quoter.QuoteTableName(ts.Name))
		s.WriteString(";\n")
	}
	s.WriteString("    if lastSeq IS NULL then lastSeq := 1; end if;\n")
	s.WriteString("    execute immediate 'DROP SEQUENCE ")
	s.WriteString(qsLit)
	s.WriteString("';\n")
	s.WriteString("    execute immediate 'CREATE SEQUENCE ")
	s.WriteString(qsLit)
	s.WriteString(" START WITH ' || lastSeq || ' INCREMENT BY 1 NOMAXVALUE NOCACHE';\n")
	s.WriteString("end;")

	sql := s.String()
	b.logSQL(opResetSequence, table, sql, nil)
	return sql, nil
}
