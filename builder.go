package dml

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/assembly-hub/basics/set"
	"github.com/assembly-hub/basics/util"
	"github.com/rs/zerolog"

	"github.com/assembly-hub/dml/dbtype"
)

const (
	opInsert          = "insert"
	opBatchInsert     = "batch insert"
	opUpsert          = "upsert"
	opInsertReturning = "insert returning pks"
	opResetSequence   = "reset sequence"
	opPrepareInsert   = "prepare insert values"
)

var errNilParams = errors.New("params is nil")

// QueryBuilder generates DML text for one dialect. Implementations are
// stateless and safe for concurrent use; a shared *Params is not.
//
// Every method that takes params only appends to it. When a method fails, the
// names it appended are removed again.
type QueryBuilder interface {
	DBType() int
	// Insert renders a single-row insert, or INSERT ... SELECT for a *Query.
	Insert(ctx context.Context, table string, src InsertSource, params *Params) (string, error)
	// BatchInsert renders one multi-row insert. An empty rows sequence yields "".
	BatchInsert(ctx context.Context, table string, columns []string, rows iter.Seq[[]any], params *Params) (string, error)
	// Upsert inserts, or updates by a unique key covered by the insert columns.
	Upsert(ctx context.Context, table string, src InsertSource, update UpdateSpec, params *Params) (string, error)
	InsertWithReturningPks(ctx context.Context, table string, src InsertSource, params *Params) (string, error)
	// ResetSequence restarts the table's sequence after MAX(pk).
	ResetSequence(ctx context.Context, table string) (string, error)
	// ResetSequenceTo restarts the table's sequence at value.
	ResetSequenceTo(ctx context.Context, table string, value int64) (string, error)
	PrepareInsertValues(ctx context.Context, table string, src InsertSource, params *Params) (*InsertValues, error)
}

type Option func(*baseBuilder)

// WithLogger sets the logger receiving one debug event per statement.
func WithLogger(l zerolog.Logger) Option {
	return func(b *baseBuilder) {
		b.log = l
	}
}

// NewBuilder returns the builder of a dbtype. A nil schema means no table is
// known: values are not cast and upserts degrade to inserts.
func NewBuilder(dbType int, schema SchemaProvider, opts ...Option) (QueryBuilder, error) {
	conf := dbConfMap[dbType]
	if conf == nil {
		return nil, ErrDBType
	}
	if schema == nil {
		schema = noSchema{}
	}
	base := &baseBuilder{
		conf:   conf,
		quoter: &quoter{conf: conf},
		schema: schema,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(base)
	}

	switch dbType {
	case dbtype.Oracle:
		return &oracleBuilder{base}, nil
	case dbtype.MySQL, dbtype.MariaDB:
		return &mysqlBuilder{base}, nil
	case dbtype.SQLServer:
		return &sqlserverBuilder{base}, nil
	case dbtype.Postgres, dbtype.OpenGauss, dbtype.SQLite2, dbtype.SQLite3:
		return &genericBuilder{base}, nil
	}
	return nil, ErrDBType
}

type noSchema struct{}

func (noSchema) TableSchema(context.Context, string) (*TableSchema, error) {
	return nil, nil
}

type baseBuilder struct {
	conf   *dbCoreData
	quoter Quoter
	schema SchemaProvider
	log    zerolog.Logger
}

func (b *baseBuilder) DBType() int {
	return b.conf.DBType
}

func (b *baseBuilder) binder(params *Params) *binder {
	return &binder{conf: b.conf, params: params}
}

func (b *baseBuilder) checkTable(op, table string) error {
	if err := globalVerifyObj.VerifyTableName(table); err != nil {
		return invalidArg(op, table, err)
	}
	return nil
}

func (b *baseBuilder) tableSchema(ctx context.Context, op, table string) (*TableSchema, error) {
	ts, err := b.schema.TableSchema(ctx, table)
	if err != nil {
		return nil, wrapErr(op, table, err)
	}
	return ts, nil
}

func (b *baseBuilder) logSQL(op, table, sql string, params *Params) {
	b.log.Debug().
		Str("db", dbtype.Name(b.conf.DBType)).
		Str("op", op).
		Str("table", table).
		Int("params", params.Len()).
		Msg(sql)
}

// rollbackOnErr undoes the params appended by a failed call.
func rollbackOnErr(params *Params, n int, err *error) {
	if *err != nil {
		params.truncate(n)
	}
}

func bindErr(op, table string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(KindBinding, op, table, err)
}

func castValue(op, table string, col *ColumnSchema, v any) (any, error) {
	if col == nil {
		return v, nil
	}
	out, err := col.DBTypecast(v)
	if err != nil {
		return nil, bindErr(op, table, err)
	}
	return out, nil
}

// prepareInsertValues normalizes an insert source. Column values are cast by
// the table schema and bound; a *Query contributes its select list as names
// and its SQL as Values.
func prepareInsertValues(ctx context.Context, b *baseBuilder, op, table string, src InsertSource,
	params *Params) (*InsertValues, error) {
	if params == nil {
		return nil, invalidArg(op, table, errNilParams)
	}
	bd := b.binder(params)
	iv := &InsertValues{}

	switch s := src.(type) {
	case *Query:
		if s == nil {
			return nil, invalidArg(op, table, errEmptySelect)
		}
		names, err := s.selectNames()
		if err != nil {
			return nil, invalidArg(op, table, err)
		}
		sql, err := s.build(bd, b.quoter)
		if err != nil {
			return nil, bindErr(op, table, err)
		}
		for _, name := range names {
			iv.Names = append(iv.Names, b.quoter.QuoteColumnName(name))
		}
		iv.Values = " " + sql
		return iv, nil
	case *Columns, nil:
	default:
		return nil, invalidArg(op, table, fmt.Errorf("unsupported insert source %T", src))
	}

	cols, _ := src.(*Columns)
	iv.Values = " DEFAULT VALUES"
	if cols.Len() == 0 {
		return iv, nil
	}
	ts, err := b.tableSchema(ctx, op, table)
	if err != nil {
		return nil, err
	}

	cols.Range(func(name string, v any) bool {
		col := normalizeColumnName(name)
		if err = globalVerifyObj.VerifyFieldName(col); err != nil {
			err = invalidArg(op, table, err)
			return false
		}
		if ts != nil {
			if v, err = castValue(op, table, ts.Column(col), v); err != nil {
				return false
			}
		}
		var ph string
		if ph, err = bd.bind(v); err != nil {
			err = bindErr(op, table, err)
			return false
		}
		iv.Names = append(iv.Names, b.quoter.QuoteColumnName(name))
		iv.Placeholders = append(iv.Placeholders, ph)
		return true
	})
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// defaultValuesFallback fills an empty column source with the primary key
// columns, or the first column, set to DEFAULT.
func defaultValuesFallback(ctx context.Context, b *baseBuilder, op, table string, src InsertSource,
	iv *InsertValues) (*InsertValues, error) {
	if _, ok := src.(*Query); ok || len(iv.Names) > 0 {
		return iv, nil
	}
	ts, err := b.tableSchema(ctx, op, table)
	if err != nil {
		return nil, err
	}
	if ts == nil || len(ts.Columns) == 0 {
		return nil, invalidArg(op, table, ErrTableNotFound)
	}

	cols := ts.PrimaryKey
	if len(cols) == 0 {
		cols = []string{ts.Columns[0].Name}
	}
	for _, name := range cols {
		iv.Names = append(iv.Names, b.quoter.QuoteColumnName(name))
		iv.Placeholders = append(iv.Placeholders, "DEFAULT")
	}
	return iv, nil
}

func insertSQL(q Quoter, table string, iv *InsertValues) string {
	var s strings.Builder
	s.WriteString("INSERT INTO ")
	s.WriteString(q.QuoteTableName(table))
	if len(iv.Names) > 0 {
		s.WriteString(" (")
		s.WriteString(util.JoinArr(iv.Names, ", "))
		s.WriteString(")")
	}
	if len(iv.Placeholders) > 0 {
		s.WriteString(" VALUES (")
		s.WriteString(util.JoinArr(iv.Placeholders, ", "))
		s.WriteString(")")
	} else {
		s.WriteString(iv.Values)
	}
	return s.String()
}

// tableUniqueConstraints returns the primary key and unique constraints of a
// table, de-duplicated by column set.
func tableUniqueConstraints(ctx context.Context, b *baseBuilder, op, table string) ([]Constraint, error) {
	ts, err := b.tableSchema(ctx, op, table)
	if err != nil || ts == nil {
		return nil, err
	}

	var all []Constraint
	if len(ts.PrimaryKey) > 0 {
		all = append(all, Constraint{Name: "PRIMARY", Columns: ts.PrimaryKey})
	}
	all = append(all, ts.Uniques...)

	seen := set.New[string]()
	out := make([]Constraint, 0, len(all))
	for _, c := range all {
		if len(c.Columns) == 0 {
			continue
		}
		cols := make([]string, len(c.Columns))
		copy(cols, c.Columns)
		sort.Strings(cols)
		key := util.JoinArr(cols, "\x00")
		if seen.Has(key) {
			continue
		}
		seen.Add(key)
		out = append(out, c)
	}
	return out, nil
}

type upsertColumns struct {
	// quoted unique key columns covered by the insert
	unique []string
	// quoted insert names, in source order
	insert []string
	// quoted insert names outside every unique key; nil unless UpdateAll
	update      []string
	constraints []Constraint
}

// prepareUpsertColumns resolves which constraints an upsert can match on: the
// ones whose columns are all inserted.
func prepareUpsertColumns(ctx context.Context, b *baseBuilder, op, table string, src InsertSource,
	update UpdateSpec) (*upsertColumns, error) {
	var raw []string
	switch s := src.(type) {
	case *Query:
		if s == nil {
			return nil, invalidArg(op, table, errEmptySelect)
		}
		names, err := s.selectNames()
		if err != nil {
			return nil, invalidArg(op, table, err)
		}
		raw = names
	case *Columns:
		raw = s.Names()
	}

	uc := &upsertColumns{}
	inserted := set.New[string]()
	for _, name := range raw {
		uc.insert = append(uc.insert, b.quoter.QuoteColumnName(name))
		inserted.Add(normalizeColumnName(name))
	}

	constraints, err := tableUniqueConstraints(ctx, b, op, table)
	if err != nil {
		return nil, err
	}
	unique := set.New[string]()
	for _, c := range constraints {
		covered := true
		for _, col := range c.Columns {
			if !inserted.Has(col) {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}
		uc.constraints = append(uc.constraints, c)
		for _, col := range c.Columns {
			if !unique.Has(col) {
				unique.Add(col)
				uc.unique = append(uc.unique, b.quoter.QuoteColumnName(col))
			}
		}
	}

	if update.mode == updateAll {
		uc.update = []string{}
		for i, name := range raw {
			if !unique.Has(normalizeColumnName(name)) {
				uc.update = append(uc.update, uc.insert[i])
			}
		}
	}
	return uc, nil
}

// prepareUpdateSets renders "col"=value pairs, casting by the table schema.
func prepareUpdateSets(ctx context.Context, b *baseBuilder, op, table string, cols *Columns,
	bd *binder) ([]string, error) {
	ts, err := b.tableSchema(ctx, op, table)
	if err != nil {
		return nil, err
	}
	sets := make([]string, 0, cols.Len())
	cols.Range(func(name string, v any) bool {
		col := normalizeColumnName(name)
		if err = globalVerifyObj.VerifyFieldName(col); err != nil {
			err = invalidArg(op, table, err)
			return false
		}
		if ts != nil {
			if v, err = castValue(op, table, ts.Column(col), v); err != nil {
				return false
			}
		}
		var ph string
		if ph, err = bd.bind(v); err != nil {
			err = bindErr(op, table, err)
			return false
		}
		sets = append(sets, b.quoter.QuoteColumnName(name)+"="+ph)
		return true
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}

type batchRows struct {
	// quoted column names
	columns []string
	// one "(ph, ph)" per row
	tuples []string
}

// prepareBatch binds every row. It returns nil for an empty sequence without
// touching the schema.
func prepareBatch(ctx context.Context, b *baseBuilder, op, table string, columns []string,
	rows iter.Seq[[]any], params *Params) (*batchRows, error) {
	if rows == nil {
		return nil, nil
	}
	next, stop := iter.Pull(rows)
	defer stop()

	row, ok := next()
	if !ok {
		return nil, nil
	}
	if params == nil {
		return nil, invalidArg(op, table, errNilParams)
	}

	ts, err := b.tableSchema(ctx, op, table)
	if err != nil {
		return nil, err
	}
	schemas := make([]*ColumnSchema, len(columns))
	seen := set.New[string]()
	for i, name := range columns {
		col := normalizeColumnName(name)
		if err = globalVerifyObj.VerifyFieldName(col); err != nil {
			return nil, invalidArg(op, table, err)
		}
		if seen.Has(col) {
			return nil, invalidArg(op, table, fmt.Errorf("column [%s] is repeated", col))
		}
		seen.Add(col)
		if ts != nil {
			schemas[i] = ts.Column(col)
		}
	}

	bd := b.binder(params)
	br := &batchRows{}
	for ; ok; row, ok = next() {
		if len(row) == 0 {
			return nil, invalidArg(op, table, ErrEmptyRow)
		}
		phs := make([]string, 0, len(row))
		for i, v := range row {
			// 超出列表的下标不做类型转换
			if i < len(schemas) {
				if v, err = castValue(op, table, schemas[i], v); err != nil {
					return nil, err
				}
			}
			ph, err := bd.bind(v)
			if err != nil {
				return nil, bindErr(op, table, err)
			}
			phs = append(phs, ph)
		}
		br.tuples = append(br.tuples, "("+util.JoinArr(phs, ", ")+")")
	}
	if len(br.tuples) == 0 {
		return nil, nil
	}

	for _, name := range columns {
		br.columns = append(br.columns, b.quoter.QuoteColumnName(name))
	}
	return br, nil
}

// multiRowInsert renders the native INSERT INTO t (cols) VALUES (..), (..).
func multiRowInsert(q Quoter, table string, br *batchRows) string {
	var s strings.Builder
	s.WriteString("INSERT INTO ")
	s.WriteString(q.QuoteTableName(table))
	s.WriteString(" (")
	s.WriteString(util.JoinArr(br.columns, ", "))
	s.WriteString(") VALUES ")
	s.WriteString(util.JoinArr(br.tuples, ", "))
	return s.String()
}

// sequenceTarget checks the reset preconditions in order: the table resolves,
// it has a sequence, and without a value its primary key is a single column.
// autoIncrement lets an AUTO_INCREMENT/IDENTITY column stand in for a named
// sequence.
func sequenceTarget(ctx context.Context, b *baseBuilder, op, table string, explicit,
	autoIncrement bool) (*TableSchema, string, error) {
	if err := b.checkTable(op, table); err != nil {
		return nil, "", err
	}
	ts, err := b.tableSchema(ctx, op, table)
	if err != nil {
		return nil, "", err
	}
	if ts == nil {
		return nil, "", invalidArg(op, table, ErrTableNotFound)
	}

	seq := ts.SequenceName
	if seq == "" && autoIncrement {
		for _, col := range ts.Columns {
			if col.AutoIncrement {
				seq = ts.Name
				break
			}
		}
	}
	if seq == "" {
		return nil, "", invalidArg(op, table, ErrNoSequence)
	}

	if !explicit {
		switch {
		case len(ts.PrimaryKey) > 1:
			return nil, "", invalidArg(op, table, ErrCompositeKey)
		case len(ts.PrimaryKey) == 0:
			return nil, "", invalidArg(op, table, ErrNoPrimaryKey)
		}
	}
	return ts, seq, nil
}

// returningColumns returns the quoted primary key of a known table.
func returningColumns(ctx context.Context, b *baseBuilder, op, table string) ([]string, error) {
	ts, err := b.tableSchema(ctx, op, table)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, invalidArg(op, table, ErrTableNotFound)
	}
	if len(ts.PrimaryKey) == 0 {
		return nil, invalidArg(op, table, ErrNoPrimaryKey)
	}
	cols := make([]string, 0, len(ts.PrimaryKey))
	for _, pk := range ts.PrimaryKey {
		cols = append(cols, b.quoter.QuoteColumnName(pk))
	}
	return cols, nil
}
