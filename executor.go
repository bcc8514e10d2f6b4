package dml

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

const defaultBatchSize = 500

// Statement is generated SQL with the parameters it was built with.
type Statement struct {
	SQL    string
	Params *Params
}

// Executor runs statements produced by a QueryBuilder, passing parameters the
// way the dialect's driver expects them.
type Executor struct {
	db      *sql.DB
	tx      *sql.Tx
	builder QueryBuilder
	conf    *dbCoreData
	log     zerolog.Logger
}

func NewExecutor(db *sql.DB, builder QueryBuilder, log zerolog.Logger) *Executor {
	return &Executor{db: db, builder: builder, conf: dbConfMap[builder.DBType()], log: log}
}

// NewExecutorWithTx runs every statement inside a caller-owned transaction.
func NewExecutorWithTx(tx *sql.Tx, builder QueryBuilder, log zerolog.Logger) *Executor {
	return &Executor{tx: tx, builder: builder, conf: dbConfMap[builder.DBType()], log: log}
}

func (e *Executor) Builder() QueryBuilder {
	return e.builder
}

// Args returns params as positional or sql.Named arguments.
func (e *Executor) Args(p *Params) []any {
	if p == nil {
		return nil
	}
	if e.conf.NamedArgs {
		return p.NamedArgs()
	}
	return p.Args()
}

func (e *Executor) Exec(ctx context.Context, st Statement) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if e.tx != nil {
		res, err = e.tx.ExecContext(ctx, st.SQL, e.Args(st.Params)...)
	} else if e.db != nil {
		res, err = e.db.ExecContext(ctx, st.SQL, e.Args(st.Params)...)
	} else {
		return 0, ErrClient
	}
	if err != nil {
		e.log.Error().Err(err).Str("sql", st.SQL).Msg("exec failed")
		return 0, err
	}
	e.log.Debug().Str("sql", st.SQL).Int("params", st.Params.Len()).Msg("exec")
	return res.RowsAffected()
}

// ExecBatch runs statements in order. With trans it opens a transaction on
// the pool and rolls back when any statement fails.
func (e *Executor) ExecBatch(ctx context.Context, stmts []Statement, trans bool) (affected int64, err error) {
	if len(stmts) <= 0 {
		return 0, nil
	}

	if trans && e.tx == nil && e.db != nil {
		err = TransSession(ctx, e.db, func(ctx context.Context, tx *sql.Tx) error {
			inner := &Executor{tx: tx, builder: e.builder, conf: e.conf, log: e.log}
			for _, st := range stmts {
				n, err := inner.Exec(ctx, st)
				if err != nil {
					return err
				}
				affected += n
			}
			return nil
		})
		if err != nil {
			e.log.Warn().Err(err).Int("statements", len(stmts)).Msg("batch rolled back")
			return 0, err
		}
		return affected, nil
	}

	for _, st := range stmts {
		n, err := e.Exec(ctx, st)
		if err != nil {
			return affected, err
		}
		affected += n
	}
	return affected, nil
}

// BatchInsert splits rows into batchSize chunks and runs one BatchInsert
// statement per chunk.
func (e *Executor) BatchInsert(ctx context.Context, table string, columns []string, rows [][]any,
	batchSize int, trans bool) (int64, error) {
	if len(rows) <= 0 {
		return 0, fmt.Errorf("no data")
	}
	if len(columns) <= 0 {
		return 0, fmt.Errorf("no cols")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var stmts []Statement
	for chunk := range slices.Chunk(rows, batchSize) {
		params := NewParams()
		sqlStr, err := e.builder.BatchInsert(ctx, table, columns, slices.Values(chunk), params)
		if err != nil {
			return 0, err
		}
		stmts = append(stmts, Statement{SQL: sqlStr, Params: params})
	}
	return e.ExecBatch(ctx, stmts, trans)
}
