package dml

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Queryer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const (
	oracleColumnsSQL = `SELECT A.COLUMN_NAME, A.DATA_TYPE, A.DATA_PRECISION, A.DATA_SCALE, A.CHAR_LENGTH, ` +
		`A.NULLABLE, A.IDENTITY_COLUMN FROM ALL_TAB_COLUMNS A ` +
		`WHERE A.OWNER = :1 AND A.TABLE_NAME = :2 ORDER BY A.COLUMN_ID`
	oracleConstraintsSQL = `SELECT C.CONSTRAINT_NAME, C.CONSTRAINT_TYPE, CC.COLUMN_NAME ` +
		`FROM ALL_CONSTRAINTS C JOIN ALL_CONS_COLUMNS CC ` +
		`ON CC.OWNER = C.OWNER AND CC.CONSTRAINT_NAME = C.CONSTRAINT_NAME AND CC.TABLE_NAME = C.TABLE_NAME ` +
		`WHERE C.OWNER = :1 AND C.TABLE_NAME = :2 AND C.CONSTRAINT_TYPE IN ('P', 'U') ` +
		`ORDER BY C.CONSTRAINT_NAME, CC.POSITION`
	// 触发器引用的序列
	oracleTriggerSequenceSQL = `SELECT D.REFERENCED_NAME FROM ALL_DEPENDENCIES D ` +
		`JOIN ALL_TRIGGERS T ON T.OWNER = D.OWNER AND T.TRIGGER_NAME = D.NAME ` +
		`WHERE T.TABLE_OWNER = :1 AND T.TABLE_NAME = :2 AND D.TYPE = 'TRIGGER' AND D.REFERENCED_TYPE = 'SEQUENCE'`
	oracleIdentitySequenceSQL = `SELECT SEQUENCE_NAME FROM ALL_TAB_IDENTITY_COLS WHERE OWNER = :1 AND TABLE_NAME = :2`
	oracleCurrentSchemaSQL    = `SELECT SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA') FROM DUAL`
)

// OracleSchema reads table metadata from the Oracle data dictionary. Loaded
// tables are cached until Refresh; concurrent loads of one table share a
// single round trip.
type OracleSchema struct {
	db    Queryer
	owner string
	log   zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*TableSchema
	group singleflight.Group
}

// NewOracleSchema reads tables of owner, or of the session's current schema
// when owner is empty. "OWNER.TABLE" names override owner.
func NewOracleSchema(db Queryer, owner string, log zerolog.Logger) *OracleSchema {
	return &OracleSchema{
		db:    db,
		owner: owner,
		log:   log,
		cache: map[string]*TableSchema{},
	}
}

// TableSchema implements SchemaProvider.
func (s *OracleSchema) TableSchema(ctx context.Context, table string) (*TableSchema, error) {
	key := s.cacheKey(table)
	s.mu.RLock()
	ts, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return ts, nil
	}

	// 共享的加载不随首个调用者取消
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		ts, err := s.load(loadCtx, table)
		if err != nil || ts == nil {
			return ts, err
		}
		s.mu.Lock()
		s.cache[key] = ts
		s.mu.Unlock()
		return ts, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	s.log.Debug().Str("table", table).Bool("shared", res.Shared).Msg("table schema loaded")
	ts, _ = res.Val.(*TableSchema)
	return ts, nil
}

// Refresh drops the cached metadata of table, or of every table when table
// is empty.
func (s *OracleSchema) Refresh(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if table == "" {
		s.cache = map[string]*TableSchema{}
		return
	}
	delete(s.cache, s.cacheKey(table))
}

func (s *OracleSchema) cacheKey(table string) string {
	owner, name := s.split(table)
	return owner + "." + name
}

func (s *OracleSchema) split(table string) (owner, name string) {
	owner = s.owner
	name = table
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		owner, name = table[:i], table[i+1:]
	}
	return unquoteIdent(owner), unquoteIdent(name)
}

func (s *OracleSchema) load(ctx context.Context, table string) (*TableSchema, error) {
	owner, name := s.split(table)
	if owner == "" {
		var err error
		if owner, err = s.currentSchema(ctx); err != nil {
			return nil, err
		}
	}

	ts := &TableSchema{Name: table}
	identity, err := s.loadColumns(ctx, ts, owner, name)
	if err != nil || len(ts.Columns) == 0 {
		// 表不存在
		return nil, err
	}
	if err = s.loadConstraints(ctx, ts, owner, name); err != nil {
		return nil, err
	}
	if ts.SequenceName, err = s.querySequence(ctx, oracleTriggerSequenceSQL, owner, name); err != nil {
		return nil, err
	}
	if ts.SequenceName == "" && identity {
		if ts.SequenceName, err = s.querySequence(ctx, oracleIdentitySequenceSQL, owner, name); err != nil {
			return nil, err
		}
	}
	s.log.Debug().Str("owner", owner).Str("table", name).Int("columns", len(ts.Columns)).
		Str("sequence", ts.SequenceName).Msg("read oracle catalog")
	return ts, nil
}

func (s *OracleSchema) currentSchema(ctx context.Context) (string, error) {
	var owner string
	rows, err := s.db.QueryContext(ctx, oracleCurrentSchemaSQL)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	if rows.Next() {
		if err = rows.Scan(&owner); err != nil {
			return "", err
		}
	}
	return owner, rows.Err()
}

func (s *OracleSchema) loadColumns(ctx context.Context, ts *TableSchema, owner, name string) (identity bool,
	err error) {
	rows, err := s.db.QueryContext(ctx, oracleColumnsSQL, owner, name)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			colName, dataType, nullable string
			precision, scale, length    sql.NullInt64
			identityCol                 sql.NullString
		)
		if err = rows.Scan(&colName, &dataType, &precision, &scale, &length, &nullable, &identityCol); err != nil {
			return false, err
		}
		col := NewColumn(colName, oracleDeclaredType(dataType, precision, scale, length))
		col.AllowNull = nullable == "Y"
		col.AutoIncrement = identityCol.String == "YES"
		identity = identity || col.AutoIncrement
		ts.Columns = append(ts.Columns, col)
	}
	return identity, rows.Err()
}

// oracleDeclaredType rebuilds NUMBER(p,s) / VARCHAR2(n) from catalog columns.
func oracleDeclaredType(dataType string, precision, scale, length sql.NullInt64) string {
	if strings.Contains(dataType, "(") {
		return dataType
	}
	switch dataType {
	case "NUMBER", "FLOAT":
		if !precision.Valid {
			return dataType
		}
		if scale.Valid {
			return dataType + "(" + strconv.FormatInt(precision.Int64, 10) + "," +
				strconv.FormatInt(scale.Int64, 10) + ")"
		}
		return dataType + "(" + strconv.FormatInt(precision.Int64, 10) + ")"
	case "VARCHAR2", "NVARCHAR2", "CHAR", "NCHAR", "RAW":
		if length.Valid && length.Int64 > 0 {
			return dataType + "(" + strconv.FormatInt(length.Int64, 10) + ")"
		}
	}
	return dataType
}

func (s *OracleSchema) loadConstraints(ctx context.Context, ts *TableSchema, owner, name string) error {
	rows, err := s.db.QueryContext(ctx, oracleConstraintsSQL, owner, name)
	if err != nil {
		return err
	}
	defer rows.Close()

	uniques := map[string]int{}
	for rows.Next() {
		var consName, consType, colName string
		if err = rows.Scan(&consName, &consType, &colName); err != nil {
			return err
		}
		if consType == "P" {
			ts.PrimaryKey = append(ts.PrimaryKey, colName)
			if col := ts.Column(colName); col != nil {
				col.IsPrimaryKey = true
			}
			continue
		}
		idx, ok := uniques[consName]
		if !ok {
			idx = len(ts.Uniques)
			uniques[consName] = idx
			ts.Uniques = append(ts.Uniques, Constraint{Name: consName})
		}
		ts.Uniques[idx].Columns = append(ts.Uniques[idx].Columns, colName)
	}
	return rows.Err()
}

func (s *OracleSchema) querySequence(ctx context.Context, query, owner, name string) (string, error) {
	rows, err := s.db.QueryContext(ctx, query, owner, name)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var seq string
	if rows.Next() {
		if err = rows.Scan(&seq); err != nil {
			return "", err
		}
	}
	return seq, rows.Err()
}
