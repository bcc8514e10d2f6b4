package dml

import (
	"context"
	"strconv"
	"strings"
)

// ColumnType is the abstract storage class of a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInteger
	TypeBigInt
	TypeDecimal
	TypeFloat
	TypeBoolean
	TypeDate
	TypeTimestamp
	TypeBinary
)

// ColumnSchema describes one table column.
type ColumnSchema struct {
	Name string
	// DBType is the declared type, e.g. NUMBER(12,2) or VARCHAR2(255).
	DBType        string
	Type          ColumnType
	Size          int
	Precision     int
	Scale         int
	AllowNull     bool
	IsPrimaryKey  bool
	AutoIncrement bool
}

// Constraint is a named unique key.
type Constraint struct {
	Name    string
	Columns []string
}

// TableSchema is the metadata a builder needs about a table.
type TableSchema struct {
	Name         string
	Columns      []*ColumnSchema
	PrimaryKey   []string
	SequenceName string
	Uniques      []Constraint
}

// Column returns the named column or nil.
func (t *TableSchema) Column(name string) *ColumnSchema {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *TableSchema) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// SchemaProvider resolves table metadata. A nil schema with a nil error means
// the table is unknown.
type SchemaProvider interface {
	TableSchema(ctx context.Context, table string) (*TableSchema, error)
}

// NewColumn builds a ColumnSchema from a declared database type.
func NewColumn(name, dbType string) *ColumnSchema {
	c := &ColumnSchema{Name: name, DBType: dbType, AllowNull: true}
	c.Type, c.Size, c.Precision, c.Scale = ParseDBType(dbType)
	return c
}

// ParseDBType maps a declared Oracle or ANSI type to its storage class and
// size/precision/scale.
func ParseDBType(dbType string) (t ColumnType, size, precision, scale int) {
	name := strings.ToUpper(strings.TrimSpace(dbType))
	var args []int
	if i := strings.IndexByte(name, '('); i >= 0 {
		if j := strings.IndexByte(name[i:], ')'); j > 0 {
			for _, s := range strings.Split(name[i+1:i+j], ",") {
				s = strings.TrimSpace(s)
				// VARCHAR2(20 CHAR)
				if k := strings.IndexByte(s, ' '); k > 0 {
					s = s[:k]
				}
				if n, err := strconv.Atoi(s); err == nil {
					args = append(args, n)
				}
			}
		}
		name = strings.TrimSpace(name[:i]) + name[i+strings.IndexByte(name[i:], ')')+1:]
	}
	if len(args) > 0 {
		size, precision = args[0], args[0]
	}
	if len(args) > 1 {
		scale = args[1]
	}

	switch {
	case name == "NUMBER" || name == "NUMERIC" || name == "DECIMAL" || name == "DEC":
		switch {
		case len(args) == 0 || scale > 0:
			return TypeDecimal, size, precision, scale
		case precision > 10:
			return TypeBigInt, size, precision, scale
		default:
			return TypeInteger, size, precision, scale
		}
	case name == "INTEGER" || name == "INT" || name == "SMALLINT" || name == "TINYINT" || name == "MEDIUMINT":
		return TypeInteger, size, precision, scale
	case name == "BIGINT":
		return TypeBigInt, size, precision, scale
	case name == "FLOAT" || name == "REAL" || name == "DOUBLE" || name == "DOUBLE PRECISION" ||
		name == "BINARY_FLOAT" || name == "BINARY_DOUBLE":
		return TypeFloat, size, precision, scale
	case name == "BOOLEAN" || name == "BOOL" || name == "BIT":
		return TypeBoolean, size, precision, scale
	case name == "DATE":
		return TypeDate, size, precision, scale
	case strings.HasPrefix(name, "TIMESTAMP") || name == "DATETIME" || name == "DATETIME2":
		return TypeTimestamp, size, precision, scale
	case name == "BLOB" || name == "RAW" || name == "LONG RAW" || name == "BYTEA" ||
		name == "VARBINARY" || name == "BINARY":
		return TypeBinary, size, precision, scale
	}
	return TypeString, size, precision, scale
}
