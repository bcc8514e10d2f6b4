package dml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assembly-hub/dml/dbtype"
)

// newTestReference registers the tables shared by the builder tests:
//
//	users   single pk, unique email, sequence USERS_SEQ
//	orders  composite pk, sequence ORDERS_SEQ
//	tags    single pk, no sequence
//	logs    no pk, sequence LOGS_SEQ
func newTestReference(t *testing.T, dbType int) *Reference {
	t.Helper()
	ref := NewReference(dbType)
	ref.AddTable(&TableSchema{
		Name: "users",
		Columns: []*ColumnSchema{
			NewColumn("id", "NUMBER(19)"),
			NewColumn("name", "VARCHAR2(100)"),
			NewColumn("email", "VARCHAR2(200)"),
			NewColumn("age", "NUMBER(10)"),
			NewColumn("active", "NUMBER(1)"),
			NewColumn("balance", "NUMBER(12,2)"),
			NewColumn("created", "TIMESTAMP(6)"),
		},
		PrimaryKey:   []string{"id"},
		SequenceName: "USERS_SEQ",
		Uniques:      []Constraint{{Name: "users_email_uk", Columns: []string{"email"}}},
	})
	ref.AddTable(&TableSchema{
		Name: "orders",
		Columns: []*ColumnSchema{
			NewColumn("order_id", "NUMBER(19)"),
			NewColumn("line_no", "NUMBER(10)"),
			NewColumn("qty", "NUMBER(10)"),
		},
		PrimaryKey:   []string{"order_id", "line_no"},
		SequenceName: "ORDERS_SEQ",
	})
	ref.AddTable(&TableSchema{
		Name: "tags",
		Columns: []*ColumnSchema{
			NewColumn("id", "NUMBER(10)"),
			NewColumn("label", "VARCHAR2(50)"),
		},
		PrimaryKey: []string{"id"},
	})
	ref.AddTable(&TableSchema{
		Name: "logs",
		Columns: []*ColumnSchema{
			NewColumn("id", "NUMBER(19)"),
			NewColumn("msg", "VARCHAR2(400)"),
		},
		SequenceName: "LOGS_SEQ",
	})
	return ref
}

// countingSchema records how often the builder asked for metadata.
type countingSchema struct {
	SchemaProvider
	calls int
}

func (c *countingSchema) TableSchema(ctx context.Context, table string) (*TableSchema, error) {
	c.calls++
	return c.SchemaProvider.TableSchema(ctx, table)
}

func newTestBuilder(t *testing.T, dbType int) QueryBuilder {
	t.Helper()
	b, err := NewBuilder(dbType, newTestReference(t, dbType))
	require.NoError(t, err)
	return b
}

func TestParseDBType(t *testing.T) {
	tests := []struct {
		dbType    string
		want      ColumnType
		precision int
		scale     int
	}{
		{dbType: "NUMBER", want: TypeDecimal},
		{dbType: "NUMBER(12,2)", want: TypeDecimal, precision: 12, scale: 2},
		{dbType: "number(1)", want: TypeInteger, precision: 1},
		{dbType: "NUMBER(10)", want: TypeInteger, precision: 10},
		{dbType: "NUMBER(19,0)", want: TypeBigInt, precision: 19},
		{dbType: "VARCHAR2(20 CHAR)", want: TypeString, precision: 20},
		{dbType: "TIMESTAMP(6) WITH TIME ZONE", want: TypeTimestamp, precision: 6},
		{dbType: "DATE", want: TypeDate},
		{dbType: "BINARY_DOUBLE", want: TypeFloat},
		{dbType: "BLOB", want: TypeBinary},
		{dbType: "CLOB", want: TypeString},
		{dbType: "BIGINT", want: TypeBigInt},
	}
	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			got, _, precision, scale := ParseDBType(tt.dbType)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.precision, precision)
			assert.Equal(t, tt.scale, scale)
		})
	}
}

func TestTableSchema_Column(t *testing.T) {
	ref := newTestReference(t, dbtype.Oracle)
	ts, err := ref.TableSchema(context.Background(), "users")
	require.NoError(t, err)
	require.NotNil(t, ts)

	assert.Equal(t, []string{"id", "name", "email", "age", "active", "balance", "created"}, ts.ColumnNames())
	id := ts.Column("id")
	require.NotNil(t, id)
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.AllowNull)
	assert.Nil(t, ts.Column("missing"))
}
