package dml

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBTypecast(t *testing.T) {
	tests := []struct {
		name   string
		dbType string
		in     any
		want   any
	}{
		{name: "string", dbType: "VARCHAR2(10)", in: 12, want: "12"},
		{name: "empty string kept", dbType: "VARCHAR2(10)", in: "", want: ""},
		{name: "integer", dbType: "NUMBER(10)", in: "42", want: int64(42)},
		{name: "empty numeric is null", dbType: "NUMBER(10)", in: "", want: nil},
		{name: "bool into number(1)", dbType: "NUMBER(1)", in: true, want: int64(1)},
		{name: "number(1) keeps value", dbType: "NUMBER(1)", in: 5, want: int64(5)},
		{name: "number(1) from string", dbType: "NUMBER(1)", in: "7", want: int64(7)},
		{name: "leading zero is decimal", dbType: "NUMBER(10)", in: "010", want: int64(10)},
		{name: "leading zero eight", dbType: "NUMBER(19)", in: "08", want: int64(8)},
		{name: "padded integer", dbType: "NUMBER(10)", in: " 12 ", want: int64(12)},
		{name: "boolean column", dbType: "BOOLEAN", in: "false", want: int64(0)},
		{name: "float", dbType: "BINARY_DOUBLE", in: "1.5", want: 1.5},
		{name: "binary", dbType: "BLOB", in: "ab", want: []byte("ab")},
		{name: "nil", dbType: "NUMBER(10)", in: nil, want: nil},
		{name: "expression", dbType: "NUMBER(10)", in: Expr("SEQ.NEXTVAL"), want: Expr("SEQ.NEXTVAL")},
		{name: "valuer", dbType: "NUMBER(10)", in: sql.NullInt64{Int64: 3, Valid: true},
			want: sql.NullInt64{Int64: 3, Valid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewColumn("c", tt.dbType).DBTypecast(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDBTypecast_Decimal(t *testing.T) {
	col := NewColumn("balance", "NUMBER(12,2)")
	for _, in := range []any{"12.50", 12.5, decimal.RequireFromString("12.5")} {
		got, err := col.DBTypecast(in)
		require.NoError(t, err)
		d, ok := got.(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, d.Equal(decimal.RequireFromString("12.5")), "%v", in)
	}
	_, err := col.DBTypecast("twelve")
	assert.Error(t, err)
}

func TestDBTypecast_Time(t *testing.T) {
	got, err := NewColumn("created", "DATE").DBTypecast("2024-01-02")
	require.NoError(t, err)
	tm, ok := got.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, tm.Year())
	assert.Equal(t, time.January, tm.Month())
}

func TestDBTypecast_Error(t *testing.T) {
	_, err := NewColumn("age", "NUMBER(10)").DBTypecast("abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column[age] NUMBER(10)")

	_, err = NewColumn("data", "RAW(16)").DBTypecast(3)
	assert.Error(t, err)
}
