package dml

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assembly-hub/dml/dbtype"
)

type Account struct {
	ID      int64           `json:"id" key:"pk,seq=ACCOUNT_SEQ"`
	Code    string          `json:"code" dbtype:"VARCHAR2(32)" key:"unique"`
	Region  string          `json:"region" key:"unique=account_region_uk"`
	Branch  int             `json:"branch" key:"unique=account_region_uk"`
	Active  bool            `json:"active"`
	Balance decimal.Decimal `json:"balance"`
	Opened  *time.Time      `json:"opened,omitempty"`
	Photo   []byte          `json:"photo"`
	Note    string          `json:"-"`
}

func TestReference_AddTableDef(t *testing.T) {
	ref := NewReference(dbtype.Oracle)
	ref.AddTableDef("account", &Account{})
	assert.Equal(t, "account", ref.TableOf(Account{}))
	assert.Equal(t, []string{"account"}, ref.Tables())

	ts, err := ref.TableSchema(context.Background(), `"account"`)
	require.NoError(t, err)
	require.NotNil(t, ts)

	assert.Equal(t, []string{"id", "code", "region", "branch", "active", "balance", "opened", "photo"}, ts.ColumnNames())
	assert.Equal(t, []string{"id"}, ts.PrimaryKey)
	assert.Equal(t, "ACCOUNT_SEQ", ts.SequenceName)
	assert.Equal(t, []Constraint{
		{Name: "account_code_uk", Columns: []string{"code"}},
		{Name: "account_region_uk", Columns: []string{"region", "branch"}},
	}, ts.Uniques)

	types := map[string]ColumnType{}
	for _, c := range ts.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, map[string]ColumnType{
		"id": TypeBigInt, "code": TypeString, "region": TypeString, "branch": TypeBigInt,
		"active": TypeBoolean, "balance": TypeDecimal, "opened": TypeTimestamp, "photo": TypeBinary,
	}, types)

	assert.Panics(t, func() { ref.AddTableDef("account2", Account{}) })
}

func TestReference_AddTable(t *testing.T) {
	ref := newTestReference(t, dbtype.Oracle)
	assert.Equal(t, []string{"logs", "orders", "tags", "users"}, ref.Tables())

	ts, err := ref.TableSchema(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, ts)

	assert.Panics(t, func() { ref.AddTable(&TableSchema{Name: "users", Columns: []*ColumnSchema{NewColumn("a", "")}}) })
	assert.Panics(t, func() { ref.AddTable(&TableSchema{Name: "empty"}) })
	assert.Panics(t, func() {
		ref.AddTable(&TableSchema{Name: "badpk", Columns: []*ColumnSchema{NewColumn("a", "")}, PrimaryKey: []string{"b"}})
	})
	assert.Panics(t, func() {
		ref.AddTable(&TableSchema{Name: "dup", Columns: []*ColumnSchema{NewColumn("a", ""), NewColumn("a", "")}})
	})
	assert.Panics(t, func() { NewReference(dbtype.ClickHouse) })
}
