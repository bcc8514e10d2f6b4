package dml

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/assembly-hub/dml/dbtype"
)

func TestQuoter(t *testing.T) {
	tests := []struct {
		dbType int
		in     string
		want   string
	}{
		{dbType: dbtype.Oracle, in: "app.users", want: `"app"."users"`},
		{dbType: dbtype.Oracle, in: `"users"`, want: `"users"`},
		{dbType: dbtype.Oracle, in: `a"b`, want: `"a""b"`},
		{dbType: dbtype.Oracle, in: "*", want: "*"},
		{dbType: dbtype.Oracle, in: "COUNT(1)", want: "COUNT(1)"},
		{dbType: dbtype.MySQL, in: "db.users", want: "`db`.`users`"},
		{dbType: dbtype.SQLServer, in: "dbo.users", want: "[dbo].[users]"},
		{dbType: dbtype.Postgres, in: "public.users", want: `"public"."users"`},
	}
	for _, tt := range tests {
		t.Run(dbtype.Name(tt.dbType)+" "+tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NewQuoter(tt.dbType).QuoteTableName(tt.in))
		})
	}
	assert.Nil(t, NewQuoter(dbtype.ClickHouse))
}

func TestDefaultVerify(t *testing.T) {
	v := newDefaultVerify()
	assert.NoError(t, v.VerifyTableName("APP.USER$DATA#1"))
	assert.NoError(t, v.VerifyFieldName(`"name"`))
	assert.Error(t, v.VerifyFieldName(""))
	assert.Error(t, v.VerifyFieldName("a b"))
	assert.Error(t, v.VerifyTableName("users;drop"))
	assert.Error(t, v.VerifyFieldName(strings.Repeat("a", maxIdentLen+1)))
}

type denyVerify struct{}

func (denyVerify) VerifyTableName(string) error { return errors.New("denied") }
func (denyVerify) VerifyFieldName(string) error { return nil }

func TestSetGlobalVerify(t *testing.T) {
	assert.Panics(t, func() { SetGlobalVerify(nil) })

	b := newTestBuilder(t, dbtype.Oracle)
	old := globalVerifyObj
	defer SetGlobalVerify(old)
	SetGlobalVerify(denyVerify{})

	_, err := b.ResetSequenceTo(context.Background(), "users", 1)
	assert.True(t, IsInvalidArgument(err))
}
