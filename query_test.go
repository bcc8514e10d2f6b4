package dml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assembly-hub/dml/dbtype"
)

func buildCondition(t *testing.T, dbType int, c Condition) (string, *Params) {
	t.Helper()
	b := &binder{conf: dbConfMap[dbType], params: NewParams()}
	s, err := c.build(b, NewQuoter(dbType))
	require.NoError(t, err)
	return s, b.params
}

func TestConditions(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want string
	}{
		{name: "eq", cond: Eq("a", 1), want: `"a"=:qp0`},
		{name: "eq nil", cond: Eq("a", nil), want: `"a" IS NULL`},
		{name: "ne nil", cond: Ne("a", nil), want: `"a" IS NOT NULL`},
		{name: "ne", cond: Ne("a", 1), want: `"a"<>:qp0`},
		{name: "range", cond: And(Gt("a", 1), Lte("a", 5)), want: `("a">:qp0) AND ("a"<=:qp1)`},
		{name: "in", cond: In("t.a", 1, 2), want: `"t"."a" IN (:qp0, :qp1)`},
		{name: "empty in", cond: In("a"), want: "0=1"},
		{name: "empty not in", cond: And(NotIn("a"), Lt("b", 2)), want: `"b"<:qp0`},
		{name: "null", cond: IsNull("a", false), want: `"a" IS NOT NULL`},
		{name: "or", cond: Or(Eq("a", 1), nil, Gte("b", 2)), want: `("a"=:qp0) OR ("b">=:qp1)`},
		{name: "raw", cond: Raw("a = :x", map[string]any{"x": 1}), want: "a = :qp0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := buildCondition(t, dbtype.Oracle, tt.cond)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter(t *testing.T) {
	c, err := Filter(map[string]any{
		"name":          "x",
		"age__gt":       3,
		"deleted__null": true,
		"id__in":        []any{1, 2},
	})
	require.NoError(t, err)
	got, params := buildCondition(t, dbtype.MySQL, c)
	assert.Equal(t, "(`age`>?) AND (`deleted` IS NULL) AND (`id` IN (?, ?)) AND (`name`=?)", got)
	assert.Equal(t, []any{3, 1, 2, "x"}, params.Args())

	_, err = Filter(map[string]any{"a__like": 1})
	assert.Error(t, err)
	_, err = Filter(map[string]any{"a__in": 1})
	assert.Error(t, err)
	_, err = Filter(map[string]any{"a b": 1})
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	q := Select("t.id", "UPPER(name) AS nm", "price p").From("app.t").Where(Eq("t.id", 1))
	names, err := q.selectNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "nm", "p"}, names)

	b := &binder{conf: dbConfMap[dbtype.Oracle], params: NewParams()}
	s, err := q.build(b, NewQuoter(dbtype.Oracle))
	require.NoError(t, err)
	assert.Equal(t, `SELECT "t"."id", UPPER(name) AS nm, price p FROM "app"."t" WHERE "t"."id"=:qp0`, s)

	_, err = Select().selectNames()
	assert.ErrorIs(t, err, errEmptySelect)
	_, err = Select("t.*").selectNames()
	assert.ErrorIs(t, err, errEmptySelect)
}
