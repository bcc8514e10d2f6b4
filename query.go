package dml

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Condition renders a boolean SQL fragment, binding its values.
type Condition interface {
	build(b *binder, q Quoter) (string, error)
}

type opCondition struct {
	column string
	op     string
	value  any
}

// Eq renders column=value, or column IS NULL for a nil value.
func Eq(column string, v any) Condition { return &opCondition{column: column, op: "eq", value: v} }
func Ne(column string, v any) Condition { return &opCondition{column: column, op: "ne", value: v} }
func Lt(column string, v any) Condition { return &opCondition{column: column, op: "lt", value: v} }
func Lte(column string, v any) Condition {
	return &opCondition{column: column, op: "lte", value: v}
}
func Gt(column string, v any) Condition { return &opCondition{column: column, op: "gt", value: v} }
func Gte(column string, v any) Condition {
	return &opCondition{column: column, op: "gte", value: v}
}

// In renders column IN (...); an empty list never matches.
func In(column string, values ...any) Condition {
	return &opCondition{column: column, op: "in", value: values}
}

func NotIn(column string, values ...any) Condition {
	return &opCondition{column: column, op: "nin", value: values}
}

// IsNull renders IS NULL when null is true, IS NOT NULL otherwise.
func IsNull(column string, null bool) Condition {
	return &opCondition{column: column, op: "null", value: null}
}

func (c *opCondition) build(b *binder, q Quoter) (string, error) {
	col := q.QuoteColumnName(c.column)
	switch c.op {
	case "in", "nin":
		values, _ := c.value.([]any)
		if len(values) == 0 {
			if c.op == "in" {
				return "0=1", nil
			}
			return "", nil
		}
		phs := make([]string, 0, len(values))
		for _, v := range values {
			ph, err := b.bind(v)
			if err != nil {
				return "", err
			}
			phs = append(phs, ph)
		}
		if c.op == "in" {
			return col + " IN (" + strings.Join(phs, ", ") + ")", nil
		}
		return col + " NOT IN (" + strings.Join(phs, ", ") + ")", nil
	case "null":
		if c.value.(bool) {
			return col + " IS NULL", nil
		}
		return col + " IS NOT NULL", nil
	}

	if c.value == nil {
		switch c.op {
		case "eq":
			return col + " IS NULL", nil
		case "ne":
			return col + " IS NOT NULL", nil
		}
	}
	ph, err := b.bind(c.value)
	if err != nil {
		return "", err
	}
	switch c.op {
	case "eq":
		return col + "=" + ph, nil
	case "ne":
		return col + "<>" + ph, nil
	case "lt":
		return col + "<" + ph, nil
	case "lte":
		return col + "<=" + ph, nil
	case "gt":
		return col + ">" + ph, nil
	case "gte":
		return col + ">=" + ph, nil
	}
	return "", fmt.Errorf("unknown operator %q", c.op)
}

var filterOps = map[string]bool{
	"eq": true, "ne": true, "lt": true, "lte": true, "gt": true, "gte": true,
	"in": true, "nin": true, "null": true,
}

// Filter builds an AND condition from "column__op" keys, e.g.
// {"id__gt": 3, "name": "x", "deleted__null": true}. Keys are rendered in
// sorted order.
func Filter(where map[string]any) (Condition, error) {
	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		col, op := k, "eq"
		if i := strings.LastIndex(k, "__"); i > 0 {
			col, op = k[:i], k[i+2:]
		}
		if !filterOps[op] {
			return nil, fmt.Errorf("filter key[%s] has unknown operator %q", k, op)
		}
		if err := globalVerifyObj.VerifyFieldName(normalizeColumnName(col)); err != nil {
			return nil, err
		}
		v := where[k]
		switch op {
		case "in", "nin":
			vs, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("filter key[%s] needs []any", k)
			}
			v = vs
		case "null":
			null, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("filter key[%s] needs bool", k)
			}
			v = null
		}
		conds = append(conds, &opCondition{column: col, op: op, value: v})
	}
	return And(conds...), nil
}

type rawCondition struct {
	expr Expression
}

// Raw is a verbatim condition; params follow ExprWith.
func Raw(sql string, params map[string]any) Condition {
	return &rawCondition{expr: ExprWith(sql, params)}
}

func (c *rawCondition) build(b *binder, _ Quoter) (string, error) {
	return b.expr(c.expr)
}

type junction struct {
	op    string
	conds []Condition
}

func And(conds ...Condition) Condition { return &junction{op: "AND", conds: conds} }
func Or(conds ...Condition) Condition  { return &junction{op: "OR", conds: conds} }

func (j *junction) build(b *binder, q Quoter) (string, error) {
	parts := make([]string, 0, len(j.conds))
	for _, c := range j.conds {
		if c == nil {
			continue
		}
		s, err := c.build(b, q)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return joinCondition(j.op, parts), nil
}

// joinCondition skips empty operands; a single operand is returned as is.
func joinCondition(op string, parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	}
	return "(" + strings.Join(kept, ") "+op+" (") + ")"
}

// Query is a sub-select used as an insert source.
type Query struct {
	selects []string
	from    []string
	where   Condition
}

// Select starts a sub-select. Items may be "col", "t.col", "expr AS alias".
func Select(columns ...string) *Query {
	return &Query{selects: columns}
}

func (q *Query) insertSource() {}

func (q *Query) From(tables ...string) *Query {
	q.from = append(q.from, tables...)
	return q
}

func (q *Query) Where(c Condition) *Query {
	q.where = c
	return q
}

var errEmptySelect = errors.New("expected select query object with enumerated (named) parameters")

// selectNames returns the target column of each select item.
func (q *Query) selectNames() ([]string, error) {
	if len(q.selects) == 0 {
		return nil, errEmptySelect
	}
	names := make([]string, 0, len(q.selects))
	for _, item := range q.selects {
		item = strings.TrimSpace(item)
		if item == "*" || strings.HasSuffix(item, ".*") {
			return nil, errEmptySelect
		}
		if i := strings.LastIndex(strings.ToUpper(item), " AS "); i >= 0 {
			item = item[i+4:]
		} else if i := strings.LastIndexByte(item, ' '); i >= 0 {
			item = item[i+1:]
		}
		names = append(names, normalizeColumnName(item))
	}
	return names, nil
}

func (q *Query) build(b *binder, qt Quoter) (string, error) {
	var s strings.Builder
	s.WriteString("SELECT ")
	for i, item := range q.selects {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(qt.QuoteColumnName(item))
	}
	if len(q.from) > 0 {
		s.WriteString(" FROM ")
		for i, t := range q.from {
			if i > 0 {
				s.WriteString(", ")
			}
			s.WriteString(qt.QuoteTableName(t))
		}
	}
	if q.where != nil {
		where, err := q.where.build(b, qt)
		if err != nil {
			return "", err
		}
		if where != "" {
			s.WriteString(" WHERE ")
			s.WriteString(where)
		}
	}
	return s.String(), nil
}
