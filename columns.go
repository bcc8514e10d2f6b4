package dml

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// InsertSource is what an insert takes its values from: *Columns or *Query.
type InsertSource interface {
	insertSource()
}

// Columns is an ordered column -> value map. Values are bound unless they are
// an Expression.
type Columns struct {
	m *orderedmap.OrderedMap[string, any]
}

func NewColumns() *Columns {
	return &Columns{m: orderedmap.New[string, any]()}
}

// ColumnsOf pairs names with values; extra names or values are ignored.
func ColumnsOf(names []string, values []any) *Columns {
	c := NewColumns()
	for i := 0; i < len(names) && i < len(values); i++ {
		c.Set(names[i], values[i])
	}
	return c
}

func (c *Columns) insertSource() {}

// Set adds or replaces a column, keeping its first position.
func (c *Columns) Set(name string, v any) *Columns {
	if c.m == nil {
		c.m = orderedmap.New[string, any]()
	}
	c.m.Set(name, v)
	return c
}

func (c *Columns) Get(name string) (any, bool) {
	if c == nil || c.m == nil {
		return nil, false
	}
	return c.m.Get(name)
}

func (c *Columns) Len() int {
	if c == nil || c.m == nil {
		return 0
	}
	return c.m.Len()
}

func (c *Columns) Names() []string {
	names := make([]string, 0, c.Len())
	c.Range(func(name string, _ any) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Range calls fn in insertion order until it returns false.
func (c *Columns) Range(fn func(name string, v any) bool) {
	if c == nil || c.m == nil {
		return
	}
	for pair := c.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

type updateMode int

const (
	updateNone updateMode = iota
	updateAll
	updateColumns
)

// UpdateSpec selects the update branch of an upsert.
type UpdateSpec struct {
	mode    updateMode
	columns *Columns
}

// NoUpdate only inserts missing rows.
func NoUpdate() UpdateSpec {
	return UpdateSpec{mode: updateNone}
}

// UpdateAll updates every non-key insert column from the incoming row.
func UpdateAll() UpdateSpec {
	return UpdateSpec{mode: updateAll}
}

// UpdateColumns updates with an explicit column -> value/Expression map.
func UpdateColumns(c *Columns) UpdateSpec {
	if c.Len() == 0 {
		return NoUpdate()
	}
	return UpdateSpec{mode: updateColumns, columns: c}
}

func (u UpdateSpec) enabled() bool {
	return u.mode != updateNone
}

// InsertValues is the normalized form of an insert source.
type InsertValues struct {
	// Names are quoted column names.
	Names        []string
	Placeholders []string
	// Values is " DEFAULT VALUES" for column sources, " <select>" for queries.
	Values string
}
