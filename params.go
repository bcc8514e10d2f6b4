package dml

import (
	"database/sql"
	"strconv"
	"strings"
)

// ParamPrefix is the prefix of generated parameter names.
const ParamPrefix = "qp"

// Params accumulates bound values in generation order. Builders only append to
// it, so one Params can be shared by several builder calls. It is not safe for
// concurrent use.
type Params struct {
	names  []string
	values map[string]any
}

func NewParams() *Params {
	return &Params{values: map[string]any{}}
}

func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Names returns the parameter names in generation order.
func (p *Params) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

func (p *Params) Value(name string) (any, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Add binds v under the next free qpN name and returns that name.
func (p *Params) Add(v any) string {
	if p.values == nil {
		p.values = map[string]any{}
	}
	n := len(p.names)
	name := ParamPrefix + strconv.Itoa(n)
	for {
		if _, ok := p.values[name]; !ok {
			break
		}
		n++
		name = ParamPrefix + strconv.Itoa(n)
	}
	p.names = append(p.names, name)
	p.values[name] = v
	return name
}

// Set binds v under name. An existing name keeps its position.
func (p *Params) Set(name string, v any) {
	if p.values == nil {
		p.values = map[string]any{}
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = v
}

// truncate drops every name added after the first n.
func (p *Params) truncate(n int) {
	if p == nil || n >= len(p.names) {
		return
	}
	for _, name := range p.names[n:] {
		delete(p.values, name)
	}
	p.names = p.names[:n]
}

// Args returns the values in generation order, for positional drivers.
func (p *Params) Args() []any {
	args := make([]any, 0, len(p.names))
	for _, name := range p.names {
		args = append(args, p.values[name])
	}
	return args
}

// NamedArgs returns sql.Named values in generation order.
func (p *Params) NamedArgs() []any {
	args := make([]any, 0, len(p.names))
	for _, name := range p.names {
		args = append(args, sql.Named(name, p.values[name]))
	}
	return args
}

// Expression is raw SQL emitted verbatim instead of being bound.
type Expression struct {
	SQL    string
	Params map[string]any
}

func Expr(sql string) Expression {
	return Expression{SQL: sql}
}

// ExprWith is an expression that references named parameters, e.g.
// ExprWith("UPPER(:name)", map[string]any{"name": "x"}). Each :name is
// rendered as a generated placeholder when bound.
func ExprWith(sql string, params map[string]any) Expression {
	return Expression{SQL: sql, Params: params}
}

func (e Expression) String() string {
	return e.SQL
}

// binder turns values into placeholders for one dialect.
type binder struct {
	conf   *dbCoreData
	params *Params
}

func asExpression(v any) (Expression, bool) {
	switch e := v.(type) {
	case Expression:
		return e, true
	case *Expression:
		if e != nil {
			return *e, true
		}
	}
	return Expression{}, false
}

// bind renders v: an Expression verbatim with its params merged, anything
// else as a new placeholder.
func (b *binder) bind(v any) (string, error) {
	if e, ok := asExpression(v); ok {
		return b.expr(e)
	}
	name := b.params.Add(v)
	return b.conf.placeholder(name, b.params.Len()-1), nil
}

// expr renders e. Every :name reference to one of its params is bound again
// as a fresh generated placeholder in the order it appears in the text, so
// entries already in Params are never overwritten.
func (b *binder) expr(e Expression) (string, error) {
	if len(e.Params) == 0 {
		return e.SQL, nil
	}
	vals := make(map[string]any, len(e.Params))
	for k, v := range e.Params {
		vals[strings.TrimPrefix(k, ":")] = v
	}
	start := b.params.Len()
	used := make(map[string]bool, len(vals))
	text := e.SQL
	var s strings.Builder
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := strings.IndexByte(text[i+1:], c)
			if j < 0 {
				s.WriteString(text[i:])
				i = len(text)
				continue
			}
			s.WriteString(text[i : i+j+2])
			i += j + 2
		case c == ':' && i+1 < len(text) && text[i+1] == ':':
			// ::type
			s.WriteString("::")
			i += 2
		case c == ':':
			j := i + 1
			for j < len(text) && isParamNameByte(text[j]) {
				j++
			}
			v, ok := vals[text[i+1:j]]
			if j == i+1 || !ok {
				s.WriteByte(c)
				i++
				continue
			}
			used[text[i+1:j]] = true
			name := b.params.Add(v)
			s.WriteString(b.conf.placeholder(name, b.params.Len()-1))
			i = j
		default:
			s.WriteByte(c)
			i++
		}
	}
	if len(used) != len(vals) {
		b.params.truncate(start)
		return "", ErrParams
	}
	return s.String(), nil
}

func isParamNameByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
