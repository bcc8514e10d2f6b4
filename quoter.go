package dml

import (
	"strings"
)

// Quoter quotes identifiers for one dialect.
type Quoter interface {
	// QuoteTableName quotes every dotted part: s.t -> "s"."t".
	QuoteTableName(name string) string
	// QuoteColumnName quotes a possibly table-prefixed column: t.c -> "t"."c".
	QuoteColumnName(name string) string
	// QuoteSimpleName quotes a single identifier.
	QuoteSimpleName(name string) string
}

type quoter struct {
	conf *dbCoreData
}

// NewQuoter returns the identifier quoter of a database type, nil when unknown.
func NewQuoter(dbType int) Quoter {
	conf := dbConfMap[dbType]
	if conf == nil {
		return nil
	}
	return &quoter{conf: conf}
}

func (q *quoter) QuoteSimpleName(name string) string {
	if name == "*" || q.isQuoted(name) {
		return name
	}
	return q.conf.EscStart + strings.ReplaceAll(name, q.conf.EscEnd, q.conf.EscEnd+q.conf.EscEnd) + q.conf.EscEnd
}

func (q *quoter) QuoteTableName(name string) string {
	if strings.ContainsAny(name, "( ") {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = q.QuoteSimpleName(p)
	}
	return strings.Join(parts, ".")
}

func (q *quoter) QuoteColumnName(name string) string {
	// 表达式原样输出
	if strings.ContainsAny(name, "( ") {
		return name
	}
	return q.QuoteTableName(name)
}

func (q *quoter) isQuoted(name string) bool {
	return len(name) >= 2 && strings.HasPrefix(name, q.conf.EscStart) && strings.HasSuffix(name, q.conf.EscEnd)
}
