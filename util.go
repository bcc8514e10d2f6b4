// Package dml
package dml

import (
	"strings"
)

func connectStrArr(arr []string, linkStr string, start, end string) string {
	var s strings.Builder
	s.Grow(len(arr) * (len(linkStr) + len(start) + len(end) + 10))
	for i, v := range arr {
		if i > 0 {
			s.WriteString(linkStr)
		}

		s.WriteString(start)
		s.WriteString(v)
		s.WriteString(end)
	}

	return s.String()
}

// unquoteIdent 去掉 "x" `x` [x] 形式的引用符
func unquoteIdent(name string) string {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return name
	}
	switch {
	case name[0] == '"' && name[len(name)-1] == '"',
		name[0] == '`' && name[len(name)-1] == '`',
		name[0] == '[' && name[len(name)-1] == ']':
		return name[1 : len(name)-1]
	}
	return name
}

// normalizeColumnName strips quoting and any table prefix: "t"."a" -> a.
func normalizeColumnName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return unquoteIdent(name)
}

// quoteValue 用字符串转义符包裹 s
func quoteValue(s, esc string) string {
	return esc + strings.ReplaceAll(s, esc, esc+esc) + esc
}

