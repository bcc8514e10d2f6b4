package dbtype

import (
	"fmt"
	"strings"
)

// 所有已经实现的数据库的类型
const (
	// MySQL 字符集排序规则，默认采用大小写不区分模式
	MySQL = iota
	// MariaDB 字符集排序规则，默认采用大小写不区分模式
	MariaDB
	// SQLServer 字符集排序规则，默认采用大小写不区分模式
	SQLServer
	// Postgres 字符集排序规则，默认采用大小写区分模式
	Postgres
	// OpenGauss 字符集排序规则，默认采用大小写区分模式
	OpenGauss
	// SQLite2 字符集排序规则，默认采用大小写区分模式
	SQLite2
	// SQLite3 字符集排序规则，默认采用大小写区分模式
	SQLite3
	// Oracle 没有多行 VALUES 和原生 UPSERT
	Oracle
	ClickHouse
)

var names = map[int]string{
	MySQL:      "mysql",
	MariaDB:    "mariadb",
	SQLServer:  "sqlserver",
	Postgres:   "postgres",
	OpenGauss:  "opengauss",
	SQLite2:    "sqlite2",
	SQLite3:    "sqlite3",
	Oracle:     "oracle",
	ClickHouse: "clickhouse",
}

var aliases = map[string]int{
	"mssql":      SQLServer,
	"postgresql": Postgres,
	"pgx":        Postgres,
	"gauss":      OpenGauss,
	"sqlite":     SQLite3,
	"oci8":       Oracle,
	"godror":     Oracle,
}

// Name returns the canonical name of a database type.
func Name(dbType int) string {
	if s, ok := names[dbType]; ok {
		return s
	}
	return fmt.Sprintf("dbtype(%d)", dbType)
}

// Parse maps a dialect or driver name to its database type.
func Parse(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, s := range names {
		if s == name {
			return t, nil
		}
	}
	if t, ok := aliases[name]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("unknown database type %q", name)
}
