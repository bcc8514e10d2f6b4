package main

// database/sql drivers used by --exec
import (
	_ "gitee.com/opengauss/openGauss-connector-go-pq"
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/jackc/pgx/stdlib"
	_ "github.com/mattn/go-sqlite3"
)
