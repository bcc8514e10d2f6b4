// Package dml
package dml

import (
	"strconv"

	"github.com/assembly-hub/dml/dbtype"
)

type paramStyle int

const (
	// :qp0
	paramNamed paramStyle = iota
	// ?
	paramQuestion
	// $1
	paramDollar
	// @p1
	paramAtP
)

type dbCoreData struct {
	DBType   int
	StrEsc   string
	EscStart string
	EscEnd   string
	// 参数占位符风格
	Param paramStyle
	// 执行时是否使用 sql.Named 传参
	NamedArgs bool
	// 单行伪表，Oracle 的 INSERT ALL / MERGE 需要
	Dual string
}

// placeholder 根据参数在 Params 中的序号与名称生成占位符
func (d *dbCoreData) placeholder(name string, index int) string {
	switch d.Param {
	case paramQuestion:
		return "?"
	case paramDollar:
		return "$" + strconv.Itoa(index+1)
	case paramAtP:
		return "@p" + strconv.Itoa(index+1)
	default:
		return ":" + name
	}
}

var dbConfMap map[int]*dbCoreData

func init() {
	dbConfMap = make(map[int]*dbCoreData)
	dbConfMap[dbtype.MySQL] = &dbCoreData{
		DBType:   dbtype.MySQL,
		StrEsc:   "'",
		EscStart: "`",
		EscEnd:   "`",
		Param:    paramQuestion,
	}
	dbConfMap[dbtype.MariaDB] = &dbCoreData{
		DBType:   dbtype.MariaDB,
		StrEsc:   "'",
		EscStart: "`",
		EscEnd:   "`",
		Param:    paramQuestion,
	}
	dbConfMap[dbtype.SQLServer] = &dbCoreData{
		DBType:   dbtype.SQLServer,
		StrEsc:   "'",
		EscStart: "[",
		EscEnd:   "]",
		Param:    paramAtP,
	}
	dbConfMap[dbtype.Postgres] = &dbCoreData{
		DBType:   dbtype.Postgres,
		StrEsc:   "'",
		EscStart: "\"",
		EscEnd:   "\"",
		Param:    paramDollar,
	}
	dbConfMap[dbtype.OpenGauss] = &dbCoreData{
		DBType:   dbtype.OpenGauss,
		StrEsc:   "'",
		EscStart: "\"",
		EscEnd:   "\"",
		Param:    paramDollar,
	}
	dbConfMap[dbtype.SQLite2] = &dbCoreData{
		DBType:    dbtype.SQLite2,
		StrEsc:    "'",
		EscStart:  "\"",
		EscEnd:    "\"",
		Param:     paramNamed,
		NamedArgs: true,
	}
	dbConfMap[dbtype.SQLite3] = &dbCoreData{
		DBType:    dbtype.SQLite3,
		StrEsc:    "'",
		EscStart:  "\"",
		EscEnd:    "\"",
		Param:     paramNamed,
		NamedArgs: true,
	}
	// OCI 按位置绑定 :name 占位符
	dbConfMap[dbtype.Oracle] = &dbCoreData{
		DBType:   dbtype.Oracle,
		StrEsc:   "'",
		EscStart: "\"",
		EscEnd:   "\"",
		Param:    paramNamed,
		Dual:     "SYS.DUAL",
	}
}
