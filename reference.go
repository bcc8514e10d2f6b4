// Package dml
package dml

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/assembly-hub/basics/set"
	"github.com/shopspring/decimal"
)

// Reference is a static schema registry. Register every table before the first
// lookup; registration is not synchronised with TableSchema.
type Reference struct {
	dbType   int
	dbConf   *dbCoreData
	tableDef map[string]*TableSchema
	// 结构体全名 -> 表名
	structToTable map[string]string
}

func NewReference(dbType int) *Reference {
	obj := new(Reference)
	obj.dbType = dbType
	obj.dbConf = dbConfMap[obj.dbType]
	if obj.dbConf == nil {
		panic(fmt.Errorf("database type[%d] not implemented, please confirm", dbType))
	}
	obj.tableDef = map[string]*TableSchema{}
	obj.structToTable = map[string]string{}
	return obj
}

func (c *Reference) GetDBType() int {
	return c.dbType
}

// TableSchema implements SchemaProvider. Quoted names resolve to the same table.
func (c *Reference) TableSchema(_ context.Context, table string) (*TableSchema, error) {
	if ts, ok := c.tableDef[table]; ok {
		return ts, nil
	}
	parts := strings.Split(table, ".")
	for i := range parts {
		parts[i] = unquoteIdent(parts[i])
	}
	return c.tableDef[strings.Join(parts, ".")], nil
}

// Tables returns the registered table names, sorted.
func (c *Reference) Tables() []string {
	names := make([]string, 0, len(c.tableDef))
	for name := range c.tableDef {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddTable 注册表结构
func (c *Reference) AddTable(ts *TableSchema) {
	if ts == nil {
		panic("table schema cannot nil")
	}
	err := globalVerifyObj.VerifyTableName(ts.Name)
	if err != nil {
		panic(err)
	}
	if _, ok := c.tableDef[ts.Name]; ok {
		panic(fmt.Sprintf("table [%s] is already in def", ts.Name))
	}
	if len(ts.Columns) <= 0 {
		panic(fmt.Sprintf("table [%s] have no fields", ts.Name))
	}

	cols := set.New[string]()
	for _, col := range ts.Columns {
		err = globalVerifyObj.VerifyFieldName(col.Name)
		if err != nil {
			panic(err)
		}
		if cols.Has(col.Name) {
			panic(fmt.Sprintf("table [%s] field [%s] is repeated", ts.Name, col.Name))
		}
		cols.Add(col.Name)
	}
	for _, pk := range ts.PrimaryKey {
		col := ts.Column(pk)
		if col == nil {
			panic(fmt.Sprintf("table [%s] primary key [%s] is not a field", ts.Name, pk))
		}
		col.IsPrimaryKey = true
		col.AllowNull = false
	}
	for _, uk := range ts.Uniques {
		for _, name := range uk.Columns {
			if !cols.Has(name) {
				panic(fmt.Sprintf("table [%s] unique [%s] field [%s] is not a field", ts.Name, uk.Name, name))
			}
		}
	}
	c.tableDef[ts.Name] = ts
}

// AddTableDef 添加表定义
// 字段标签: json 为列名, dbtype 为声明类型, key 为 pk / auto / seq=名称 / unique[=约束名]
func (c *Reference) AddTableDef(table string, def any) {
	tp := reflect.TypeOf(def)
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	if tp.Kind() != reflect.Struct {
		panic(fmt.Sprintf("table [%s] type must be struct", table))
	}

	structFullName := fmt.Sprintf("%s.%s", tp.PkgPath(), tp.Name())
	if _, ok := c.structToTable[structFullName]; ok {
		panic(fmt.Sprintf("table [%s] struct [%s] is exist", table, structFullName))
	}

	ts := &TableSchema{Name: table}
	uniques := map[string][]string{}
	var uniqueNames []string
	for i := 0; i < tp.NumField(); i++ {
		field := tp.Field(i)
		colName := field.Tag.Get("json")
		if idx := strings.IndexByte(colName, ','); idx >= 0 {
			colName = colName[:idx]
		}
		if colName == "" || colName == "-" || !field.IsExported() {
			continue
		}

		declared := field.Tag.Get("dbtype")
		if declared == "" {
			declared = defaultDBType(field.Type)
		}
		col := NewColumn(colName, declared)
		// bool 字段按 1/0 存储
		if field.Type.Kind() == reflect.Bool || field.Type.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Bool {
			col.Type = TypeBoolean
		}

		for _, opt := range strings.Split(field.Tag.Get("key"), ",") {
			opt = strings.TrimSpace(opt)
			k, v, _ := strings.Cut(opt, "=")
			switch k {
			case "":
			case "pk":
				ts.PrimaryKey = append(ts.PrimaryKey, colName)
			case "auto":
				col.AutoIncrement = true
			case "seq":
				ts.SequenceName = v
			case "unique":
				if v == "" {
					v = table + "_" + colName + "_uk"
				}
				if _, ok := uniques[v]; !ok {
					uniqueNames = append(uniqueNames, v)
				}
				uniques[v] = append(uniques[v], colName)
			default:
				panic(fmt.Sprintf("table [%s] field [%s] unknown key option [%s]", table, colName, opt))
			}
		}
		ts.Columns = append(ts.Columns, col)
	}
	for _, name := range uniqueNames {
		ts.Uniques = append(ts.Uniques, Constraint{Name: name, Columns: uniques[name]})
	}

	c.AddTable(ts)
	c.structToTable[structFullName] = table
}

// TableOf returns the table registered for a struct value.
func (c *Reference) TableOf(def any) string {
	tp := reflect.TypeOf(def)
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	return c.structToTable[fmt.Sprintf("%s.%s", tp.PkgPath(), tp.Name())]
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

func defaultDBType(tp reflect.Type) string {
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
	}
	switch tp {
	case timeType:
		return "TIMESTAMP"
	case decimalType:
		return "NUMBER"
	}
	switch tp.Kind() {
	case reflect.Bool:
		return "NUMBER(1)"
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return "NUMBER(10)"
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
		return "NUMBER(19)"
	case reflect.Float32, reflect.Float64:
		return "BINARY_DOUBLE"
	case reflect.Slice:
		if tp.Elem().Kind() == reflect.Uint8 {
			return "BLOB"
		}
	}
	return "VARCHAR2(4000)"
}
