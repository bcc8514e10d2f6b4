package dml

import (
	"context"
	"strings"

	"github.com/assembly-hub/basics/util"

	"github.com/assembly-hub/dml/dbtype"
)

// excludedAlias names the merge source row.
const excludedAlias = "EXCLUDED"

type prepareFunc func(ctx context.Context, op, table string, src InsertSource, params *Params) (*InsertValues, error)

// mergeUpsert translates an upsert into MERGE for dialects without a native
// one. Without a covered unique key it degrades to a plain insert.
func mergeUpsert(ctx context.Context, b *baseBuilder, prepare prepareFunc, table string, src InsertSource,
	update UpdateSpec, params *Params) (string, error) {
	op := opUpsert
	uc, err := prepareUpsertColumns(ctx, b, op, table, src, update)
	if err != nil {
		return "", err
	}
	if len(uc.unique) == 0 {
		iv, err := prepare(ctx, op, table, src, params)
		if err != nil {
			return "", err
		}
		return insertSQL(b.quoter, table, iv), nil
	}
	// 没有可更新的列
	if uc.update != nil && len(uc.update) == 0 {
		update = NoUpdate()
	}

	qt := b.quoter.QuoteTableName(table)
	excluded := b.quoter.QuoteSimpleName(excludedAlias)

	ors := make([]string, 0, len(uc.constraints))
	for _, c := range uc.constraints {
		ands := make([]string, 0, len(c.Columns))
		for _, col := range c.Columns {
			qc := b.quoter.QuoteColumnName(col)
			ands = append(ands, qt+"."+qc+"="+excluded+"."+qc)
		}
		ors = append(ors, joinCondition("AND", ands))
	}
	on := joinCondition("OR", ors)

	iv, err := prepare(ctx, op, table, src, params)
	if err != nil {
		return "", err
	}

	var merge strings.Builder
	if b.conf.DBType == dbtype.SQLServer {
		merge.WriteString("MERGE ")
		merge.WriteString(qt)
		merge.WriteString(" WITH (HOLDLOCK) USING (")
		if len(iv.Placeholders) > 0 {
			merge.WriteString("VALUES (")
			merge.WriteString(util.JoinArr(iv.Placeholders, ", "))
			merge.WriteString(")")
		} else {
			merge.WriteString(strings.TrimLeft(iv.Values, " "))
		}
		merge.WriteString(") AS ")
		merge.WriteString(excluded)
		merge.WriteString(" (")
		merge.WriteString(util.JoinArr(sourceNames(uc.insert), ", "))
		merge.WriteString(")")
	} else {
		merge.WriteString("MERGE INTO ")
		merge.WriteString(qt)
		merge.WriteString(" USING (")
		if len(iv.Placeholders) > 0 {
			items := make([]string, len(uc.insert))
			for i, name := range sourceNames(uc.insert) {
				items[i] = iv.Placeholders[i] + " AS " + name
			}
			merge.WriteString("SELECT ")
			merge.WriteString(util.JoinArr(items, ", "))
			if b.conf.Dual != "" {
				merge.WriteString(" FROM ")
				merge.WriteString(b.conf.Dual)
			}
		} else {
			merge.WriteString(strings.TrimLeft(iv.Values, " "))
		}
		merge.WriteString(") ")
		merge.WriteString(excluded)
	}
	merge.WriteString(" ON (")
	merge.WriteString(on)
	merge.WriteString(")")

	refs := make([]string, len(uc.insert))
	for i, name := range uc.insert {
		refs[i] = qualifyExcluded(excluded, name)
	}
	insert := "INSERT (" + util.JoinArr(uc.insert, ", ") + ") VALUES (" + util.JoinArr(refs, ", ") + ")"

	end := ""
	if b.conf.DBType == dbtype.SQLServer {
		end = ";"
	}
	if !update.enabled() {
		return merge.String() + " WHEN NOT MATCHED THEN " + insert + end, nil
	}

	cols := update.columns
	if update.mode == updateAll {
		cols = NewColumns()
		for _, name := range uc.update {
			cols.Set(name, Expr(qualifyExcluded(excluded, name)))
		}
	}
	sets, err := prepareUpdateSets(ctx, b, op, table, cols, b.binder(params))
	if err != nil {
		return "", err
	}
	return merge.String() + " WHEN MATCHED THEN UPDATE SET " + util.JoinArr(sets, ", ") +
		" WHEN NOT MATCHED THEN " + insert + end, nil
}

// qualifyExcluded prefixes a quoted name with the source alias unless it is
// already table-qualified.
func qualifyExcluded(excluded, name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return excluded + "." + name
}

// sourceNames drops table prefixes from quoted names: "t"."c" -> "c".
func sourceNames(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		if j := strings.LastIndexByte(name, '.'); j >= 0 {
			name = name[j+1:]
		}
		out[i] = name
	}
	return out
}
