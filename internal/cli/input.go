package cli

import (
	"fmt"
	"iter"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/assembly-hub/dml"
)

// rowsFile is the batch-insert input:
//
//	columns: [id, name]
//	rows:
//	  - [1, alice]
//	  - [2, bob]
type rowsFile struct {
	Columns []string    `yaml:"columns"`
	Rows    []yaml.Node `yaml:"rows"`
}

func readRows(path string) ([]string, iter.Seq[[]any], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var rf rowsFile
	if err = yaml.Unmarshal(data, &rf); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	rows := make([][]any, 0, len(rf.Rows))
	for i := range rf.Rows {
		node := &rf.Rows[i]
		if node.Kind != yaml.SequenceNode {
			return nil, nil, fmt.Errorf("%s: row %d is not a list", path, i+1)
		}
		row := make([]any, 0, len(node.Content))
		for _, cell := range node.Content {
			v, err := nodeValue(cell)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: row %d: %w", path, i+1, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rf.Columns, slices.Values(rows), nil
}

// readColumns reads a yaml mapping keeping its key order.
func readColumns(path string) (*dml.Columns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err = yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return columnsFromNode(&doc)
}

func columnsFromNode(doc *yaml.Node) (*dml.Columns, error) {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a column mapping")
	}

	cols := dml.NewColumns()
	for i := 0; i+1 < len(node.Content); i += 2 {
		v, err := nodeValue(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", node.Content[i].Value, err)
		}
		cols.Set(node.Content[i].Value, v)
	}
	return cols, nil
}

// nodeValue decodes a scalar; {expr: "SYSDATE"} becomes a raw expression.
func nodeValue(node *yaml.Node) (any, error) {
	if node.Kind == yaml.MappingNode {
		var e struct {
			Expr string `yaml:"expr"`
		}
		if err := node.Decode(&e); err != nil {
			return nil, err
		}
		if e.Expr == "" {
			return nil, fmt.Errorf("mapping value needs an expr key")
		}
		return dml.Expr(e.Expr), nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
