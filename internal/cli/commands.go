package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assembly-hub/dml"
)

func newBatchInsertCmd(f *globalFlags) *cobra.Command {
	var rowsPath string
	cmd := &cobra.Command{
		Use:   "batch-insert TABLE",
		Short: "Generate one multi-row INSERT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns, rows, err := readRows(rowsPath)
			if err != nil {
				return err
			}
			s, err := openSession(f)
			if err != nil {
				return err
			}
			defer s.Close()

			params := dml.NewParams()
			sqlStr, err := s.builder.BatchInsert(cmd.Context(), args[0], columns, rows, params)
			if err != nil {
				return err
			}
			return s.emit(cmd.Context(), cmd, f, dml.Statement{SQL: sqlStr, Params: params})
		},
	}
	cmd.Flags().StringVarP(&rowsPath, "rows", "r", "", "yaml file with columns and rows")
	_ = cmd.MarkFlagRequired("rows")
	return cmd
}

func newInsertCmd(f *globalFlags) *cobra.Command {
	var (
		valuesPath string
		returning  bool
	)
	cmd := &cobra.Command{
		Use:   "insert TABLE",
		Short: "Generate a single-row INSERT",
		Long: `Generate a single-row INSERT from a yaml column mapping. Without --values
the table defaults are inserted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols := dml.NewColumns()
			if valuesPath != "" {
				var err error
				if cols, err = readColumns(valuesPath); err != nil {
					return err
				}
			}
			s, err := openSession(f)
			if err != nil {
				return err
			}
			defer s.Close()

			params := dml.NewParams()
			var sqlStr string
			if returning {
				sqlStr, err = s.builder.InsertWithReturningPks(cmd.Context(), args[0], cols, params)
			} else {
				sqlStr, err = s.builder.Insert(cmd.Context(), args[0], cols, params)
			}
			if err != nil {
				return err
			}
			return s.emit(cmd.Context(), cmd, f, dml.Statement{SQL: sqlStr, Params: params})
		},
	}
	cmd.Flags().StringVarP(&valuesPath, "values", "v", "", "yaml column mapping")
	cmd.Flags().BoolVar(&returning, "returning", false, "return the generated primary key")
	return cmd
}

func newUpsertCmd(f *globalFlags) *cobra.Command {
	var (
		valuesPath string
		update     string
		updatePath string
	)
	cmd := &cobra.Command{
		Use:   "upsert TABLE",
		Short: "Generate an insert-or-update statement",
		Long: `Generate an insert-or-update statement keyed on a unique constraint covered
by the inserted columns. Tables without such a constraint get a plain INSERT.

--update all      update every non-key column from the incoming row
--update none     only insert missing rows
--update-values   update with an explicit yaml column mapping`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := readColumns(valuesPath)
			if err != nil {
				return err
			}
			upd, err := updateSpec(update, updatePath)
			if err != nil {
				return err
			}
			s, err := openSession(f)
			if err != nil {
				return err
			}
			defer s.Close()

			params := dml.NewParams()
			sqlStr, err := s.builder.Upsert(cmd.Context(), args[0], cols, upd, params)
			if err != nil {
				return err
			}
			return s.emit(cmd.Context(), cmd, f, dml.Statement{SQL: sqlStr, Params: params})
		},
	}
	cmd.Flags().StringVarP(&valuesPath, "values", "v", "", "yaml column mapping to insert")
	cmd.Flags().StringVar(&update, "update", "all", "all or none")
	cmd.Flags().StringVar(&updatePath, "update-values", "", "yaml column mapping to update with")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func updateSpec(mode, path string) (dml.UpdateSpec, error) {
	if path != "" {
		cols, err := readColumns(path)
		if err != nil {
			return dml.UpdateSpec{}, err
		}
		return dml.UpdateColumns(cols), nil
	}
	switch mode {
	case "all", "true":
		return dml.UpdateAll(), nil
	case "none", "false":
		return dml.NoUpdate(), nil
	}
	return dml.UpdateSpec{}, fmt.Errorf("unknown --update %q, want all or none", mode)
}

func newResetSequenceCmd(f *globalFlags) *cobra.Command {
	var value int64
	cmd := &cobra.Command{
		Use:   "reset-sequence TABLE",
		Short: "Generate a statement restarting the table's sequence",
		Long: `Generate a statement restarting the table's sequence. Without --value the
sequence restarts after the current maximum primary key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(f)
			if err != nil {
				return err
			}
			defer s.Close()

			var sqlStr string
			if cmd.Flags().Changed("value") {
				sqlStr, err = s.builder.ResetSequenceTo(cmd.Context(), args[0], value)
			} else {
				sqlStr, err = s.builder.ResetSequence(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return s.emit(cmd.Context(), cmd, f, dml.Statement{SQL: sqlStr})
		},
	}
	cmd.Flags().Int64Var(&value, "value", 0, "explicit restart value")
	return cmd
}
