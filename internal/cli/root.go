// Package cli implements the dmlgen command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/assembly-hub/dml"
	"github.com/assembly-hub/dml/dbtype"
	"github.com/assembly-hub/dml/internal/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dialect    string
	logLevel   string
	exec       bool
	trans      bool
	catalog    bool
	owner      string
}

func newRootCmd() *cobra.Command {
	f := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "dmlgen",
		Short: "Generate dialect-specific DML statements",
		Long: `Generate INSERT, batch INSERT, upsert and sequence reset statements for
Oracle, MySQL, SQL Server, Postgres, openGauss and SQLite.

Statements are printed with their bound parameters. With --exec they are run
against the database configured in --config.

Examples:
  dmlgen --config db.yaml batch-insert users --rows rows.yaml
  dmlgen --dialect oracle upsert users --values user.yaml --update all
  dmlgen --config db.yaml reset-sequence users --value 100 --exec`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "yaml config with connection and tables")
	pf.StringVarP(&f.dialect, "dialect", "d", "", "dialect, overrides the config (oracle, mysql, sqlserver, postgres, opengauss, sqlite3)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&f.exec, "exec", false, "execute the statement")
	pf.BoolVar(&f.trans, "trans", true, "run --exec batches in a transaction")
	pf.BoolVar(&f.catalog, "catalog", false, "read oracle table metadata from the data dictionary (needs a connection)")
	pf.StringVar(&f.owner, "owner", "", "schema owner for --catalog")

	cmd.AddCommand(newBatchInsertCmd(f))
	cmd.AddCommand(newInsertCmd(f))
	cmd.AddCommand(newUpsertCmd(f))
	cmd.AddCommand(newResetSequenceCmd(f))
	cmd.AddCommand(newDialectsCmd())
	return cmd
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

// session is what a subcommand needs: a builder, a logger and, with --exec or
// --catalog, an open database.
type session struct {
	cfg     *dml.Config
	builder dml.QueryBuilder
	db      *sql.DB
	log     zerolog.Logger
}

func (s *session) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func openSession(f *globalFlags) (*session, error) {
	cfg := &dml.Config{Log: logging.DefaultConfig()}
	if f.configPath != "" {
		loaded, err := dml.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if f.dialect != "" {
		cfg.Dialect = f.dialect
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	cfg.Log.Output = os.Stderr
	log := logging.NewWithComponent(cfg.Log, "dmlgen")

	t, err := cfg.DBType()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log}

	if f.exec || f.catalog {
		s.db, err = dml.NewClient(cfg).Connect()
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
	}

	var schema dml.SchemaProvider
	if f.catalog {
		if t != dbtype.Oracle {
			s.Close()
			return nil, fmt.Errorf("--catalog is only available for oracle")
		}
		schema = dml.NewOracleSchema(s.db, f.owner, log)
	} else {
		ref, err := cfg.Reference()
		if err != nil {
			s.Close()
			return nil, err
		}
		schema = ref
	}

	s.builder, err = dml.NewBuilder(t, schema, dml.WithLogger(log))
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// emit prints st and, with --exec, runs it.
func (s *session) emit(ctx context.Context, cmd *cobra.Command, f *globalFlags, st dml.Statement) error {
	if st.SQL == "" {
		cmd.PrintErrln("nothing to do")
		return nil
	}
	printStatement(cmd, st)
	if !f.exec {
		return nil
	}
	affected, err := dml.NewExecutor(s.db, s.builder, s.log).ExecBatch(ctx, []dml.Statement{st}, f.trans)
	if err != nil {
		return err
	}
	s.log.Info().Int64("affected", affected).Msg("executed")
	return nil
}

func printStatement(cmd *cobra.Command, st dml.Statement) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, st.SQL)
	if st.Params == nil {
		return
	}
	for _, name := range st.Params.Names() {
		v, _ := st.Params.Value(name)
		_, _ = fmt.Fprintf(out, "-- %s = %v\n", name, v)
	}
}

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported dialects",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, t := range []int{dbtype.Oracle, dbtype.MySQL, dbtype.MariaDB, dbtype.SQLServer,
				dbtype.Postgres, dbtype.OpenGauss, dbtype.SQLite3} {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), dbtype.Name(t))
			}
		},
	}
}
