package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/ezra-obiwale/DBScribe/internal/config"
	"github.com/ezra-obiwale/DBScribe/mysql"
	"github.com/gopsql/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// app carries what every command needs once the root command has run.
type app struct {
	cfgFile string
	cfg     *config.Config
	conn    *mysql.DB
}

// tableOptions are handed to every dbscribe.Table the commands create.
func (a *app) tableOptions() []interface{} {
	if a.cfg != nil && a.cfg.Verbose {
		return []interface{}{logger.StandardLogger}
	}
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dbscribe",
		Short: "Inspect and query MySQL tables",
		Long: `dbscribe reflects the schema of MySQL tables, follows their foreign keys
and runs select and count statements against them.

Settings are read from dbscribe.yaml, DBSCRIBE_ environment variables
(a .env file is loaded first if present) and flags, in increasing order
of precedence.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.conn == nil {
				return nil
			}
			return a.conn.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default dbscribe.yaml)")
	flags.String("host", "", "database host")
	flags.Int("port", 0, "database port")
	flags.StringP("user", "u", "", "database user")
	flags.StringP("password", "p", "", "database password")
	flags.StringP("database", "d", "", "database name")
	flags.String("prefix", "", "table name prefix")
	flags.String("dsn", "", "data source name, overrides the other connection flags")
	flags.StringP("output", "o", "", "output format: table, json or yaml")
	flags.BoolP("verbose", "v", false, "log every statement")

	root.AddCommand(
		newTablesCmd(a),
		newInspectCmd(a),
		newSelectCmd(a),
		newCountCmd(a),
		newSchemaCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := config.Load(a.cfgFile, cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.Verbose {
		log.SetOutput(cmd.ErrOrStderr())
		if cfg.File != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", cfg.File)
		}
	}
	conn, err := mysql.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	a.conn = conn
	return nil
}
