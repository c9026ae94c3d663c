// Package cmd implements the keyledgerctl command tree.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/keyledger/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/keyledger/internal/application"
	"github.com/ericfisherdev/keyledger/internal/config"
)

// app holds what every subcommand needs once the root pre-run has opened
// the database.
type app struct {
	db         *sqliteadapter.DB
	store      *application.RecordStore
	soonWindow time.Duration
}

type rootOptions struct {
	dbPath  string
	slot    string
	verbose bool
	noColor bool
}

// Run builds the command tree, executes it with args and releases the
// database afterwards.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{}
	defer func() {
		if err := a.close(); err != nil {
			fmt.Fprintf(stderr, "error closing database: %v\n", err)
		}
	}()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "keyledgerctl",
		Short: "Manage keyledger records from the command line",
		Long: `keyledgerctl reads and writes the same record slot as the keyledger
server. Configuration comes from KEYLEDGER_* environment variables and an
optional .env file; --db and --slot override them.

The server keeps its records in memory, so restart it after editing the
slot here or its next write will replace your changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default from KEYLEDGER_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.slot, "slot", "", "slot name (default from KEYLEDGER_SLOT)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(newListCmd(a), newAddCmd(a), newDeleteCmd(a))

	return root
}

func (a *app) open(cmd *cobra.Command, opts *rootOptions) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.slot != "" {
		cfg.SlotName = opts.slot
	}
	if opts.noColor {
		color.NoColor = true
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	db, err := sqliteadapter.NewDB(cmd.Context(), cfg.DBPath)
	if err != nil {
		return err
	}
	if _, err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db

	slots := sqliteadapter.NewSlotRepo(db, cfg.SecretKey)
	a.store = application.NewRecordStore(slots, cfg.SlotName, cfg.IDScheme, application.WithLogger(logger))
	a.store.Load(cmd.Context())
	a.soonWindow = cfg.ExpiringSoonWindow

	logger.Debug("slot loaded", "db_path", cfg.DBPath, "slot", cfg.SlotName, "records", len(a.store.Records()))
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
