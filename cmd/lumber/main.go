package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nilpntr/lumber"
	"github.com/nilpntr/lumber/lumberbind"
	"github.com/nilpntr/lumber/lumberkit"
	"github.com/nilpntr/lumber/lumbermigrate"
	"github.com/nilpntr/lumber/lumberpg"
)

const defaultConfigPath = "lumber.toml"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	// logfmt to stderr, selectable through lumber.Config.BridgeName.
	if err := lumber.RegisterBridge("logfmt", lumberkit.NewLogfmt(os.Stderr, lumber.LevelTrace).Factory()); err != nil {
		panic(err)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

// loadConfig reads the config file. The default path may be absent.
func (o *rootOptions) loadConfig() (*FileConfig, error) {
	return ReadConfigFile(o.configPath, o.configPath == defaultConfigPath)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "lumber",
		Short:         "Logging facade tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newDiagnosticLogger(opts.verbose)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log lumber's own diagnostics at debug level")

	rootCmd.AddCommand(
		newEmitCmd(opts),
		newBinderCmd(),
		newBridgesCmd(),
		newMigrateCmd(opts),
		newTailCmd(opts),
	)
	return rootCmd
}

func newDiagnosticLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func newEmitCmd(opts *rootOptions) *cobra.Command {
	var (
		loggerName string
		level      string
		tag        string
		fields     []string
	)

	cmd := &cobra.Command{
		Use:   "emit MESSAGE",
		Short: "Log a single event through the configured bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := lumber.ParseLevel(level)
			if err != nil {
				return err
			}
			logFields, err := parseFields(fields)
			if err != nil {
				return err
			}
			if tag != "" {
				logFields = append(logFields, lumber.Tag(tag))
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := lumber.WithLogger(cmd.Context(), lumber.New(loggerName))
			lumber.LogFromContext(ctx, lvl, args[0], logFields...)

			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return s.Close(closeCtx)
		},
	}
	cmd.Flags().StringVar(&loggerName, "logger", "cli", "logger name")
	cmd.Flags().StringVar(&level, "level", "info", "event level")
	cmd.Flags().StringVar(&tag, "tag", "", "event tag")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "event field as key=value (repeatable)")
	return cmd
}

// parseFields turns key=value pairs into fields.
func parseFields(pairs []string) ([]lumber.Field, error) {
	fields := make([]lumber.Field, 0, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", pair)
		}
		fields = append(fields, lumber.F(key, value))
	}
	return fields, nil
}

func newBinderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "binder",
		Short: "Show the statically bound diagnostic context adapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			binder := lumberbind.Singleton()
			fmt.Fprintf(cmd.OutOrStdout(), "MDC adapter: %s\n", binder.AdapterTypeName())
			fmt.Fprintf(cmd.OutOrStdout(), "In use:      %s\n", lumber.MDCAdapterTypeName())
			return nil
		},
	}
}

func newBridgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bridges",
		Short: "List bridges selectable by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range lumber.Bridges() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	migrator := func() (*lumbermigrate.Migrator, error) {
		cfg, err := opts.loadConfig()
		if err != nil {
			return nil, err
		}
		return lumbermigrate.New(cfg.Postgres.URL, &lumbermigrate.Options{
			SchemaName: cfg.Postgres.Schema,
			DryRun:     dryRun,
		}), nil
	}

	printStatus := func(cmd *cobra.Command, verb string, ms []lumbermigrate.MigrationStatus) {
		if len(ms) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "nothing to %s\n", verb)
			return
		}
		for _, m := range ms {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s_%s\n", verb, m.Name, m.Comment)
		}
	}

	action := func(verb string, run func(*lumbermigrate.Migrator, context.Context) ([]lumbermigrate.MigrationStatus, error)) *cobra.Command {
		return &cobra.Command{
			Use:   verb,
			Short: verb + " log table migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}
				ms, err := run(m, cmd.Context())
				if err != nil {
					return err
				}
				printStatus(cmd, verb, ms)
				return nil
			},
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the log_events schema",
	}
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report without changing the database")

	cmd.AddCommand(
		action("up", (*lumbermigrate.Migrator).Up),
		action("down", (*lumbermigrate.Migrator).Down),
		action("rollback", (*lumbermigrate.Migrator).Rollback),
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}
				ms, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				version, err := m.Version(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "group: %d\n", version)
				for _, s := range ms {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s_%s\n", state, s.Name, s.Comment)
				}
				return nil
			},
		},
	)
	return cmd
}

func newTailCmd(opts *rootOptions) *cobra.Command {
	var (
		afterID int64
		unseal  bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow events written by the postgres bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return &lumber.ValidationError{Field: "postgres.url", Message: "required by tail"}
			}

			var seal *lumber.SealHook
			if unseal {
				if seal, err = sealHook(cfg); err != nil {
					return err
				}
				if seal == nil {
					return &lumber.ValidationError{Field: "seal.key", Message: "required by --unseal"}
				}
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			enc := logfmt.NewEncoder(cmd.OutOrStdout())
			tailer := lumberpg.NewTailer(pool, zap.L().Named("tail"))
			return tailer.Tail(cmd.Context(), afterID, func(row lumberpg.EventRow) error {
				return writeRow(enc, row, seal)
			})
		},
	}
	cmd.Flags().Int64Var(&afterID, "after-id", 0, "only show events with a greater id")
	cmd.Flags().BoolVar(&unseal, "unseal", false, "decrypt sealed values with seal.key")
	return cmd
}

// writeRow encodes row as one logfmt record.
func writeRow(enc *logfmt.Encoder, row lumberpg.EventRow, seal *lumber.SealHook) error {
	open := func(v string) string {
		if seal == nil {
			return v
		}
		if plain, err := seal.Unseal(v); err == nil {
			return plain
		}
		return v
	}

	keyvals := []interface{}{
		"id", row.ID,
		"ts", row.LoggedAt.UTC().Format(time.RFC3339Nano),
		"level", row.Level,
		"logger", row.Logger,
		"msg", row.Message,
	}
	if row.Tag != "" {
		keyvals = append(keyvals, "tag", row.Tag)
	}
	if row.Error != "" {
		keyvals = append(keyvals, "err", row.Error)
	}
	for _, k := range sortedKeys(row.Fields) {
		v := fmt.Sprint(row.Fields[k])
		keyvals = append(keyvals, k, open(v))
	}
	for _, k := range sortedKeys(row.Context) {
		keyvals = append(keyvals, "mdc."+k, open(row.Context[k]))
	}

	if err := enc.EncodeKeyvals(keyvals...); err != nil {
		return err
	}
	return enc.EndRecord()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
