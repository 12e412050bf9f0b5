package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kubev2v/vsphere-inventory-runner/internal/config"
	"github.com/kubev2v/vsphere-inventory-runner/internal/models"
	"github.com/kubev2v/vsphere-inventory-runner/internal/session"
	"github.com/kubev2v/vsphere-inventory-runner/internal/store"
	"github.com/kubev2v/vsphere-inventory-runner/internal/store/migrations"
	"github.com/kubev2v/vsphere-inventory-runner/pkg/command"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		// The first failing step's exit code is propagated unchanged.
		os.Exit(session.ExitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "inventory-runner",
		Short:         "Integration test-session runner for the vSphere VM inventory plugin",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	root.AddCommand(newRunCommand())
	root.AddCommand(newSessionsCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var (
		skipPreflight bool
		workDir       string
		journalPath   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fixed invocation sequence against the configured endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("skip-preflight") {
				cfg.Endpoint.SkipPreflight = skipPreflight
			}
			if cmd.Flags().Changed("work-dir") {
				cfg.Session.WorkDir = workDir
			}
			if cmd.Flags().Changed("journal") {
				cfg.Journal.Path = journalPath
			}

			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			defer logger.Sync()

			if err := cfg.Validate(); err != nil {
				zap.S().Errorw("invalid configuration", "error", err)
				return err
			}

			opts := []session.Option{}
			if cfg.Journal.Path != "" {
				db, err := store.NewDB(cfg.Journal.Path)
				if err != nil {
					return err
				}
				if err := migrations.Run(cmd.Context(), db); err != nil {
					db.Close()
					return err
				}
				st := store.NewStore(db)
				defer st.Close()
				opts = append(opts, session.WithJournal(st.Sessions()))
			}

			runner := session.New(cfg, command.NewExecExecutor(), opts...)
			if err := runner.Run(cmd.Context()); err != nil {
				zap.S().Errorw("test session failed", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip the endpoint reachability probe")
	cmd.Flags().StringVar(&workDir, "work-dir", ".", "base directory for staged artifacts")
	cmd.Flags().StringVar(&journalPath, "journal", "", "journal database path (empty disables the journal)")
	return cmd
}

func newSessionsCommand() *cobra.Command {
	var (
		journalPath string
		statuses    []string
		limit       uint64
		offset      uint64
	)

	cmd := &cobra.Command{
		Use:   "sessions [id]",
		Short: "List recorded test sessions, or show one session with its step results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("journal") {
				cfg.Journal.Path = journalPath
			}
			if cfg.Journal.Path == "" {
				return fmt.Errorf("no journal configured (set --journal or INVENTORY_RUNNER_JOURNAL_PATH)")
			}

			db, err := store.NewDB(cfg.Journal.Path)
			if err != nil {
				return err
			}
			if err := migrations.Run(cmd.Context(), db); err != nil {
				db.Close()
				return err
			}
			st := store.NewStore(db)
			defer st.Close()

			if len(args) == 1 {
				return showSession(cmd, st, args[0])
			}

			opts := []store.ListOption{}
			if len(statuses) > 0 {
				parsed := make([]models.SessionStatus, 0, len(statuses))
				for _, raw := range statuses {
					status, err := models.ParseSessionStatus(raw)
					if err != nil {
						return err
					}
					parsed = append(parsed, status)
				}
				opts = append(opts, store.ByStatus(parsed...))
			}
			if limit > 0 {
				opts = append(opts, store.WithLimit(limit))
			}
			if offset > 0 {
				opts = append(opts, store.WithOffset(offset))
			}

			sessions, err := st.Sessions().List(cmd.Context(), opts...)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tEXIT\tSTARTED\tFINISHED")
			for _, s := range sessions {
				finished := "-"
				if !s.FinishedAt.IsZero() {
					finished = s.FinishedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					s.ID, s.Status, s.ExitCode, s.StartedAt.Format(time.RFC3339), finished)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "journal database path")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by session status (running, passed, failed, interrupted)")
	cmd.Flags().Uint64Var(&limit, "limit", 0, "maximum number of sessions to list")
	cmd.Flags().Uint64Var(&offset, "offset", 0, "number of sessions to skip")
	return cmd
}

func showSession(cmd *cobra.Command, st *store.Store, raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", raw, err)
	}

	s, err := st.Sessions().Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	steps, err := st.Sessions().StepResults(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s: %s (exit %d)\n", s.ID, s.Status, s.ExitCode)

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tSTEP\tSTATUS\tEXIT\tDURATION")
	for _, step := range steps {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			step.Position, step.Name, step.Status, step.ExitCode, step.Duration)
	}
	return w.Flush()
}

func buildLogger(cfg *config.Configuration) (*zap.Logger, error) {
	var zcfg zap.Config
	switch cfg.LogFormat {
	case "json":
		zcfg = zap.NewProductionConfig()
	default:
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level
	return zcfg.Build()
}
