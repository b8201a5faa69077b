package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"qrlsim/internal/storage"
	"qrlsim/pkg/qrlsim"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Verbose    bool
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "qrlsimctl",
		Short: "Reward-driven noisy circuit simulation",
		Long: `qrlsimctl samples a cycle from a measurement series, turns sliding-window
means into rewards and error rates, and simulates the reward-parameterized
circuit under the calibrated depolarizing noise.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")
	cmd.PersistentFlags().StringVar(&opts.StoreKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db-path", "qrlsim.db", "sqlite database path")
	cmd.PersistentFlags().StringVar(&opts.RunsDir, "runs-dir", "runs", "run artifacts directory")
	cmd.PersistentFlags().StringVar(&opts.ExportsDir, "exports-dir", "exports", "export destination directory")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewCircuitCommand(opts))

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newClient(cmd *cobra.Command, opts *RootOptions) (*qrlsim.Client, error) {
	return qrlsim.New(qrlsim.Options{
		StoreKind:   opts.StoreKind,
		DBPath:      opts.DBPath,
		RunsDir:     opts.RunsDir,
		ExportsDir:  opts.ExportsDir,
		Logger:      newLogger(cmd.ErrOrStderr(), opts.Verbose),
		TraceOutput: cmd.ErrOrStderr(),
	})
}
