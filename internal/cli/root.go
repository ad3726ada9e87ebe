// Package cli wires the boletas commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ticketCountManagement/internal/config"
	"ticketCountManagement/internal/db"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
	Dev      bool
	Verbose  bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "boletas",
		Short:         "Daily ticket counts per police unit",
		Long:          "Web application where unit editors record daily manual and electronic ticket counts and administrators review, lock and export them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")
	cmd.PersistentFlags().BoolVar(&opts.Dev, "dev", false, "allow a development session secret when SESSION_SECRET is unset")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand())
	cmd.AddCommand(NewRollbackCommand(opts))

	return cmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(opts.EnvFiles...); err != nil {
		return nil, err
	}
	if opts.Dev {
		return config.LoadWithDefaults()
	}
	return config.Load()
}

func openDB(cfg *config.Config) (*db.Handle, error) {
	if cfg.UsePostgres() {
		h, err := db.OpenPostgres(cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return h, nil
	}
	if err := os.MkdirAll(cfg.Database.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	h, err := db.Open(cfg.Database.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Database.SQLitePath(), err)
	}
	return h, nil
}
