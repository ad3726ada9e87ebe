package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ticketCountManagement/internal/db"
	"ticketCountManagement/internal/migrate"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	From string
	To   string
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy the sqlite database into postgres",
		Long:  "Copy units, users, counts and locks from the sqlite data file into postgres, keeping ids. Safe to rerun.",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := opts.From, opts.To
			if from == "" || to == "" {
				cfg, err := loadConfig(opts.RootOptions)
				if err != nil {
					return err
				}
				if from == "" {
					from = cfg.Database.SQLitePath()
				}
				if to == "" {
					to = cfg.Database.URL
				}
			}
			if to == "" {
				return errors.New("postgres url required (--to or DATABASE_URL)")
			}

			src, err := db.Open(from)
			if err != nil {
				return fmt.Errorf("open source %s: %w", from, err)
			}
			defer src.Close()
			dst, err := db.OpenPostgres(to)
			if err != nil {
				return fmt.Errorf("open target: %w", err)
			}
			defer dst.Close()

			rep, err := migrate.Copy(cmd.Context(), src, dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migration complete: %s\n", rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "sqlite file (default DATA_DIR/data.db)")
	cmd.Flags().StringVar(&opts.To, "to", "", "postgres connection string (default DATABASE_URL)")

	return cmd
}
