package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ticketCountManagement/internal/db"
)

// NewRollbackCommand creates the rollback command.
func NewRollbackCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the last applied schema migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			h, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer h.Close()
			if err := db.RollbackLast(h); err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			versions, err := db.AppliedVersions(h)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied migrations: %v\n", versions)
			return nil
		},
	}
}
