package repository

import (
	"context"
	"database/sql"

	"ticketCountManagement/internal/db"
	"ticketCountManagement/models"
)

// MaintenanceRepository holds administrative bulk operations.
type MaintenanceRepository struct {
	db *db.Handle
}

func NewMaintenanceRepository(h *db.Handle) *MaintenanceRepository {
	return &MaintenanceRepository{db: h}
}

// Reset deletes every count, every lock, every non-admin session and every
// non-admin user in one transaction. Units and admins survive.
func (r *MaintenanceRepository) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()

	admin := string(models.RoleAdmin)
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmts := []struct {
			q    string
			args []any
		}{
			{`DELETE FROM counts`, nil},
			{`DELETE FROM locks`, nil},
			{`DELETE FROM sessions WHERE user_id IN (SELECT id FROM users WHERE role IS NULL OR role <> ?)`, []any{admin}},
			{`DELETE FROM users WHERE role IS NULL OR role <> ?`, []any{admin}},
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, r.db.Rebind(s.q), s.args...); err != nil {
				return err
			}
		}
		return nil
	})
}
