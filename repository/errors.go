package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrUsernameTaken is returned when creating a user whose username exists.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrRuralEditorExists is returned when the rural unit already has an editor.
	ErrRuralEditorExists = errors.New("rural unit already has an editor")
	// ErrAdminUndeletable is returned when deleting an admin account.
	ErrAdminUndeletable = errors.New("admin users cannot be deleted")
	// ErrNegativeCount is returned for manual or electronic values below zero.
	ErrNegativeCount = errors.New("counts must be non-negative")
	// ErrCountTooLarge is returned for values above models.MaxCount.
	ErrCountTooLarge = errors.New("count exceeds maximum")
)

// ruralEditorIndex is the partial unique index allowing one user on the
// rural unit.
const ruralEditorIndex = "idx_users_rural_editor"

// isRuralEditorViolation reports whether err broke ruralEditorIndex.
func isRuralEditorViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique &&
			strings.Contains(liteErr.Error(), "users.unit_id")
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.Constraint == ruralEditorIndex
	}
	return false
}

// editorInsertError maps constraint failures of an editor insert to the
// repository's sentinel errors.
func editorInsertError(err error) error {
	switch {
	case isRuralEditorViolation(err):
		return ErrRuralEditorExists
	case isUniqueViolation(err):
		return ErrUsernameTaken
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either backend.
func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint &&
			(liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
