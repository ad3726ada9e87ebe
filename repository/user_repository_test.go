package repository

import (
	"context"
	"errors"
	"testing"

	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/models"
)

func TestUserRepository_CRUDAndQueries(t *testing.T) {
	d := openTestDB(t, "userrepo")
	repo := NewUserRepository(d)
	ctx := context.Background()

	// CreateEditor
	u, err := repo.CreateEditor(ctx, "alice", "hash-a", 1001)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 || u.Username != "alice" || u.Role != models.RoleEditor || u.UnitID == nil || *u.UnitID != 1001 {
		t.Fatalf("unexpected created user: %+v", u)
	}

	// GetByID
	g, err := repo.GetByID(ctx, u.ID)
	if err != nil || g == nil || g.Username != "alice" || g.PasswordHash != "hash-a" {
		t.Fatalf("get by id: %v %+v", err, g)
	}

	// GetByUsername
	g2, err := repo.GetByUsername(ctx, "alice")
	if err != nil || g2 == nil || g2.ID != u.ID {
		t.Fatalf("get by username: %v %+v", err, g2)
	}

	// List joins the unit name
	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	if list[0].UnitName != "COMISARIA PRIMERA" {
		t.Fatalf("unit name not joined: %+v", list[0])
	}

	// UpdatePassword
	if err := repo.UpdatePassword(ctx, u.ID, "hash-b"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	g3, _ := repo.GetByID(ctx, u.ID)
	if g3.PasswordHash != "hash-b" {
		t.Fatalf("password not updated: %+v", g3)
	}
	if err := repo.UpdatePassword(ctx, 9999, "x"); err == nil {
		t.Fatalf("expected error updating missing user")
	}

	// Delete
	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := repo.GetByID(ctx, u.ID)
	if err != nil || gone != nil {
		t.Fatalf("expected user to be deleted, got %+v err=%v", gone, err)
	}
	// deleting again is a no-op
	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestUserRepository_NotFoundReturnsNil(t *testing.T) {
	d := openTestDB(t, "usernotfound")
	repo := NewUserRepository(d)
	u, err := repo.GetByUsername(context.Background(), "nobody")
	if err != nil || u != nil {
		t.Fatalf("expected nil,nil got %+v %v", u, err)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	d := openTestDB(t, "userdup")
	repo := NewUserRepository(d)
	ctx := context.Background()
	if _, err := repo.CreateEditor(ctx, "bob", "h", 1001); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateEditor(ctx, "bob", "h", 1002); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUserRepository_SingleRuralEditor(t *testing.T) {
	d := openTestDB(t, "userrural")
	repo := NewUserRepository(d)
	ctx := context.Background()

	first, err := repo.CreateEditor(ctx, "rural1", "h", catalog.RuralUnitID)
	if err != nil {
		t.Fatalf("first rural editor: %v", err)
	}
	if _, err := repo.CreateEditor(ctx, "rural2", "h", catalog.RuralUnitID); !errors.Is(err, ErrRuralEditorExists) {
		t.Fatalf("expected ErrRuralEditorExists, got %v", err)
	}
	still, err := repo.GetByID(ctx, first.ID)
	if err != nil || still == nil {
		t.Fatalf("first rural editor must remain: %+v %v", still, err)
	}
	n, err := repo.CountByUnit(ctx, catalog.RuralUnitID)
	if err != nil || n != 1 {
		t.Fatalf("count by unit: %d %v", n, err)
	}

	// ordinary units may have several editors
	if _, err := repo.CreateEditor(ctx, "e1", "h", 1001); err != nil {
		t.Fatalf("e1: %v", err)
	}
	if _, err := repo.CreateEditor(ctx, "e2", "h", 1001); err != nil {
		t.Fatalf("e2: %v", err)
	}
}

func TestUserRepository_AdminGuard(t *testing.T) {
	d := openTestDB(t, "useradmin")
	repo := NewUserRepository(d)
	ctx := context.Background()

	created, err := repo.EnsureAdmin(ctx, models.NewAdmin("admin", "h"))
	if err != nil || !created {
		t.Fatalf("ensure admin: %v created=%v", err, created)
	}
	created, err = repo.EnsureAdmin(ctx, models.NewAdmin("admin", "other"))
	if err != nil || created {
		t.Fatalf("second ensure admin must be a no-op: %v created=%v", err, created)
	}
	a, _ := repo.GetByUsername(ctx, "admin")
	if a == nil || !a.IsAdmin() || a.UnitID != nil || a.PasswordHash != "h" {
		t.Fatalf("unexpected admin: %+v", a)
	}

	if err := repo.Delete(ctx, a.ID); !errors.Is(err, ErrAdminUndeletable) {
		t.Fatalf("expected ErrAdminUndeletable, got %v", err)
	}
	still, _ := repo.GetByID(ctx, a.ID)
	if still == nil {
		t.Fatalf("admin must survive delete")
	}
}

// A second writer that passed the pre-insert check still hits the index.
func TestUserRepository_RuralEditorIndex(t *testing.T) {
	d := openTestDB(t, "userruralidx")
	repo := NewUserRepository(d)
	ctx := context.Background()

	if _, err := repo.CreateEditor(ctx, "rural1", "h", catalog.RuralUnitID); err != nil {
		t.Fatalf("first rural editor: %v", err)
	}
	_, err := d.ExecContext(ctx, `INSERT INTO users (username, password_hash, role, unit_id) VALUES ('rural2', 'h', 'editor', ?)`, catalog.RuralUnitID)
	if err == nil {
		t.Fatalf("second rural editor inserted")
	}
	if got := editorInsertError(err); !errors.Is(got, ErrRuralEditorExists) {
		t.Fatalf("expected ErrRuralEditorExists, got %v (from %v)", got, err)
	}

	_, err = d.ExecContext(ctx, `INSERT INTO users (username, password_hash, role, unit_id) VALUES ('rural1', 'h', 'editor', 1001)`)
	if got := editorInsertError(err); !errors.Is(got, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v (from %v)", got, err)
	}

	// other units keep taking several editors
	for _, name := range []string{"a", "b"} {
		if _, err := repo.CreateEditor(ctx, name, "h", 1001); err != nil {
			t.Fatalf("editor %s on 1001: %v", name, err)
		}
	}
}
