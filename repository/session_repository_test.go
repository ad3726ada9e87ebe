package repository

import (
	"context"
	"testing"
	"time"

	"ticketCountManagement/models"
)

func TestSessionRepository_Lifecycle(t *testing.T) {
	d := openTestDB(t, "sessions")
	users := NewUserRepository(d)
	repo := NewSessionRepository(d)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)

	u, err := users.CreateEditor(ctx, "carol", "h", 2001)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	live := &models.Session{ID: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}
	old := &models.Session{ID: "old", UserID: u.ID, ExpiresAt: now.Add(-time.Minute)}
	for _, s := range []*models.Session{live, old} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create session %s: %v", s.ID, err)
		}
	}

	s, su, err := repo.Lookup(ctx, "live", now)
	if err != nil || s == nil || su == nil {
		t.Fatalf("lookup live: %v %+v %+v", err, s, su)
	}
	if su.Username != "carol" || su.UnitID == nil || *su.UnitID != 2001 {
		t.Fatalf("unexpected lookup: %+v %+v", s, su)
	}
	if !s.ExpiresAt.Equal(live.ExpiresAt) {
		t.Fatalf("expiry mismatch: %v", s.ExpiresAt)
	}

	s, _, err = repo.Lookup(ctx, "old", now)
	if err != nil || s != nil {
		t.Fatalf("expired session must not be found: %+v %v", s, err)
	}

	n, err := repo.DeleteExpired(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("delete expired: %d %v", n, err)
	}

	if err := repo.Delete(ctx, "live"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	s, _, _ = repo.Lookup(ctx, "live", now)
	if s != nil {
		t.Fatalf("session should be gone")
	}
}

func TestSessionRepository_UserDeleteDropsSessions(t *testing.T) {
	d := openTestDB(t, "sessionsuser")
	users := NewUserRepository(d)
	repo := NewSessionRepository(d)
	ctx := context.Background()
	now := time.Now()

	u, err := users.CreateEditor(ctx, "dave", "h", 3001)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := repo.Create(ctx, &models.Session{ID: "s1", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	s, _, err := repo.Lookup(ctx, "s1", now)
	if err != nil || s != nil {
		t.Fatalf("session of deleted user survived: %+v %v", s, err)
	}
}
