package repository

import (
	"context"
	"testing"

	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/db"
)

func openTestDB(t *testing.T, name string) *db.Handle {
	t.Helper()
	h, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	if err := NewUnitRepository(h).Seed(context.Background(), catalog.Default().AllUnits()); err != nil {
		t.Fatalf("seed units: %v", err)
	}
	return h
}
