package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"

	"ticketCountManagement/internal/catalog"
	"ticketCountManagement/internal/db"
	"ticketCountManagement/repository"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The handle is closed through t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *db.Handle {
	t.Helper()
	// Shared cache keeps the database alive across connections of the same name.
	h, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// OpenSeededDB is OpenInMemoryDB with the default catalog seeded into units.
func OpenSeededDB(t *testing.T, name string) *db.Handle {
	t.Helper()
	h := OpenInMemoryDB(t, name)
	if err := repository.NewUnitRepository(h).Seed(context.Background(), catalog.Default().AllUnits()); err != nil {
		t.Fatalf("seed units: %v", err)
	}
	return h
}

// GenerateJWTHS256 returns a signed token carrying the claims the app reads.
// unitID 0 leaves the unit claim out.
func GenerateJWTHS256(t *testing.T, secret string, userID int64, username, role string, unitID int64) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"name": username,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if unitID != 0 {
		claims["unit"] = unitID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context carrying gRPC metadata with the given bearer token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}

// OutgoingBearer attaches a Bearer token to client call metadata.
func OutgoingBearer(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}
