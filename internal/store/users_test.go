package store

import (
	"context"
	"testing"

	"github.com/ateliergpr/gpr/internal/db"
	"github.com/ateliergpr/gpr/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	u, err := CreateUser(ctx, database, "main", "hash", model.RoleMaintenance)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.Username != "main" || u.Role != model.RoleMaintenance {
		t.Errorf("unexpected user: %+v", u)
	}

	got, err := GetUserByUsername(ctx, database, "main")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Errorf("expected to find user by username, got %+v", got)
	}
}

func TestGetUserByUsernameCaseSensitive(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "main", "hash", model.RoleMaintenance)

	got, err := GetUserByUsername(ctx, database, "Main")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got != nil {
		t.Error("expected case-sensitive lookup to miss")
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "main", "hash", model.RoleMaintenance)
	if _, err := CreateUser(ctx, database, "main", "hash2", model.RoleLogistics); err == nil {
		t.Error("expected error for duplicate username")
	}
}

func TestCreateUserInvalidRole(t *testing.T) {
	database := db.NewTestDB(t)

	// The role CHECK constraint rejects unknown roles at the schema level.
	if _, err := CreateUser(context.Background(), database, "x", "hash", model.Role("ADMIN")); err == nil {
		t.Error("expected error for unknown role")
	}
}
