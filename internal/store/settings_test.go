package store

import (
	"context"
	"testing"

	"github.com/ateliergpr/gpr/internal/db"
)

func TestGetSessionSecretStable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := GetSessionSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetSessionSecret: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(first))
	}

	second, err := GetSessionSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetSessionSecret: %v", err)
	}
	if first != second {
		t.Error("expected the stored secret to be returned on later calls")
	}
}
