package testsupport

import (
	"context"
	"testing"

	"mediasort/internal/config"
	"mediasort/internal/database"
)

// MustOpenDB opens the index database named by cfg and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), cfg.IndexPath())
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
