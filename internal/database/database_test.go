package database_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediasort/internal/database"
	"mediasort/internal/failure"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "state", "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	for i := 0; i < 2; i++ {
		db, err := database.Open(ctx, path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		var count int
		if err := db.SQL().QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("count migrations: %v", err)
		}
		if count != 2 {
			t.Fatalf("expected 2 recorded migrations, got %d", count)
		}
		_ = db.Close()
	}
}

func TestVerifyHealthyDatabase(t *testing.T) {
	db := openTestDB(t)
	health, err := db.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !health.Healthy() || !health.IntegrityOK {
		t.Fatalf("expected healthy database, got %+v", health)
	}
	if err := db.QuickCheck(context.Background()); err != nil {
		t.Fatalf("QuickCheck: %v", err)
	}
}

func TestVerifyReportsMissingTable(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.SQL().ExecContext(ctx, "DROP TABLE checkpoint_hashes"); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	health, err := db.Verify(ctx)
	if !errors.Is(err, failure.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
	if len(health.MissingTables) != 1 || health.MissingTables[0] != "checkpoint_hashes" {
		t.Fatalf("unexpected missing tables %v", health.MissingTables)
	}
}

func TestBackupAndVacuum(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.SQL().ExecContext(ctx,
		`INSERT INTO file_hashes (file_path, file_size, file_hash, last_modified, created_at, updated_at)
         VALUES ('/x.jpg', 1, 'sha256:aa', 0, '', '')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	target := filepath.Join(t.TempDir(), "backup.db")
	if err := db.Backup(ctx, target); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := db.Backup(ctx, target); err == nil {
		t.Fatal("expected error when backup target exists")
	}

	copyDB, err := database.Open(ctx, target)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer copyDB.Close()
	var count int
	if err := copyDB.SQL().QueryRowContext(ctx, "SELECT COUNT(*) FROM file_hashes").Scan(&count); err != nil {
		t.Fatalf("count backup rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row in backup, got %d", count)
	}

	if _, _, err := db.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
}

func TestCheckHealthMissingFile(t *testing.T) {
	db := openTestDB(t)
	if err := os.Remove(db.Path()); err != nil {
		t.Fatalf("remove: %v", err)
	}
	health, err := db.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if health.Exists || health.Healthy() {
		t.Fatalf("expected missing database, got %+v", health)
	}
}

func TestSchemaStepsRecordApplyTime(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	before := time.Now().Add(-time.Second)

	db, err := database.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	steps, err := db.SchemaSteps(ctx)
	if err != nil {
		t.Fatalf("SchemaSteps: %v", err)
	}
	_ = db.Close()
	if len(steps) != 2 || steps[0].Version != "001_file_hashes" || steps[1].Version != "002_checkpoints" {
		t.Fatalf("unexpected steps %+v", steps)
	}
	for _, step := range steps {
		if !step.Applied || step.AppliedAt.Before(before) {
			t.Fatalf("step %s: applied=%v at %v", step.Version, step.Applied, step.AppliedAt)
		}
	}

	reopened, err := database.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	again, err := reopened.SchemaSteps(ctx)
	if err != nil {
		t.Fatalf("SchemaSteps: %v", err)
	}
	if !again[0].AppliedAt.Equal(steps[0].AppliedAt) {
		t.Fatalf("reopen changed applied time: got %v want %v", again[0].AppliedAt, steps[0].AppliedAt)
	}
}

func TestVerifyReportsPendingSchemaStep(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if _, err := db.SQL().ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = '002_checkpoints'"); err != nil {
		t.Fatalf("delete ledger row: %v", err)
	}
	health, err := db.Verify(ctx)
	if !errors.Is(err, failure.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
	if pending := health.PendingSchema(); len(pending) != 1 || pending[0] != "002_checkpoints" {
		t.Fatalf("pending schema: got %v", pending)
	}
}

func TestOpenUpgradesLedgerWithoutApplyTimes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		"CREATE TABLE schema_migrations (version TEXT PRIMARY KEY)",
		"INSERT INTO schema_migrations (version) VALUES ('001_file_hashes')",
	} {
		if _, err := legacy.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	_ = legacy.Close()

	db, err := database.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	steps, err := db.SchemaSteps(ctx)
	if err != nil {
		t.Fatalf("SchemaSteps: %v", err)
	}
	if !steps[0].Applied || !steps[0].AppliedAt.IsZero() {
		t.Fatalf("legacy step should be applied with unknown time: %+v", steps[0])
	}
	if !steps[1].Applied || steps[1].AppliedAt.IsZero() {
		t.Fatalf("new step should carry an apply time: %+v", steps[1])
	}
}
