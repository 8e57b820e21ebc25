package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var schemaFiles embed.FS

// SchemaStep is one embedded schema file and whether it reached this
// database. AppliedAt is zero for pending steps and for steps recorded
// before applied times were kept.
type SchemaStep struct {
	Version   string
	Applied   bool
	AppliedAt time.Time
	script    string
}

// embeddedSteps returns the schema files ordered by their numeric prefix.
func embeddedSteps() ([]SchemaStep, error) {
	// fs.Glob returns names in lexical order, which the zero-padded prefixes rely on.
	files, err := fs.Glob(schemaFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list schema files: %w", err)
	}
	steps := make([]SchemaStep, 0, len(files))
	for _, file := range files {
		script, err := schemaFiles.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read schema file %s: %w", file, err)
		}
		steps = append(steps, SchemaStep{
			Version: strings.TrimSuffix(path.Base(file), ".sql"),
			script:  string(script),
		})
	}
	return steps, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ensureLedger creates schema_migrations. Ledgers written before applied_at
// existed gain the column with an empty value.
func ensureLedger(ctx context.Context, q queryer) error {
	if _, err := q.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
            version TEXT PRIMARY KEY,
            applied_at TEXT NOT NULL DEFAULT ''
        )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := q.QueryContext(ctx, "SELECT 1 FROM pragma_table_info('schema_migrations') WHERE name = 'applied_at'")
	if err != nil {
		return fmt.Errorf("inspect schema_migrations: %w", err)
	}
	hasColumn := rows.Next()
	if err := rows.Close(); err != nil {
		return err
	}
	if hasColumn {
		return nil
	}
	if _, err := q.ExecContext(ctx, "ALTER TABLE schema_migrations ADD COLUMN applied_at TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("add applied_at: %w", err)
	}
	return nil
}

// appliedAt maps each recorded version to its applied time. Rows recorded
// without a time map to the zero time but still count as applied.
func appliedAt(ctx context.Context, q queryer) (map[string]time.Time, error) {
	rows, err := q.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	ledger := make(map[string]time.Time)
	for rows.Next() {
		var version, stamp string
		if err := rows.Scan(&version, &stamp); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		var when time.Time
		if stamp != "" {
			if when, err = ParseTimestamp(stamp); err != nil {
				return nil, fmt.Errorf("schema step %s: %w", version, err)
			}
		}
		ledger[version] = when
	}
	return ledger, rows.Err()
}

// migrate applies every pending schema step in one transaction.
func (d *DB) migrate(ctx context.Context) error {
	steps, err := embeddedSteps()
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := ensureLedger(ctx, tx); err != nil {
		return err
	}
	ledger, err := appliedAt(ctx, tx)
	if err != nil {
		return err
	}
	now := Timestamp(time.Now())
	for _, step := range steps {
		if _, done := ledger[step.Version]; done {
			continue
		}
		if _, err := tx.ExecContext(ctx, step.script); err != nil {
			return fmt.Errorf("apply schema step %s: %w", step.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", step.Version, now); err != nil {
			return fmt.Errorf("record schema step %s: %w", step.Version, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// SchemaSteps lists every embedded schema step with the time this database
// recorded it. A step missing from the ledger is returned as pending.
func (d *DB) SchemaSteps(ctx context.Context) ([]SchemaStep, error) {
	steps, err := embeddedSteps()
	if err != nil {
		return nil, err
	}
	ledger, err := appliedAt(ctx, d.db)
	if err != nil {
		return nil, err
	}
	for i := range steps {
		steps[i].AppliedAt, steps[i].Applied = ledger[steps[i].Version]
	}
	return steps, nil
}
