package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"mediasort/internal/failure"
)

// expectedColumns lists the columns each table must carry for the current schema.
var expectedColumns = map[string][]string{
	"file_hashes":           {"id", "file_path", "file_size", "file_hash", "last_modified", "created_at", "updated_at"},
	"checkpoints":           {"run_id", "source_root", "dest_root", "moved", "skipped", "errors", "duplicates", "created_at", "updated_at"},
	"checkpoint_processed":  {"run_id", "path", "outcome"},
	"checkpoint_duplicates": {"run_id", "seq", "name"},
	"checkpoint_hashes":     {"run_id", "cache_key", "hash"},
}

// Health describes the state of the database file for `mediasort index verify`.
type Health struct {
	Path           string
	Exists         bool
	Readable       bool
	SizeBytes      int64
	MissingTables  []string
	MissingColumns []string
	IntegrityOK    bool
	// IntegrityDetail holds the first integrity_check message when not ok.
	IntegrityDetail string
	HashEntries     int
	Checkpoints     int
	// Schema lists the embedded schema steps and when each was applied.
	Schema []SchemaStep
}

// PendingSchema returns the versions of schema steps not yet applied.
func (h Health) PendingSchema() []string {
	var pending []string
	for _, step := range h.Schema {
		if !step.Applied {
			pending = append(pending, step.Version)
		}
	}
	return pending
}

// Healthy reports whether the database passed every check.
func (h Health) Healthy() bool {
	return h.Exists && h.Readable && h.IntegrityOK && len(h.MissingTables) == 0 && len(h.MissingColumns) == 0 &&
		len(h.PendingSchema()) == 0
}

// CheckHealth returns diagnostic information about the database.
func (d *DB) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Path: d.path}

	info, err := os.Stat(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("database path %q is a directory", d.path)
	}
	health.Exists = true
	health.SizeBytes = info.Size()

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := d.db.PingContext(connCtx); err != nil {
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.Readable = true

	tables := make([]string, 0, len(expectedColumns))
	for table := range expectedColumns {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		columns, err := d.tableColumns(connCtx, table)
		if err != nil {
			return health, err
		}
		if len(columns) == 0 {
			health.MissingTables = append(health.MissingTables, table)
			continue
		}
		for _, col := range expectedColumns[table] {
			if !slices.Contains(columns, col) {
				health.MissingColumns = append(health.MissingColumns, table+"."+col)
			}
		}
	}

	if health.Schema, err = d.SchemaSteps(connCtx); err != nil {
		return health, err
	}

	detail, err := d.pragmaCheck(connCtx, "PRAGMA integrity_check")
	if err != nil {
		return health, err
	}
	health.IntegrityOK = detail == ""
	health.IntegrityDetail = detail

	if !slices.Contains(health.MissingTables, "file_hashes") {
		if err := d.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM file_hashes").Scan(&health.HashEntries); err != nil {
			return health, fmt.Errorf("count hash entries: %w", err)
		}
	}
	if !slices.Contains(health.MissingTables, "checkpoints") {
		if err := d.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM checkpoints").Scan(&health.Checkpoints); err != nil {
			return health, fmt.Errorf("count checkpoints: %w", err)
		}
	}
	return health, nil
}

// Verify runs the full integrity check and schema comparison, returning an
// error tagged failure.ErrIndexCorrupt when the database is damaged.
func (d *DB) Verify(ctx context.Context) (Health, error) {
	health, err := d.CheckHealth(ctx)
	if err != nil {
		return health, err
	}
	if !health.Healthy() {
		return health, failure.Wrap(failure.ErrIndexCorrupt, "verify", describe(health), nil)
	}
	return health, nil
}

// QuickCheck runs PRAGMA quick_check, the cheap variant used before every migration pass.
func (d *DB) QuickCheck(ctx context.Context) error {
	detail, err := d.pragmaCheck(ctx, "PRAGMA quick_check")
	if err != nil {
		return err
	}
	if detail != "" {
		return failure.Wrap(failure.ErrIndexCorrupt, "quick_check", detail, nil)
	}
	return nil
}

// Vacuum rebuilds the database file, reclaiming free pages. It returns the
// file size before and after.
func (d *DB) Vacuum(ctx context.Context) (int64, int64, error) {
	before := fileSize(d.path)
	if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
		return 0, 0, fmt.Errorf("vacuum: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return 0, 0, fmt.Errorf("wal checkpoint: %w", err)
	}
	return before, fileSize(d.path), nil
}

// Backup writes a consistent, compacted copy of the database to target.
// The target must not exist.
func (d *DB) Backup(ctx context.Context, target string) error {
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("backup target %q already exists", target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat backup target: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, "VACUUM INTO ?", target); err != nil {
		return fmt.Errorf("backup database: %w", err)
	}
	return nil
}

func (d *DB) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// pragmaCheck runs integrity_check or quick_check and returns "" when the
// database is ok, otherwise the first reported problem.
func (d *DB) pragmaCheck(ctx context.Context, pragma string) (string, error) {
	rows, err := d.db.QueryContext(ctx, pragma)
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.ToLower(pragma), err)
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return "", fmt.Errorf("scan %s: %w", strings.ToLower(pragma), err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(messages) == 1 && strings.EqualFold(messages[0], "ok") {
		return "", nil
	}
	if len(messages) == 0 {
		return "no result", nil
	}
	return messages[0], nil
}

func describe(h Health) string {
	switch {
	case !h.Exists:
		return "database file missing"
	case !h.IntegrityOK:
		return "integrity check failed: " + h.IntegrityDetail
	case len(h.MissingTables) > 0:
		return "missing tables: " + strings.Join(h.MissingTables, ", ")
	case len(h.MissingColumns) > 0:
		return "missing columns: " + strings.Join(h.MissingColumns, ", ")
	case len(h.PendingSchema()) > 0:
		return "schema steps not applied: " + strings.Join(h.PendingSchema(), ", ")
	default:
		return "database unreadable"
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
