package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediasort/internal/database"
)

// Store persists sessions for one (source, destination) pair.
type Store struct {
	db          *sql.DB
	source      string
	destination string
}

// Summary describes a stored checkpoint for listing.
type Summary struct {
	RunID       string
	Source      string
	Destination string
	Processed   int
	Moved       int
	Skipped     int
	Errors      int
	Duplicates  int
	UpdatedAt   time.Time
}

// New returns a Store scoped to the given pair of absolute roots.
func New(db *database.DB, source, destination string) *Store {
	return &Store{db: db.SQL(), source: source, destination: destination}
}

// Load returns the stored session for the pair, or false when there is none.
func (s *Store) Load(ctx context.Context) (*Session, bool, error) {
	session := NewSession(s.source, s.destination)
	var createdAt string
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, moved, skipped, errors, duplicates, created_at
         FROM checkpoints WHERE source_root = ? AND dest_root = ?`,
		s.source, s.destination)
	err := row.Scan(&session.RunID, &session.Moved, &session.Skipped, &session.Errors, &session.Duplicates, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load checkpoint: %w", err)
	}
	if ts, err := database.ParseTimestamp(createdAt); err == nil {
		session.CreatedAt = ts
	}

	if err := s.loadProcessed(ctx, session); err != nil {
		return nil, false, err
	}
	if err := s.loadDuplicates(ctx, session); err != nil {
		return nil, false, err
	}
	if err := s.loadHashes(ctx, session); err != nil {
		return nil, false, err
	}
	session.persisted = true
	session.savedDuplicates = len(session.DuplicateList)
	return session, true, nil
}

func (s *Store) loadProcessed(ctx context.Context, session *Session) error {
	rows, err := s.db.QueryContext(ctx, `SELECT path, outcome FROM checkpoint_processed WHERE run_id = ?`, session.RunID)
	if err != nil {
		return fmt.Errorf("load processed paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var path, outcome string
		if err := rows.Scan(&path, &outcome); err != nil {
			return fmt.Errorf("scan processed path: %w", err)
		}
		session.processed[path] = Outcome(outcome)
	}
	return rows.Err()
}

func (s *Store) loadDuplicates(ctx context.Context, session *Session) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM checkpoint_duplicates WHERE run_id = ? ORDER BY seq`, session.RunID)
	if err != nil {
		return fmt.Errorf("load duplicate list: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan duplicate name: %w", err)
		}
		session.DuplicateList = append(session.DuplicateList, name)
	}
	return rows.Err()
}

func (s *Store) loadHashes(ctx context.Context, session *Session) error {
	rows, err := s.db.QueryContext(ctx, `SELECT cache_key, hash FROM checkpoint_hashes WHERE run_id = ?`, session.RunID)
	if err != nil {
		return fmt.Errorf("load hash snapshot: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, hash string
		if err := rows.Scan(&key, &hash); err != nil {
			return fmt.Errorf("scan hash snapshot: %w", err)
		}
		session.Hashes[key] = hash
	}
	return rows.Err()
}

// Save writes everything recorded since the previous Save in one transaction.
// The first Save of a session creates the checkpoint, replacing any stale one
// for the same pair.
func (s *Store) Save(ctx context.Context, session *Session) error {
	if !session.dirty() {
		return nil
	}
	now := database.Timestamp(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if !session.persisted {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM checkpoints WHERE source_root = ? AND dest_root = ? AND run_id <> ?`,
			s.source, s.destination, session.RunID); err != nil {
			return fmt.Errorf("replace stale checkpoint: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO checkpoints (run_id, source_root, dest_root, moved, skipped, errors, duplicates, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id) DO UPDATE SET
            moved = excluded.moved,
            skipped = excluded.skipped,
            errors = excluded.errors,
            duplicates = excluded.duplicates,
            updated_at = excluded.updated_at`,
		session.RunID, s.source, s.destination,
		session.Moved, session.Skipped, session.Errors, session.Duplicates,
		database.Timestamp(session.CreatedAt), now,
	); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}

	for _, path := range session.pendingProcessed {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO checkpoint_processed (run_id, path, outcome) VALUES (?, ?, ?)`,
			session.RunID, path, string(session.processed[path])); err != nil {
			return fmt.Errorf("record processed path: %w", err)
		}
	}
	for seq := session.savedDuplicates; seq < len(session.DuplicateList); seq++ {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO checkpoint_duplicates (run_id, seq, name) VALUES (?, ?, ?)`,
			session.RunID, seq, session.DuplicateList[seq]); err != nil {
			return fmt.Errorf("record duplicate: %w", err)
		}
	}
	for key, hash := range session.pendingHashes {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO checkpoint_hashes (run_id, cache_key, hash) VALUES (?, ?, ?)`,
			session.RunID, key, hash); err != nil {
			return fmt.Errorf("record hash snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}

	session.persisted = true
	session.pendingProcessed = session.pendingProcessed[:0]
	session.savedDuplicates = len(session.DuplicateList)
	for key, hash := range session.pendingHashes {
		session.Hashes[key] = hash
	}
	clear(session.pendingHashes)
	return nil
}

// Clear deletes the checkpoint of session. Clearing a never-saved session is a no-op.
func (s *Store) Clear(ctx context.Context, session *Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range []string{
		`DELETE FROM checkpoint_processed WHERE run_id = ?`,
		`DELETE FROM checkpoint_duplicates WHERE run_id = ?`,
		`DELETE FROM checkpoint_hashes WHERE run_id = ?`,
		`DELETE FROM checkpoints WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, session.RunID); err != nil {
			return fmt.Errorf("clear checkpoint: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	session.persisted = false
	return nil
}

// Discard removes any checkpoint for the pair without loading it.
func (s *Store) Discard(ctx context.Context) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE source_root = ? AND dest_root = ?`, s.source, s.destination)
	if err != nil {
		return false, fmt.Errorf("discard checkpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every stored checkpoint, most recently updated first.
func List(ctx context.Context, db *database.DB) ([]Summary, error) {
	rows, err := db.SQL().QueryContext(ctx,
		`SELECT c.run_id, c.source_root, c.dest_root, c.moved, c.skipped, c.errors, c.duplicates, c.updated_at,
                (SELECT COUNT(*) FROM checkpoint_processed p WHERE p.run_id = c.run_id)
         FROM checkpoints c ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var updatedAt string
		if err := rows.Scan(&sum.RunID, &sum.Source, &sum.Destination, &sum.Moved, &sum.Skipped,
			&sum.Errors, &sum.Duplicates, &updatedAt, &sum.Processed); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		sum.UpdatedAt, _ = database.ParseTimestamp(updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}
