package hashindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mediasort/internal/database"
	"mediasort/internal/failure"
	"mediasort/internal/logging"
	"mediasort/internal/mediatype"
)

// Options configures an Index.
type Options struct {
	Algorithm  string
	BufferSize int
	// Media decides which files a scope scan hashes.
	Media mediatype.Set
	// ScanWorkers bounds concurrent hashing during a scope scan.
	ScanWorkers int
	Logger      *slog.Logger
}

// Record is one stored index row.
type Record struct {
	Path      string
	Size      int64
	ModTime   time.Time
	Hash      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Index is the persistent path -> (size, mtime, hash) map plus the hash -> paths
// lookup. One Index serves one migration run; scope scan bookkeeping and the
// in-memory memo live as long as the value does.
type Index struct {
	db     *sql.DB
	hasher *Hasher
	media  mediatype.Set
	logger *slog.Logger

	scanWorkers int
	group       singleflight.Group

	mu      sync.Mutex
	memo    map[string]string
	fresh   map[string]string
	scanned map[string]struct{}
	ignored []string
	hide    func(path string) bool
}

// New returns an Index backed by db.
func New(db *database.DB, opts Options) (*Index, error) {
	hasher, err := NewHasher(opts.Algorithm, opts.BufferSize)
	if err != nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "hash index", "", err)
	}
	workers := opts.ScanWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Index{
		db:          db.SQL(),
		hasher:      hasher,
		media:       opts.Media,
		logger:      logging.NewComponentLogger(opts.Logger, "hashindex"),
		scanWorkers: workers,
		memo:        make(map[string]string),
		fresh:       make(map[string]string),
		scanned:     make(map[string]struct{}),
	}, nil
}

// Algorithm returns the digest name prefixed to every hash this Index produces.
func (idx *Index) Algorithm() string {
	return idx.hasher.Algorithm()
}

// IgnoreTree hides root and everything below it from FindByHash and scope
// scans. A migration whose source lives inside its destination uses it so
// that unmigrated source files are never mistaken for placed copies.
func (idx *Index) IgnoreTree(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.ignored = append(idx.ignored, abs)
}

func (idx *Index) isIgnored(path string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, root := range idx.ignored {
		if path == root || strings.HasPrefix(path, withSeparator(root)) {
			return true
		}
	}
	return false
}

// HideCandidates makes FindByHash pass over every path for which hide returns
// true. The rows stay indexed so their hashes are still reused.
func (idx *Index) HideCandidates(hide func(path string) bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.hide = hide
}

// eligible reports whether a stored path may stand as a placed copy. Sources
// already renamed as duplicates never qualify.
func (idx *Index) eligible(path, exclude string) bool {
	if path == exclude || mediatype.IsDuplicateMarked(path) || idx.isIgnored(path) {
		return false
	}
	idx.mu.Lock()
	hide := idx.hide
	idx.mu.Unlock()
	return hide == nil || !hide(path)
}

// CacheKey identifies a file version: the same path with a different size or
// mtime yields a different key.
func CacheKey(path string, size int64, modTime time.Time) string {
	return path + ":" + strconv.FormatInt(size, 10) + ":" + strconv.FormatInt(modTime.UnixNano(), 10)
}

// GetHash returns the digest of the file at path, reusing the memo or the
// stored row while size and mtime are unchanged. Concurrent calls for the same
// file share one computation.
func (idx *Index) GetHash(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", failure.Wrap(failure.ErrHash, "hash", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", failure.Wrap(failure.ErrHash, "hash", "stat "+abs, err)
	}
	if !info.Mode().IsRegular() {
		return "", failure.Wrap(failure.ErrHash, "hash", abs+" is not a regular file", nil)
	}

	key := CacheKey(abs, info.Size(), info.ModTime())
	if hash, ok := idx.memoLookup(key); ok {
		return hash, nil
	}

	value, err, _ := idx.group.Do(key, func() (any, error) {
		return idx.resolve(ctx, abs, key, info)
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (idx *Index) resolve(ctx context.Context, abs, key string, info fs.FileInfo) (string, error) {
	if hash, ok := idx.memoLookup(key); ok {
		return hash, nil
	}

	record, found, err := idx.Get(ctx, abs)
	if err != nil {
		return "", err
	}
	if found && record.Size == info.Size() && record.ModTime.Equal(info.ModTime()) && idx.hasher.Owns(record.Hash) {
		idx.remember(key, record.Hash, false)
		return record.Hash, nil
	}

	started := time.Now()
	hash, err := idx.hasher.HashFile(ctx, abs)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", failure.Wrap(failure.ErrHash, "hash", "read "+abs, err)
	}
	if err := idx.upsert(ctx, abs, info.Size(), info.ModTime(), hash); err != nil {
		return "", err
	}
	idx.remember(key, hash, true)
	idx.logger.Debug("file hashed",
		logging.String(logging.FieldPath, abs),
		logging.Int64("size", info.Size()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return hash, nil
}

// Get returns the stored row for path.
func (idx *Index) Get(ctx context.Context, path string) (Record, bool, error) {
	row := idx.db.QueryRowContext(ctx,
		`SELECT file_path, file_size, file_hash, last_modified, created_at, updated_at
         FROM file_hashes WHERE file_path = ?`, path)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("query hash row: %w", err)
	}
	return record, true, nil
}

func (idx *Index) upsert(ctx context.Context, path string, size int64, modTime time.Time, hash string) error {
	now := database.Timestamp(time.Now())
	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO file_hashes (file_path, file_size, file_hash, last_modified, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(file_path) DO UPDATE SET
            file_size = excluded.file_size,
            file_hash = excluded.file_hash,
            last_modified = excluded.last_modified,
            updated_at = excluded.updated_at`,
		path, size, hash, modTime.UnixNano(), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert hash row: %w", err)
	}
	return nil
}

// FindByHash returns a stored location under scope whose content digest is
// hash, skipping exclude. Rows whose file vanished or changed are dropped. On
// the first miss for scope in this run the tree is scanned and the lookup
// retried once.
func (idx *Index) FindByHash(ctx context.Context, hash, scope, exclude string) (string, bool, error) {
	scope, err := filepath.Abs(scope)
	if err != nil {
		return "", false, err
	}
	if exclude != "" {
		if exclude, err = filepath.Abs(exclude); err != nil {
			return "", false, err
		}
	}

	found, ok, err := idx.lookup(ctx, hash, scope, exclude)
	if err != nil || ok {
		return found, ok, err
	}
	if !idx.claimScope(scope) {
		return "", false, nil
	}
	if _, err := idx.Backfill(ctx, scope); err != nil {
		return "", false, err
	}
	return idx.lookup(ctx, hash, scope, exclude)
}

func (idx *Index) lookup(ctx context.Context, hash, scope, exclude string) (string, bool, error) {
	prefix := withSeparator(scope)
	rows, err := idx.db.QueryContext(ctx,
		`SELECT file_path, file_size, file_hash, last_modified, created_at, updated_at
         FROM file_hashes
         WHERE file_hash = ? AND substr(file_path, 1, length(?)) = ?
         ORDER BY file_path`,
		hash, prefix, prefix,
	)
	if err != nil {
		return "", false, fmt.Errorf("query hash candidates: %w", err)
	}
	var candidates []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return "", false, fmt.Errorf("scan hash candidate: %w", err)
		}
		candidates = append(candidates, record)
	}
	if err := rows.Close(); err != nil {
		return "", false, err
	}
	if err := rows.Err(); err != nil {
		return "", false, err
	}

	for _, candidate := range candidates {
		if !idx.eligible(candidate.Path, exclude) {
			continue
		}
		info, err := os.Stat(candidate.Path)
		if err == nil && info.Mode().IsRegular() && info.Size() == candidate.Size && info.ModTime().Equal(candidate.ModTime) {
			return candidate.Path, true, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			idx.logger.Debug("candidate stat failed", logging.String(logging.FieldPath, candidate.Path), logging.Error(err))
			continue
		}
		if err := idx.Remove(ctx, candidate.Path); err != nil {
			return "", false, err
		}
	}
	return "", false, nil
}

// claimScope marks scope as scanned for this run. It returns false when scope
// or one of its ancestors was already scanned.
func (idx *Index) claimScope(scope string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for dir := scope; ; {
		if _, ok := idx.scanned[dir]; ok {
			return false
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	idx.scanned[scope] = struct{}{}
	return true
}

// Remove deletes the row for path.
func (idx *Index) Remove(ctx context.Context, path string) error {
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM file_hashes WHERE file_path = ?`, path); err != nil {
		return fmt.Errorf("delete hash row: %w", err)
	}
	return nil
}

// Relocate moves the row for from to to after a rename, so the index stays
// coherent without rehashing. A missing row is not an error.
func (idx *Index) Relocate(ctx context.Context, from, to string) error {
	from, err := filepath.Abs(from)
	if err != nil {
		return err
	}
	to, err = filepath.Abs(to)
	if err != nil {
		return err
	}
	record, found, err := idx.Get(ctx, from)
	if err != nil || !found {
		return err
	}
	info, err := os.Stat(to)
	if err != nil {
		return idx.Remove(ctx, from)
	}
	if info.Size() != record.Size {
		return idx.Remove(ctx, from)
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin relocate tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM file_hashes WHERE file_path = ?`, to); err != nil {
		return fmt.Errorf("clear relocate target: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE file_hashes SET file_path = ?, last_modified = ?, updated_at = ? WHERE file_path = ?`,
		to, info.ModTime().UnixNano(), database.Timestamp(time.Now()), from,
	); err != nil {
		return fmt.Errorf("relocate hash row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit relocate: %w", err)
	}
	idx.remember(CacheKey(to, info.Size(), info.ModTime()), record.Hash, true)
	return nil
}

// Reconcile removes rows whose file no longer exists and returns how many
// were dropped.
func (idx *Index) Reconcile(ctx context.Context) (int, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT file_path FROM file_hashes ORDER BY file_path`)
	if err != nil {
		return 0, fmt.Errorf("list hash rows: %w", err)
	}
	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan hash row: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, err := os.Lstat(path); err == nil || !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := idx.Remove(ctx, path); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		idx.logger.Info("orphaned index rows removed", logging.Int("removed", removed), logging.Int("scanned", len(paths)))
	}
	return removed, nil
}

// Snapshot returns a copy of the in-memory memo (cache key -> hash).
func (idx *Index) Snapshot() map[string]string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return maps.Clone(idx.memo)
}

// Preload seeds the memo from a checkpoint. Preloaded entries are not
// reported by DrainFresh. Entries from another algorithm are ignored.
func (idx *Index) Preload(entries map[string]string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for key, hash := range entries {
		if idx.hasher.Owns(hash) {
			idx.memo[key] = hash
		}
	}
}

// DrainFresh returns memo entries added since the previous call.
func (idx *Index) DrainFresh() map[string]string {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := idx.fresh
	idx.fresh = make(map[string]string)
	return out
}

func (idx *Index) memoLookup(key string) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	hash, ok := idx.memo[key]
	return hash, ok
}

func (idx *Index) remember(key, hash string, fresh bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.memo[key] = hash
	if fresh {
		idx.fresh[key] = hash
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (Record, error) {
	var (
		record    Record
		modNanos  int64
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&record.Path, &record.Size, &record.Hash, &modNanos, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}
	record.ModTime = time.Unix(0, modNanos)
	record.CreatedAt, _ = database.ParseTimestamp(createdAt)
	record.UpdatedAt, _ = database.ParseTimestamp(updatedAt)
	return record, nil
}

func withSeparator(dir string) string {
	if len(dir) > 0 && os.IsPathSeparator(dir[len(dir)-1]) {
		return dir
	}
	return dir + string(os.PathSeparator)
}
