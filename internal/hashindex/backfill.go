package hashindex

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mediasort/internal/logging"
)

// Backfill hashes every candidate file under scope (supported and not marked
// as a duplicate), recording rows for files the index has not seen yet. Files
// already indexed at their current size and mtime cost one stat. Unreadable
// files are logged and skipped. It returns the number of files visited.
func (idx *Index) Backfill(ctx context.Context, scope string) (int, error) {
	started := time.Now()
	var visited atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(idx.scanWorkers)

	walkErr := filepath.WalkDir(scope, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == scope {
				return filepath.SkipAll
			}
			idx.logger.Debug("scope walk error", logging.String(logging.FieldPath, path), logging.Error(err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if groupCtx.Err() != nil {
			return groupCtx.Err()
		}
		if entry.IsDir() {
			if path != scope && (strings.HasPrefix(entry.Name(), ".") || idx.isIgnored(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || !idx.media.Candidate(entry.Name()) {
			return nil
		}
		group.Go(func() error {
			visited.Add(1)
			if _, err := idx.GetHash(groupCtx, path); err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				idx.logger.Debug("scope scan skipped file", logging.String(logging.FieldPath, path), logging.Error(err))
			}
			return nil
		})
		return nil
	})
	groupErr := group.Wait()
	if walkErr != nil {
		return int(visited.Load()), walkErr
	}
	if groupErr != nil {
		return int(visited.Load()), groupErr
	}

	idx.logger.Debug("scope scanned",
		logging.String("scope", scope),
		logging.Int64("files", visited.Load()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return int(visited.Load()), nil
}
