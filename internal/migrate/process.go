package migrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mediasort/internal/checkpoint"
	"mediasort/internal/classify"
	"mediasort/internal/exiftool"
	"mediasort/internal/logging"
	"mediasort/internal/mover"
	"mediasort/internal/resolver"
)

// process decides and applies the outcome for one file. A non-nil error means
// the pass was cancelled before the file reached a terminal state.
func (m *Migrator) process(ctx context.Context, r *run, path string) (FileResult, error) {
	result := FileResult{Path: path}
	errored := func(reason string, err error) (FileResult, error) {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Outcome = checkpoint.OutcomeErrored
		result.Reason = reason
		result.Err = err
		return result, nil
	}

	class := m.classifyFile(ctx, r, path)
	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	if !class.OK {
		result.Outcome = checkpoint.OutcomeSkipped
		result.Reason = "no date found"
		return result, nil
	}
	result.Classification = class.String()

	name := filepath.Base(path)
	destDir := filepath.Join(r.destination, filepath.FromSlash(class.Dir()))
	intended := filepath.Join(destDir, name)

	inPlace, err := mover.IsAlreadyInPlace(path, intended)
	if err != nil {
		return errored("compare with destination", err)
	}
	if inPlace {
		result.Outcome = checkpoint.OutcomeSkipped
		result.Reason = "already in place"
		return result, nil
	}

	hash, err := r.index.GetHash(ctx, path)
	if err != nil {
		return errored("hash source", err)
	}
	decision, err := r.resolver.Resolve(ctx, path, hash, intended)
	if err != nil {
		return errored("resolve destination", err)
	}

	switch decision.Kind {
	case resolver.Identical:
		placed, err := r.mover.PlaceAsDuplicate(path)
		if err != nil {
			return errored("mark duplicate", err)
		}
		m.relocate(ctx, r, path, placed)
		result.Outcome = checkpoint.OutcomeDuplicated
		result.Destination = placed
		result.DuplicateOf = decision.At
	default:
		placed, err := r.mover.PlaceAtDestination(path, destDir, name)
		if err != nil {
			return errored("move", err)
		}
		m.relocate(ctx, r, path, placed)
		result.Outcome = checkpoint.OutcomeMoved
		result.Destination = placed
		if decision.Kind == resolver.NameConflict {
			result.Reason = fmt.Sprintf("name taken by %s", filepath.Base(decision.At))
		}
	}
	return result, nil
}

// classifyFile tries the filename, then metadata, then the modification time.
func (m *Migrator) classifyFile(ctx context.Context, r *run, path string) classify.Result {
	if result := m.classifier.Classify(filepath.Base(path)); result.OK {
		return result
	}
	if !r.metadataOff {
		taken, err := m.metadata.Date(ctx, path)
		switch {
		case err == nil:
			if result := m.classifier.FromTime(taken, classify.SourceExif); result.OK {
				return result
			}
		case errors.Is(err, exiftool.ErrUnavailable):
			logging.WarnWithContext(r.logger, "metadata reader unavailable", "metadata_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "install exiftool or set migrate.use_metadata = false"),
				logging.String(logging.FieldImpact, "files without a dated name fall back to modification time"),
			)
			r.metadataOff = true
		case errors.Is(err, exiftool.ErrNoDate):
		default:
			r.logger.Debug("metadata read failed", logging.String(logging.FieldPath, path), logging.Error(err))
		}
	}
	if m.opts.MtimeFallback {
		if info, err := os.Stat(path); err == nil {
			return m.classifier.FromTime(info.ModTime(), classify.SourceMtime)
		}
	}
	return classify.Result{}
}

// relocate moves the index row along with the file. Dry runs leave the index
// describing the real filesystem.
func (m *Migrator) relocate(ctx context.Context, r *run, from, to string) {
	if m.opts.DryRun {
		return
	}
	if err := r.index.Relocate(context.WithoutCancel(ctx), from, to); err != nil {
		logging.WarnWithContext(r.logger, "index relocate failed", "index_relocate_failed",
			logging.String(logging.FieldPath, from),
			logging.String(logging.FieldDestination, to),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run mediasort index cleanup"),
			logging.String(logging.FieldImpact, "the file is rehashed on next lookup"),
		)
	}
}
