package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediasort/internal/checkpoint"
	"mediasort/internal/classify"
	"mediasort/internal/database"
	"mediasort/internal/failure"
	"mediasort/internal/hashindex"
	"mediasort/internal/logging"
	"mediasort/internal/mediatype"
	"mediasort/internal/mover"
	"mediasort/internal/resolver"
)

// Migrator runs migration passes against one index database.
type Migrator struct {
	db         *database.DB
	classifier *classify.Classifier
	opts       Options
	metadata   MetadataReader
	observer   Observer
	logger     *slog.Logger
}

// New validates opts and returns a Migrator.
func New(db *database.DB, classifier *classify.Classifier, opts Options, setters ...Option) (*Migrator, error) {
	if db == nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "migrate", "index database is required", nil)
	}
	if classifier == nil {
		return nil, failure.Wrap(failure.ErrConfiguration, "migrate", "classifier is required", nil)
	}
	if strings.TrimSpace(opts.Source) == "" || strings.TrimSpace(opts.Destination) == "" {
		return nil, failure.Wrap(failure.ErrConfiguration, "migrate", "source and destination are required", nil)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Media.Empty() {
		opts.Media = mediatype.NewSet()
	}
	m := &Migrator{
		db:         db,
		classifier: classifier,
		opts:       opts,
		observer:   NopObserver{},
		logger:     logging.NewNop(),
	}
	for _, set := range setters {
		set(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "migrate")
	return m, nil
}

// run carries the per-pass collaborators.
type run struct {
	source      string
	destination string
	index       *hashindex.Index
	resolver    *resolver.Resolver
	mover       *mover.Mover
	store       *checkpoint.Store
	session     *checkpoint.Session
	logger      *slog.Logger
	metadataOff bool
}

// Run executes one pass. An interrupted pass flushes its checkpoint and
// returns an error matching failure.ErrInterrupted alongside a partial report.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	report := Report{DryRun: m.opts.DryRun}

	source, destination, err := m.resolveRoots()
	if err != nil {
		return report, err
	}
	report.Source, report.Destination = source, destination

	lock, err := acquireLock(m.opts.LockDir, destination)
	if err != nil {
		return report, err
	}
	if lock != nil {
		defer func() { _ = lock.Unlock() }()
	}

	if err := m.db.QuickCheck(ctx); err != nil {
		return report, err
	}

	r, err := m.prepare(ctx, source, destination)
	if err != nil {
		return report, err
	}
	report.RunID = r.session.RunID
	report.Resumed = r.session.Resumed()

	skip := ""
	if destination != source && within(destination, source) {
		skip = destination
	}
	candidates, err := enumerate(ctx, source, skip, m.opts.Media)
	if err != nil {
		if ctx.Err() != nil {
			return report, failure.Wrap(failure.ErrInterrupted, "migrate", "enumerate source", ctx.Err())
		}
		return report, failure.Wrap(failure.ErrConfiguration, "migrate", "enumerate source", err)
	}
	report.Candidates = len(candidates)
	if source == destination {
		r.index.HideCandidates(unsettled(destination, candidates))
	}

	pending := make([]string, 0, len(candidates))
	for _, path := range candidates {
		if !r.session.IsProcessed(path) {
			pending = append(pending, path)
		}
	}
	already := len(candidates) - len(pending)

	r.logger.Info("migration started",
		logging.String(logging.FieldEventType, "migration_started"),
		logging.String("source", source),
		logging.String(logging.FieldDestination, destination),
		logging.Int("candidates", len(candidates)),
		logging.Int("already_processed", already),
		logging.Bool("resumed", report.Resumed),
		logging.Bool("dry_run", m.opts.DryRun),
	)
	m.observer.Started(r.session.RunID, len(candidates), already, report.Resumed)

	var ahead *prefetcher
	if m.opts.Workers > 1 && len(pending) > 1 {
		ahead = startPrefetch(ctx, pending, m.opts.Workers, r.index.GetHash)
	}
	defer ahead.stop()

	interrupted := false
	for i, path := range pending {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		ahead.advance(i)
		result, err := m.process(ctx, r, path)
		if err != nil {
			// Cancelled mid-file: leave it unprocessed so the next pass redoes it.
			interrupted = true
			break
		}
		result.Position = already + i + 1
		result.Total = len(candidates)
		if err := m.record(ctx, r, result); err != nil {
			m.fill(&report, r.session, started)
			return report, err
		}
		m.observer.FileDone(result)
	}
	ahead.stop()

	m.fill(&report, r.session, started)
	if interrupted {
		report.Interrupted = true
		if err := m.flush(ctx, r); err != nil {
			return report, err
		}
		r.logger.Info("migration interrupted",
			logging.String(logging.FieldEventType, "migration_interrupted"),
			logging.Int("processed", r.session.Processed()),
			logging.Int("remaining", len(candidates)-r.session.Processed()),
		)
		m.observer.Finished(report)
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		return report, failure.Wrap(failure.ErrInterrupted, "migrate", "checkpoint saved", cause)
	}

	if !m.opts.DryRun {
		if err := r.store.Clear(context.WithoutCancel(ctx), r.session); err != nil {
			return report, failure.Wrap(failure.ErrIndexCorrupt, "migrate", "clear checkpoint", err)
		}
	}
	r.logger.Info("migration completed",
		logging.String(logging.FieldEventType, "migration_completed"),
		logging.Int("moved", report.Moved),
		logging.Int("duplicates", report.Duplicates),
		logging.Int("skipped", report.Skipped),
		logging.Int("errors", report.Errors),
		logging.Duration("elapsed", report.Elapsed),
	)
	m.observer.Finished(report)
	return report, nil
}

func (m *Migrator) resolveRoots() (string, string, error) {
	source, err := canonicalDir(m.opts.Source)
	if err != nil {
		return "", "", failure.Wrap(failure.ErrConfiguration, "migrate", "source", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return "", "", failure.Wrap(failure.ErrConfiguration, "migrate", "source", err)
	}
	if !info.IsDir() {
		return "", "", failure.Wrap(failure.ErrConfiguration, "migrate", fmt.Sprintf("source %s is not a directory", source), nil)
	}
	destination, err := canonicalDir(m.opts.Destination)
	if err != nil {
		return "", "", failure.Wrap(failure.ErrConfiguration, "migrate", "destination", err)
	}
	info, err = os.Stat(destination)
	if err != nil {
		return "", "", failure.Wrap(failure.ErrConfiguration, "migrate", "destination", err)
	}
	if !info.IsDir() {
		return "", "", failure.Wrap(failure.ErrConfiguration, "migrate", fmt.Sprintf("destination %s is not a directory", destination), nil)
	}
	return source, destination, nil
}

// canonicalDir returns an absolute, symlink-free path. A missing directory
// keeps its absolute form.
func canonicalDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

func (m *Migrator) prepare(ctx context.Context, source, destination string) (*run, error) {
	index, err := hashindex.New(m.db, hashindex.Options{
		Algorithm:   m.opts.HashAlgorithm,
		BufferSize:  m.opts.HashBufferSize,
		Media:       m.opts.Media,
		ScanWorkers: m.opts.Workers,
		Logger:      m.logger,
	})
	if err != nil {
		return nil, err
	}
	if source != destination && within(source, destination) {
		index.IgnoreTree(source)
	}

	store := checkpoint.New(m.db, source, destination)
	if m.opts.Restart && !m.opts.DryRun {
		discarded, err := store.Discard(ctx)
		if err != nil {
			return nil, failure.Wrap(failure.ErrIndexCorrupt, "migrate", "discard checkpoint", err)
		}
		if discarded {
			m.logger.Info("previous checkpoint discarded", logging.String(logging.FieldEventType, "checkpoint_discarded"))
		}
	}
	var session *checkpoint.Session
	if !m.opts.Restart {
		loaded, found, err := store.Load(ctx)
		if err != nil {
			return nil, failure.Wrap(failure.ErrIndexCorrupt, "migrate", "load checkpoint", err)
		}
		if found {
			session = loaded
			index.Preload(session.Hashes)
		}
	}
	if session == nil {
		session = checkpoint.NewSession(source, destination)
	}

	return &run{
		source:      source,
		destination: destination,
		index:       index,
		resolver:    resolver.New(index, destination),
		mover:       mover.New(mover.Options{DryRun: m.opts.DryRun, Logger: m.logger}),
		store:       store,
		session:     session,
		logger:      m.logger.With(logging.String(logging.FieldRunID, session.RunID)),
		metadataOff: m.metadata == nil || !m.opts.UseMetadata,
	}, nil
}

// record folds result into the session and persists it.
func (m *Migrator) record(ctx context.Context, r *run, result FileResult) error {
	r.session.MarkProcessed(result.Path, result.Outcome)
	if result.Outcome == checkpoint.OutcomeDuplicated {
		r.session.AddDuplicate(filepath.Base(result.Destination))
	}
	r.session.AddHashes(r.index.DrainFresh())
	m.logResult(r.logger, result)
	if m.opts.DryRun {
		return nil
	}
	if err := r.store.Save(context.WithoutCancel(ctx), r.session); err != nil {
		return failure.Wrap(failure.ErrIndexCorrupt, "migrate", "save checkpoint", err)
	}
	return nil
}

func (m *Migrator) flush(ctx context.Context, r *run) error {
	if m.opts.DryRun {
		return nil
	}
	r.session.AddHashes(r.index.DrainFresh())
	if err := r.store.Save(context.WithoutCancel(ctx), r.session); err != nil {
		return failure.Wrap(failure.ErrIndexCorrupt, "migrate", "save checkpoint", err)
	}
	return nil
}

func (m *Migrator) fill(report *Report, session *checkpoint.Session, started time.Time) {
	report.Moved = session.Moved
	report.Skipped = session.Skipped
	report.Errors = session.Errors
	report.Duplicates = session.Duplicates
	report.DuplicateList = append([]string(nil), session.DuplicateList...)
	report.Elapsed = time.Since(started)
}

func (m *Migrator) logResult(logger *slog.Logger, result FileResult) {
	attrs := []logging.Attr{
		logging.String(logging.FieldPath, result.Path),
		logging.String(logging.FieldOutcome, string(result.Outcome)),
	}
	if result.Destination != "" {
		attrs = append(attrs, logging.String(logging.FieldDestination, result.Destination))
	}
	if result.Classification != "" {
		attrs = append(attrs, logging.String("classification", result.Classification))
	}
	if result.Reason != "" {
		attrs = append(attrs, logging.String("reason", result.Reason))
	}
	if result.Outcome == checkpoint.OutcomeErrored {
		logging.WarnWithContext(logger, "file not migrated", "file_errored",
			append(attrs,
				logging.Error(result.Err),
				logging.String(logging.FieldErrorHint, "fix the cause and rerun with --restart to retry this file"),
				logging.String(logging.FieldImpact, "file left in source"),
			)...)
		return
	}
	logger.Debug("file processed", logging.Args(attrs...)...)
}
