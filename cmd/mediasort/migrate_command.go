package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediasort/internal/classify"
	"mediasort/internal/config"
	"mediasort/internal/database"
	"mediasort/internal/exiftool"
	"mediasort/internal/logging"
	"mediasort/internal/mediatype"
	"mediasort/internal/migrate"
)

type migrateFlags struct {
	dryRun          bool
	workers         int
	noMetadata      bool
	noMtimeFallback bool
	monthFirst      bool
	restart         bool
	progress        bool
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var flags migrateFlags

	cmd := &cobra.Command{
		Use:   "migrate <source> <destination>",
		Short: "Move media files from source into destination/YYYY/MM",
		Long: "Move every supported media file under source into destination/YYYY/MM.\n\n" +
			"Files whose content already exists in destination stay in source renamed\n" +
			"with a _DUP suffix. An interrupted run resumes where it stopped.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") && flags.workers < 1 {
				return fmt.Errorf("--workers must be at least 1, got %d", flags.workers)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, closer, err := ctx.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			db, err := database.Open(runCtx, cfg.IndexPath())
			if err != nil {
				return err
			}
			defer db.Close()

			opts := migrateOptions(cfg, args[0], args[1], flags)
			classifier := classify.New(classify.Options{
				DayFirst: cfg.Classify.DayFirst && !flags.monthFirst,
				MinYear:  cfg.Classify.MinYear,
			})

			out := cmd.OutOrStdout()
			observer := newMigrateObserver(out, flags.progress && shouldColorize(out))
			setters := []migrate.Option{migrate.WithLogger(logger), migrate.WithObserver(observer)}
			if opts.UseMetadata {
				reader := exiftool.New(cfg.ExifTool.Binary, cfg.ExifToolTimeout())
				if reader.Available() {
					setters = append(setters, migrate.WithMetadata(reader))
				} else {
					logging.WarnWithContext(logger, "exiftool not found; metadata dates disabled", "metadata_unavailable",
						logging.String("binary", reader.Binary),
						logging.String(logging.FieldErrorHint, "install exiftool or pass --no-metadata"),
						logging.String(logging.FieldImpact, "files without a dated name fall back to modification time"),
					)
				}
			}

			migrator, err := migrate.New(db, classifier, opts, setters...)
			if err != nil {
				return err
			}
			report, runErr := migrator.Run(runCtx)
			if report.RunID != "" {
				fmt.Fprint(out, renderReport(report, shouldColorize(out)))
			}
			return runErr
		},
	}

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Report what would happen without touching any file")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Hash files ahead with this many workers (overrides migrate.workers)")
	cmd.Flags().BoolVar(&flags.noMetadata, "no-metadata", false, "Do not read capture dates with exiftool")
	cmd.Flags().BoolVar(&flags.noMtimeFallback, "no-mtime-fallback", false, "Skip files whose date only comes from modification time")
	cmd.Flags().BoolVar(&flags.monthFirst, "month-first", false, "Read ambiguous NN-NN-YYYY dates as MM-DD-YYYY")
	cmd.Flags().BoolVar(&flags.restart, "restart", false, "Discard any saved progress for this source and destination")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "Show a progress bar instead of one line per file (terminals only)")
	return cmd
}

func migrateOptions(cfg *config.Config, source, destination string, flags migrateFlags) migrate.Options {
	workers := cfg.Migrate.Workers
	if flags.workers > 0 {
		workers = flags.workers
	}
	return migrate.Options{
		Source:         source,
		Destination:    destination,
		DryRun:         flags.dryRun,
		Workers:        workers,
		UseMetadata:    cfg.Migrate.UseMetadata && !flags.noMetadata,
		MtimeFallback:  cfg.Migrate.MtimeFallback && !flags.noMtimeFallback,
		Restart:        flags.restart,
		LockDir:        cfg.LockDir(),
		HashAlgorithm:  cfg.Hashing.Algorithm,
		HashBufferSize: cfg.Hashing.BufferSize,
		Media:          mediatype.NewSet(cfg.Migrate.Extensions...),
	}
}
