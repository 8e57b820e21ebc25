package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediasort/internal/checkpoint"
	"mediasort/internal/config"
	"mediasort/internal/database"
	"mediasort/internal/failure"
	"mediasort/internal/hashindex"
	"mediasort/internal/mediatype"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect and maintain the hash index database",
	}

	indexCmd.AddCommand(newIndexStatsCommand(ctx))
	indexCmd.AddCommand(newIndexVerifyCommand(ctx))
	indexCmd.AddCommand(newIndexCleanupCommand(ctx))
	indexCmd.AddCommand(newIndexVacuumCommand(ctx))
	indexCmd.AddCommand(newIndexBackupCommand(ctx))
	indexCmd.AddCommand(newIndexCheckpointsCommand(ctx))

	return indexCmd
}

func openIndex(cfg *config.Config, db *database.DB) (*hashindex.Index, error) {
	return hashindex.New(db, hashindex.Options{
		Algorithm:  cfg.Hashing.Algorithm,
		BufferSize: cfg.Hashing.BufferSize,
		Media:      mediatype.NewSet(cfg.Migrate.Extensions...),
	})
}

func newIndexStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index size, duplicate groups and files per year",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withDB(cmd.Context(), func(db *database.DB) error {
				idx, err := openIndex(cfg, db)
				if err != nil {
					return err
				}
				stats, err := idx.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Index: %s\n", db.Path())
				fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, [][]string{
					{"Entries", strconv.Itoa(stats.Entries)},
					{"Distinct hashes", strconv.Itoa(stats.DistinctHashes)},
					{"Duplicate groups", strconv.Itoa(stats.DuplicateGroups)},
					{"Redundant files", strconv.Itoa(stats.DuplicateFiles)},
				}, []columnAlignment{alignLeft, alignRight}))

				if len(stats.Algorithms) > 0 {
					algorithms := make([]string, 0, len(stats.Algorithms))
					for algorithm := range stats.Algorithms {
						algorithms = append(algorithms, algorithm)
					}
					sort.Strings(algorithms)
					rows := make([][]string, 0, len(algorithms))
					for _, algorithm := range algorithms {
						rows = append(rows, []string{algorithm, strconv.Itoa(stats.Algorithms[algorithm])})
					}
					fmt.Fprintln(out, renderTable([]string{"Algorithm", "Entries"}, rows, []columnAlignment{alignLeft, alignRight}))
				}

				if len(stats.ByYear) > 0 {
					rows := make([][]string, 0, len(stats.ByYear))
					for _, year := range stats.ByYear {
						rows = append(rows, []string{year.Year, strconv.Itoa(year.Files), humanize.IBytes(uint64(year.Bytes))})
					}
					fmt.Fprintln(out, tableSpec{
						Headers: []string{"Year", "Files", "Size"},
						Rows:    rows,
						Aligns:  []columnAlignment{alignLeft, alignRight, alignRight},
						Footer:  []string{"Total", strconv.Itoa(stats.Entries), humanize.IBytes(uint64(stats.TotalBytes))},
					}.render())
				}
				return nil
			})
		},
	}
}

func newIndexVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run integrity and schema checks against the index database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.IndexPath())
			if err != nil {
				return err
			}
			defer db.Close()

			health, verifyErr := db.Verify(cmd.Context())
			status := newStatusPrinter(cmd.OutOrStdout())
			status.header("Index health")
			status.line("Database", statusInfo, health.Path)
			status.line("Size", statusInfo, humanize.IBytes(uint64(health.SizeBytes)))
			status.check("Readable", health.Readable, yesNo(health.Readable))
			integrity := "ok"
			if !health.IntegrityOK {
				integrity = health.IntegrityDetail
			}
			status.check("Integrity", health.IntegrityOK, integrity)
			missing := append(append([]string{}, health.MissingTables...), health.MissingColumns...)
			schema := "complete"
			if len(missing) > 0 {
				schema = "missing " + strings.Join(missing, ", ")
			}
			status.check("Schema", len(missing) == 0, schema)
			for _, step := range health.Schema {
				switch {
				case !step.Applied:
					status.check("Step "+step.Version, false, "pending")
				case step.AppliedAt.IsZero():
					status.check("Step "+step.Version, true, "applied")
				default:
					status.check("Step "+step.Version, true, "applied "+humanize.Time(step.AppliedAt))
				}
			}
			status.line("Hash entries", statusInfo, strconv.Itoa(health.HashEntries))
			status.line("Checkpoints", statusInfo, strconv.Itoa(health.Checkpoints))
			if verifyErr != nil {
				return verifyErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Index healthy")
			return nil
		},
	}
}

func newIndexCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Drop index rows whose file no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, closer, err := ctx.newLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()
			return ctx.withDB(cmd.Context(), func(db *database.DB) error {
				idx, err := hashindex.New(db, hashindex.Options{
					Algorithm:  cfg.Hashing.Algorithm,
					BufferSize: cfg.Hashing.BufferSize,
					Logger:     logger,
				})
				if err != nil {
					return err
				}
				removed, err := idx.Reconcile(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphaned index entries\n", removed)
				return nil
			})
		},
	}
}

func newIndexVacuumCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the index database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *database.DB) error {
				before, after, err := db.Vacuum(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Vacuumed %s: %s -> %s\n", db.Path(),
					humanize.IBytes(uint64(before)), humanize.IBytes(uint64(after)))
				return nil
			})
		},
	}
}

func newIndexBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <path>",
		Short: "Write a consistent copy of the index database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if target == "" {
				return errors.New("backup path is required")
			}
			return ctx.withDB(cmd.Context(), func(db *database.DB) error {
				if err := db.Backup(cmd.Context(), target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s to %s\n", db.Path(), target)
				return nil
			})
		},
	}
}

func newIndexCheckpointsCommand(ctx *commandContext) *cobra.Command {
	var discard bool

	cmd := &cobra.Command{
		Use:   "checkpoints [<source> <destination>]",
		Short: "List saved migration progress, or discard it for one pair",
		Args: func(cmd *cobra.Command, args []string) error {
			if discard && len(args) != 2 {
				return errors.New("--discard needs <source> and <destination>")
			}
			if !discard && len(args) != 0 {
				return errors.New("arguments are only accepted with --discard")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *database.DB) error {
				out := cmd.OutOrStdout()
				if discard {
					source, err := canonicalArg(args[0])
					if err != nil {
						return err
					}
					destination, err := canonicalArg(args[1])
					if err != nil {
						return err
					}
					removed, err := checkpoint.New(db, source, destination).Discard(cmd.Context())
					if err != nil {
						return failure.Wrap(failure.ErrIndexCorrupt, "checkpoints", "discard", err)
					}
					if removed {
						fmt.Fprintf(out, "Discarded checkpoint for %s -> %s\n", source, destination)
					} else {
						fmt.Fprintf(out, "No checkpoint for %s -> %s\n", source, destination)
					}
					return nil
				}

				summaries, err := checkpoint.List(cmd.Context(), db)
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					fmt.Fprintln(out, "No saved checkpoints")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{
						s.Source,
						s.Destination,
						strconv.Itoa(s.Processed),
						fmt.Sprintf("%d/%d/%d/%d", s.Moved, s.Duplicates, s.Skipped, s.Errors),
						humanize.Time(s.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Source", "Destination", "Processed", "Moved/Dup/Skip/Err", "Updated"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&discard, "discard", false, "Discard the checkpoint for <source> <destination>")
	return cmd
}
