package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"mediasort/internal/classify"
	"mediasort/internal/mediatype"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var monthFirst bool

	cmd := &cobra.Command{
		Use:   "classify <name>...",
		Short: "Show the YYYY/MM bucket each filename would be sorted into",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			classifier := classify.New(classify.Options{
				DayFirst: cfg.Classify.DayFirst && !monthFirst,
				MinYear:  cfg.Classify.MinYear,
			})
			media := mediatype.NewSet(cfg.Migrate.Extensions...)

			rows := make([][]string, 0, len(args))
			for _, arg := range args {
				name := filepath.Base(arg)
				result := classifier.Classify(name)
				bucket, rule := "unclassified", "-"
				if result.OK {
					bucket, rule = result.Dir(), result.Rule
				}
				rows = append(rows, []string{name, bucket, rule, supportLabel(media, name)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Bucket", "Rule", "Migrated"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&monthFirst, "month-first", false, "Read ambiguous NN-NN-YYYY dates as MM-DD-YYYY")
	return cmd
}

func supportLabel(media mediatype.Set, name string) string {
	switch {
	case mediatype.IsDuplicateMarked(name):
		return "no (duplicate marker)"
	case !media.Supported(name):
		return "no (extension)"
	default:
		return "yes"
	}
}
