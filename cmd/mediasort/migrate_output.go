package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"

	"mediasort/internal/checkpoint"
	"mediasort/internal/migrate"
)

const progressTemplate = `{{string . "prefix"}}{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{etime . }}`

// migrateObserver prints one line per file, or drives a progress bar and
// collects errored files for the final report.
type migrateObserver struct {
	out      io.Writer
	useBar   bool
	colorize bool
	bar      *pb.ProgressBar
	failed   []migrate.FileResult
}

func newMigrateObserver(out io.Writer, useBar bool) *migrateObserver {
	return &migrateObserver{out: out, useBar: useBar, colorize: shouldColorize(out)}
}

func (o *migrateObserver) Started(runID string, candidates, alreadyProcessed int, resumed bool) {
	if resumed {
		fmt.Fprintf(o.out, "Resuming run %s: %d of %d files already processed\n", runID, alreadyProcessed, candidates)
	}
	if !o.useBar {
		return
	}
	o.bar = pb.ProgressBarTemplate(progressTemplate).New(candidates)
	o.bar.SetWriter(o.out)
	o.bar.Set("prefix", "Migrating ")
	o.bar.SetCurrent(int64(alreadyProcessed))
	o.bar.Start()
}

func (o *migrateObserver) FileDone(result migrate.FileResult) {
	if o.bar != nil {
		o.bar.Increment()
		if result.Outcome == checkpoint.OutcomeErrored {
			o.failed = append(o.failed, result)
		}
		return
	}
	fmt.Fprintln(o.out, renderFileLine(result, o.colorize))
}

func (o *migrateObserver) Finished(report migrate.Report) {
	if o.bar != nil {
		o.bar.Finish()
	}
	for _, result := range o.failed {
		fmt.Fprintln(o.out, renderFileLine(result, o.colorize))
	}
}

func outcomeKind(outcome checkpoint.Outcome) statusKind {
	switch outcome {
	case checkpoint.OutcomeMoved:
		return statusOK
	case checkpoint.OutcomeDuplicated:
		return statusWarn
	case checkpoint.OutcomeErrored:
		return statusError
	default:
		return statusInfo
	}
}

func renderFileLine(result migrate.FileResult, colorize bool) string {
	var b strings.Builder
	if result.Total > 0 {
		width := len(strconv.Itoa(result.Total))
		fmt.Fprintf(&b, "[%*d/%d] ", width, result.Position, result.Total)
	}
	label := strings.ToUpper(string(result.Outcome))
	fmt.Fprintf(&b, "%-10s %s", label, result.Path)
	switch result.Outcome {
	case checkpoint.OutcomeMoved:
		fmt.Fprintf(&b, " -> %s", result.Destination)
	case checkpoint.OutcomeDuplicated:
		fmt.Fprintf(&b, " -> %s (same as %s)", filepath.Base(result.Destination), result.DuplicateOf)
	}
	if result.Reason != "" {
		fmt.Fprintf(&b, " [%s]", result.Reason)
	}
	if result.Err != nil {
		fmt.Fprintf(&b, ": %v", result.Err)
	}
	return paint(b.String(), statusKindColor(outcomeKind(result.Outcome)), colorize)
}

func renderReport(report migrate.Report, colorize bool) string {
	var b strings.Builder
	title := "Migration summary"
	switch {
	case report.DryRun:
		title += " (dry run, nothing was changed)"
	case report.Interrupted:
		title += " (interrupted, rerun to resume)"
	}
	b.WriteString(sectionHeader(title, colorize) + "\n")

	b.WriteString(tableSpec{
		Headers: []string{"Outcome", "Files"},
		Rows: [][]string{
			{"Moved", strconv.Itoa(report.Moved)},
			{"Duplicates", strconv.Itoa(report.Duplicates)},
			{"Skipped", strconv.Itoa(report.Skipped)},
			{"Errors", strconv.Itoa(report.Errors)},
		},
		Aligns: []columnAlignment{alignLeft, alignRight},
		Footer: []string{"Processed", fmt.Sprintf("%d of %d", report.Processed(), report.Candidates)},
	}.render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Run %s (resumed: %s) finished in %s\n", report.RunID, yesNo(report.Resumed), report.Elapsed.Round(time.Millisecond))

	if len(report.DuplicateList) > 0 {
		b.WriteString("\nDuplicates left in source:\n")
		for _, name := range report.DuplicateList {
			b.WriteString("  " + name + "\n")
		}
	}
	return b.String()
}
