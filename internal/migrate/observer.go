package migrate

import (
	"time"

	"mediasort/internal/checkpoint"
)

// FileResult describes what happened to one source file.
type FileResult struct {
	// Position is the 1-based index among all candidates.
	Position int
	Total    int
	Path     string
	Outcome  checkpoint.Outcome
	// Destination is where the file ended up: the dated path for moves, the
	// _DUP path for duplicates. Empty otherwise.
	Destination string
	// DuplicateOf names the destination file with identical content.
	DuplicateOf string
	// Classification is the bucket and the rule or source that produced it.
	Classification string
	Reason         string
	Err            error
}

// Report summarises a pass.
type Report struct {
	RunID       string
	Source      string
	Destination string
	DryRun      bool
	Resumed     bool
	Interrupted bool
	Candidates  int
	Moved       int
	Skipped     int
	Errors      int
	Duplicates  int
	// DuplicateList holds the _DUP names, in the order they were produced.
	DuplicateList []string
	Elapsed       time.Duration
}

// Processed is the number of files that reached a terminal outcome.
func (r Report) Processed() int {
	return r.Moved + r.Skipped + r.Errors + r.Duplicates
}

// Observer receives progress callbacks from the decision loop. Calls are made
// from a single goroutine.
type Observer interface {
	Started(runID string, candidates, alreadyProcessed int, resumed bool)
	FileDone(result FileResult)
	Finished(report Report)
}

// NopObserver ignores all callbacks.
type NopObserver struct{}

func (NopObserver) Started(string, int, int, bool) {}
func (NopObserver) FileDone(FileResult)            {}
func (NopObserver) Finished(Report)                {}
