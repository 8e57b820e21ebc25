package checkpoint

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal state of one source file within a pass.
type Outcome string

const (
	OutcomeMoved      Outcome = "moved"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeDuplicated Outcome = "duplicated"
	OutcomeErrored    Outcome = "errored"
)

// Session is the mutable progress of one migration pass. It is owned by a
// single goroutine.
type Session struct {
	RunID       string
	Source      string
	Destination string
	CreatedAt   time.Time

	Moved      int
	Skipped    int
	Errors     int
	Duplicates int
	// DuplicateList holds the names files were renamed to, in order.
	DuplicateList []string

	processed map[string]Outcome
	// Hashes is the memo snapshot restored from the checkpoint.
	Hashes map[string]string

	persisted        bool
	pendingProcessed []string
	savedDuplicates  int
	pendingHashes    map[string]string
}

// NewSession starts a fresh session with a new run token.
func NewSession(source, destination string) *Session {
	return &Session{
		RunID:         uuid.NewString(),
		Source:        source,
		Destination:   destination,
		CreatedAt:     time.Now().UTC(),
		processed:     make(map[string]Outcome),
		Hashes:        make(map[string]string),
		pendingHashes: make(map[string]string),
	}
}

// MarkProcessed records the outcome for path and bumps its counter. Marking a
// path twice is a no-op.
func (s *Session) MarkProcessed(path string, outcome Outcome) {
	if _, done := s.processed[path]; done {
		return
	}
	s.processed[path] = outcome
	s.pendingProcessed = append(s.pendingProcessed, path)
	switch outcome {
	case OutcomeMoved:
		s.Moved++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeDuplicated:
		s.Duplicates++
	case OutcomeErrored:
		s.Errors++
	}
}

// AddDuplicate appends the name a duplicate was renamed to.
func (s *Session) AddDuplicate(name string) {
	s.DuplicateList = append(s.DuplicateList, name)
}

// AddHashes queues memo entries for the next Save.
func (s *Session) AddHashes(entries map[string]string) {
	maps.Copy(s.pendingHashes, entries)
}

// IsProcessed reports whether path already has an outcome in this session.
func (s *Session) IsProcessed(path string) bool {
	_, ok := s.processed[path]
	return ok
}

// OutcomeOf returns the recorded outcome for path.
func (s *Session) OutcomeOf(path string) (Outcome, bool) {
	outcome, ok := s.processed[path]
	return outcome, ok
}

// Processed returns the number of paths with an outcome.
func (s *Session) Processed() int {
	return len(s.processed)
}

// Resumed reports whether the session was loaded from a checkpoint.
func (s *Session) Resumed() bool {
	return s.persisted && s.Processed() > 0
}

// dirty reports whether Save has anything to write.
func (s *Session) dirty() bool {
	return !s.persisted || len(s.pendingProcessed) > 0 || len(s.pendingHashes) > 0 || s.savedDuplicates < len(s.DuplicateList)
}
