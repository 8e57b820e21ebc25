package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrClassification = errors.New("classification error")
	ErrHash           = errors.New("hash error")
	ErrMove           = errors.New("move error")
	ErrIndexCorrupt   = errors.New("index corrupt")
	ErrInterrupted    = errors.New("interrupted")
	ErrLocked         = errors.New("destination locked")
)

// Wrap builds an error message that includes operation context while tagging it
// with the provided kind. Both the kind and err remain reachable via errors.Is.
func Wrap(kind error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if kind == nil {
		kind = ErrMove
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", kind, detail, err)
	}
	return fmt.Errorf("%w: %s", kind, detail)
}

// Fatal reports whether err must abort a migration pass rather than mark a
// single file as errored.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrIndexCorrupt) ||
		errors.Is(err, ErrInterrupted) ||
		errors.Is(err, ErrLocked)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
