package exiftool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNoDate means the file carries no parseable capture date.
	ErrNoDate = errors.New("no metadata date")
	// ErrUnavailable means the exiftool binary could not be found.
	ErrUnavailable = errors.New("exiftool unavailable")
)

// dateTags are consulted in order; the first parseable value wins.
var dateTags = []string{"DateTimeOriginal", "CreateDate", "MediaCreateDate", "TrackCreateDate"}

const exifLayout = "2006:01:02 15:04:05"

// Reader runs exiftool with a per-call timeout.
type Reader struct {
	Binary  string
	Timeout time.Duration
}

// New returns a Reader for binary (default "exiftool").
func New(binary string, timeout time.Duration) *Reader {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "exiftool"
	}
	return &Reader{Binary: binary, Timeout: timeout}
}

// Available reports whether the binary resolves on PATH (or as a path).
func (r *Reader) Available() bool {
	_, err := exec.LookPath(r.Binary)
	return err == nil
}

// Date returns the capture date recorded in the metadata of path.
func (r *Reader) Date(ctx context.Context, path string) (time.Time, error) {
	if strings.TrimSpace(path) == "" {
		return time.Time{}, errors.New("exiftool: empty path")
	}
	if !r.Available() {
		return time.Time{}, ErrUnavailable
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := []string{"-j", "-q"}
	for _, tag := range dateTags {
		args = append(args, "-"+tag)
	}
	args = append(args, "--", path)
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return time.Time{}, fmt.Errorf("exiftool: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return time.Time{}, fmt.Errorf("exiftool: %w", err)
	}
	return parseDate(output)
}

func parseDate(output []byte) (time.Time, error) {
	var records []map[string]any
	if err := json.Unmarshal(output, &records); err != nil {
		return time.Time{}, fmt.Errorf("exiftool parse: %w", err)
	}
	if len(records) == 0 {
		return time.Time{}, ErrNoDate
	}
	for _, tag := range dateTags {
		value, ok := records[0][tag].(string)
		if !ok {
			continue
		}
		if ts, ok := parseExifTime(value); ok {
			return ts, nil
		}
	}
	return time.Time{}, ErrNoDate
}

// parseExifTime accepts "YYYY:MM:DD HH:MM:SS" with optional sub-seconds or
// zone suffix, which are ignored. All-zero placeholders are rejected.
func parseExifTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if len(value) < len(exifLayout) || strings.HasPrefix(value, "0000") {
		return time.Time{}, false
	}
	ts, err := time.Parse(exifLayout, value[:len(exifLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
