package mediatype

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DuplicateMarker is inserted before the extension of files kept in place as duplicates.
const DuplicateMarker = "_DUP"

var builtin = []string{
	// images
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".heic", ".heif",
	// raw
	".cr2", ".cr3", ".nef", ".arw", ".dng", ".orf", ".rw2", ".raf",
	// video
	".mp4", ".mov", ".avi", ".mkv", ".m4v", ".3gp", ".mts", ".m2ts", ".wmv", ".mpg", ".mpeg", ".webm",
	// audio
	".mp3", ".m4a", ".wav", ".flac", ".aac", ".ogg", ".wma", ".opus",
}

var duplicatePattern = regexp.MustCompile(`_DUP\d*$`)

// Set is an immutable extension allow-list.
type Set struct {
	exts map[string]struct{}
}

// NewSet returns the built-in allow-list extended with extra extensions.
// Extras may be given with or without the leading dot.
func NewSet(extra ...string) Set {
	exts := make(map[string]struct{}, len(builtin)+len(extra))
	for _, ext := range builtin {
		exts[ext] = struct{}{}
	}
	for _, ext := range extra {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	return Set{exts: exts}
}

// Empty reports whether the set is the zero value.
func (s Set) Empty() bool {
	return len(s.exts) == 0
}

// Supported reports whether name carries an allow-listed extension.
func (s Set) Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := s.exts[ext]
	return ok
}

// Candidate reports whether name should be migrated: supported and not
// previously marked as a duplicate.
func (s Set) Candidate(name string) bool {
	return s.Supported(name) && !IsDuplicateMarked(name)
}

// Extensions returns the sorted allow-list.
func (s Set) Extensions() []string {
	out := make([]string, 0, len(s.exts))
	for ext := range s.exts {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// IsDuplicateMarked reports whether the stem of name ends in _DUP or _DUP<n>.
func IsDuplicateMarked(name string) bool {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return duplicatePattern.MatchString(stem)
}
