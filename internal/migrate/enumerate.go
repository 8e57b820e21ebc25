package migrate

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mediasort/internal/mediatype"
)

// enumerate lists candidate files under source in lexical order. Hidden
// directories and the skip subtree (the destination, when nested) are pruned.
func enumerate(ctx context.Context, source, skip string, media mediatype.Set) ([]string, error) {
	var files []string
	err := filepath.WalkDir(source, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == source {
				return walkErr
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if path == source {
				return nil
			}
			if strings.HasPrefix(entry.Name(), ".") || (skip != "" && path == skip) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		if media.Candidate(entry.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// within reports whether path equals root or lies beneath it.
func within(path, root string) bool {
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

var placedPattern = regexp.MustCompile(`^[0-9]{4}/[0-9]{2}/[^/]+$`)

// unsettled matches the enumerated files that do not yet sit in a YYYY/MM
// folder of root. When a tree is sorted in place those files are still
// waiting for their turn and cannot stand as placed copies.
func unsettled(root string, files []string) func(path string) bool {
	waiting := make(map[string]struct{}, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err == nil && placedPattern.MatchString(filepath.ToSlash(rel)) {
			continue
		}
		waiting[path] = struct{}{}
	}
	return func(path string) bool {
		_, ok := waiting[path]
		return ok
	}
}
