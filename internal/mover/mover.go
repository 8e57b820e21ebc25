package mover

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"mediasort/internal/failure"
	"mediasort/internal/fileutil"
	"mediasort/internal/logging"
	"mediasort/internal/mediatype"
)

// maxProbe bounds suffix probing so a pathological directory cannot spin forever.
const maxProbe = 100000

// Options configures a Mover.
type Options struct {
	DryRun bool
	Logger *slog.Logger
}

// Mover renames and places files without ever overwriting.
type Mover struct {
	dryRun bool
	logger *slog.Logger

	mu       sync.Mutex
	dirLocks map[string]*sync.Mutex
	reserved map[string]struct{}
}

// New returns a Mover.
func New(opts Options) *Mover {
	return &Mover{
		dryRun:   opts.DryRun,
		logger:   logging.NewComponentLogger(opts.Logger, "mover"),
		dirLocks: make(map[string]*sync.Mutex),
		reserved: make(map[string]struct{}),
	}
}

// DryRun reports whether the mover only simulates.
func (m *Mover) DryRun() bool {
	return m.dryRun
}

// PlaceAsDuplicate renames source in place to name_DUP.ext, or the first free
// name_DUPn.ext, and returns the new path.
func (m *Mover) PlaceAsDuplicate(source string) (string, error) {
	dir := filepath.Dir(source)
	stem, ext := splitName(filepath.Base(source))
	return m.claim(source, dir, func(n int) string {
		if n == 0 {
			return stem + mediatype.DuplicateMarker + ext
		}
		return stem + mediatype.DuplicateMarker + strconv.Itoa(n) + ext
	}, fileutil.RenameNoReplace)
}

// PlaceAtDestination moves source into destDir as destName, or the first free
// base_n.ext, creating destDir as needed. It returns the final path.
func (m *Mover) PlaceAtDestination(source, destDir, destName string) (string, error) {
	if !m.dryRun {
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return "", failure.Wrap(failure.ErrMove, "mkdir", destDir, err)
		}
	}
	stem, ext := splitName(destName)
	return m.claim(source, destDir, func(n int) string {
		if n == 0 {
			return destName
		}
		return stem + "_" + strconv.Itoa(n) + ext
	}, fileutil.MoveFile)
}

func (m *Mover) claim(source, dir string, nameFor func(int) string, publish func(string, string) error) (string, error) {
	lock := m.dirLock(dir)
	lock.Lock()
	defer lock.Unlock()

	for n := 0; n < maxProbe; n++ {
		candidate := filepath.Join(dir, nameFor(n))
		if m.dryRun {
			taken, err := m.simulatedTaken(candidate)
			if err != nil {
				return "", failure.Wrap(failure.ErrMove, "probe", candidate, err)
			}
			if taken {
				continue
			}
			m.reserve(candidate)
			return candidate, nil
		}

		err := publish(source, candidate)
		if err == nil {
			m.logger.Debug("file placed",
				logging.String(logging.FieldPath, source),
				logging.String(logging.FieldDestination, candidate),
			)
			return candidate, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", failure.Wrap(failure.ErrMove, "rename", source+" -> "+candidate, err)
	}
	return "", failure.Wrap(failure.ErrMove, "probe", fmt.Sprintf("no free name in %s after %d attempts", dir, maxProbe), nil)
}

func (m *Mover) simulatedTaken(candidate string) (bool, error) {
	m.mu.Lock()
	_, reserved := m.reserved[candidate]
	m.mu.Unlock()
	if reserved {
		return true, nil
	}
	return fileutil.Exists(candidate)
}

func (m *Mover) reserve(candidate string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reserved[candidate] = struct{}{}
}

func (m *Mover) dirLock(dir string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.dirLocks[dir]
	if !ok {
		lock = &sync.Mutex{}
		m.dirLocks[dir] = lock
	}
	return lock
}

// IsAlreadyInPlace reports whether source and dest name the same file after
// resolving symlinks. dest need not exist.
func IsAlreadyInPlace(source, dest string) (bool, error) {
	src, err := canonical(source)
	if err != nil {
		return false, err
	}
	dst, err := canonical(dest)
	if err != nil {
		return false, err
	}
	if src == dst {
		return true, nil
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, nil
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false, nil
	}
	return os.SameFile(srcInfo, dstInfo), nil
}

// canonical returns the absolute, symlink-free form of path. When path does
// not exist its parent is resolved instead.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	resolvedParent, err := canonical(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(abs)), nil
}

func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name, ""
	}
	return stem, ext
}
