package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// linkRename claims newpath with a hard link, which fails if the name is
// taken, then drops the old name.
func linkRename(oldpath, newpath string) error {
	if err := os.Link(oldpath, newpath); err != nil {
		return err
	}
	if err := os.Remove(oldpath); err != nil {
		_ = os.Remove(newpath)
		return err
	}
	return nil
}

// IsCrossDevice reports whether err came from renaming across filesystems.
func IsCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// MoveFile moves src to dst without ever replacing an existing dst. Moves
// across filesystems copy into a hidden temp file next to dst, verify it,
// restore the modification time, publish it and only then remove src.
func MoveFile(src, dst string) error {
	err := RenameNoReplace(src, dst)
	if err == nil || !IsCrossDevice(err) {
		return err
	}
	return moveAcrossDevices(src, dst)
}

func moveAcrossDevices(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.partial")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	published := false
	defer func() {
		if !published {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := CopyFileVerified(src, tmpPath); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Chtimes(tmpPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("preserve mtime: %w", err)
	}
	if err := RenameNoReplace(tmpPath, dst); err != nil {
		return err
	}
	published = true
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// CopyFileVerified copies src to dst, flushes dst to disk and reads it back,
// comparing its size and SHA-256 digest with what was read from src. dst is
// removed when the copy fails or does not verify.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return err
	}

	if err := verifyCopy(dst, written, srcHasher.Sum(nil)); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

// verifyCopy re-reads path and checks it holds size bytes digesting to sum.
func verifyCopy(path string, size int64, sum []byte) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reopen copy: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	read, err := io.Copy(hasher, file)
	if err != nil {
		return fmt.Errorf("read back copy: %w", err)
	}
	if read != size {
		return fmt.Errorf("copy size mismatch: source %d bytes, copy holds %d bytes", size, read)
	}
	if !bytes.Equal(hasher.Sum(nil), sum) {
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// Exists reports whether path names an existing filesystem entry (symlinks
// are not followed).
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
