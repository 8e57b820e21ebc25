package fileutil

import (
	"crypto/sha256"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRenameNoReplace(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(src, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RenameNoReplace(src, dst); err != nil {
		t.Fatalf("RenameNoReplace: %v", err)
	}
	if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected source gone, stat err=%v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "a" {
		t.Fatalf("unexpected destination content %q (%v)", got, err)
	}
}

func TestRenameNoReplaceRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := RenameNoReplace(src, dst)
	if !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "old" {
		t.Fatalf("destination overwritten: %q", got)
	}
	if got, _ := os.ReadFile(src); string(got) != "new" {
		t.Fatalf("source lost: %q", got)
	}
}

func TestLinkRenameRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := linkRename(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
	if got, _ := os.ReadFile(src); string(got) != "new" {
		t.Fatalf("source lost: %q", got)
	}
}

func TestMoveAcrossDevicesPreservesMtime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "clip.mp4")
	dst := filepath.Join(dir, "dst", "clip.mp4")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("video bytes"), 0o640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := moveAcrossDevices(src, dst); err != nil {
		t.Fatalf("moveAcrossDevices: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat destination: %v", err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime not preserved: got %v want %v", info.ModTime(), mtime)
	}
	if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(dst), ".*.partial"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestMoveAcrossDevicesRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	dst := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := moveAcrossDevices(src, dst); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("expected fs.ErrExist, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must survive: %v", err)
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
	if err := CopyFileVerified(filepath.Join(dir, "nope"), dst); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestVerifyCopyReadsBackWrittenBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copy.bin")
	content := []byte("expected bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(content)
	if err := verifyCopy(path, int64(len(content)), sum[:]); err != nil {
		t.Fatalf("intact copy rejected: %v", err)
	}

	if err := os.WriteFile(path, []byte("expected bytez"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := verifyCopy(path, int64(len(content)), sum[:])
	if err == nil || !strings.Contains(err.Error(), "hash mismatch") {
		t.Fatalf("expected hash mismatch for altered copy, got %v", err)
	}

	if err := os.WriteFile(path, content[:4], 0o644); err != nil {
		t.Fatal(err)
	}
	err = verifyCopy(path, int64(len(content)), sum[:])
	if err == nil || !strings.Contains(err.Error(), "size mismatch") {
		t.Fatalf("expected size mismatch for truncated copy, got %v", err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	ok, err := Exists(filepath.Join(dir, "missing"))
	if err != nil || ok {
		t.Fatalf("missing path: got %v, %v", ok, err)
	}
	ok, err = Exists(dir)
	if err != nil || !ok {
		t.Fatalf("existing path: got %v, %v", ok, err)
	}
}
