package mover_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mediasort/internal/mover"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestPlaceAsDuplicateProbesSuffixes(t *testing.T) {
	dir := t.TempDir()
	m := mover.New(mover.Options{})

	want := []string{"b_DUP.jpg", "b_DUP1.jpg", "b_DUP2.jpg"}
	for i, name := range want {
		source := filepath.Join(dir, "b.jpg")
		write(t, source, string(rune('a'+i)))
		got, err := m.PlaceAsDuplicate(source)
		if err != nil {
			t.Fatalf("PlaceAsDuplicate #%d: %v", i, err)
		}
		if got != filepath.Join(dir, name) {
			t.Fatalf("#%d: got %q want %q", i, got, name)
		}
		if _, err := os.Stat(source); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("source should have been renamed")
		}
	}
	if read(t, filepath.Join(dir, "b_DUP.jpg")) != "a" {
		t.Fatal("first duplicate overwritten")
	}
}

func TestPlaceAtDestinationNumericSuffix(t *testing.T) {
	root := t.TempDir()
	destDir := filepath.Join(root, "dest", "2024", "01")
	write(t, filepath.Join(destDir, "x.jpg"), "occupant")
	write(t, filepath.Join(destDir, "x_1.jpg"), "occupant 1")
	source := filepath.Join(root, "src", "x.jpg")
	write(t, source, "newcomer")

	got, err := mover.New(mover.Options{}).PlaceAtDestination(source, destDir, "x.jpg")
	if err != nil {
		t.Fatalf("PlaceAtDestination: %v", err)
	}
	if got != filepath.Join(destDir, "x_2.jpg") {
		t.Fatalf("got %q want x_2.jpg", got)
	}
	if read(t, filepath.Join(destDir, "x.jpg")) != "occupant" || read(t, got) != "newcomer" {
		t.Fatal("contents mixed up")
	}
}

func TestPlaceAtDestinationCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "a.jpg")
	write(t, source, "a")
	destDir := filepath.Join(root, "dest", "2024", "03")

	got, err := mover.New(mover.Options{}).PlaceAtDestination(source, destDir, "a.jpg")
	if err != nil {
		t.Fatalf("PlaceAtDestination: %v", err)
	}
	if got != filepath.Join(destDir, "a.jpg") || read(t, got) != "a" {
		t.Fatalf("unexpected placement %q", got)
	}
}

func TestDryRunReservesNamesWithoutTouchingFiles(t *testing.T) {
	root := t.TempDir()
	destDir := filepath.Join(root, "dest", "2024", "01")
	write(t, filepath.Join(destDir, "x.jpg"), "occupant")
	first := filepath.Join(root, "src1", "x.jpg")
	second := filepath.Join(root, "src2", "x.jpg")
	write(t, first, "one")
	write(t, second, "two")

	m := mover.New(mover.Options{DryRun: true})
	a, err := m.PlaceAtDestination(first, destDir, "x.jpg")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.PlaceAtDestination(second, destDir, "x.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if a != filepath.Join(destDir, "x_1.jpg") || b != filepath.Join(destDir, "x_2.jpg") {
		t.Fatalf("unexpected simulated names %q, %q", a, b)
	}
	dup, err := m.PlaceAsDuplicate(first)
	if err != nil {
		t.Fatal(err)
	}
	if dup != filepath.Join(root, "src1", "x_DUP.jpg") {
		t.Fatalf("unexpected simulated duplicate %q", dup)
	}
	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("dry run touched %s: %v", p, err)
		}
	}
	if _, err := os.Stat(a); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("dry run must not create files")
	}
	if _, err := os.Stat(filepath.Join(root, "dest", "2024", "02")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("unexpected directory")
	}
}

func TestConcurrentPlacementNeverOverwrites(t *testing.T) {
	root := t.TempDir()
	destDir := filepath.Join(root, "dest")
	m := mover.New(mover.Options{})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		source := filepath.Join(root, "src", string(rune('a'+i)), "x.jpg")
		write(t, source, string(rune('a'+i)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.PlaceAtDestination(source, destDir, "x.jpg"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("placement failed: %v", err)
	}

	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != n {
		t.Fatalf("expected %d files, got %d", n, len(entries))
	}
	seen := map[string]bool{}
	for _, e := range entries {
		seen[read(t, filepath.Join(destDir, e.Name()))] = true
	}
	if len(seen) != n {
		t.Fatalf("content lost: %v", seen)
	}
}

func TestIsAlreadyInPlace(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "dest", "2024", "03", "a.jpg")
	write(t, file, "a")
	link := filepath.Join(root, "link")
	if err := os.Symlink(filepath.Join(root, "dest"), link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	same, err := mover.IsAlreadyInPlace(file, filepath.Join(link, "2024", "03", "a.jpg"))
	if err != nil || !same {
		t.Fatalf("expected symlinked path to match, same=%v err=%v", same, err)
	}
	same, err = mover.IsAlreadyInPlace(file, filepath.Join(root, "dest", "2024", "04", "a.jpg"))
	if err != nil || same {
		t.Fatalf("different path should not match, same=%v err=%v", same, err)
	}
	same, err = mover.IsAlreadyInPlace(filepath.Join(root, "dest", "2024", "03", "..", "03", "a.jpg"), file)
	if err != nil || !same {
		t.Fatalf("unclean path should match, same=%v err=%v", same, err)
	}
}
