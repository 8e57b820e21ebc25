package resolver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mediasort/internal/resolver"
)

// fakeIndex hashes by content and answers FindByHash from a fixed table.
type fakeIndex struct {
	byHash   map[string]string
	lookups  int
	hashReqs []string
}

func (f *fakeIndex) GetHash(_ context.Context, path string) (string, error) {
	f.hashReqs = append(f.hashReqs, path)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "fake:" + string(data), nil
}

func (f *fakeIndex) FindByHash(_ context.Context, hash, _, exclude string) (string, bool, error) {
	f.lookups++
	at, ok := f.byHash[hash]
	if !ok || at == exclude {
		return "", false, nil
	}
	return at, true, nil
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "dest")
	elsewhere := filepath.Join(dest, "2023", "12", "old.jpg")
	write(t, elsewhere, "moved-before")

	cases := []struct {
		name      string
		source    string
		occupant  string
		wantKind  resolver.Kind
		wantAt    string
		wantFinds int
	}{
		{name: "identical at target", source: "same", occupant: "same", wantKind: resolver.Identical, wantAt: "target", wantFinds: 0},
		{name: "identical elsewhere", source: "moved-before", wantKind: resolver.Identical, wantAt: elsewhere, wantFinds: 1},
		{name: "different occupant", source: "new", occupant: "old", wantKind: resolver.NameConflict, wantFinds: 1},
		{name: "same size different bytes", source: "abc", occupant: "xyz", wantKind: resolver.NameConflict, wantFinds: 1},
		{name: "novel", source: "fresh", wantKind: resolver.Novel, wantFinds: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			source := filepath.Join(dir, "src", "x.jpg")
			target := filepath.Join(dir, "dest", "2024", "01", "x.jpg")
			write(t, source, tc.source)
			if tc.occupant != "" {
				write(t, target, tc.occupant)
			}

			idx := &fakeIndex{byHash: map[string]string{"fake:moved-before": elsewhere}}
			decision, err := resolver.New(idx, dest).Resolve(context.Background(), source, "fake:"+tc.source, target)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if decision.Kind != tc.wantKind {
				t.Fatalf("kind: got %s want %s", decision.Kind, tc.wantKind)
			}
			wantAt := tc.wantAt
			if wantAt == "target" {
				wantAt = target
			}
			if decision.At != wantAt {
				t.Fatalf("at: got %q want %q", decision.At, wantAt)
			}
			if idx.lookups != tc.wantFinds {
				t.Fatalf("FindByHash calls: got %d want %d", idx.lookups, tc.wantFinds)
			}
		})
	}
}

func TestResolveSkipsHashWhenSizesDiffer(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "a.jpg")
	target := filepath.Join(dir, "dest", "a.jpg")
	write(t, source, "short")
	write(t, target, "much longer content")

	idx := &fakeIndex{}
	decision, err := resolver.New(idx, filepath.Join(dir, "dest")).Resolve(context.Background(), source, "fake:short", target)
	if err != nil {
		t.Fatal(err)
	}
	if decision.Kind != resolver.NameConflict {
		t.Fatalf("expected name conflict, got %s", decision.Kind)
	}
	if len(idx.hashReqs) != 0 {
		t.Fatalf("occupant should not be hashed when sizes differ, hashed %v", idx.hashReqs)
	}
}

func TestResolveMissingSource(t *testing.T) {
	_, err := resolver.New(&fakeIndex{}, t.TempDir()).Resolve(context.Background(), "/nonexistent/a.jpg", "fake:", "/nonexistent/b.jpg")
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
