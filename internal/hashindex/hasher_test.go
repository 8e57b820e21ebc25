package hashindex

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"mediasort/internal/testsupport"
)

func TestHasherAlgorithms(t *testing.T) {
	cases := map[string]string{
		"sha256": "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		"md5":    "md5:900150983cd24fb0d6963f7d28e17f72",
	}
	for algo, want := range cases {
		h, err := NewHasher(algo, 0)
		if err != nil {
			t.Fatalf("NewHasher(%s): %v", algo, err)
		}
		got, err := h.HashReader(context.Background(), strings.NewReader("abc"))
		if err != nil {
			t.Fatalf("HashReader(%s): %v", algo, err)
		}
		if got != want {
			t.Fatalf("%s: got %q want %q", algo, got, want)
		}
		if !h.Owns(got) {
			t.Fatalf("%s hasher should own its own digest", algo)
		}
	}

	xx, err := NewHasher("XXH3", 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := xx.HashReader(context.Background(), strings.NewReader("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "xxh3:") || len(got) != len("xxh3:")+16 {
		t.Fatalf("unexpected xxh3 digest %q", got)
	}
	if xx.Owns("sha256:00") {
		t.Fatal("xxh3 hasher must not own sha256 digests")
	}
}

func TestHasherHonoursCancellation(t *testing.T) {
	h, err := NewHasher("sha256", 0)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.HashReader(ctx, strings.NewReader("abc")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHashFileAcrossBufferBoundaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mov")
	const size = 300*1024 + 17
	testsupport.WriteFile(t, path, size)

	h, err := NewHasher(AlgorithmSHA256, 4096)
	if err != nil {
		t.Fatal(err)
	}
	got, err := h.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	sum := sha256.Sum256(bytes.Repeat([]byte{0x42}, size))
	if want := "sha256:" + hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
