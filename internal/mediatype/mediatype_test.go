package mediatype_test

import (
	"testing"

	"mediasort/internal/mediatype"
)

func TestCandidate(t *testing.T) {
	set := mediatype.NewSet("heif2", ".XYZ")
	cases := []struct {
		name string
		want bool
	}{
		{"IMG_0001.JPG", true},
		{"clip.Mov", true},
		{"song.flac", true},
		{"notes.txt", false},
		{"README", false},
		{"b_DUP.jpg", false},
		{"b_DUP12.jpg", false},
		{"b_DUPLICATE.jpg", true},
		{"scan.heif2", true},
		{"scan.xyz", true},
		{"/some/dir_DUP/photo.jpg", true},
	}
	for _, tc := range cases {
		if got := set.Candidate(tc.name); got != tc.want {
			t.Fatalf("Candidate(%q) = %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestExtensionsSorted(t *testing.T) {
	exts := mediatype.NewSet().Extensions()
	for i := 1; i < len(exts); i++ {
		if exts[i-1] >= exts[i] {
			t.Fatalf("extensions not sorted at %d: %q >= %q", i, exts[i-1], exts[i])
		}
	}
}
