package exiftool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "exiftool")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestDatePrefersDateTimeOriginal(t *testing.T) {
	stub := writeStub(t, `cat <<'JSON'
[{"SourceFile":"x.jpg","CreateDate":"2019:01:01 00:00:00","DateTimeOriginal":"2021:07:04 18:30:00+02:00"}]
JSON`)
	got, err := New(stub, time.Second).Date(context.Background(), "x.jpg")
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	if got.Year() != 2021 || got.Month() != time.July {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestDateSkipsZeroPlaceholder(t *testing.T) {
	stub := writeStub(t, `echo '[{"DateTimeOriginal":"0000:00:00 00:00:00","MediaCreateDate":"2018:02:03 04:05:06"}]'`)
	got, err := New(stub, time.Second).Date(context.Background(), "clip.mp4")
	if err != nil {
		t.Fatalf("Date: %v", err)
	}
	if got.Year() != 2018 || got.Month() != time.February {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestDateNoTags(t *testing.T) {
	stub := writeStub(t, `echo '[{"SourceFile":"a.jpg"}]'`)
	_, err := New(stub, time.Second).Date(context.Background(), "a.jpg")
	if !errors.Is(err, ErrNoDate) {
		t.Fatalf("expected ErrNoDate, got %v", err)
	}
}

func TestDateCommandFailure(t *testing.T) {
	stub := writeStub(t, `echo "File not found" >&2; exit 1`)
	_, err := New(stub, time.Second).Date(context.Background(), "a.jpg")
	if err == nil || errors.Is(err, ErrNoDate) {
		t.Fatalf("expected command error, got %v", err)
	}
}

func TestDateUnavailable(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing-exiftool"), time.Second)
	if r.Available() {
		t.Fatal("missing binary reported available")
	}
	if _, err := r.Date(context.Background(), "a.jpg"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestParseExifTime(t *testing.T) {
	cases := map[string]bool{
		"2024:03:15 12:00:00":        true,
		"2024:03:15 12:00:00.123":    true,
		"2024:03:15 12:00:00Z":       true,
		"0000:00:00 00:00:00":        false,
		"2024:03":                    false,
		"not a date at all, really!": false,
	}
	for value, want := range cases {
		if _, ok := parseExifTime(value); ok != want {
			t.Fatalf("parseExifTime(%q) = %v want %v", value, ok, want)
		}
	}
}
