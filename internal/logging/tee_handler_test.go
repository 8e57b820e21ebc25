package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeHandlerAppliesLevelsIndependently(t *testing.T) {
	var console, file bytes.Buffer
	h := newTeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With(FieldComponent, "migrate")

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected tee to accept debug while the file side does")
	}
	logger.Debug("file processed", FieldOutcome, "moved")
	logger.Info("migration completed")

	if strings.Contains(console.String(), "file processed") {
		t.Fatalf("console should drop debug records, got %q", console.String())
	}
	for _, want := range []string{"file processed", "outcome=moved", "component=migrate", "migration completed"} {
		if !strings.Contains(file.String(), want) {
			t.Fatalf("file log missing %q: %q", want, file.String())
		}
	}
}

func TestConsoleHidesEventTypeAndShortensRunID(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, level, false))
	logger.With(FieldComponent, "migrate").With(FieldComponent, "mover").Info("claimed",
		FieldEventType, "name_claimed",
		FieldRunID, "0123456789abcdef",
	)

	line := buf.String()
	if strings.Contains(line, "event_type") {
		t.Fatalf("event_type should stay out of console output: %q", line)
	}
	if !strings.Contains(line, "run_id=01234567 ") && !strings.HasSuffix(strings.TrimSpace(line), "run_id=01234567") {
		t.Fatalf("run id not shortened: %q", line)
	}
	if !strings.Contains(line, "[mover]") {
		t.Fatalf("expected innermost component, got %q", line)
	}
}
