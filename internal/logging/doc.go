// Package logging assembles structured slog loggers and formatting helpers used
// across mediasort.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and tees console output into a JSON log file under paths.log_dir when one is
// configured. A no-op logger is provided for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits the same field names (component, run_id, path, outcome).
package logging
