package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID carries the checkpoint run token of a migration pass.
	FieldRunID = "run_id"
	// FieldPath is the source path a log line refers to.
	FieldPath = "path"
	// FieldDestination is the final (or simulated) destination path.
	FieldDestination = "destination"
	// FieldOutcome is the per-file migration outcome (moved, skipped, duplicated, errored).
	FieldOutcome = "outcome"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)
