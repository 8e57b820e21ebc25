// Package failure defines the error kinds shared by the migration engine.
//
// Errors are tagged with one sentinel kind via Wrap so callers can decide with
// errors.Is whether a failure aborts the run (configuration, index corruption,
// interruption) or only marks a single file as errored.
package failure
