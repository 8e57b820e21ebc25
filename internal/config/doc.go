// Package config loads, normalizes, and validates mediasort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the MEDIASORT_STATE_DIR environment
// fallback. The Config type centralizes the knobs the migration engine and the
// CLI need: where the hash index lives, how dates are classified, which digest
// is used and how logs are written.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
