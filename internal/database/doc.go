// Package database owns the SQLite file shared by the hash index and the
// checkpoint store.
//
// Open applies the connection pragmas (WAL journal, foreign keys, busy timeout)
// and the embedded migrations, so callers always see the current schema.
// Maintenance helpers back the `mediasort index` commands: integrity
// verification, compaction and online backups.
package database
