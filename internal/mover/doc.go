// Package mover performs the filesystem side of a migration decision.
//
// Duplicates are renamed in place (photo_DUP.jpg, photo_DUP1.jpg, ...) and
// never leave their directory. Novel files and name conflicts are placed in
// the destination directory, probing photo_1.jpg, photo_2.jpg, ... when the
// name is taken. Every publish goes through a no-replace rename, so an
// existing file is never overwritten even when another process races for the
// same name. Name probing within one directory is additionally serialized
// in-process.
//
// In dry-run mode the same names are computed against the live filesystem
// plus the names already handed out during the run, and nothing is touched.
package mover
