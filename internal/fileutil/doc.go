// Package fileutil provides the filesystem primitives the mover is built on.
//
// RenameNoReplace publishes a file under a new name only if that name is free,
// atomically with respect to other processes. MoveFile adds a verified copy
// fallback for moves across filesystems so a partially written file is never
// visible under its final name.
package fileutil
