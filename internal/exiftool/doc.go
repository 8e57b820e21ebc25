// Package exiftool reads capture dates from media metadata by shelling out to
// the exiftool binary.
//
// It is the fallback for files whose names carry no usable date. The binary is
// optional: Available reports whether it can be found, and callers treat a
// missing binary as "no metadata date" rather than a failure.
package exiftool
