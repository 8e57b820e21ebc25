//go:build !linux

package fileutil

// RenameNoReplace renames oldpath to newpath, failing with an error matching
// fs.ErrExist when newpath already exists.
func RenameNoReplace(oldpath, newpath string) error {
	return linkRename(oldpath, newpath)
}
