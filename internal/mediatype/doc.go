// Package mediatype decides which files a migration pass considers.
//
// The allow-list covers common image, raw, video and audio containers and is
// matched case-insensitively on the extension. Files previously renamed as
// duplicates (name_DUP.ext, name_DUP3.ext) are never candidates again.
package mediatype
