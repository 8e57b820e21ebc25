// Package migrate drives one resumable migration pass from a source tree into
// a dated destination tree.
//
// Each candidate file is classified (filename, then embedded metadata, then
// modification time), hashed through the persistent index, resolved against
// the destination and finally placed. Files whose content already exists in
// the destination stay in the source under a _DUP name. Progress is written to
// a checkpoint after every file so an interrupted pass resumes exactly where
// it stopped. A per-destination lock keeps two passes from racing.
package migrate
