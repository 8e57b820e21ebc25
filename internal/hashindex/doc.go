// Package hashindex maintains the persistent content-hash index used to detect
// duplicates.
//
// Every row maps an absolute path to the size, modification time and digest
// observed when the file was last hashed. A row is trusted only while the file
// still has the recorded size and mtime; anything else forces a rehash. Digests
// are stored as "<algorithm>:<hex>" so switching algorithms never produces a
// false cache hit.
//
// Lookups by hash are scoped to a directory tree. The first miss in a scope
// during a run walks the tree and back-fills the index, so a destination that
// was populated by another tool is still searched. Staleness detection relies
// only on (size, mtime): a content change that preserves both, or clock skew
// that rewinds mtime, goes unnoticed.
package hashindex
