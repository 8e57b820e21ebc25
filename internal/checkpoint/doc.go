// Package checkpoint makes long migrations resumable.
//
// A Session carries the progress of one pass over a (source, destination)
// pair: outcome counters, the list of files kept as duplicates, the set of
// processed source paths and the hash memo entries computed so far. The Store
// persists sessions in the shared SQLite database. Saves are incremental and
// transactional, so calling Save after every file stays cheap and a crash
// loses at most the file in flight. Clear removes the checkpoint once a pass
// completes.
package checkpoint
