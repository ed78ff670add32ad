package sync

import "github.com/thewalkersoft/jobtracker/internal/schema"

// ResolveConflict decides which side of a job present in both stores wins.
//
// Identical content needs no change whatever the timestamps. Otherwise the
// strictly newer LastModified wins, and a tie resolves in favor of the local
// copy (UpdateBoth). The decision depends only on the two records, so
// applying it and resolving again yields NoChange.
func ResolveConflict(local, remote *schema.Job) Resolution {
	if local.SameContent(remote) {
		return NoChange
	}

	switch {
	case local.LastModified > remote.LastModified:
		return UpdateRemote
	case remote.LastModified > local.LastModified:
		return UpdateLocal
	default:
		return UpdateBoth
	}
}
