// Package sync reconciles the local job store with the remote spreadsheet.
//
// # Matching
//
// Jobs are matched across the two stores by URL. Ids are not assumed to
// agree: a job created offline on one machine may carry a different id in
// the sheet than in the local database.
//
// # A sync pass
//
//	local snapshot ─┐                 ┌─> download (remote only)
//	                ├─ index by URL ──┼─> resolve (both sides)
//	remote snapshot ┘                 └─> upload (local only)
//
// For a job on both sides, ResolveConflict compares content first. Equal
// content needs nothing. Otherwise the newer LastModified wins, and equal
// timestamps resolve in favor of the local copy (counted as a conflict).
//
// Running PerformSync twice in a row with no changes in between does no
// writes on the second pass.
//
// # Usage
//
//	engine := sync.New(database, client, logger)
//	result, err := engine.PerformSync(ctx)
//	if err != nil {
//	    return err // a snapshot could not be fetched
//	}
//	fmt.Println(result)
//
// New ids come from an IDAllocator so they collide with neither store:
//
//	ids := sync.NewIDAllocator(database, client, logger)
//	id, err := ids.NextID(ctx)
package sync
