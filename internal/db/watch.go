package db

import (
	"context"
	"fmt"
	"os"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// Watch returns a live stream of the full job list, newest first.
//
// The current snapshot is sent immediately and a new one follows every
// committed write. Slow readers only ever see the latest snapshot; stale ones
// are dropped. The channel closes when ctx is done or the DB is closed.
func (db *DB) Watch(ctx context.Context) (<-chan []*schema.Job, error) {
	initial, err := db.AllJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial snapshot: %w", err)
	}

	ch := make(chan []*schema.Job, 1)
	ch <- initial

	db.watchersMu.Lock()
	db.watchers[ch] = struct{}{}
	db.watchersMu.Unlock()

	db.watchWG.Add(1)
	go func() {
		defer db.watchWG.Done()
		select {
		case <-ctx.Done():
		case <-db.done:
		}
		db.watchersMu.Lock()
		if _, ok := db.watchers[ch]; ok {
			delete(db.watchers, ch)
			close(ch)
		}
		db.watchersMu.Unlock()
	}()

	return ch, nil
}

// publish sends a fresh snapshot to every watcher.
func (db *DB) publish(ctx context.Context) {
	db.watchersMu.Lock()
	defer db.watchersMu.Unlock()

	if len(db.watchers) == 0 {
		return
	}

	snapshot, err := db.AllJobs(context.WithoutCancel(ctx))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to publish snapshot: %v\n", err)
		return
	}

	for ch := range db.watchers {
		// Replace any unread snapshot with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
