package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

// nowFunc is swapped in tests.
var nowFunc = time.Now

// IDAllocator hands out ids for brand-new jobs.
//
// Ids must not collide on either side, so the next id is one past the
// largest id known locally or remotely.
type IDAllocator struct {
	local  LocalStore
	remote RemoteClient
	logger *log.Logger
}

// NewIDAllocator creates an allocator. remote may be nil when no endpoint is
// configured, in which case only local ids are considered.
func NewIDAllocator(local LocalStore, remote RemoteClient, logger *log.Logger) *IDAllocator {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &IDAllocator{local: local, remote: remote, logger: logger}
}

// NextID returns max(local max id, remote max id) + 1.
//
// A failed remote fetch is logged and the local max alone is used. Only a
// failing local query is an error.
func (a *IDAllocator) NextID(ctx context.Context) (int64, error) {
	localMax, err := a.local.MaxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read local max id: %w", err)
	}

	if a.remote == nil {
		return localMax + 1, nil
	}

	remoteJobs, err := a.remote.DownloadAll(ctx)
	if err != nil {
		a.logger.Printf("Warning: could not fetch remote ids, using local max %d: %v", localMax, err)
		return localMax + 1, nil
	}

	maxID := localMax
	for _, job := range remoteJobs {
		if job.ID > maxID {
			maxID = job.ID
		}
	}
	return maxID + 1, nil
}
