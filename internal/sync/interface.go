package sync

import (
	"context"
	"fmt"

	"github.com/thewalkersoft/jobtracker/internal/remote"
	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// LocalStore is the part of the local database the engine needs.
// *db.DB satisfies it.
type LocalStore interface {
	// AllJobs returns the full local snapshot.
	AllJobs(ctx context.Context) ([]*schema.Job, error)

	// UpsertJob inserts or replaces a job by id.
	UpsertJob(ctx context.Context, job *schema.Job) error

	// MaxID returns the largest id in the store, or 0 when empty.
	MaxID(ctx context.Context) (int64, error)
}

// RemoteClient is the part of the spreadsheet client the engine needs.
// *remote.Client satisfies it.
type RemoteClient interface {
	// DownloadAll returns the full remote snapshot.
	DownloadAll(ctx context.Context) ([]*schema.Job, error)

	// Upload appends a job row.
	Upload(ctx context.Context, job *schema.Job) (*remote.Response, error)

	// Update overwrites the row for a job, matched by URL.
	Update(ctx context.Context, job *schema.Job) (*remote.Response, error)
}

// Resolution is the action taken for a job present on both sides.
type Resolution int

const (
	// NoChange means both sides already hold the same content.
	NoChange Resolution = iota
	// UpdateLocal means the remote copy is newer and overwrites the local one.
	UpdateLocal
	// UpdateRemote means the local copy is newer and overwrites the remote one.
	UpdateRemote
	// UpdateBoth means the content differs with equal modification times.
	// The local copy wins and the record counts as a conflict.
	UpdateBoth
)

func (r Resolution) String() string {
	switch r {
	case NoChange:
		return "no_change"
	case UpdateLocal:
		return "update_local"
	case UpdateRemote:
		return "update_remote"
	case UpdateBoth:
		return "update_both"
	default:
		return "unknown"
	}
}

// Result counts what a sync pass did.
type Result struct {
	Uploaded   int `json:"uploaded"`
	Downloaded int `json:"downloaded"`
	Updated    int `json:"updated"`
	Conflicts  int `json:"conflicts"`

	// Failed counts per-record remote writes that did not go through.
	Failed int `json:"failed"`
}

// Changed reports whether the pass wrote anything on either side.
func (r Result) Changed() bool {
	return r.Uploaded+r.Downloaded+r.Updated > 0
}

// String formats the result as a one-line summary.
func (r Result) String() string {
	s := fmt.Sprintf("%d uploaded, %d downloaded, %d updated, %d conflicts",
		r.Uploaded, r.Downloaded, r.Updated, r.Conflicts)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d failed", r.Failed)
	}
	return s
}
