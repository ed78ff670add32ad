package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/thewalkersoft/jobtracker/internal/remote"
	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// ErrRemoteUnavailable wraps a failure to download the remote snapshot.
// Every other PerformSync error comes from the local store or ctx.
var ErrRemoteUnavailable = errors.New("remote unavailable")

// Engine runs bidirectional sync passes between a local store and the
// remote spreadsheet, matching jobs by URL.
type Engine struct {
	local  LocalStore
	remote RemoteClient
	logger *log.Logger
}

// New creates an Engine.
//
// If logger is nil, a default logger writing to stderr is used.
//
// Example:
//
//	database, err := db.Open(".jobtracker/jobs.db")
//	if err != nil {
//	    return err
//	}
//	client, err := remote.New(remote.Config{URL: scriptURL})
//	if err != nil {
//	    return err
//	}
//	engine := sync.New(database, client, nil)
//	result, err := engine.PerformSync(ctx)
func New(local LocalStore, remote RemoteClient, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Engine{
		local:  local,
		remote: remote,
		logger: logger,
	}
}

// PerformSync runs one full pass.
//
// Both snapshots are fetched up front; failing to fetch either one fails the
// pass. After that, every record is handled independently: remote write
// failures are logged and counted in Result.Failed, and the pass continues.
// Local write failures abort the pass since the store is unusable.
//
// Cancellation is checked between records. A cancelled pass returns the
// partial Result together with ctx.Err(); every action already applied is
// committed, so the next pass picks up where this one stopped.
func (e *Engine) PerformSync(ctx context.Context) (Result, error) {
	var result Result

	localJobs, remoteJobs, err := e.snapshots(ctx)
	if err != nil {
		return result, err
	}

	e.logger.Printf("Starting sync: %d local jobs, %d remote jobs", len(localJobs), len(remoteJobs))

	localByURL := indexByURL(localJobs)
	remoteByURL := indexByURL(remoteJobs)

	// Ids held locally, used to keep downloads from clobbering another job.
	usedIDs := make(map[int64]string, len(localJobs))
	var maxID int64
	for _, job := range localJobs {
		usedIDs[job.ID] = job.JobURL
		if job.ID > maxID {
			maxID = job.ID
		}
	}

	seen := make(map[string]bool, len(remoteJobs))
	for _, remoteJob := range remoteJobs {
		if seen[remoteJob.JobURL] {
			// The sheet holds duplicate rows for this URL; the first one wins.
			continue
		}
		seen[remoteJob.JobURL] = true

		if err := ctx.Err(); err != nil {
			return result, err
		}

		localJob, ok := localByURL[remoteJob.JobURL]
		if !ok {
			job := remoteJob.Clone()
			job.SetDefaults(nowFunc())
			if owner, taken := usedIDs[job.ID]; job.ID <= 0 || (taken && owner != job.JobURL) {
				maxID++
				e.logger.Printf("Remote job %s has id %d already in use locally, storing as %d",
					job.JobURL, job.ID, maxID)
				job.ID = maxID
			}
			if job.ID > maxID {
				maxID = job.ID
			}
			if err := job.Validate(); err != nil {
				result.Failed++
				e.logger.Printf("Warning: skipping invalid remote job %s: %v", job.JobURL, err)
				continue
			}
			if err := e.local.UpsertJob(ctx, job); err != nil {
				return result, fmt.Errorf("failed to store downloaded job %s: %w", job.JobURL, err)
			}
			usedIDs[job.ID] = job.JobURL
			result.Downloaded++
			e.logger.Printf("Downloaded: %s (%s)", job.CompanyName, job.JobURL)
			continue
		}

		if err := e.apply(ctx, localJob, remoteJob, &result); err != nil {
			return result, err
		}
	}

	uploaded := make(map[string]bool)
	for _, localJob := range localJobs {
		if _, ok := remoteByURL[localJob.JobURL]; ok || uploaded[localJob.JobURL] {
			continue
		}
		uploaded[localJob.JobURL] = true
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if _, err := e.remote.Upload(ctx, localJob); err != nil {
			result.Failed++
			e.logger.Printf("Warning: failed to upload %s (%s): %v", localJob.CompanyName, localJob.JobURL, err)
			continue
		}
		result.Uploaded++
		e.logger.Printf("Uploaded: %s (%s)", localJob.CompanyName, localJob.JobURL)
	}

	e.logger.Printf("Sync completed: %s", result)
	return result, nil
}

// apply carries out the resolution for a job present on both sides.
func (e *Engine) apply(ctx context.Context, localJob, remoteJob *schema.Job, result *Result) error {
	switch ResolveConflict(localJob, remoteJob) {
	case NoChange:
		return nil

	case UpdateLocal:
		// Keep the local id so the store never holds two rows for one URL.
		job := remoteJob.Clone()
		job.ID = localJob.ID
		if job.Timestamp == 0 {
			job.Timestamp = localJob.Timestamp
		}
		if err := job.Validate(); err != nil {
			result.Failed++
			e.logger.Printf("Warning: not applying invalid remote job %s: %v", job.JobURL, err)
			return nil
		}
		if err := e.local.UpsertJob(ctx, job); err != nil {
			return fmt.Errorf("failed to update local job %d: %w", localJob.ID, err)
		}
		result.Updated++
		e.logger.Printf("Updated local: %s (remote was newer)", job.CompanyName)

	case UpdateRemote:
		if resp, err := e.remote.Update(ctx, localJob); err != nil || resp.Refused() {
			result.Failed++
			e.logger.Printf("Warning: failed to update remote for %s: %s", localJob.CompanyName, failure(resp, err))
			return nil
		}
		result.Updated++
		e.logger.Printf("Updated remote: %s (local was newer)", localJob.CompanyName)

	case UpdateBoth:
		if resp, err := e.remote.Update(ctx, localJob); err != nil || resp.Refused() {
			result.Failed++
			e.logger.Printf("Warning: failed to resolve conflict for %s: %s", localJob.CompanyName, failure(resp, err))
			return nil
		}
		result.Updated++
		result.Conflicts++
		e.logger.Printf("Conflict resolved: %s (local took precedence)", localJob.CompanyName)
	}
	return nil
}

// snapshots fetches both sides concurrently.
func (e *Engine) snapshots(ctx context.Context) (local, remote []*schema.Job, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		jobs, err := e.local.AllJobs(gctx)
		if err != nil {
			return fmt.Errorf("failed to load local jobs: %w", err)
		}
		local = jobs
		return nil
	})

	g.Go(func() error {
		jobs, err := e.remote.DownloadAll(gctx)
		if err != nil {
			return fmt.Errorf("%w: failed to download remote jobs: %w", ErrRemoteUnavailable, err)
		}
		remote = jobs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return local, remote, nil
}

// failure describes why a remote write did not go through.
func failure(resp *remote.Response, err error) string {
	if err != nil {
		return err.Error()
	}
	return resp.Describe()
}

func indexByURL(jobs []*schema.Job) map[string]*schema.Job {
	m := make(map[string]*schema.Job, len(jobs))
	for _, job := range jobs {
		if _, ok := m[job.JobURL]; !ok {
			m[job.JobURL] = job
		}
	}
	return m
}
