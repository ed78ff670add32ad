// Package backup snapshots the local job store to JSONL and loads it back.
//
// One job is written per line in the same JSON shape the sheet endpoint
// uses, so a dump can also be inspected or edited by hand.
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/db"
	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// Store is the part of the local database a backup needs. *db.DB satisfies it.
type Store interface {
	AllJobs(ctx context.Context) ([]*schema.Job, error)
	UpsertJob(ctx context.Context, job *schema.Job) error
	GetJobByURL(ctx context.Context, url string) (*schema.Job, error)
	GetJobByID(ctx context.Context, id int64) (*schema.Job, error)
	MaxID(ctx context.Context) (int64, error)
}

// DumpResult contains statistics about a dump
type DumpResult struct {
	Path        string
	JobsWritten int
}

// Dump writes every job to path, replacing it atomically.
func Dump(ctx context.Context, store Store, path string) (*DumpResult, error) {
	jobs, err := store.AllJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, job := range jobs {
		if err := enc.Encode(job); err != nil {
			f.Close()
			_ = os.Remove(tmpPath)
			return nil, fmt.Errorf("failed to encode job %d: %w", job.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return &DumpResult{Path: path, JobsWritten: len(jobs)}, nil
}

// LoadOptions contains configuration for a load
type LoadOptions struct {
	FromJSONL string // Input JSONL file path
	DryRun    bool   // Validate without writing
	Backup    bool   // Dump the current store next to the input first
}

// LoadResult contains statistics about a load
type LoadResult struct {
	JobsLoaded    int
	Invalid       int
	Reassigned    int // lines stored under a new id because theirs was taken
	BackupCreated string
	Errors        []string
}

// Load upserts every valid job in opts.FromJSONL. Invalid lines are counted
// and described in Errors; they never stop the load.
//
// Jobs are matched by URL: a line whose URL is already stored replaces that
// job under its existing id, and a line whose id belongs to another URL gets
// a fresh id.
func Load(ctx context.Context, store Store, opts LoadOptions) (*LoadResult, error) {
	result := &LoadResult{}

	// #nosec G304 - controlled path from CLI
	file, err := os.Open(opts.FromJSONL)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	if opts.Backup && !opts.DryRun {
		backupPath := opts.FromJSONL + ".before-load." + time.Now().Format("20060102-150405") + ".jsonl"
		if _, err := Dump(ctx, store, backupPath); err != nil {
			return nil, fmt.Errorf("failed to back up current jobs: %w", err)
		}
		result.BackupCreated = backupPath
	}

	maxID, err := store.MaxID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read max id: %w", err)
	}
	// URLs and ids written by earlier lines, so dry runs resolve the same way.
	loadedIDs := make(map[int64]string)
	loadedURLs := make(map[string]int64)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	now := time.Now()
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return result, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var job schema.Job
		if err := json.Unmarshal([]byte(line), &job); err != nil {
			result.Invalid++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid JSON: %v", lineNum, err))
			continue
		}

		job.SetDefaults(now)
		if err := job.Validate(); err != nil {
			result.Invalid++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}

		reassigned, err := resolveID(ctx, store, &job, &maxID, loadedIDs, loadedURLs)
		if err != nil {
			return result, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if reassigned {
			result.Reassigned++
		}
		loadedIDs[job.ID] = job.JobURL
		loadedURLs[job.JobURL] = job.ID

		if !opts.DryRun {
			if err := store.UpsertJob(ctx, &job); err != nil {
				return result, fmt.Errorf("line %d: %w", lineNum, err)
			}
		}
		result.JobsLoaded++
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read JSONL file: %w", err)
	}
	return result, nil
}

// resolveID picks the id job is stored under so that one URL never ends up
// in two rows. It reports whether the job had to move to a fresh id.
func resolveID(ctx context.Context, store Store, job *schema.Job, maxID *int64, loadedIDs map[int64]string, loadedURLs map[string]int64) (bool, error) {
	if id, ok := loadedURLs[job.JobURL]; ok {
		job.ID = id
		return false, nil
	}

	existing, err := store.GetJobByURL(ctx, job.JobURL)
	if err != nil {
		return false, fmt.Errorf("failed to look up job: %w", err)
	}
	if existing != nil {
		job.ID = existing.ID
		return false, nil
	}

	owner, taken := loadedIDs[job.ID]
	if !taken {
		holder, err := store.GetJobByID(ctx, job.ID)
		switch {
		case err == nil:
			owner, taken = holder.JobURL, true
		case !errors.Is(err, db.ErrNotFound):
			return false, fmt.Errorf("failed to look up job %d: %w", job.ID, err)
		}
	}

	if job.ID > *maxID {
		*maxID = job.ID
	}
	if taken && owner != job.JobURL {
		*maxID++
		job.ID = *maxID
		return true, nil
	}
	return false, nil
}
