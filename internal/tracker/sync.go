package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/csvio"
	"github.com/thewalkersoft/jobtracker/internal/db"
	jobsync "github.com/thewalkersoft/jobtracker/internal/sync"
)

// Sync runs a full bidirectional pass. A sheet that cannot be reached is
// reported in the message; the returned error covers local failures,
// cancellation and a missing endpoint.
func (t *Tracker) Sync(ctx context.Context) (jobsync.Result, Message, error) {
	if t.engine == nil {
		return jobsync.Result{}, Message{}, ErrRemoteNotConfigured
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	result, err := t.engine.PerformSync(ctx)
	if errors.Is(err, jobsync.ErrRemoteUnavailable) {
		t.logger.Printf("Sync failed: %v", err)
		return result, warn("Sync failed: %v", err), nil
	}
	if err != nil {
		t.logger.Printf("Sync aborted: %v", err)
		return result, Message{}, fmt.Errorf("sync aborted: %w", err)
	}

	t.markSynced(ctx)
	t.notifier.OnSyncComplete(result)
	return result, ok("%s", SyncSummary(result)), nil
}

// SyncSummary renders a result the way the CLI and dashboard show it.
func SyncSummary(r jobsync.Result) string {
	if !r.Changed() && r.Failed == 0 {
		return "Sync completed, everything up to date"
	}

	var parts []string
	if r.Uploaded > 0 {
		parts = append(parts, fmt.Sprintf("%d uploaded", r.Uploaded))
	}
	if r.Downloaded > 0 {
		parts = append(parts, fmt.Sprintf("%d downloaded", r.Downloaded))
	}
	if r.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", r.Updated))
	}
	if r.Conflicts > 0 {
		parts = append(parts, fmt.Sprintf("%d conflicts resolved (local took precedence)", r.Conflicts))
	}
	if r.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.Failed))
	}
	return "Sync completed: " + strings.Join(parts, ", ")
}

// LastSync returns when a remote write last went through.
func (t *Tracker) LastSync(ctx context.Context) (time.Time, bool, error) {
	value, found, err := t.store.GetMeta(ctx, db.MetaLastSync)
	if err != nil || !found {
		return time.Time{}, false, err
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// FormatLastSync renders a LastSync value, "Never" when unset.
func FormatLastSync(ts time.Time, found bool) string {
	if !found {
		return "Never"
	}
	return ts.Local().Format("Jan 02, 15:04")
}

func (t *Tracker) markSynced(ctx context.Context) {
	if err := t.store.SetMeta(ctx, db.MetaLastSync, t.now().UTC().Format(time.RFC3339)); err != nil {
		t.logger.Printf("Warning: failed to record sync time: %v", err)
	}
}

// ImportReport counts what an import did.
type ImportReport struct {
	Imported int
	Skipped  int
	// NotSynced counts imported rows whose remote push failed.
	NotSynced int
}

// Import reads a CSV export and saves every usable row. Rows whose URL is
// already stored keep their id; new ones get fresh ids.
func (t *Tracker) Import(ctx context.Context, r io.Reader) (ImportReport, Message, error) {
	var report ImportReport

	rows, stats, err := csvio.Decode(r)
	if err != nil {
		return report, Message{}, fmt.Errorf("failed to read csv: %w", err)
	}
	report.Skipped = stats.Skipped

	t.mu.Lock()
	defer t.mu.Unlock()

	// One allocator round trip per import; later new rows count up from it.
	var nextID int64
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, Message{}, err
		}

		existing, err := t.store.GetJobByURL(ctx, row.JobURL)
		if err != nil {
			return report, Message{}, fmt.Errorf("failed to look up job: %w", err)
		}

		var id int64
		if existing != nil {
			id = existing.ID
		} else {
			if nextID == 0 {
				if nextID, err = t.ids.NextID(ctx); err != nil {
					return report, Message{}, err
				}
			}
			if localMax, err := t.store.MaxID(ctx); err == nil && localMax >= nextID {
				nextID = localMax + 1
			}
			id = nextID
			nextID++
		}

		job := row.Job(id, t.now())
		if existing != nil && job.Timestamp == 0 {
			job.Timestamp = existing.Timestamp
		}

		msg, err := t.saveAndSync(ctx, job, existing != nil)
		if err != nil {
			return report, Message{}, fmt.Errorf("line %d: %w", row.Line, err)
		}
		if msg.Level == LevelWarn {
			report.NotSynced++
		}
		report.Imported++
	}

	t.notifier.OnImportComplete(report.Imported, report.Skipped)

	text := fmt.Sprintf("Imported %d job(s)", report.Imported)
	if report.Skipped > 0 {
		text += fmt.Sprintf(", skipped %d", report.Skipped)
	}
	if report.NotSynced > 0 {
		return report, warn("%s, %d not synced", text, report.NotSynced), nil
	}
	return report, ok("%s", text), nil
}

// Export writes every job as CSV.
func (t *Tracker) Export(ctx context.Context, w io.Writer) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	jobs, err := t.store.AllJobs(ctx)
	if err != nil {
		return Message{}, err
	}
	if err := csvio.Encode(w, jobs); err != nil {
		return Message{}, fmt.Errorf("export failed: %w", err)
	}
	return ok("Exported %d job(s) to CSV", len(jobs)), nil
}
