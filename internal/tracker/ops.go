package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/thewalkersoft/jobtracker/internal/db"
	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// SaveAndSync stores job locally and then pushes it to the sheet. Jobs whose
// URL is already stored are updated remotely, new ones are uploaded.
func (t *Tracker) SaveAndSync(ctx context.Context, job *schema.Job) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.store.GetJobByURL(ctx, job.JobURL)
	if err != nil {
		return Message{}, fmt.Errorf("failed to look up job: %w", err)
	}
	return t.saveAndSync(ctx, job, existing != nil)
}

func (t *Tracker) saveAndSync(ctx context.Context, job *schema.Job, existed bool) (Message, error) {
	job.SetDefaults(t.now())
	if err := t.store.UpsertJob(ctx, job); err != nil {
		return Message{}, fmt.Errorf("failed to save job: %w", err)
	}
	t.notifier.OnJobSaved(job)

	if t.remote == nil {
		return info("Job saved locally (remote sync not configured)"), nil
	}

	push := t.remote.Upload
	if existed {
		push = t.remote.Update
	}
	resp, err := push(ctx, job)
	if err == nil && existed && resp.Refused() {
		// The row never reached the sheet; add it instead.
		resp, err = t.remote.Upload(ctx, job)
	}
	if err != nil {
		t.logger.Printf("Warning: failed to push %s (%s): %v", job.CompanyName, job.JobURL, err)
		return warn("Job saved locally, but sync failed: %v", err), nil
	}
	if resp.Refused() {
		t.logger.Printf("Warning: sheet refused %s: %s", job.JobURL, resp.Describe())
		return warn("Job saved locally, but the sheet returned: %s", resp.Describe()), nil
	}

	t.markSynced(ctx)
	return ok("Job saved and synced"), nil
}

// ScrapeAndSave saves the first posting URL found in shared text. A URL that
// is already stored is reported instead of being saved twice.
func (t *Tracker) ScrapeAndSave(ctx context.Context, text string) (Message, error) {
	url := ExtractURL(text)
	if url == "" {
		return info("No job link found in the shared text"), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.store.GetJobByURL(ctx, url)
	if err != nil {
		return Message{}, fmt.Errorf("failed to look up job: %w", err)
	}
	if existing != nil {
		return info("Job already saved! Current status: %s", existing.Status.DisplayName()), nil
	}

	scraped := t.scraper.Scrape(ctx, url)

	id, err := t.ids.NextID(ctx)
	if err != nil {
		return Message{}, err
	}

	job := schema.NewJob(id, url, scraped.CompanyName, scraped.JobTitle, scraped.Description, t.now())
	msg, err := t.saveAndSync(ctx, job, false)
	if err != nil {
		return Message{}, err
	}
	msg.Text = fmt.Sprintf("Saved %s (#%d). %s", job.CompanyName, job.ID, msg.Text)
	return msg, nil
}

// UpdateStatus moves a job to a new status.
func (t *Tracker) UpdateStatus(ctx context.Context, id int64, status schema.Status) (Message, error) {
	if !status.Valid() {
		return Message{}, fmt.Errorf("unknown status %q", status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.Job(ctx, id)
	if err != nil {
		return Message{}, err
	}

	job.Status = status
	job.Touch(t.now())
	return t.commitUpdate(ctx, job, "Status updated")
}

// Edit lists the fields to change; nil fields are left alone.
type Edit struct {
	CompanyName    *string
	JobURL         *string
	JobTitle       *string
	JobDescription *string
}

// Empty reports whether the edit changes nothing.
func (e Edit) Empty() bool {
	return e.CompanyName == nil && e.JobURL == nil && e.JobTitle == nil && e.JobDescription == nil
}

// UpdateJob applies an edit to a job's details.
func (t *Tracker) UpdateJob(ctx context.Context, id int64, edit Edit) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.Job(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if edit.Empty() {
		return info("Nothing to update"), nil
	}
	before := job.Clone()

	if edit.JobURL != nil {
		url := strings.TrimSpace(*edit.JobURL)
		if url != job.JobURL {
			other, err := t.store.GetJobByURL(ctx, url)
			if err != nil {
				return Message{}, fmt.Errorf("failed to look up job: %w", err)
			}
			if other != nil {
				return info("Job #%d (%s) already uses that URL", other.ID, other.CompanyName), nil
			}
		}
		job.JobURL = url
	}
	if edit.CompanyName != nil {
		job.CompanyName = strings.TrimSpace(*edit.CompanyName)
	}
	if edit.JobTitle != nil {
		job.JobTitle = strings.TrimSpace(*edit.JobTitle)
	}
	if edit.JobDescription != nil {
		job.JobDescription = *edit.JobDescription
	}

	if err := job.Validate(); err != nil {
		return Message{}, fmt.Errorf("invalid edit: %w", err)
	}

	job.Touch(t.now())
	if job.JobURL != before.JobURL {
		return t.commitMove(ctx, before, job)
	}
	return t.commitUpdate(ctx, job, "Job updated")
}

// commitUpdate stores a changed job and mirrors it with a remote update.
func (t *Tracker) commitUpdate(ctx context.Context, job *schema.Job, what string) (Message, error) {
	if err := t.store.UpsertJob(ctx, job); err != nil {
		return Message{}, fmt.Errorf("failed to save job: %w", err)
	}
	t.notifier.OnJobSaved(job)

	if t.remote == nil {
		return info("%s locally (remote sync not configured)", what), nil
	}
	resp, err := t.remote.Update(ctx, job)
	if err != nil {
		t.logger.Printf("Warning: failed to update %s remotely: %v", job.CompanyName, err)
		return warn("%s locally, but sync failed: %v", what, err), nil
	}
	if resp.Refused() {
		t.logger.Printf("Warning: sheet refused update of %s: %s", job.CompanyName, resp.Describe())
		return warn("%s locally, but the sheet returned: %s", what, resp.Describe()), nil
	}

	t.markSynced(ctx)
	return ok("%s and synced", what), nil
}

// commitMove stores a job whose URL changed. The sheet keys rows by URL, so
// the old row is deleted and the job uploaded under its new URL.
func (t *Tracker) commitMove(ctx context.Context, before, job *schema.Job) (Message, error) {
	if err := t.store.UpsertJob(ctx, job); err != nil {
		return Message{}, fmt.Errorf("failed to save job: %w", err)
	}
	t.notifier.OnJobSaved(job)

	if t.remote == nil {
		return info("Job updated locally (remote sync not configured)"), nil
	}

	resp, err := t.remote.Delete(ctx, before)
	if err != nil {
		t.logger.Printf("Warning: failed to remove old row %s: %v", before.JobURL, err)
		return warn("Job updated locally, but sync failed: %v", err), nil
	}
	if !resp.Succeeded() {
		// Nothing to remove when the old URL never reached the sheet.
		t.logger.Printf("Old row %s not deleted: %s", before.JobURL, resp.Describe())
	}

	resp, err = t.remote.Upload(ctx, job)
	if err != nil {
		t.logger.Printf("Warning: failed to upload %s: %v", job.JobURL, err)
		return warn("Job updated locally, but sync failed: %v", err), nil
	}
	if resp.Refused() {
		t.logger.Printf("Warning: sheet refused upload of %s: %s", job.JobURL, resp.Describe())
		return warn("Job updated locally, but the sheet returned: %s", resp.Describe()), nil
	}

	t.markSynced(ctx)
	return ok("Job updated and synced"), nil
}

// Delete removes a job and remembers it for Restore. The remote delete only
// counts when the sheet script confirms it.
func (t *Tracker) Delete(ctx context.Context, id int64) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.Job(ctx, id)
	if err != nil {
		return Message{}, err
	}

	if err := t.store.DeleteJob(ctx, id); err != nil {
		return Message{}, err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode deleted job: %w", err)
	}
	if err := t.store.SetMeta(ctx, db.MetaLastDeleted, string(data)); err != nil {
		return Message{}, err
	}
	t.notifier.OnJobDeleted(job)

	if t.remote == nil {
		return info("Job deleted locally (remote sync not configured)"), nil
	}

	resp, err := t.remote.Delete(ctx, job)
	if err != nil {
		t.logger.Printf("Warning: failed to delete %s remotely: %v", job.CompanyName, err)
		return warn("Job deleted locally, but sync failed: %v", err), nil
	}
	if !resp.Succeeded() {
		t.logger.Printf("Warning: sheet refused delete of %s: %s", job.CompanyName, resp.Describe())
		return warn("Job deleted locally, but the sheet returned: %s", resp.Describe()), nil
	}

	t.markSynced(ctx)
	return ok("Job deleted and synced"), nil
}

// Restore re-inserts the most recently deleted job.
func (t *Tracker) Restore(ctx context.Context) (Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, found, err := t.store.GetMeta(ctx, db.MetaLastDeleted)
	if err != nil {
		return Message{}, err
	}
	if !found || data == "" {
		return Message{}, ErrNothingToRestore
	}

	var job schema.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return Message{}, fmt.Errorf("failed to decode deleted job: %w", err)
	}

	existing, err := t.store.GetJobByURL(ctx, job.JobURL)
	if err != nil {
		return Message{}, fmt.Errorf("failed to look up job: %w", err)
	}
	if existing != nil {
		if err := t.store.DeleteMeta(ctx, db.MetaLastDeleted); err != nil {
			return Message{}, err
		}
		return info("Job already saved! Current status: %s", existing.Status.DisplayName()), nil
	}

	// The id may have been handed out again since the delete.
	if _, err := t.store.GetJobByID(ctx, job.ID); err == nil {
		id, err := t.ids.NextID(ctx)
		if err != nil {
			return Message{}, err
		}
		job.ID = id
	} else if !errors.Is(err, db.ErrNotFound) {
		return Message{}, err
	}

	msg, err := t.saveAndSync(ctx, &job, false)
	if err != nil {
		return Message{}, err
	}
	if err := t.store.DeleteMeta(ctx, db.MetaLastDeleted); err != nil {
		return Message{}, err
	}
	msg.Text = fmt.Sprintf("Restored %s (#%d). %s", job.CompanyName, job.ID, msg.Text)
	return msg, nil
}

// Filter returns the jobs whose company contains query (case-insensitive)
// and, when status is set, whose status matches. Order is preserved.
func Filter(all []*schema.Job, query string, status schema.Status) []*schema.Job {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]*schema.Job, 0, len(all))
	for _, job := range all {
		if query != "" && !strings.Contains(strings.ToLower(job.CompanyName), query) {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, job)
	}
	return out
}
