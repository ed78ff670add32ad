package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

const jobColumns = `id, company_name, job_url, job_title, job_description, status, timestamp, last_modified`

// UpsertJob inserts or replaces a job by id.
//
// All columns are overwritten, which is what restore and sync downloads rely
// on. Watchers receive a fresh snapshot after the write commits.
func (db *DB) UpsertJob(ctx context.Context, job *schema.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}

	query := `
	INSERT INTO jobs (` + jobColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		company_name = excluded.company_name,
		job_url = excluded.job_url,
		job_title = excluded.job_title,
		job_description = excluded.job_description,
		status = excluded.status,
		timestamp = excluded.timestamp,
		last_modified = excluded.last_modified
	`

	_, err := db.conn.ExecContext(ctx, query,
		job.ID,
		job.CompanyName,
		job.JobURL,
		job.JobTitle,
		job.JobDescription,
		job.Status.String(),
		job.Timestamp,
		job.LastModified,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job %d: %w", job.ID, err)
	}

	db.publish(ctx)
	return nil
}

// DeleteJob removes a job by id.
// Returns nil if the job doesn't exist (idempotent).
func (db *DB) DeleteJob(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job %d: %w", id, err)
	}

	db.publish(ctx)
	return nil
}

// AllJobs returns every job, newest first.
func (db *DB) AllJobs(ctx context.Context) ([]*schema.Job, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// GetJobByURL returns the job with the given URL, or nil when there is none.
func (db *DB) GetJobByURL(ctx context.Context, url string) (*schema.Job, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE job_url = ? ORDER BY id LIMIT 1`, url)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by url: %w", err)
	}
	return job, nil
}

// GetJobByID retrieves a single job. Returns ErrNotFound if it is missing.
func (db *DB) GetJobByID(ctx context.Context, id int64) (*schema.Job, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %d: %w", id, err)
	}
	return job, nil
}

// MaxID returns the largest job id, or 0 for an empty store.
func (db *DB) MaxID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, `SELECT MAX(id) FROM jobs`).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max id: %w", err)
	}
	return max.Int64, nil
}

// JobCount returns the total number of jobs in the database.
func (db *DB) JobCount() (int, error) {
	return db.JobCountContext(context.Background())
}

// JobCountContext returns the total number of jobs with context support.
func (db *DB) JobCountContext(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get job count: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of jobs per status.
func (db *DB) CountByStatus(ctx context.Context) (map[schema.Status]int, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[schema.Status]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[schema.ParseStatus(label)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*schema.Job, error) {
	var job schema.Job
	var status string

	err := row.Scan(
		&job.ID,
		&job.CompanyName,
		&job.JobURL,
		&job.JobTitle,
		&job.JobDescription,
		&status,
		&job.Timestamp,
		&job.LastModified,
	)
	if err != nil {
		return nil, err
	}

	// Rows written by older versions may carry stale labels.
	job.Status = schema.ParseStatus(status)
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*schema.Job, error) {
	jobs := []*schema.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}
