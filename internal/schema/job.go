package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Job is a saved job posting. The same struct is stored locally, exchanged
// with the spreadsheet endpoint and written to backups, so the JSON names
// follow the spreadsheet columns.
//
// JobURL is the business key: two records with the same URL describe the same
// posting even when their IDs differ. LastModified is the authority signal
// used to resolve sync conflicts and must be bumped on every local mutation.
type Job struct {
	// ===== Identity =====
	ID     int64  `json:"id" yaml:"id"`
	JobURL string `json:"jobUrl" yaml:"jobUrl"`

	// ===== Content =====
	CompanyName    string `json:"companyName" yaml:"companyName"`
	JobTitle       string `json:"jobTitle" yaml:"jobTitle"`
	JobDescription string `json:"jobDescription" yaml:"jobDescription"`
	Status         Status `json:"status" yaml:"status"`

	// ===== Timestamps (epoch milliseconds) =====
	Timestamp    int64 `json:"timestamp" yaml:"timestamp"`
	LastModified int64 `json:"lastModified" yaml:"lastModified"`
}

// NowMillis returns t as epoch milliseconds.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// NewJob builds a freshly scraped or imported job in the SAVED stage with
// both timestamps set to now.
func NewJob(id int64, url, company, title, description string, now time.Time) *Job {
	ms := NowMillis(now)
	return &Job{
		ID:             id,
		JobURL:         url,
		CompanyName:    company,
		JobTitle:       title,
		JobDescription: description,
		Status:         StatusSaved,
		Timestamp:      ms,
		LastModified:   ms,
	}
}

// Validate checks if the Job has valid field values.
func (j *Job) Validate() error {
	if j.ID <= 0 {
		return fmt.Errorf("id must be positive (got %d)", j.ID)
	}
	if j.CompanyName == "" {
		return fmt.Errorf("company name is required")
	}
	if j.JobURL == "" {
		return fmt.Errorf("job url is required")
	}
	if !j.Status.Valid() {
		return fmt.Errorf("unknown status %q", j.Status)
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (j *Job) SetDefaults(now time.Time) {
	if !j.Status.Valid() {
		j.Status = ParseStatus(string(j.Status))
	}
	if j.Timestamp == 0 {
		j.Timestamp = NowMillis(now)
	}
	if j.LastModified == 0 {
		j.LastModified = j.Timestamp
	}
}

// Touch records a local mutation.
func (j *Job) Touch(now time.Time) {
	j.LastModified = NowMillis(now)
}

// SameContent reports whether the user-visible fields match. IDs and
// timestamps are ignored.
func (j *Job) SameContent(other *Job) bool {
	return j.CompanyName == other.CompanyName &&
		j.JobTitle == other.JobTitle &&
		j.JobDescription == other.JobDescription &&
		j.Status == other.Status
}

// CreatedAt returns Timestamp as a time.Time.
func (j *Job) CreatedAt() time.Time {
	return time.UnixMilli(j.Timestamp)
}

// ModifiedAt returns LastModified as a time.Time.
func (j *Job) ModifiedAt() time.Time {
	return time.UnixMilli(j.LastModified)
}

// Clone returns a copy that can be mutated independently.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}

// DecodeJobs reads a JSON array of jobs. Statuses are parsed leniently.
func DecodeJobs(r io.Reader) ([]*Job, error) {
	var jobs []*Job
	if err := json.NewDecoder(r).Decode(&jobs); err != nil {
		return nil, fmt.Errorf("failed to decode jobs: %w", err)
	}
	return jobs, nil
}
