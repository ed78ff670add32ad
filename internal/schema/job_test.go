package schema

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestJob_Validate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     Job
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid job",
			job:     *NewJob(1, "https://example.com/1", "Acme", "Engineer", "desc", now),
			wantErr: false,
		},
		{
			name:    "missing id",
			job:     Job{CompanyName: "Acme", JobURL: "u", Status: StatusSaved},
			wantErr: true,
			errMsg:  "id must be positive",
		},
		{
			name:    "missing company",
			job:     Job{ID: 1, JobURL: "u", Status: StatusSaved},
			wantErr: true,
			errMsg:  "company name is required",
		},
		{
			name:    "missing url",
			job:     Job{ID: 1, CompanyName: "Acme", Status: StatusSaved},
			wantErr: true,
			errMsg:  "job url is required",
		},
		{
			name:    "unknown status",
			job:     Job{ID: 1, CompanyName: "Acme", JobURL: "u", Status: "NOPE"},
			wantErr: true,
			errMsg:  "unknown status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestNewJob(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	job := NewJob(7, "https://example.com/7", "Acme", "", "", now)

	if job.Status != StatusSaved {
		t.Errorf("status = %s, want SAVED", job.Status)
	}
	if job.Timestamp != now.UnixMilli() || job.LastModified != now.UnixMilli() {
		t.Errorf("timestamps = %d/%d, want %d", job.Timestamp, job.LastModified, now.UnixMilli())
	}
}

func TestJob_SetDefaults(t *testing.T) {
	now := time.UnixMilli(5000)
	job := &Job{ID: 1, CompanyName: "Acme", JobURL: "u", Status: "rejected"}
	job.SetDefaults(now)

	if job.Status != StatusResumeRejected {
		t.Errorf("status = %s, want RESUME_REJECTED", job.Status)
	}
	if job.Timestamp != 5000 || job.LastModified != 5000 {
		t.Errorf("timestamps = %d/%d, want 5000", job.Timestamp, job.LastModified)
	}
}

func TestJob_SameContent(t *testing.T) {
	a := &Job{ID: 1, CompanyName: "Acme", JobURL: "u", JobTitle: "t", JobDescription: "d", Status: StatusApplied, LastModified: 1}
	b := &Job{ID: 2, CompanyName: "Acme", JobURL: "u", JobTitle: "t", JobDescription: "d", Status: StatusApplied, LastModified: 99}
	if !a.SameContent(b) {
		t.Error("expected same content when only id and timestamps differ")
	}

	b.JobTitle = "other"
	if a.SameContent(b) {
		t.Error("expected different content when title differs")
	}
}

func TestJob_Touch(t *testing.T) {
	job := NewJob(1, "u", "Acme", "", "", time.UnixMilli(100))
	job.Touch(time.UnixMilli(250))
	if job.LastModified != 250 || job.Timestamp != 100 {
		t.Errorf("after Touch timestamps = %d/%d, want 100/250", job.Timestamp, job.LastModified)
	}
}

func TestJob_JSONFieldNames(t *testing.T) {
	job := NewJob(3, "https://example.com/3", "Acme", "Dev", "line1\nline2", time.UnixMilli(1))
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, field := range []string{`"companyName"`, `"jobUrl"`, `"jobTitle"`, `"jobDescription"`, `"lastModified"`, `"status":"SAVED"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("marshaled job %s missing %s", data, field)
		}
	}
}

func TestDecodeJobs(t *testing.T) {
	input := `[{"id":1,"companyName":"A","jobUrl":"u1","status":"OFFER"},{"id":2,"companyName":"B","jobUrl":"u2","status":"REJECTED"}]`
	jobs, err := DecodeJobs(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeJobs failed: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[1].Status != StatusResumeRejected {
		t.Errorf("jobs[1].Status = %s", jobs[1].Status)
	}
}
