package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/db"
	"github.com/thewalkersoft/jobtracker/internal/schema"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.InitSchema(); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}
	return database
}

func seed(t *testing.T, database *db.DB, jobs ...*schema.Job) {
	t.Helper()
	for _, job := range jobs {
		if err := database.UpsertJob(context.Background(), job); err != nil {
			t.Fatalf("UpsertJob() failed: %v", err)
		}
	}
}

func TestDumpAndLoad(t *testing.T) {
	ctx := context.Background()
	src := openTestDB(t)
	seed(t, src,
		schema.NewJob(1, "https://jobs.example/1", "Acme", "Dev", "multi\nline", time.UnixMilli(1000)),
		schema.NewJob(2, "https://jobs.example/2", "Beta", "", "", time.UnixMilli(2000)),
	)

	path := filepath.Join(t.TempDir(), "nested", "jobs.jsonl")
	dump, err := Dump(ctx, src, path)
	if err != nil {
		t.Fatalf("Dump() failed: %v", err)
	}
	if dump.JobsWritten != 2 {
		t.Errorf("JobsWritten = %d, want 2", dump.JobsWritten)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("dump has %d lines, want 2", n)
	}

	dst := openTestDB(t)
	result, err := Load(ctx, dst, LoadOptions{FromJSONL: path})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if result.JobsLoaded != 2 || result.Invalid != 0 {
		t.Errorf("result = %+v", result)
	}

	got, err := dst.GetJobByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetJobByID() failed: %v", err)
	}
	if got.JobDescription != "multi\nline" || got.Timestamp != 1000 {
		t.Errorf("loaded job = %+v", got)
	}
}

func TestLoad_InvalidLinesAndDryRun(t *testing.T) {
	ctx := context.Background()
	input := `{"id":1,"jobUrl":"https://jobs.example/1","companyName":"Acme","status":"rejected"}

not json
{"id":2,"jobUrl":"","companyName":"Beta"}
{"id":3,"jobUrl":"https://jobs.example/3","companyName":"Gamma","status":"whatever"}
`
	path := filepath.Join(t.TempDir(), "in.jsonl")
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	database := openTestDB(t)

	dry, err := Load(ctx, database, LoadOptions{FromJSONL: path, DryRun: true})
	if err != nil {
		t.Fatalf("Load(dry run) failed: %v", err)
	}
	if dry.JobsLoaded != 2 || dry.Invalid != 2 || len(dry.Errors) != 2 {
		t.Errorf("dry run result = %+v", dry)
	}
	if n, _ := database.JobCount(); n != 0 {
		t.Errorf("dry run wrote %d jobs", n)
	}

	result, err := Load(ctx, database, LoadOptions{FromJSONL: path})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if result.JobsLoaded != 2 {
		t.Errorf("result = %+v", result)
	}

	job, err := database.GetJobByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetJobByID() failed: %v", err)
	}
	if job.Status != schema.StatusResumeRejected {
		t.Errorf("status = %s, want RESUME_REJECTED", job.Status)
	}
	if !strings.Contains(result.Errors[0], "line 3") {
		t.Errorf("first error = %q, want line 3", result.Errors[0])
	}
}

func TestLoad_Backup(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	seed(t, database, schema.NewJob(1, "https://jobs.example/1", "Acme", "", "", time.Now()))

	path := filepath.Join(t.TempDir(), "in.jsonl")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	result, err := Load(ctx, database, LoadOptions{FromJSONL: path, Backup: true})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if result.BackupCreated == "" {
		t.Fatal("backup path not reported")
	}
	if _, err := os.Stat(result.BackupCreated); err != nil {
		t.Errorf("backup missing: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(context.Background(), openTestDB(t), LoadOptions{FromJSONL: "/nonexistent/file.jsonl"}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_MatchesByURL(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	seed(t, database,
		schema.NewJob(1, "https://x", "X", "", "", time.UnixMilli(1)),
		schema.NewJob(2, "https://y", "Y", "", "", time.UnixMilli(1)),
	)

	input := `{"id":3,"jobUrl":"https://x","companyName":"X Corp","status":"APPLIED"}
{"id":2,"jobUrl":"https://z","companyName":"Z","status":"SAVED"}
`
	path := filepath.Join(t.TempDir(), "in.jsonl")
	if err := os.WriteFile(path, []byte(input), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	result, err := Load(ctx, database, LoadOptions{FromJSONL: path})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if result.JobsLoaded != 2 || result.Reassigned != 1 {
		t.Errorf("result = %+v, want 2 loaded and 1 reassigned", result)
	}

	jobs, err := database.AllJobs(ctx)
	if err != nil {
		t.Fatalf("AllJobs() failed: %v", err)
	}
	byURL := make(map[string]int64)
	for _, job := range jobs {
		if _, dup := byURL[job.JobURL]; dup {
			t.Errorf("url %s stored twice", job.JobURL)
		}
		byURL[job.JobURL] = job.ID
	}
	want := map[string]int64{"https://x": 1, "https://y": 2, "https://z": 3}
	if len(byURL) != len(want) {
		t.Fatalf("stored %v, want %v", byURL, want)
	}
	for url, id := range want {
		if byURL[url] != id {
			t.Errorf("%s stored as #%d, want #%d", url, byURL[url], id)
		}
	}

	x, _ := database.GetJobByURL(ctx, "https://x")
	if x.CompanyName != "X Corp" || x.Status != schema.StatusApplied {
		t.Errorf("x = %+v, want the loaded content", x)
	}
}
