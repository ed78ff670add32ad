package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/schema"
)

// openTestDB returns an initialized database in a temporary directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "jobs.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return db
}

func testJob(id int64, url string, ts int64) *schema.Job {
	job := schema.NewJob(id, url, "Company "+url, "Engineer", "Line one\nLine two, with comma", time.UnixMilli(ts))
	return job
}

func TestOpen_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jobs.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("path = %q, want %q", db.Path(), path)
	}
}

func TestOpen_FilePrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	db, err := Open("file:" + path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("path = %q, want %q", db.Path(), path)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.InitSchema(); err != nil {
		t.Errorf("second InitSchema() failed: %v", err)
	}
}

func TestUpsertJob_InsertAndUpdate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	job := testJob(1, "https://example.com/a", 1000)
	if err := db.UpsertJob(ctx, job); err != nil {
		t.Fatalf("UpsertJob() failed: %v", err)
	}

	job.Status = schema.StatusApplied
	job.LastModified = 2000
	if err := db.UpsertJob(ctx, job); err != nil {
		t.Fatalf("second UpsertJob() failed: %v", err)
	}

	count, err := db.JobCount()
	if err != nil {
		t.Fatalf("JobCount() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	got, err := db.GetJobByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetJobByID() failed: %v", err)
	}
	if got.Status != schema.StatusApplied || got.LastModified != 2000 {
		t.Errorf("got status=%s lastModified=%d", got.Status, got.LastModified)
	}
	if got.JobDescription != job.JobDescription {
		t.Errorf("description = %q, want %q", got.JobDescription, job.JobDescription)
	}
}

func TestUpsertJob_Invalid(t *testing.T) {
	db := openTestDB(t)
	err := db.UpsertJob(context.Background(), &schema.Job{ID: 1})
	if err == nil {
		t.Fatal("expected error for invalid job")
	}
}

func TestGetJobByURL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	got, err := db.GetJobByURL(ctx, "https://example.com/missing")
	if err != nil {
		t.Fatalf("GetJobByURL() failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing url, got %+v", got)
	}

	if err := db.UpsertJob(ctx, testJob(4, "https://example.com/b", 1)); err != nil {
		t.Fatalf("UpsertJob() failed: %v", err)
	}
	got, err = db.GetJobByURL(ctx, "https://example.com/b")
	if err != nil {
		t.Fatalf("GetJobByURL() failed: %v", err)
	}
	if got == nil || got.ID != 4 {
		t.Errorf("GetJobByURL() = %+v, want id 4", got)
	}
}

func TestGetJobByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetJobByID(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMaxID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	max, err := db.MaxID(ctx)
	if err != nil {
		t.Fatalf("MaxID() failed: %v", err)
	}
	if max != 0 {
		t.Errorf("empty MaxID() = %d, want 0", max)
	}

	for _, id := range []int64{3, 9, 5} {
		if err := db.UpsertJob(ctx, testJob(id, "https://example.com/"+string(rune('a'+id)), id)); err != nil {
			t.Fatalf("UpsertJob() failed: %v", err)
		}
	}

	max, err = db.MaxID(ctx)
	if err != nil {
		t.Fatalf("MaxID() failed: %v", err)
	}
	if max != 9 {
		t.Errorf("MaxID() = %d, want 9", max)
	}
}

func TestAllJobs_OrderedNewestFirst(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_ = db.UpsertJob(ctx, testJob(1, "u1", 100))
	_ = db.UpsertJob(ctx, testJob(2, "u2", 300))
	_ = db.UpsertJob(ctx, testJob(3, "u3", 200))

	jobs, err := db.AllJobs(ctx)
	if err != nil {
		t.Fatalf("AllJobs() failed: %v", err)
	}
	want := []int64{2, 3, 1}
	if len(jobs) != len(want) {
		t.Fatalf("got %d jobs, want %d", len(jobs), len(want))
	}
	for i, id := range want {
		if jobs[i].ID != id {
			t.Errorf("jobs[%d].ID = %d, want %d", i, jobs[i].ID, id)
		}
	}
}

func TestDeleteJob_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_ = db.UpsertJob(ctx, testJob(1, "u1", 100))
	if err := db.DeleteJob(ctx, 1); err != nil {
		t.Fatalf("DeleteJob() failed: %v", err)
	}
	if err := db.DeleteJob(ctx, 1); err != nil {
		t.Fatalf("second DeleteJob() failed: %v", err)
	}

	count, _ := db.JobCount()
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestCountByStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a := testJob(1, "u1", 1)
	b := testJob(2, "u2", 2)
	b.Status = schema.StatusOffer
	c := testJob(3, "u3", 3)
	c.Status = schema.StatusOffer
	for _, j := range []*schema.Job{a, b, c} {
		if err := db.UpsertJob(ctx, j); err != nil {
			t.Fatalf("UpsertJob() failed: %v", err)
		}
	}

	counts, err := db.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() failed: %v", err)
	}
	if counts[schema.StatusSaved] != 1 || counts[schema.StatusOffer] != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, ok, err := db.GetMeta(ctx, MetaLastSync); err != nil || ok {
		t.Fatalf("GetMeta() on empty = ok:%v err:%v", ok, err)
	}
	if err := db.SetMeta(ctx, MetaLastSync, "1"); err != nil {
		t.Fatalf("SetMeta() failed: %v", err)
	}
	if err := db.SetMeta(ctx, MetaLastSync, "2"); err != nil {
		t.Fatalf("SetMeta() overwrite failed: %v", err)
	}
	v, ok, err := db.GetMeta(ctx, MetaLastSync)
	if err != nil || !ok || v != "2" {
		t.Errorf("GetMeta() = %q, %v, %v", v, ok, err)
	}
	if err := db.DeleteMeta(ctx, MetaLastSync); err != nil {
		t.Fatalf("DeleteMeta() failed: %v", err)
	}
	if _, ok, _ := db.GetMeta(ctx, MetaLastSync); ok {
		t.Error("meta still present after DeleteMeta()")
	}
}

func TestWatch_PublishesAfterWrites(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := db.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}

	select {
	case snap := <-stream:
		if len(snap) != 0 {
			t.Fatalf("initial snapshot has %d jobs, want 0", len(snap))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	if err := db.UpsertJob(ctx, testJob(1, "u1", 1)); err != nil {
		t.Fatalf("UpsertJob() failed: %v", err)
	}

	select {
	case snap := <-stream:
		if len(snap) != 1 || snap[0].ID != 1 {
			t.Fatalf("snapshot after upsert = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot after write")
	}

	cancel()
	select {
	case _, ok := <-stream:
		if ok {
			// A final snapshot may race with cancellation; the next read must see the close.
			if _, ok := <-stream; ok {
				t.Error("stream not closed after cancel")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestConcurrentReadersDuringWrites(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	const readers = 8
	var wg sync.WaitGroup
	errs := make(chan error, readers+1)

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			for ctx.Err() == nil {
				jobs, err := db.AllJobs(ctx)
				if err != nil {
					if ctx.Err() == nil {
						errs <- fmt.Errorf("reader %d: %w", reader, err)
					}
					return
				}
				seen := make(map[string]bool, len(jobs))
				for _, job := range jobs {
					if job.ID <= 0 || seen[job.JobURL] {
						errs <- fmt.Errorf("reader %d: inconsistent row %+v", reader, job)
						return
					}
					seen[job.JobURL] = true
				}
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	for i := int64(1); i <= 50; i++ {
		if err := db.UpsertJob(context.Background(), testJob(i, fmt.Sprintf("https://jobs.example/%d", i), i)); err != nil {
			errs <- fmt.Errorf("writer: %w", err)
			break
		}
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	n, err := db.JobCount()
	if err != nil {
		t.Fatalf("JobCount() failed: %v", err)
	}
	if n != 50 {
		t.Errorf("JobCount() = %d, want 50", n)
	}
}

func TestWatch_EndsOnClose(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := db.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	// Never cancelled: only Close can end the stream.
	stream, err := db.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	<-stream

	closed := make(chan error, 1)
	go func() { closed <- db.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close() failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return; watcher goroutine still running")
	}

	if _, ok := <-stream; ok {
		t.Error("stream should be closed after Close()")
	}
}
