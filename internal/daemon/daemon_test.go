package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/db"
	"github.com/thewalkersoft/jobtracker/internal/remote"
	"github.com/thewalkersoft/jobtracker/internal/remote/remotetest"
	"github.com/thewalkersoft/jobtracker/internal/schema"
	"github.com/thewalkersoft/jobtracker/internal/tracker"
)

const sampleCSV = "companyName,jobUrl,jobTitle,jobDescription,status,timestamp\n" +
	"Acme,https://jobs.example/1,Dev,Build,APPLIED,05-Mar-2024\n" +
	"Beta,https://jobs.example/2,Ops,Run,SAVED,05-Mar-2024\n"

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// setupTracker creates a tracker over a temp database. With srv nil the
// tracker is local-only.
func setupTracker(t *testing.T, srv *remotetest.Server) (*tracker.Tracker, *db.DB) {
	t.Helper()

	store, err := db.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.InitSchema(); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	cfg := tracker.Config{Logger: quietLogger()}
	if srv != nil {
		client, err := remote.New(remote.Config{URL: srv.URL, Timeout: 2 * time.Second, Logger: quietLogger()})
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		cfg.Remote = client
	}
	return tracker.New(store, cfg), store
}

func testConfig(inbox string) *Config {
	return &Config{
		InboxDir:         inbox,
		DebounceInterval: 50 * time.Millisecond,
		Logger:           quietLogger(),
	}
}

// startDaemon runs Start in the background and returns a stop func that
// waits for it to return.
func startDaemon(t *testing.T, d *Daemon) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start() returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("daemon did not stop")
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNew(t *testing.T) {
	tr, _ := setupTracker(t, nil)

	tests := []struct {
		name    string
		tracker *tracker.Tracker
		config  *Config
		wantErr bool
	}{
		{"valid configuration", tr, testConfig(t.TempDir()), false},
		{"default configuration", tr, nil, false},
		{"nil tracker", nil, testConfig(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(tt.tracker, tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if d != nil {
				defer d.Stop()
			}
		})
	}
}

func TestDaemon_ImportsInboxFile(t *testing.T) {
	tr, store := setupTracker(t, nil)
	inbox := filepath.Join(t.TempDir(), "inbox")

	d, err := New(tr, testConfig(inbox))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	stop := startDaemon(t, d)
	defer stop()

	waitFor(t, "inbox to be created", func() bool { return fileExists(inbox) })

	if err := os.WriteFile(filepath.Join(inbox, "jobs.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("Failed to write csv: %v", err)
	}

	processed := filepath.Join(inbox, processedDir, "jobs.csv")
	waitFor(t, "file to be processed", func() bool { return fileExists(processed) })

	if fileExists(filepath.Join(inbox, "jobs.csv")) {
		t.Error("file should be moved out of the inbox")
	}
	count, err := store.JobCount()
	if err != nil {
		t.Fatalf("JobCount() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("JobCount() = %d, want 2", count)
	}
}

func TestDaemon_ImportsExistingFilesOnStart(t *testing.T) {
	tr, store := setupTracker(t, nil)
	inbox := t.TempDir()
	if err := os.WriteFile(filepath.Join(inbox, "waiting.CSV"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("Failed to write csv: %v", err)
	}

	d, err := New(tr, testConfig(inbox))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	stop := startDaemon(t, d)
	defer stop()

	waitFor(t, "existing file to be processed", func() bool {
		return fileExists(filepath.Join(inbox, processedDir, "waiting.CSV"))
	})
	if n, _ := store.JobCount(); n != 2 {
		t.Errorf("JobCount() = %d, want 2", n)
	}
}

func TestDaemon_NonCSVFilesIgnored(t *testing.T) {
	tr, _ := setupTracker(t, nil)
	inbox := t.TempDir()

	d, err := New(tr, testConfig(inbox))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	stop := startDaemon(t, d)
	defer stop()

	notes := filepath.Join(inbox, "notes.txt")
	if err := os.WriteFile(notes, []byte("hello"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if !fileExists(notes) {
		t.Error("non-csv file should be left alone")
	}
}

func TestDaemon_InvalidFileMovedToFailed(t *testing.T) {
	tr, _ := setupTracker(t, nil)
	inbox := t.TempDir()

	d, err := New(tr, testConfig(inbox))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	stop := startDaemon(t, d)
	defer stop()

	waitFor(t, "failed dir", func() bool { return fileExists(filepath.Join(inbox, failedDir)) })
	if err := os.WriteFile(filepath.Join(inbox, "empty.csv"), nil, 0o644); err != nil {
		t.Fatalf("Failed to write csv: %v", err)
	}

	waitFor(t, "file to be rejected", func() bool {
		return fileExists(filepath.Join(inbox, failedDir, "empty.csv"))
	})
}

func TestDaemon_InitialAndPeriodicSync(t *testing.T) {
	srv := remotetest.NewServer(schema.NewJob(1, "https://jobs.example/remote", "Remote", "", "", time.UnixMilli(1)))
	defer srv.Close()
	tr, store := setupTracker(t, srv)

	cfg := testConfig("")
	cfg.SyncInterval = 100 * time.Millisecond
	d, err := New(tr, cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	stop := startDaemon(t, d)
	defer stop()

	waitFor(t, "initial download", func() bool {
		job, err := store.GetJobByURL(context.Background(), "https://jobs.example/remote")
		return err == nil && job != nil
	})
	waitFor(t, "periodic sync", func() bool { return srv.Calls("download") >= 2 })
}

func TestDaemon_GracefulShutdown(t *testing.T) {
	tr, _ := setupTracker(t, nil)

	d, err := New(tr, testConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- d.Start(context.Background()) }()

	time.Sleep(100 * time.Millisecond)
	if err := d.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Start() did not return after Stop()")
	}
}

func TestDaemon_InterruptedImportStaysInInbox(t *testing.T) {
	tr, store := setupTracker(t, nil)
	inbox := t.TempDir()

	d, err := New(tr, testConfig(inbox))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.Stop()

	path := filepath.Join(inbox, "jobs.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	// Shutdown has begun before the import runs.
	d.cancel()
	if err := d.importFile(path); err != nil {
		t.Fatalf("importFile() failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should remain in the inbox: %v", err)
	}
	for _, sub := range []string{processedDir, failedDir} {
		if _, err := os.Stat(filepath.Join(inbox, sub, "jobs.csv")); err == nil {
			t.Errorf("file should not be moved to %s/", sub)
		}
	}
	if n, _ := store.JobCount(); n != 0 {
		t.Errorf("JobCount() = %d, want 0", n)
	}
}
