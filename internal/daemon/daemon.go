// Package daemon runs the tracker unattended.
//
// The daemon:
// 1. Syncs with the remote sheet on startup and on a fixed interval
// 2. Watches an inbox directory for dropped CSV exports
// 3. Imports each CSV once it stops changing and files it under processed/
// 4. Handles graceful shutdown
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thewalkersoft/jobtracker/internal/tracker"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Config holds configuration for the daemon.
type Config struct {
	// InboxDir is watched for *.csv files to import (empty: no inbox)
	InboxDir string

	// SyncInterval is how often to run a full sync (0: only at startup)
	SyncInterval time.Duration

	// DebounceInterval is how long a file must stay quiet before import.
	// Writers flush large files in several events; this batches them.
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:     15 * time.Minute,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates periodic sync and inbox imports.
type Daemon struct {
	tracker *tracker.Tracker
	config  *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> last event
	changeQueueMu sync.Mutex

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a daemon with custom configuration.
func New(t *tracker.Tracker, config *Config) (*Daemon, error) {
	if t == nil {
		return nil, fmt.Errorf("tracker cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultConfig().DebounceInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		tracker:     t,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Run an initial sync when a remote is configured
// 2. Import any CSV files already waiting in the inbox
// 3. Watch the inbox and sync on every tick
//
// A failed sync is logged and retried on the next tick. This blocks until
// ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if d.config.InboxDir != "" {
		for _, dir := range []string{d.config.InboxDir, d.subdir(processedDir), d.subdir(failedDir)} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create inbox: %w", err)
			}
		}
		if err := d.watcher.Add(d.config.InboxDir); err != nil {
			return fmt.Errorf("failed to watch inbox: %w", err)
		}
		d.config.Logger.Printf("Watching inbox: %s", d.config.InboxDir)
	}

	d.PerformSync()

	if d.config.InboxDir != "" {
		if err := d.queueExisting(); err != nil {
			d.config.Logger.Printf("Warning: failed to scan inbox: %v", err)
		}
	}

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processChangeQueue()
	go d.periodicSync()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. It is safe to call more than once.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.config.Logger.Println("Stopping daemon")

		d.cancel()

		if err := d.watcher.Close(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}

		d.wg.Wait()

		d.config.Logger.Println("Daemon stopped")
	})
	return nil
}

// PerformSync runs one sync pass and logs the outcome.
func (d *Daemon) PerformSync() {
	if !d.tracker.RemoteConfigured() {
		d.config.Logger.Println("Remote not configured, skipping sync")
		return
	}

	_, msg, err := d.tracker.Sync(d.ctx)
	if err != nil {
		d.config.Logger.Printf("Error syncing: %v", err)
		return
	}
	d.config.Logger.Println(msg)
}

// periodicSync runs PerformSync on every tick.
func (d *Daemon) periodicSync() {
	defer d.wg.Done()

	if d.config.SyncInterval <= 0 {
		<-d.ctx.Done()
		return
	}

	ticker := time.NewTicker(d.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.PerformSync()
		}
	}
}

// watchFileEvents monitors the inbox and queues CSV files.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isCSV(event.Name) {
				continue
			}

			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueExisting queues CSV files that arrived while the daemon was down.
func (d *Daemon) queueExisting() error {
	entries, err := os.ReadDir(d.config.InboxDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isCSV(entry.Name()) {
			continue
		}
		d.queueChange(filepath.Join(d.config.InboxDir, entry.Name()))
	}
	return nil
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue processes queued files with debouncing.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges imports files that have been quiet for long enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	now := time.Now()
	var ready []string
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	for _, path := range ready {
		if d.ctx.Err() != nil {
			return
		}
		d.config.Logger.Printf("Processing inbox file: %s", path)
		if err := d.importFile(path); err != nil {
			d.config.Logger.Printf("Error importing %s: %v", path, err)
		}
	}
}

// importFile imports one CSV and moves it out of the inbox. Files that
// cannot be parsed go to failed/ so they are not retried forever.
func (d *Daemon) importFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		// Already moved by an earlier event.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}

	_, msg, importErr := d.tracker.Import(d.ctx, f)
	f.Close()

	if errors.Is(importErr, context.Canceled) || errors.Is(importErr, context.DeadlineExceeded) {
		// Interrupted by shutdown; the file stays queued for the next start.
		d.config.Logger.Printf("Import of %s interrupted, leaving it in the inbox", filepath.Base(path))
		return nil
	}

	dest := processedDir
	if importErr != nil {
		dest = failedDir
	}
	if err := d.moveTo(path, dest); err != nil {
		return err
	}

	if importErr != nil {
		return importErr
	}
	d.config.Logger.Printf("%s: %s", filepath.Base(path), msg)
	return nil
}

// moveTo moves path into the named inbox subdirectory, adding a timestamp
// when a file of the same name is already there.
func (d *Daemon) moveTo(path, sub string) error {
	name := filepath.Base(path)
	target := filepath.Join(d.subdir(sub), name)
	if _, err := os.Stat(target); err == nil {
		ext := filepath.Ext(name)
		target = filepath.Join(d.subdir(sub),
			fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), time.Now().Format("20060102-150405.000"), ext))
	}
	if err := os.Rename(path, target); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", name, sub, err)
	}
	return nil
}

func (d *Daemon) subdir(name string) string {
	return filepath.Join(d.config.InboxDir, name)
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
