// Package tracker is the application layer over the local store and the
// remote sheet. Every operation commits locally first and then mirrors the
// change remotely; a remote failure never undoes the local write and is
// reported in the returned Message instead.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/thewalkersoft/jobtracker/internal/db"
	"github.com/thewalkersoft/jobtracker/internal/remote"
	"github.com/thewalkersoft/jobtracker/internal/schema"
	"github.com/thewalkersoft/jobtracker/internal/scraper"
	jobsync "github.com/thewalkersoft/jobtracker/internal/sync"
)

var (
	// ErrNotFound is returned when no job has the requested id.
	ErrNotFound = errors.New("job not found")

	// ErrNothingToRestore is returned by Restore when nothing was deleted.
	ErrNothingToRestore = errors.New("nothing to restore")

	// ErrRemoteNotConfigured is returned by Sync without a remote endpoint.
	ErrRemoteNotConfigured = errors.New("remote sync is not configured")
)

// Remote is the spreadsheet client the tracker needs. *remote.Client
// satisfies it.
type Remote interface {
	jobsync.RemoteClient
	Delete(ctx context.Context, job *schema.Job) (*remote.Response, error)
}

// Level classifies a Message.
type Level int

const (
	// LevelOK means the change landed locally and remotely.
	LevelOK Level = iota
	// LevelInfo is informational, nothing changed.
	LevelInfo
	// LevelWarn means the local change stands but the remote one failed.
	LevelWarn
)

// Message is the human-readable outcome of an operation.
type Message struct {
	Level Level
	Text  string
}

func (m Message) String() string { return m.Text }

func ok(format string, args ...any) Message {
	return Message{Level: LevelOK, Text: fmt.Sprintf(format, args...)}
}

func info(format string, args ...any) Message {
	return Message{Level: LevelInfo, Text: fmt.Sprintf(format, args...)}
}

func warn(format string, args ...any) Message {
	return Message{Level: LevelWarn, Text: fmt.Sprintf(format, args...)}
}

// Config holds the tracker's collaborators.
type Config struct {
	// Remote is the sheet client; nil keeps the tracker local-only
	Remote Remote

	// Scraper reads postings for ScrapeAndSave (default: HTTP scraper, 10s timeout)
	Scraper scraper.Scraper

	// Notifier is told about committed changes (default: none)
	Notifier Notifier

	// Logger for diagnostics (default: stderr with "[tracker] " prefix)
	Logger *log.Logger

	// Now returns the current time (default: time.Now)
	Now func() time.Time
}

// Tracker serializes all mutations of one store.
type Tracker struct {
	mu sync.Mutex

	store    *db.DB
	remote   Remote
	engine   *jobsync.Engine
	ids      *jobsync.IDAllocator
	scraper  scraper.Scraper
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// New creates a Tracker over an initialized store.
func New(store *db.DB, cfg Config) *Tracker {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[tracker] ", log.LstdFlags)
	}
	if cfg.Scraper == nil {
		cfg.Scraper = scraper.New(0)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t := &Tracker{
		store:    store,
		remote:   cfg.Remote,
		scraper:  cfg.Scraper,
		notifier: cfg.Notifier,
		logger:   logger,
		now:      cfg.Now,
	}

	syncLogger := log.New(logger.Writer(), "[sync] ", logger.Flags())
	if t.remote != nil {
		t.engine = jobsync.New(store, t.remote, syncLogger)
		t.ids = jobsync.NewIDAllocator(store, t.remote, syncLogger)
	} else {
		t.ids = jobsync.NewIDAllocator(store, nil, syncLogger)
	}
	return t
}

// SetNotifier replaces the change notifier.
func (t *Tracker) SetNotifier(n Notifier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n == nil {
		n = NopNotifier{}
	}
	t.notifier = n
}

// RemoteConfigured reports whether a sheet endpoint is set.
func (t *Tracker) RemoteConfigured() bool {
	return t.remote != nil
}

// Store returns the underlying store.
func (t *Tracker) Store() *db.DB {
	return t.store
}

// Jobs returns every job, newest first.
func (t *Tracker) Jobs(ctx context.Context) ([]*schema.Job, error) {
	return t.store.AllJobs(ctx)
}

// Job returns the job with the given id.
func (t *Tracker) Job(ctx context.Context, id int64) (*schema.Job, error) {
	job, err := t.store.GetJobByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return job, err
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURL returns the first http(s) URL in shared text, or "".
func ExtractURL(text string) string {
	return urlPattern.FindString(text)
}
